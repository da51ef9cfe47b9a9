package repository

import (
	"slices"
	"sync"

	"github.com/immxrtalbeast/callrelay/internal/domain"
)

type InMemoryPresenceRepository struct {
	mu         sync.RWMutex
	endpoints  map[domain.Identity]domain.EndpointID
	identities map[domain.EndpointID]domain.Identity
}

func NewInMemoryPresenceRepository() *InMemoryPresenceRepository {
	return &InMemoryPresenceRepository{
		endpoints:  make(map[domain.Identity]domain.EndpointID),
		identities: make(map[domain.EndpointID]domain.Identity),
	}
}

func (r *InMemoryPresenceRepository) Register(identity domain.Identity, endpoint domain.EndpointID) (domain.EndpointID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The endpoint may only represent one identity.
	if owner, ok := r.identities[endpoint]; ok && owner != identity {
		delete(r.endpoints, owner)
	}

	previous, ok := r.endpoints[identity]
	replaced := ok && previous != endpoint
	if replaced {
		delete(r.identities, previous)
	}

	r.endpoints[identity] = endpoint
	r.identities[endpoint] = identity

	if !replaced {
		return "", false
	}
	return previous, true
}

func (r *InMemoryPresenceRepository) Lookup(identity domain.Identity) (domain.EndpointID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	endpoint, ok := r.endpoints[identity]
	return endpoint, ok
}

func (r *InMemoryPresenceRepository) ReverseLookup(endpoint domain.EndpointID) (domain.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[endpoint]
	return identity, ok
}

func (r *InMemoryPresenceRepository) Remove(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	endpoint, ok := r.endpoints[identity]
	if !ok {
		return
	}
	delete(r.endpoints, identity)
	delete(r.identities, endpoint)
}

func (r *InMemoryPresenceRepository) RemoveByEndpoint(endpoint domain.EndpointID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[endpoint]
	if !ok {
		return
	}
	delete(r.identities, endpoint)
	delete(r.endpoints, identity)
}

func (r *InMemoryPresenceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

// Identities returns the registered identities in sorted order.
func (r *InMemoryPresenceRepository) Identities() []domain.Identity {
	r.mu.RLock()
	result := make([]domain.Identity, 0, len(r.endpoints))
	for identity := range r.endpoints {
		result = append(result, identity)
	}
	r.mu.RUnlock()

	slices.Sort(result)
	return result
}

type InMemoryCallStateRepository struct {
	mu       sync.RWMutex
	statuses map[domain.Identity]domain.CallStatus
}

func NewInMemoryCallStateRepository() *InMemoryCallStateRepository {
	return &InMemoryCallStateRepository{
		statuses: make(map[domain.Identity]domain.CallStatus),
	}
}

func (r *InMemoryCallStateRepository) Get(identity domain.Identity) domain.CallStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status, ok := r.statuses[identity]
	if !ok {
		return domain.IdleStatus()
	}
	return status
}

func (r *InMemoryCallStateRepository) SetBusy(a, b domain.Identity) {
	r.setPair(a, b, domain.CallPhaseRinging)
}

func (r *InMemoryCallStateRepository) SetActive(a, b domain.Identity) {
	r.setPair(a, b, domain.CallPhaseActive)
}

func (r *InMemoryCallStateRepository) setPair(a, b domain.Identity, phase domain.CallPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.statuses[a] = domain.CallStatus{InCall: true, Peer: b, Phase: phase}
	r.statuses[b] = domain.CallStatus{InCall: true, Peer: a, Phase: phase}
}

func (r *InMemoryCallStateRepository) Clear(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[identity] = domain.IdleStatus()
}

func (r *InMemoryCallStateRepository) Remove(identity domain.Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.statuses, identity)
}

// ActiveCalls counts symmetric call pairs, ringing or active.
func (r *InMemoryCallStateRepository) ActiveCalls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	calls := 0
	for identity, status := range r.statuses {
		if !status.InCall || identity >= status.Peer {
			continue
		}
		if r.statuses[status.Peer].With(identity) {
			calls++
		}
	}
	return calls
}
