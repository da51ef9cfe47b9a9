package repository

import "github.com/immxrtalbeast/callrelay/internal/domain"

// PresenceRepository keeps the identity <-> endpoint binding. Implementations
// must keep both directions mutually inverse after every call.
type PresenceRepository interface {
	// Register binds identity to endpoint. When identity was bound to another
	// endpoint, that endpoint is returned with replaced == true.
	Register(identity domain.Identity, endpoint domain.EndpointID) (previous domain.EndpointID, replaced bool)
	Lookup(identity domain.Identity) (domain.EndpointID, bool)
	ReverseLookup(endpoint domain.EndpointID) (domain.Identity, bool)
	Remove(identity domain.Identity)
	RemoveByEndpoint(endpoint domain.EndpointID)
	Count() int
	Identities() []domain.Identity
}

// CallStateRepository stores call membership per identity. It never cascades:
// callers clear both participants themselves.
type CallStateRepository interface {
	Get(identity domain.Identity) domain.CallStatus
	SetBusy(a, b domain.Identity)
	SetActive(a, b domain.Identity)
	Clear(identity domain.Identity)
	Remove(identity domain.Identity)
	ActiveCalls() int
}
