package repository

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/immxrtalbeast/callrelay/internal/domain"
)

func requireInverse(t *testing.T, r *InMemoryPresenceRepository) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()

	require.Len(t, r.identities, len(r.endpoints))
	for identity, endpoint := range r.endpoints {
		require.Equal(t, identity, r.identities[endpoint], "endpoint %s", endpoint)
	}
	for endpoint, identity := range r.identities {
		require.Equal(t, endpoint, r.endpoints[identity], "identity %s", identity)
	}
}

func TestPresence_RegisterAndLookup(t *testing.T) {
	r := NewInMemoryPresenceRepository()

	prev, replaced := r.Register("alice", "e1")
	assert.False(t, replaced)
	assert.Empty(t, prev)

	endpoint, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Equal(t, domain.EndpointID("e1"), endpoint)

	identity, ok := r.ReverseLookup("e1")
	require.True(t, ok)
	assert.Equal(t, domain.Identity("alice"), identity)

	_, ok = r.Lookup("bob")
	assert.False(t, ok)
}

func TestPresence_RegisterSameEndpointIsIdempotent(t *testing.T) {
	r := NewInMemoryPresenceRepository()
	r.Register("alice", "e1")

	_, replaced := r.Register("alice", "e1")
	assert.False(t, replaced)
	assert.Equal(t, 1, r.Count())
	requireInverse(t, r)
}

func TestPresence_RegisterSupersedesOldEndpoint(t *testing.T) {
	r := NewInMemoryPresenceRepository()
	r.Register("bob", "old")

	prev, replaced := r.Register("bob", "new")
	require.True(t, replaced)
	assert.Equal(t, domain.EndpointID("old"), prev)

	endpoint, ok := r.Lookup("bob")
	require.True(t, ok)
	assert.Equal(t, domain.EndpointID("new"), endpoint)

	_, ok = r.ReverseLookup("old")
	assert.False(t, ok)
	requireInverse(t, r)
}

func TestPresence_EndpointSwitchesIdentity(t *testing.T) {
	r := NewInMemoryPresenceRepository()
	r.Register("alice", "e1")
	r.Register("bob", "e1")

	_, ok := r.Lookup("alice")
	assert.False(t, ok)
	identity, _ := r.ReverseLookup("e1")
	assert.Equal(t, domain.Identity("bob"), identity)
	requireInverse(t, r)
}

func TestPresence_RemoveBothDirections(t *testing.T) {
	r := NewInMemoryPresenceRepository()
	r.Register("alice", "e1")
	r.Register("bob", "e2")

	r.Remove("alice")
	r.RemoveByEndpoint("e2")
	r.Remove("nobody")
	r.RemoveByEndpoint("nowhere")

	assert.Zero(t, r.Count())
	assert.Empty(t, r.Identities())
	requireInverse(t, r)
}

func TestPresence_IdentitiesSorted(t *testing.T) {
	r := NewInMemoryPresenceRepository()
	r.Register("carol", "e3")
	r.Register("alice", "e1")
	r.Register("bob", "e2")

	assert.Equal(t, []domain.Identity{"alice", "bob", "carol"}, r.Identities())
}

func TestPresence_RandomSequencesStayInverse(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	r := NewInMemoryPresenceRepository()

	for i := 0; i < 5000; i++ {
		identity := domain.Identity(fmt.Sprintf("u%d", rng.Intn(8)))
		endpoint := domain.EndpointID(fmt.Sprintf("e%d", rng.Intn(12)))
		switch rng.Intn(3) {
		case 0:
			r.Register(identity, endpoint)
		case 1:
			r.Remove(identity)
		case 2:
			r.RemoveByEndpoint(endpoint)
		}
		requireInverse(t, r)
	}
}

func TestCallState_DefaultIdle(t *testing.T) {
	r := NewInMemoryCallStateRepository()

	status := r.Get("alice")
	assert.False(t, status.InCall)
	assert.Equal(t, domain.CallPhaseIdle, status.Phase)
	assert.Empty(t, status.Peer)
}

func TestCallState_BusyActiveClear(t *testing.T) {
	r := NewInMemoryCallStateRepository()

	r.SetBusy("alice", "bob")
	assert.True(t, r.Get("alice").With("bob"))
	assert.True(t, r.Get("bob").With("alice"))
	assert.True(t, r.Get("alice").Ringing())
	assert.Equal(t, 1, r.ActiveCalls())

	r.SetActive("alice", "bob")
	assert.Equal(t, domain.CallPhaseActive, r.Get("bob").Phase)
	assert.False(t, r.Get("bob").Ringing())

	r.Clear("alice")
	assert.False(t, r.Get("alice").InCall)
	// no cascade
	assert.True(t, r.Get("bob").With("alice"))
	assert.Zero(t, r.ActiveCalls())

	r.Remove("bob")
	assert.Equal(t, domain.IdleStatus(), r.Get("bob"))
}
