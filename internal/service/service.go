package service

import (
	"context"
	"encoding/json"

	"github.com/immxrtalbeast/callrelay/internal/domain"
)

// Transport delivers outbound events. Implementations must not block: the
// signaling state machine calls them while holding its lock.
type Transport interface {
	Send(endpoint domain.EndpointID, event domain.EventName, payload any) error
	Disconnect(endpoint domain.EndpointID, reason string)
}

// SignalingInteractor is the inbound side used by the transport.
type SignalingInteractor interface {
	Connect(endpoint domain.EndpointID)
	HandleEvent(ctx context.Context, endpoint domain.EndpointID, event domain.EventName, data json.RawMessage) error
	Disconnect(endpoint domain.EndpointID)
}

//go:generate mockgen -destination=mocks/mock_status.go -package=mocks github.com/immxrtalbeast/callrelay/internal/service StatusReader

// StatusReader backs the health and user listing endpoints.
type StatusReader interface {
	Stats() domain.Stats
	ConnectedUsers() []domain.Identity
}
