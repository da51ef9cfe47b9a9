package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/immxrtalbeast/callrelay/internal/calltimer"
	"github.com/immxrtalbeast/callrelay/internal/domain"
	"github.com/immxrtalbeast/callrelay/internal/repository"
	"github.com/immxrtalbeast/callrelay/lib/logger/sl"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrEmptyIdentity  = errors.New("userId is required")
)

// Reasons carried by call_ended and force_disconnect.
const (
	ReasonDisconnected = "disconnected"
	ReasonLoggedOut    = "logged out"
	ReasonReconnected  = "reconnected"
	ReasonSuperseded   = "superseded by a newer connection"
)

// Errors reported to the caller in call_failed and call_busy.
const (
	MsgUserOffline   = "User not found or offline"
	MsgUserBusy      = "User is busy"
	MsgAlreadyInCall = "You are already in a call"
	MsgSelfCall      = "Cannot call yourself"
	MsgNotRegistered = "Register before placing a call"
	MsgShuttingDown  = "Server is shutting down"
)

// SignalingService is the presence and call state machine. It owns the
// presence registry, the call state table and the call timers; mu serializes
// every inbound event and every timer fire over all three.
type SignalingService struct {
	log         *slog.Logger
	transport   Transport
	presence    repository.PresenceRepository
	calls       repository.CallStateRepository
	timers      *calltimer.Manager
	callTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func NewSignalingService(
	transport Transport,
	presence repository.PresenceRepository,
	calls repository.CallStateRepository,
	timers *calltimer.Manager,
	callTimeout time.Duration,
	log *slog.Logger,
) *SignalingService {
	if log == nil {
		log = slog.Default()
	}
	if timers == nil {
		timers = calltimer.NewManager(nil)
	}
	return &SignalingService{
		log:         log,
		transport:   transport,
		presence:    presence,
		calls:       calls,
		timers:      timers,
		callTimeout: callTimeout,
	}
}

func (s *SignalingService) Connect(endpoint domain.EndpointID) {
	s.log.Debug("endpoint connected", slog.String("endpoint", string(endpoint)))
}

func (s *SignalingService) HandleEvent(ctx context.Context, endpoint domain.EndpointID, event domain.EventName, data json.RawMessage) error {
	const op = "service.signaling.event"
	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Debug("event received",
		slog.String("op", op),
		slog.String("endpoint", string(endpoint)),
		slog.String("event", string(event)),
	)

	switch event {
	case domain.EventRegisterUser:
		p, err := decode[domain.RegisterUserPayload](data)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return s.RegisterUser(endpoint, p.UserID)
	case domain.EventMakeCall:
		p, err := decode[domain.MakeCallPayload](data)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.MakeCall(endpoint, p)
	case domain.EventAnswerCall:
		p, err := decode[domain.AnswerCallPayload](data)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.AnswerCall(endpoint, p)
	case domain.EventDeclineCall:
		p, err := decode[domain.CallPartiesPayload](data)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.DeclineCall(endpoint, p)
	case domain.EventEndCall:
		p, err := decode[domain.CallPartiesPayload](data)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.EndCall(endpoint, p)
	case domain.EventICECandidate:
		p, err := decode[domain.ICECandidatePayload](data)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.RelayICECandidate(endpoint, p)
	case domain.EventLogoutUser:
		p, err := decode[domain.LogoutUserPayload](data)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		s.LogoutUser(endpoint, p.UserID)
	default:
		return fmt.Errorf("%s: %w: %q", op, ErrUnknownEvent, event)
	}

	return nil
}

// RegisterUser binds userID to endpoint. A previous endpoint of the same user
// is told it was superseded and then terminated; any call either binding was
// part of is ended for the peer.
func (s *SignalingService) RegisterUser(endpoint domain.EndpointID, userID domain.Identity) error {
	const op = "service.signaling.register"
	if !userID.Valid() {
		return fmt.Errorf("%s: %w", op, ErrEmptyIdentity)
	}
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", string(userID)),
		slog.String("endpoint", string(endpoint)),
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.presence.ReverseLookup(endpoint); ok && owner != userID {
		log.Info("endpoint switches identity", slog.String("previous_user_id", string(owner)))
		s.releaseLocked(owner, ReasonLoggedOut)
	}

	s.endCallLocked(userID, ReasonReconnected)

	previous, replaced := s.presence.Register(userID, endpoint)
	s.calls.Clear(userID)

	if replaced {
		log.Info("user already connected, superseding endpoint", slog.String("previous_endpoint", string(previous)))
		s.send(previous, domain.EventForceDisconnect, domain.ForceDisconnectPayload{Reason: ReasonSuperseded})
		s.transport.Disconnect(previous, ReasonSuperseded)
	}

	s.send(endpoint, domain.EventUserRegistered, domain.UserRegisteredPayload{Success: true, UserID: userID})
	log.Info("user registered", slog.Int("total_users", s.presence.Count()))
	return nil
}

func (s *SignalingService) MakeCall(endpoint domain.EndpointID, p domain.MakeCallPayload) {
	const op = "service.signaling.make_call"

	s.mu.Lock()
	defer s.mu.Unlock()

	from, registered := s.presence.ReverseLookup(endpoint)
	to := p.To
	log := s.log.With(
		slog.String("op", op),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)

	if s.closed {
		log.Info("call rejected during shutdown")
		s.reject(endpoint, domain.EventCallFailed, MsgShuttingDown, to)
		return
	}
	if !registered {
		log.Info("call from unregistered endpoint rejected", slog.String("endpoint", string(endpoint)))
		s.reject(endpoint, domain.EventCallFailed, MsgNotRegistered, to)
		return
	}
	if p.From.Valid() && p.From != from {
		log.Warn("payload sender differs from registered identity", slog.String("claimed", string(p.From)))
	}
	if s.calls.Get(from).InCall {
		log.Info("caller already in a call")
		s.reject(endpoint, domain.EventCallFailed, MsgAlreadyInCall, to)
		return
	}
	if to == from {
		s.reject(endpoint, domain.EventCallFailed, MsgSelfCall, to)
		return
	}
	target, online := s.presence.Lookup(to)
	if !to.Valid() || !online {
		log.Info("user not found or not connected")
		s.reject(endpoint, domain.EventCallFailed, MsgUserOffline, to)
		return
	}
	if s.calls.Get(to).InCall {
		log.Info("user busy")
		s.reject(endpoint, domain.EventCallBusy, MsgUserBusy, to)
		return
	}

	key := calltimer.NewPairKey(from, to)
	if s.timers.Cancel(key) {
		log.Warn("replaced stale call timer", slog.String("pair", key.String()))
	}

	s.calls.SetBusy(from, to)
	task, err := s.timers.Start(key, s.callTimeout, s.onCallTimeout)
	if err != nil {
		log.Error("failed to schedule call timeout", sl.Err(err))
	} else {
		log = log.With(slog.Time("deadline", task.Deadline()))
	}

	s.send(target, domain.EventIncomingCall, domain.IncomingCallPayload{
		From:          from,
		Offer:         p.Offer,
		ICECandidates: p.ICECandidates,
	})
	log.Info("forwarding call", slog.String("target_endpoint", string(target)))
}

// AnswerCall relays the answer to the caller. p.From is the callee.
func (s *SignalingService) AnswerCall(endpoint domain.EndpointID, p domain.AnswerCallPayload) {
	const op = "service.signaling.answer_call"

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.resolveSender(endpoint, p.From)
	to := p.To
	log := s.log.With(slog.String("op", op), slog.String("from", string(from)), slog.String("to", string(to)))
	if !from.Valid() || !to.Valid() {
		log.Debug("answer without both parties ignored")
		return
	}

	s.timers.Cancel(calltimer.NewPairKey(from, to))

	callee := s.calls.Get(from)
	if callee.With(to) && callee.Ringing() && s.calls.Get(to).With(from) {
		s.calls.SetActive(from, to)
		log.Info("call active")
	}

	if !s.sendTo(to, domain.EventCallAnswered, domain.CallAnsweredPayload{
		From:          from,
		Answer:        p.Answer,
		ICECandidates: p.ICECandidates,
	}) {
		log.Info("user not found for answer")
	}
}

func (s *SignalingService) DeclineCall(endpoint domain.EndpointID, p domain.CallPartiesPayload) {
	const op = "service.signaling.decline_call"

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.resolveSender(endpoint, p.From)
	to := p.To
	log := s.log.With(slog.String("op", op), slog.String("from", string(from)), slog.String("to", string(to)))
	if !from.Valid() || !to.Valid() {
		log.Debug("decline without both parties ignored")
		return
	}

	s.timers.Cancel(calltimer.NewPairKey(from, to))
	if !s.clearPairLocked(from, to) {
		log.Debug("decline for a pair not in a call ignored")
		return
	}

	s.sendTo(to, domain.EventCallDeclined, domain.CallDeclinedPayload{From: from})
	log.Info("call declined")
}

func (s *SignalingService) EndCall(endpoint domain.EndpointID, p domain.CallPartiesPayload) {
	const op = "service.signaling.end_call"

	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.resolveSender(endpoint, p.From)
	to := p.To
	log := s.log.With(slog.String("op", op), slog.String("from", string(from)), slog.String("to", string(to)))
	if !from.Valid() || !to.Valid() {
		log.Debug("end without both parties ignored")
		return
	}

	s.timers.Cancel(calltimer.NewPairKey(from, to))
	// Already reclaimed by a disconnect, logout or timeout: the peer was told.
	if !s.clearPairLocked(from, to) {
		log.Debug("end for a pair not in a call ignored")
		return
	}

	s.sendTo(to, domain.EventCallEnded, domain.CallEndedPayload{From: from})
	log.Info("call ended")
}

// RelayICECandidate forwards a candidate; it is dropped if the target is offline.
func (s *SignalingService) RelayICECandidate(endpoint domain.EndpointID, p domain.ICECandidatePayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.resolveSender(endpoint, p.From)
	if !from.Valid() || !p.To.Valid() {
		return
	}
	s.sendTo(p.To, domain.EventICECandidate, domain.ICECandidateRelayPayload{From: from, Candidate: p.Candidate})
}

// LogoutUser releases the identity bound to endpoint. The payload userId only
// has to agree with it; an endpoint cannot log out anyone else.
func (s *SignalingService) LogoutUser(endpoint domain.EndpointID, userID domain.Identity) {
	const op = "service.signaling.logout"

	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.presence.ReverseLookup(endpoint)
	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", string(owner)),
		slog.String("endpoint", string(endpoint)),
	)
	if !ok {
		log.Debug("logout from unregistered endpoint ignored", slog.String("claimed", string(userID)))
		return
	}
	if userID.Valid() && userID != owner {
		log.Warn("logout for another user ignored", slog.String("claimed", string(userID)))
		return
	}

	s.releaseLocked(owner, ReasonLoggedOut)
	s.send(endpoint, domain.EventLogoutSuccess, domain.LogoutSuccessPayload{UserID: owner})
	log.Info("user logged out", slog.Int("total_users", s.presence.Count()))
}

func (s *SignalingService) Disconnect(endpoint domain.EndpointID) {
	const op = "service.signaling.disconnect"
	log := s.log.With(slog.String("op", op), slog.String("endpoint", string(endpoint)))

	s.mu.Lock()
	defer s.mu.Unlock()

	identity, ok := s.presence.ReverseLookup(endpoint)
	if !ok {
		log.Debug("unregistered endpoint disconnected")
		return
	}

	s.releaseLocked(identity, ReasonDisconnected)
	log.Info("unregistering user",
		slog.String("user_id", string(identity)),
		slog.Int("total_users", s.presence.Count()),
	)
}

// Shutdown cancels every outstanding call timer and rejects new calls from
// then on. It must run before the transport is torn down.
func (s *SignalingService) Shutdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	cancelled := s.timers.CancelAll()
	s.log.Info("call timers cancelled", slog.Int("count", cancelled))
	return cancelled
}

func (s *SignalingService) Stats() domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.Stats{
		ConnectedUsers: s.presence.Count(),
		ActiveCalls:    s.calls.ActiveCalls(),
		PendingTimers:  s.timers.Pending(),
	}
}

func (s *SignalingService) ConnectedUsers() []domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence.Identities()
}

func (s *SignalingService) CallStatus(identity domain.Identity) domain.CallStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls.Get(identity)
}

func (s *SignalingService) Endpoint(identity domain.Identity) (domain.EndpointID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presence.Lookup(identity)
}

func (s *SignalingService) onCallTimeout(task *calltimer.Task) {
	const op = "service.signaling.call_timeout"

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.timers.Claim(task) {
		return
	}

	a, b := task.Key().Parties()
	for _, side := range [2][2]domain.Identity{{a, b}, {b, a}} {
		self, peer := side[0], side[1]
		if s.calls.Get(self).With(peer) {
			s.calls.Clear(self)
		}
		s.sendTo(self, domain.EventCallTimeout, domain.CallTimeoutPayload{Peer: peer})
	}

	s.log.Info("call timed out",
		slog.String("op", op),
		slog.String("pair", task.Key().String()),
		slog.Time("deadline", task.Deadline()),
	)
}

// releaseLocked ends any call of identity and drops it from both tables.
func (s *SignalingService) releaseLocked(identity domain.Identity, reason string) {
	s.endCallLocked(identity, reason)
	s.presence.Remove(identity)
	s.calls.Remove(identity)
}

// endCallLocked resets identity and, if the peer still points back, resets
// the peer and tells it why the call ended.
func (s *SignalingService) endCallLocked(identity domain.Identity, reason string) {
	status := s.calls.Get(identity)
	if !status.InCall || !status.Peer.Valid() {
		return
	}
	peer := status.Peer

	s.timers.Cancel(calltimer.NewPairKey(identity, peer))
	s.calls.Clear(identity)

	if !s.calls.Get(peer).With(identity) {
		return
	}
	s.calls.Clear(peer)
	s.sendTo(peer, domain.EventCallEnded, domain.CallEndedPayload{From: identity, Reason: reason})
}

// clearPairLocked resets each side only while it still points at the other
// and reports whether either side did.
func (s *SignalingService) clearPairLocked(a, b domain.Identity) bool {
	cleared := false
	if s.calls.Get(a).With(b) {
		s.calls.Clear(a)
		cleared = true
	}
	if s.calls.Get(b).With(a) {
		s.calls.Clear(b)
		cleared = true
	}
	return cleared
}

// resolveSender prefers the identity registered for endpoint over the one
// claimed in the payload. An unregistered endpoint cannot speak for an
// identity that is bound elsewhere; it gets the empty identity.
func (s *SignalingService) resolveSender(endpoint domain.EndpointID, claimed domain.Identity) domain.Identity {
	if identity, ok := s.presence.ReverseLookup(endpoint); ok {
		return identity
	}
	if _, online := s.presence.Lookup(claimed); online {
		s.log.Warn("event claims an identity bound to another endpoint",
			slog.String("endpoint", string(endpoint)),
			slog.String("claimed", string(claimed)),
		)
		return ""
	}
	return claimed
}

func (s *SignalingService) reject(endpoint domain.EndpointID, event domain.EventName, reason string, target domain.Identity) {
	s.send(endpoint, event, domain.CallRejectedPayload{Error: reason, TargetUser: target})
}

func (s *SignalingService) sendTo(identity domain.Identity, event domain.EventName, payload any) bool {
	endpoint, ok := s.presence.Lookup(identity)
	if !ok {
		return false
	}
	s.send(endpoint, event, payload)
	return true
}

func (s *SignalingService) send(endpoint domain.EndpointID, event domain.EventName, payload any) {
	if err := s.transport.Send(endpoint, event, payload); err != nil {
		s.log.Warn("failed to deliver event",
			slog.String("endpoint", string(endpoint)),
			slog.String("event", string(event)),
			sl.Err(err),
		)
	}
}

func decode[T any](data json.RawMessage) (T, error) {
	var payload T
	if len(data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return payload, nil
}
