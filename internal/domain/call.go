package domain

type CallPhase string

const (
	CallPhaseIdle    CallPhase = "idle"
	CallPhaseRinging CallPhase = "ringing"
	CallPhaseActive  CallPhase = "active"
)

// CallStatus is the per-identity call record. While a call is ringing or
// active both participants point at each other with the same phase.
type CallStatus struct {
	InCall bool
	Peer   Identity
	Phase  CallPhase
}

func IdleStatus() CallStatus {
	return CallStatus{Phase: CallPhaseIdle}
}

// With reports whether the status records a call with peer.
func (s CallStatus) With(peer Identity) bool {
	return s.InCall && s.Peer == peer
}

func (s CallStatus) Ringing() bool {
	return s.InCall && s.Phase == CallPhaseRinging
}
