package domain

import (
	"encoding/json"

	"github.com/pion/webrtc/v3"
)

type EventName string

// Inbound events.
const (
	EventRegisterUser EventName = "register_user"
	EventMakeCall     EventName = "make_call"
	EventAnswerCall   EventName = "answer_call"
	EventDeclineCall  EventName = "decline_call"
	EventEndCall      EventName = "end_call"
	EventICECandidate EventName = "ice_candidate"
	EventLogoutUser   EventName = "logout_user"
)

// Outbound events. ice_candidate is relayed under its inbound name.
const (
	EventUserRegistered  EventName = "user_registered"
	EventIncomingCall    EventName = "incoming_call"
	EventCallAnswered    EventName = "call_answered"
	EventCallDeclined    EventName = "call_declined"
	EventCallEnded       EventName = "call_ended"
	EventCallFailed      EventName = "call_failed"
	EventCallBusy        EventName = "call_busy"
	EventCallTimeout     EventName = "call_timeout"
	EventForceDisconnect EventName = "force_disconnect"
	EventLogoutSuccess   EventName = "logout_success"
	EventError           EventName = "error"
)

// Envelope is the websocket frame: a named event and its JSON payload.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type RegisterUserPayload struct {
	UserID Identity `json:"userId"`
}

type MakeCallPayload struct {
	From          Identity                   `json:"from"`
	To            Identity                   `json:"to"`
	Offer         *webrtc.SessionDescription `json:"offer,omitempty"`
	ICECandidates []webrtc.ICECandidateInit  `json:"iceCandidates,omitempty"`
}

type AnswerCallPayload struct {
	From          Identity                   `json:"from"`
	To            Identity                   `json:"to"`
	Answer        *webrtc.SessionDescription `json:"answer,omitempty"`
	ICECandidates []webrtc.ICECandidateInit  `json:"iceCandidates,omitempty"`
}

// CallPartiesPayload carries decline_call and end_call.
type CallPartiesPayload struct {
	From Identity `json:"from"`
	To   Identity `json:"to"`
}

type ICECandidatePayload struct {
	From      Identity                 `json:"from"`
	To        Identity                 `json:"to"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

type LogoutUserPayload struct {
	UserID Identity `json:"userId"`
}

type UserRegisteredPayload struct {
	Success bool     `json:"success"`
	UserID  Identity `json:"userId"`
}

type IncomingCallPayload struct {
	From          Identity                   `json:"from"`
	Offer         *webrtc.SessionDescription `json:"offer,omitempty"`
	ICECandidates []webrtc.ICECandidateInit  `json:"iceCandidates,omitempty"`
}

type CallAnsweredPayload struct {
	From          Identity                   `json:"from"`
	Answer        *webrtc.SessionDescription `json:"answer,omitempty"`
	ICECandidates []webrtc.ICECandidateInit  `json:"iceCandidates,omitempty"`
}

type CallDeclinedPayload struct {
	From Identity `json:"from"`
}

type CallEndedPayload struct {
	From   Identity `json:"from"`
	Reason string   `json:"reason,omitempty"`
}

// CallRejectedPayload is sent with call_failed and call_busy.
type CallRejectedPayload struct {
	Error      string   `json:"error"`
	TargetUser Identity `json:"targetUser"`
}

type CallTimeoutPayload struct {
	Peer Identity `json:"peer"`
}

type ICECandidateRelayPayload struct {
	From      Identity                 `json:"from"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
}

type ForceDisconnectPayload struct {
	Reason string `json:"reason"`
}

type LogoutSuccessPayload struct {
	UserID Identity `json:"userId"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}
