package converter

import (
	"time"

	"github.com/pion/webrtc/v3"

	"github.com/immxrtalbeast/callrelay/internal/domain"
)

const StatusRunning = "WebRTC Signaling Server Running"

type HealthResponse struct {
	Status         string    `json:"status"`
	ConnectedUsers int       `json:"connectedUsers"`
	ActiveCalls    int       `json:"activeCalls"`
	PendingTimers  int       `json:"pendingTimers"`
	Timestamp      time.Time `json:"timestamp"`
}

type UsersResponse struct {
	ConnectedUsers []domain.Identity `json:"connectedUsers"`
	TotalUsers     int               `json:"totalUsers"`
}

type ICEServersResponse struct {
	ICEServers []webrtc.ICEServer `json:"iceServers"`
}

func HealthToApi(stats domain.Stats, now time.Time) *HealthResponse {
	return &HealthResponse{
		Status:         StatusRunning,
		ConnectedUsers: stats.ConnectedUsers,
		ActiveCalls:    stats.ActiveCalls,
		PendingTimers:  stats.PendingTimers,
		Timestamp:      now.UTC(),
	}
}

func UsersToApi(users []domain.Identity) *UsersResponse {
	if users == nil {
		users = []domain.Identity{}
	}
	return &UsersResponse{
		ConnectedUsers: users,
		TotalUsers:     len(users),
	}
}

// ICEServersToApi groups the configured STUN urls into a single ICE server
// entry, the shape RTCPeerConnection expects.
func ICEServersToApi(stunURLs []string) *ICEServersResponse {
	servers := make([]webrtc.ICEServer, 0, 1)
	if len(stunURLs) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stunURLs})
	}
	return &ICEServersResponse{ICEServers: servers}
}
