package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/immxrtalbeast/callrelay/internal/api/http/converter"
	"github.com/immxrtalbeast/callrelay/internal/domain"
	"github.com/immxrtalbeast/callrelay/internal/service/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, router http.Handler, method, path string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestStatusControllerHealth(t *testing.T) {
	ctrl := gomock.NewController(t)
	status := mocks.NewMockStatusReader(ctrl)
	status.EXPECT().Stats().Return(domain.Stats{ConnectedUsers: 3, ActiveCalls: 1, PendingTimers: 1}).Times(2)

	controller := NewStatusController(status, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	controller.now = func() time.Time { return fixed }
	router := SetupRouter(nil, controller, nil)

	for _, path := range []string{"/", "/healthz"} {
		rec := serve(t, router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body converter.HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, converter.StatusRunning, body.Status)
		assert.Equal(t, 3, body.ConnectedUsers)
		assert.Equal(t, 1, body.ActiveCalls)
		assert.Equal(t, 1, body.PendingTimers)
		assert.True(t, fixed.Equal(body.Timestamp))
	}
}

func TestStatusControllerUsers(t *testing.T) {
	tests := []struct {
		name  string
		users []domain.Identity
		want  []domain.Identity
	}{
		{name: "empty", users: nil, want: []domain.Identity{}},
		{name: "some", users: []domain.Identity{"alice", "bob"}, want: []domain.Identity{"alice", "bob"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			status := mocks.NewMockStatusReader(ctrl)
			status.EXPECT().ConnectedUsers().Return(tt.users)

			router := SetupRouter(nil, NewStatusController(status, nil), nil)
			rec := serve(t, router, http.MethodGet, "/users", nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var body converter.UsersResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.ConnectedUsers)
			assert.Equal(t, len(tt.want), body.TotalUsers)
		})
	}
}

func TestStatusControllerICEServers(t *testing.T) {
	ctrl := gomock.NewController(t)
	status := mocks.NewMockStatusReader(ctrl)

	stun := []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}
	router := SetupRouter(nil, NewStatusController(status, stun), nil)

	rec := serve(t, router, http.MethodGet, "/api/ice-servers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ICEServers []struct {
			URLs []string `json:"urls"`
		} `json:"iceServers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.ICEServers, 1)
	assert.Equal(t, stun, body.ICEServers[0].URLs)
}

func TestRouterCORS(t *testing.T) {
	ctrl := gomock.NewController(t)
	status := mocks.NewMockStatusReader(ctrl)
	status.EXPECT().ConnectedUsers().Return(nil).AnyTimes()

	t.Run("any origin when none configured", func(t *testing.T) {
		router := SetupRouter(nil, NewStatusController(status, nil), nil)
		rec := serve(t, router, http.MethodGet, "/users", http.Header{"Origin": {"http://other.local"}})
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("configured origin list", func(t *testing.T) {
		router := SetupRouter(nil, NewStatusController(status, nil), []string{"http://app.local"})

		rec := serve(t, router, http.MethodGet, "/users", http.Header{"Origin": {"http://app.local"}})
		assert.Equal(t, "http://app.local", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

		rec = serve(t, router, http.MethodGet, "/users", http.Header{"Origin": {"http://evil.local"}})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestCheckOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	assert.True(t, checkOrigin(nil)(req))

	allow := checkOrigin([]string{"http://app.local"})
	assert.True(t, allow(req), "requests without Origin are not browsers")

	req.Header.Set("Origin", "http://app.local")
	assert.True(t, allow(req))

	req.Header.Set("Origin", "http://evil.local")
	assert.False(t, allow(req))
}
