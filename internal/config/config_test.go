package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestMustLoadPath_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeConfig(t, "env: \"prod\"\n")

	cfg := MustLoadPath(path)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
	assert.Equal(t, 30*time.Second, cfg.Signaling.CallTimeout)
	assert.Equal(t, 32, cfg.Signaling.SendQueueSize)
	assert.Equal(t, int64(64*1024), cfg.Signaling.ReadLimitBytes)
	assert.Equal(t, []string{"stun:stun.l.google.com:19302"}, cfg.WebRTC.STUNServers)
	assert.Less(t, cfg.Signaling.PingPeriod(), cfg.Signaling.PongWait)
}

func TestMustLoadPath_FileValues(t *testing.T) {
	path := writeConfig(t, `
env: "dev"
http:
  address: ":9000"
  allowed_origins: ["http://localhost:3000"]
signaling:
  call_timeout: 5s
webrtc:
  stun_servers: ["stun:example.org:3478"]
`)

	cfg := MustLoadPath(path)

	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Signaling.CallTimeout)
	assert.Equal(t, []string{"stun:example.org:3478"}, cfg.WebRTC.STUNServers)
}

func TestMustLoadPath_PortEnvFallback(t *testing.T) {
	t.Setenv("PORT", "3000")
	path := writeConfig(t, "env: \"local\"\n")

	cfg := MustLoadPath(path)
	assert.Equal(t, ":3000", cfg.HTTP.Address)
}

func TestMustLoadPath_MissingFilePanics(t *testing.T) {
	assert.Panics(t, func() {
		MustLoadPath(filepath.Join(t.TempDir(), "missing.yaml"))
	})
}

func TestSignalingConfig_WithDefaultsKeepsValues(t *testing.T) {
	cfg := SignalingConfig{CallTimeout: time.Second, SendQueueSize: 4}.WithDefaults()

	assert.Equal(t, time.Second, cfg.CallTimeout)
	assert.Equal(t, 4, cfg.SendQueueSize)
	assert.Equal(t, 5*time.Second, cfg.WriteWait)
	assert.Equal(t, 60*time.Second, cfg.PongWait)
}
