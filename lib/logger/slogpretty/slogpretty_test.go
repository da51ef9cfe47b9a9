package slogpretty

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandler_WritesMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	log := slog.New(opts.NewPrettyHandler(&buf))

	log.With(slog.String("op", "test.op")).Info("user registered", slog.String("user_id", "alice"))

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "user registered")
	assert.Contains(t, out, `"op": "test.op"`)
	assert.Contains(t, out, `"user_id": "alice"`)
}

func TestPrettyHandler_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelInfo}}
	log := slog.New(opts.NewPrettyHandler(&buf))

	log.Debug("hidden")
	assert.Empty(t, buf.String())
}
