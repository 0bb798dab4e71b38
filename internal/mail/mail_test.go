package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dsa-patterns/dsa-api/internal/config"
)

func TestNewPicksConsoleWithoutKey(t *testing.T) {
	m := New(config.Default("x"), zap.NewNop())
	_, ok := m.(*consoleMailer)
	assert.True(t, ok)

	cfg := config.Default("x")
	cfg.SendgridAPIKey = "SG.key"
	m = New(cfg, zap.NewNop())
	_, ok = m.(*sendgridMailer)
	assert.True(t, ok)
}

func TestConsoleLogsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewConsole(zap.New(core))

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"ops@example.com"}, Subject: "hi", Text: "body"}))
	require.NoError(t, m.Send(context.Background(), Message{Subject: "nobody"}))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "[DSA Patterns] hi", entries[0].ContextMap()["subject"])
}

func TestSendgridPrepare(t *testing.T) {
	s := NewSendgrid("SG.key", "noreply@example.com").(*sendgridMailer)
	m := s.prepare(Message{To: []string{"a@example.com", "b@example.com"}, Subject: "s", Text: "t"})

	require.Len(t, m.Personalizations, 1)
	assert.Len(t, m.Personalizations[0].To, 2)
	assert.Equal(t, "[DSA Patterns] s", m.Personalizations[0].Subject)
	assert.Equal(t, "noreply@example.com", m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Send(context.Background(), Message{To: []string{"x@example.com"}, Subject: "one"}))
	assert.Len(t, r.Messages(), 1)
}
