package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ESCALATION_AFTER", "72h")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, cfg.EscalationAfter)
	assert.Equal(t, 70, cfg.QuizPassThreshold)
	assert.Equal(t, 3, cfg.MasteryPasses)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("QUIZ_PASS_THRESHOLD", "150")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadLoginFailureSettings(t *testing.T) {
	cases := []struct {
		key, value string
	}{
		{"LOGIN_FAILURE_LIMIT", "0"},
		{"LOGIN_FAILURE_LIMIT", "-3"},
		{"LOGIN_FAILURE_WINDOW", "0s"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
