package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/mail"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store/storetest"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

func TestMaintenanceEscalatesStaleMentorship(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	s.Cfg.AdminEmail = "ops@example.com"
	rec := &mail.Recorder{}
	m := NewMaintenanceService(s, rec, s.Cfg, zap.NewNop())

	admin := storetest.User(t, s, models.RoleAdmin)
	student := storetest.User(t, s, models.RoleStudent)
	now := time.Now().UTC()
	require.NoError(t, s.CreateMentorshipRequest(ctx, &models.MentorshipRequest{
		ID: utils.GenerateID(), StudentID: student.ID, Topic: "graphs", Status: models.MentorshipOpen,
		CreatedAt: now.Add(-49 * time.Hour),
	}))
	require.NoError(t, s.CreateMentorshipRequest(ctx, &models.MentorshipRequest{
		ID: utils.GenerateID(), StudentID: student.ID, Topic: "recent", Status: models.MentorshipOpen,
		CreatedAt: now.Add(-47 * time.Hour),
	}))

	sum, err := m.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.EscalatedMentorships)

	esc, err := s.ListEscalations(ctx, false)
	require.NoError(t, err)
	require.Len(t, esc, 1)
	assert.Equal(t, models.EscalationMentorshipUnanswered, esc[0].Kind)

	notes, err := s.ListNotifications(ctx, admin.ID, true, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyEscalation, notes[0].Kind)

	sent := rec.Messages()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, sent[0].To)

	sum, err = m.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.EscalatedMentorships)
	assert.Len(t, rec.Messages(), 1)
}

func TestMaintenanceBlocksRepeatedLoginFailures(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	m := NewMaintenanceService(s, &mail.Recorder{}, s.Cfg, zap.NewNop())

	noisy := storetest.User(t, s, models.RoleStudent)
	quiet := storetest.User(t, s, models.RoleStudent)
	for i := 0; i < s.Cfg.LoginFailureLimit; i++ {
		require.NoError(t, s.LogActivity(ctx, &models.ActivityLog{UserID: noisy.ID, Action: models.ActionLoginFailed}))
	}
	require.NoError(t, s.LogActivity(ctx, &models.ActivityLog{UserID: quiet.ID, Action: models.ActionLoginFailed}))

	sum, err := m.Run(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.BlockedUsers)

	got, err := s.GetUserByID(ctx, noisy.ID)
	require.NoError(t, err)
	assert.True(t, got.Blocked)
	got, err = s.GetUserByID(ctx, quiet.ID)
	require.NoError(t, err)
	assert.False(t, got.Blocked)

	// an admin unblock forgives the earlier failures
	require.NoError(t, s.UnblockUser(ctx, noisy.ID))
	sum, err = m.Run(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.BlockedUsers)
}

func TestMaintenancePurgesExpiredTokens(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	m := NewMaintenanceService(s, &mail.Recorder{}, s.Cfg, zap.NewNop())
	u := storetest.User(t, s, models.RoleStudent)
	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "expired", time.Now().Add(-time.Minute)))

	sum, err := m.Run(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 1, sum.PurgedTokens)
}
