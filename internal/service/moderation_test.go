package service

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/mail"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/store/storetest"
)

func newModeration(t *testing.T) (*store.Store, *ModerationService, *mail.Recorder) {
	s := storetest.New(t)
	rec := &mail.Recorder{}
	users := NewUserService(s, zap.NewNop())
	return s, NewModerationService(s, users, rec, s.Cfg, zap.NewNop()), rec
}

func TestAuthenticateRecordsFailures(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	users := NewUserService(s, zap.NewNop())
	u := storetest.User(t, s, models.RoleStudent)

	_, err := users.Authenticate(ctx, u.Email, "wrong", "10.0.0.1")
	assert.Equal(t, ErrUnauthorized, errors.Cause(err))
	_, err = users.Authenticate(ctx, "nobody@example.com", "x", "")
	assert.Equal(t, ErrUnauthorized, errors.Cause(err))

	n, err := s.CountUserActionSince(ctx, u.ID, models.ActionLoginFailed, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := users.Authenticate(ctx, strings.ToUpper(u.Email), "password123", "")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, s.BlockUser(ctx, u.ID, "test"))
	_, err = users.Authenticate(ctx, u.Email, "password123", "")
	assert.Equal(t, ErrForbidden, errors.Cause(err))
}

func TestChangePasswordEndsOtherSessions(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	users := NewUserService(s, zap.NewNop())
	u := storetest.User(t, s, models.RoleStudent)
	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "laptop", time.Now().Add(time.Hour)))

	err := users.ChangePassword(ctx, u.ID, "wrong", "new-password")
	assert.Equal(t, ErrUnauthorized, errors.Cause(err))
	require.NoError(t, users.ChangePassword(ctx, u.ID, "password123", "new-password"))

	_, err = s.RotateRefreshToken(ctx, "laptop", "next", time.Now().Add(time.Hour))
	assert.True(t, store.IsNotFound(err))
	_, err = users.Authenticate(ctx, u.Email, "new-password", "")
	assert.NoError(t, err)
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	s := storetest.New(t)
	users := NewUserService(s, zap.NewNop())

	_, err := users.CreateUser(context.Background(), "Ada@Example.com", "secret123", "Ada", models.RoleStudent, "")
	require.NoError(t, err)
	_, err = users.CreateUser(context.Background(), "ada@example.com", "secret123", "Ada", models.RoleStudent, "")
	assert.Equal(t, ErrConflict, errors.Cause(err))
}

func TestAppealFlow(t *testing.T) {
	s, mod, rec := newModeration(t)
	ctx := context.Background()
	s.Cfg.AdminEmail = "ops@example.com"
	admin := storetest.User(t, s, models.RoleAdmin)
	u := storetest.User(t, s, models.RoleStudent)

	_, err := mod.SubmitAppeal(ctx, u.Email, "password123", "please", "")
	assert.Equal(t, ErrUnauthorized, errors.Cause(err))

	require.NoError(t, mod.Block(ctx, admin, u.ID, "spam", ""))

	_, err = mod.SubmitAppeal(ctx, u.Email, "bad", "please", "")
	assert.Equal(t, ErrUnauthorized, errors.Cause(err))

	a, err := mod.SubmitAppeal(ctx, u.Email, "password123", "please", "")
	require.NoError(t, err)
	_, err = mod.SubmitAppeal(ctx, u.Email, "password123", "again", "")
	assert.Equal(t, ErrConflict, errors.Cause(err))

	decided, err := mod.DecideAppeal(ctx, admin, a.ID, true, "welcome back", "")
	require.NoError(t, err)
	assert.Equal(t, models.AppealApproved, decided.Status)

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.Blocked)

	_, err = mod.DecideAppeal(ctx, admin, a.ID, false, "", "")
	assert.Equal(t, ErrConflict, errors.Cause(err))

	notes, err := s.ListNotifications(ctx, u.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyAppeal, notes[0].Kind)
	assert.Len(t, rec.Messages(), 2)
}

func TestAppealWrongPasswordCountsAsLoginFailure(t *testing.T) {
	s, mod, _ := newModeration(t)
	ctx := context.Background()
	m := NewMaintenanceService(s, &mail.Recorder{}, s.Cfg, zap.NewNop())
	u := storetest.User(t, s, models.RoleStudent)

	_, wrongErr := mod.SubmitAppeal(ctx, u.Email, "guess", "please", "10.0.0.9")
	_, notBlockedErr := mod.SubmitAppeal(ctx, u.Email, "password123", "please", "10.0.0.9")
	// both answers look the same to the caller
	assert.Equal(t, ErrUnauthorized, errors.Cause(wrongErr))
	assert.Equal(t, ErrUnauthorized, errors.Cause(notBlockedErr))
	assert.Equal(t, wrongErr.Error(), notBlockedErr.Error())

	for i := 1; i < s.Cfg.LoginFailureLimit; i++ {
		_, err := mod.SubmitAppeal(ctx, u.Email, "guess", "please", "10.0.0.9")
		assert.Equal(t, ErrUnauthorized, errors.Cause(err))
	}
	n, err := s.CountUserActionSince(ctx, u.ID, models.ActionLoginFailed, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, s.Cfg.LoginFailureLimit, n)

	sum, err := m.Run(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, sum.BlockedUsers)
	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Blocked)
}

func TestModerationGuards(t *testing.T) {
	s, mod, _ := newModeration(t)
	ctx := context.Background()
	admin := storetest.User(t, s, models.RoleAdmin)
	u := storetest.User(t, s, models.RoleStudent)

	assert.Equal(t, ErrForbidden, errors.Cause(mod.Block(ctx, admin, admin.ID, "x", "")))
	assert.Equal(t, ErrForbidden, errors.Cause(mod.ChangeRole(ctx, admin, admin.ID, models.RoleStudent, "")))
	assert.Equal(t, ErrInvalid, errors.Cause(mod.ChangeRole(ctx, admin, u.ID, "owner", "")))
	assert.Equal(t, ErrConflict, errors.Cause(mod.Unblock(ctx, admin, u.ID, "")))
	assert.Equal(t, ErrNotFound, errors.Cause(mod.Block(ctx, admin, "DSA404", "x", "")))

	require.NoError(t, mod.ChangeRole(ctx, admin, u.ID, models.RoleMentor, ""))
	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMentor, got.Role)

	logs, err := mod.ListActivity(ctx, store.ActivityListFilter{UserID: &admin.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionRoleChanged, logs[0].Action)
}

func TestMentorshipLifecycle(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	l := NewLearningService(s, s.Cfg, zap.NewNop())
	ms := NewMentorshipService(s, l, zap.NewNop())
	student := storetest.User(t, s, models.RoleStudent)
	mentor := storetest.User(t, s, models.RoleMentor)
	other := storetest.User(t, s, models.RoleMentor)

	_, err := ms.Create(ctx, student, "dp", "stuck", student.ID, "")
	assert.Equal(t, ErrInvalid, errors.Cause(err))

	req, err := ms.Create(ctx, student, "dp", "stuck on knapsack", mentor.ID, "")
	require.NoError(t, err)

	open, err := ms.ListOpen(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, open)
	open, err = ms.ListOpen(ctx, mentor)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	_, err = ms.Respond(ctx, other, req.ID, "try memo", "")
	assert.Equal(t, ErrForbidden, errors.Cause(err))
	_, err = ms.Respond(ctx, student, req.ID, "self", "")
	assert.Equal(t, ErrForbidden, errors.Cause(err))

	answered, err := ms.Respond(ctx, mentor, req.ID, "try memoization", "")
	require.NoError(t, err)
	assert.Equal(t, models.MentorshipAnswered, answered.Status)
	_, err = ms.Respond(ctx, mentor, req.ID, "again", "")
	assert.Equal(t, ErrConflict, errors.Cause(err))

	notes, err := s.ListNotifications(ctx, student.ID, true, 10)
	require.NoError(t, err)
	kinds := []string{}
	for _, n := range notes {
		kinds = append(kinds, n.Kind)
	}
	assert.Contains(t, kinds, models.NotifyMentorshipReply)

	assert.Equal(t, ErrForbidden, errors.Cause(ms.Resolve(ctx, other, req.ID)))
	require.NoError(t, ms.Resolve(ctx, student, req.ID))
	assert.Equal(t, ErrConflict, errors.Cause(ms.Resolve(ctx, student, req.ID)))
}

func TestRetentionAndQuizSummary(t *testing.T) {
	r, c := Retention(nil, []string{"a"})
	assert.Zero(t, r)
	assert.Zero(t, c)

	r, c = Retention([]string{"a", "b", "c", "d"}, []string{"a", "c", "z"})
	assert.InDelta(t, 0.5, r, 1e-9)
	assert.InDelta(t, 0.5, c, 1e-9)

	q := SummarizeQuizzes([]store.QuizSample{
		{Percentage: 60, ElapsedSeconds: 10},
		{Percentage: 80, Passed: true, ElapsedSeconds: 20},
	})
	assert.Equal(t, 2, q.Attempts)
	assert.InDelta(t, 0.5, q.PassRate, 1e-9)
	assert.InDelta(t, 70, q.MeanScore, 1e-9)
	assert.InDelta(t, 14.142135, q.StdDevScore, 1e-5)
	assert.InDelta(t, 15, q.MeanTimeSecond, 1e-9)

	one := SummarizeQuizzes([]store.QuizSample{{Percentage: 90}})
	assert.Equal(t, 90.0, one.MeanScore)
	assert.Zero(t, one.StdDevScore)
}

func TestExportCSV(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	a := NewAnalyticsService(s)
	u := storetest.User(t, s, models.RoleStudent)
	r := storetest.Roadmap(t, s, "csv", []string{"one"})
	require.NoError(t, s.SaveProgressCounts(ctx, u.ID, r.ID, 1, 1, 100))

	var buf bytes.Buffer
	require.NoError(t, a.ExportUsersCSV(ctx, &buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,email,name,role,blocked,created_at,last_login_at", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], u.ID+","))

	buf.Reset()
	require.NoError(t, a.ExportProgressCSV(ctx, &buf))
	lines = strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ",1,1,100,0,0,0,false,")
}

func TestCSVSafe(t *testing.T) {
	cases := map[string]string{
		"":         "",
		"Ada":      "Ada",
		"=1+2":     "'=1+2",
		"+1":       "'+1",
		"-2+3":     "'-2+3",
		"@SUM(A1)": "'@SUM(A1)",
		"a=b":      "a=b",
	}
	for in, want := range cases {
		assert.Equal(t, want, csvSafe(in), in)
	}
}

func TestExportUsersCSVEscapesFormulas(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)
	require.NoError(t, s.UpdateUserFields(ctx, u.ID, map[string]interface{}{"name": "=cmd|' /C calc'!A0"}))

	var buf bytes.Buffer
	require.NoError(t, NewAnalyticsService(s).ExportUsersCSV(ctx, &buf))
	assert.Contains(t, buf.String(), ",'=cmd|' /C calc'!A0,")
}

func TestOverview(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	a := NewAnalyticsService(s)
	u := storetest.User(t, s, models.RoleStudent)
	require.NoError(t, s.LogActivity(ctx, &models.ActivityLog{UserID: u.ID, Action: models.ActionLogin}))

	ov, err := a.Overview(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.EqualValues(t, 1, ov.Totals.Users)
	assert.EqualValues(t, 1, ov.Totals.NewUsers)
	assert.Equal(t, 1, ov.Totals.Active7d)
	assert.Equal(t, 0, ov.CohortSize)
	assert.Zero(t, ov.Retention)
}
