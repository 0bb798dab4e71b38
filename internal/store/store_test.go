package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/store/storetest"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

func TestToggleSubtopicRestoresState(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)
	r := storetest.Roadmap(t, s, "arrays", []string{"two-pointers", "sliding-window"})

	done, err := s.ToggleSubtopic(ctx, u.ID, r.ID, "two-pointers")
	require.NoError(t, err)
	assert.True(t, done)

	ids, err := s.CompletedSubtopicIDs(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"two-pointers"}, ids)

	done, err = s.ToggleSubtopic(ctx, u.ID, r.ID, "two-pointers")
	require.NoError(t, err)
	assert.False(t, done)

	ids, err = s.CompletedSubtopicIDs(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestToggleBookmarkRestoresState(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)

	on, err := s.ToggleBookmark(ctx, u.ID, "roadmap", "graphs")
	require.NoError(t, err)
	assert.True(t, on)
	bms, err := s.ListBookmarks(ctx, u.ID, "")
	require.NoError(t, err)
	require.Len(t, bms, 1)
	assert.Equal(t, "graphs", bms[0].ItemID)

	on, err = s.ToggleBookmark(ctx, u.ID, "roadmap", "graphs")
	require.NoError(t, err)
	assert.False(t, on)
	bms, err = s.ListBookmarks(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Empty(t, bms)
}

func TestRoadmapSubtopicIDsFollowNodeOrder(t *testing.T) {
	s := storetest.New(t)
	r := storetest.Roadmap(t, s, "graphs", []string{"bfs", "dfs"}, []string{"dijkstra"})

	ids, err := s.RoadmapSubtopicIDs(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"bfs", "dfs", "dijkstra"}, ids)

	got, err := s.GetRoadmapBySlug(context.Background(), "graphs")
	require.NoError(t, err)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, "node 1", got.Nodes[0].Title)
}

func TestIncrementQuizCountersAndMastery(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)
	r := storetest.Roadmap(t, s, "dp")

	p, err := s.IncrementQuizCounters(ctx, u.ID, r.ID, false, 40)
	require.NoError(t, err)
	assert.Equal(t, 1, p.QuizAttempts)
	assert.Equal(t, 0, p.QuizPasses)
	assert.Equal(t, 40, p.BestScore)

	p, err = s.IncrementQuizCounters(ctx, u.ID, r.ID, true, 90)
	require.NoError(t, err)
	assert.Equal(t, 2, p.QuizAttempts)
	assert.Equal(t, 1, p.QuizPasses)
	assert.Equal(t, 90, p.BestScore)

	p, err = s.IncrementQuizCounters(ctx, u.ID, r.ID, true, 80)
	require.NoError(t, err)
	assert.Equal(t, 90, p.BestScore)

	first, err := s.MarkMastered(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.True(t, first)
	again, err := s.MarkMastered(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.False(t, again)
}

func TestRotateRefreshToken(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)

	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "old", time.Now().Add(time.Hour)))
	owner, err := s.RotateRefreshToken(ctx, "old", "new", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner)

	_, err = s.RotateRefreshToken(ctx, "old", "other", time.Now().Add(time.Hour))
	assert.True(t, store.IsNotFound(err))
	owner, err = s.RotateRefreshToken(ctx, "new", "newer", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, u.ID, owner)
}

func liveTokens(t *testing.T, s *store.Store, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB.Model(&models.RefreshToken{}).Where("user_id = ? AND revoked = ?", userID, false).Count(&n).Error)
	return n
}

func TestRevokeUserTokens(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)
	other := storetest.User(t, s, models.RoleStudent)

	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "a", time.Now().Add(time.Hour)))
	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "b", time.Now().Add(time.Hour)))
	require.NoError(t, s.SaveRefreshToken(ctx, other.ID, "c", time.Now().Add(time.Hour)))

	require.NoError(t, s.RevokeUserTokens(ctx, u.ID))
	assert.EqualValues(t, 0, liveTokens(t, s, u.ID))
	assert.EqualValues(t, 1, liveTokens(t, s, other.ID))
}

func TestDeleteExpiredTokens(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)

	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "stale", time.Now().Add(-time.Hour)))
	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "fresh", time.Now().Add(time.Hour)))

	n, err := s.DeleteExpiredTokens(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestBlockAndAppealApproval(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)
	admin := storetest.User(t, s, models.RoleAdmin)

	require.NoError(t, s.SaveRefreshToken(ctx, u.ID, "tok", time.Now().Add(time.Hour)))
	require.NoError(t, s.BlockUser(ctx, u.ID, "spam"))

	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Blocked)
	assert.Equal(t, "spam", got.BlockedReason)
	assert.EqualValues(t, 0, liveTokens(t, s, u.ID))

	a := &models.Appeal{ID: utils.GenerateID(), UserID: u.ID, Message: "sorry", Status: models.AppealPending}
	require.NoError(t, s.CreateAppeal(ctx, a))
	pending, err := s.HasPendingAppeal(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, pending)

	decided, err := s.DecideAppeal(ctx, a.ID, admin.ID, models.AppealApproved, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.AppealApproved, decided.Status)

	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.Blocked)

	_, err = s.DecideAppeal(ctx, a.ID, admin.ID, models.AppealRejected, "")
	assert.True(t, store.IsNotFound(err))
}

func TestActionCountsSince(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	a := storetest.User(t, s, models.RoleStudent)
	b := storetest.User(t, s, models.RoleStudent)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.LogActivity(ctx, &models.ActivityLog{UserID: a.ID, Action: models.ActionLoginFailed}))
	}
	require.NoError(t, s.LogActivity(ctx, &models.ActivityLog{UserID: b.ID, Action: models.ActionLoginFailed}))
	require.NoError(t, s.LogActivity(ctx, &models.ActivityLog{
		UserID:    b.ID,
		Action:    models.ActionLoginFailed,
		CreatedAt: time.Now().Add(-48 * time.Hour).UTC(),
	}))

	counts, err := s.ActionCountsSince(ctx, models.ActionLoginFailed, time.Now().Add(-24*time.Hour), 5)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, a.ID, counts[0].UserID)
	assert.EqualValues(t, 5, counts[0].Count)
}

func TestStaleMentorshipAndEscalateOnce(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)

	old := &models.MentorshipRequest{
		ID: utils.GenerateID(), StudentID: u.ID, Topic: "heaps", Status: models.MentorshipOpen,
		CreatedAt: time.Now().Add(-72 * time.Hour).UTC(),
	}
	fresh := &models.MentorshipRequest{ID: utils.GenerateID(), StudentID: u.ID, Topic: "tries", Status: models.MentorshipOpen}
	require.NoError(t, s.CreateMentorshipRequest(ctx, old))
	require.NoError(t, s.CreateMentorshipRequest(ctx, fresh))

	stale, err := s.StaleMentorship(ctx, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, old.ID, stale[0].ID)

	ok, err := s.MarkMentorshipEscalated(ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.MarkMentorshipEscalated(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	stale, err = s.StaleMentorship(ctx, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestAwardBadgeOnce(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	u := storetest.User(t, s, models.RoleStudent)

	ok, err := s.AwardBadge(ctx, u.ID, "first-step")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.AwardBadge(ctx, u.ID, "first-step")
	require.NoError(t, err)
	assert.False(t, ok)
}
