package service

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/store/storetest"
)

func TestCountCompleted(t *testing.T) {
	all := []string{"a", "b", "c"}
	assert.Equal(t, 2, CountCompleted(all, []string{"a", "c", "gone"}))
	assert.Equal(t, 1, CountCompleted(all, []string{"a", "a"}))
	assert.Equal(t, 0, CountCompleted(nil, []string{"a"}))
}

func TestToggleSubtopicRecalculates(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	l := NewLearningService(s, s.Cfg, zap.NewNop())
	u := storetest.User(t, s, models.RoleStudent)
	r := storetest.Roadmap(t, s, "arrays", []string{"a", "b"}, []string{"c", "d"})

	res, err := l.ToggleSubtopic(ctx, u.ID, r.ID, "c", "")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, 1, res.Progress.CompletedCount)
	assert.Equal(t, 4, res.Progress.TotalCount)
	assert.Equal(t, 25, res.Progress.Percentage)
	assert.Equal(t, []string{"first-step"}, res.NewBadges)

	res, err = l.ToggleSubtopic(ctx, u.ID, r.ID, "c", "")
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 0, res.Progress.Percentage)
	assert.Empty(t, res.NewBadges)

	_, err = l.ToggleSubtopic(ctx, u.ID, r.ID, "nope", "")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestCompletingRoadmapUnlocksFinisher(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	l := NewLearningService(s, s.Cfg, zap.NewNop())
	u := storetest.User(t, s, models.RoleStudent)
	r := storetest.Roadmap(t, s, "stack", []string{"x", "y"})

	_, err := l.ToggleSubtopic(ctx, u.ID, r.ID, "x", "")
	require.NoError(t, err)
	res, err := l.ToggleSubtopic(ctx, u.ID, r.ID, "y", "")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Progress.Percentage)
	assert.Contains(t, res.NewBadges, "roadmap-finisher")

	detail, err := l.ProgressForRoadmap(ctx, u.ID, r.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, detail.CompletedSubtopics)
}

func TestToggleBookmarkValidatesKind(t *testing.T) {
	s := storetest.New(t)
	l := NewLearningService(s, s.Cfg, zap.NewNop())
	u := storetest.User(t, s, models.RoleStudent)

	_, err := l.ToggleBookmark(context.Background(), u.ID, "video", "x")
	assert.Equal(t, ErrInvalid, errors.Cause(err))

	on, err := l.ToggleBookmark(context.Background(), u.ID, "Roadmap", "x")
	require.NoError(t, err)
	assert.True(t, on)
}

func TestEarnedBadges(t *testing.T) {
	assert.Empty(t, EarnedBadges(store.UserStats{}))
	assert.Equal(t,
		[]string{"first-step", "quiz-taker", "master", "curious-mind"},
		EarnedBadges(store.UserStats{CompletedSubtopics: 3, QuizAttempts: 2, QuizzesPassed: 1, MasteredRoadmaps: 1, MentorshipRequests: 1}),
	)
}

func TestAddNodeRejectsDuplicateSubtopics(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	l := NewLearningService(s, s.Cfg, zap.NewNop())
	r := storetest.Roadmap(t, s, "heap", []string{"sift-up"})

	_, err := l.AddNode(ctx, r.ID, NodeInput{Title: "more", Subtopics: []models.Subtopic{{ID: "sift-up", Title: "again"}}})
	assert.Equal(t, ErrConflict, errors.Cause(err))

	n, err := l.AddNode(ctx, r.ID, NodeInput{Title: "more", Position: 1, Subtopics: []models.Subtopic{{Title: "heapify"}}})
	require.NoError(t, err)
	subs := store.NodeSubtopics(*n)
	require.Len(t, subs, 1)
	assert.NotEmpty(t, subs[0].ID)
}

func TestCreateRoadmapDraft(t *testing.T) {
	s := storetest.New(t)
	ctx := context.Background()
	l := NewLearningService(s, s.Cfg, zap.NewNop())
	admin := storetest.User(t, s, models.RoleAdmin)

	r, err := l.CreateRoadmap(ctx, admin, RoadmapInput{Slug: "graphs", Title: "Graphs"})
	require.NoError(t, err)

	_, err = l.RoadmapBySlug(ctx, "graphs", nil)
	assert.Equal(t, ErrNotFound, errors.Cause(err))
	got, err := l.RoadmapBySlug(ctx, "graphs", admin)
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	// learner paths do not reach drafts by id either
	_, err = l.QuizForRoadmap(ctx, r.ID)
	assert.Equal(t, ErrNotFound, errors.Cause(err))
	_, err = l.ToggleSubtopic(ctx, admin.ID, r.ID, "anything", "")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
	_, err = l.ProgressForRoadmap(ctx, admin.ID, r.ID)
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	_, err = l.CreateRoadmap(ctx, admin, RoadmapInput{Slug: "graphs", Title: "Again"})
	assert.Equal(t, ErrConflict, errors.Cause(err))
	_, err = l.CreateRoadmap(ctx, admin, RoadmapInput{Slug: "Bad Slug", Title: "x"})
	assert.Equal(t, ErrInvalid, errors.Cause(err))
}
