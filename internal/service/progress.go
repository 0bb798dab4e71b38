package service

import (
	"context"
	"math"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
)

// LearningService owns roadmap progress, bookmarks, quizzes and badges.
type LearningService struct {
	store *store.Store
	cfg   *config.Config
	log   *zap.Logger
}

func NewLearningService(s *store.Store, cfg *config.Config, log *zap.Logger) *LearningService {
	return &LearningService{store: s, cfg: cfg, log: log}
}

// Percent returns round(part/whole*100), rounding halves away from zero; 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

// CountCompleted counts completed ids that still exist in the roadmap.
func CountCompleted(roadmapSubtopics, completed []string) int {
	exists := make(map[string]struct{}, len(roadmapSubtopics))
	for _, id := range roadmapSubtopics {
		exists[id] = struct{}{}
	}
	n := 0
	for _, id := range completed {
		if _, ok := exists[id]; ok {
			n++
			delete(exists, id)
		}
	}
	return n
}

// RecalculateProgress walks every node of the roadmap and writes back the user's counts.
func (l *LearningService) RecalculateProgress(ctx context.Context, userID, roadmapID string) (*models.RoadmapProgress, error) {
	all, err := l.store.RoadmapSubtopicIDs(ctx, roadmapID)
	if err != nil {
		return nil, errors.Wrap(err, "load subtopics")
	}
	done, err := l.store.CompletedSubtopicIDs(ctx, userID, roadmapID)
	if err != nil {
		return nil, errors.Wrap(err, "load completions")
	}
	completed := CountCompleted(all, done)
	if err := l.store.SaveProgressCounts(ctx, userID, roadmapID, completed, len(all), Percent(completed, len(all))); err != nil {
		return nil, errors.Wrap(err, "save progress")
	}
	p, err := l.store.GetProgress(ctx, userID, roadmapID)
	return p, storeErr(err, "load progress")
}

type ToggleResult struct {
	SubtopicID string                  `json:"subtopic_id"`
	Completed  bool                    `json:"completed"`
	Progress   *models.RoadmapProgress `json:"progress"`
	NewBadges  []string                `json:"new_badges"`
}

func (l *LearningService) ToggleSubtopic(ctx context.Context, userID, roadmapID, subtopicID, ip string) (*ToggleResult, error) {
	if _, err := l.publishedRoadmap(ctx, roadmapID); err != nil {
		return nil, err
	}
	ids, err := l.store.RoadmapSubtopicIDs(ctx, roadmapID)
	if err != nil {
		return nil, errors.Wrap(err, "load subtopics")
	}
	found := false
	for _, id := range ids {
		if id == subtopicID {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.Wrap(ErrNotFound, "subtopic")
	}

	completed, err := l.store.ToggleSubtopic(ctx, userID, roadmapID, subtopicID)
	if err != nil {
		return nil, errors.Wrap(err, "toggle subtopic")
	}
	p, err := l.RecalculateProgress(ctx, userID, roadmapID)
	if err != nil {
		return nil, err
	}
	logActivity(ctx, l.store, l.log, userID, models.ActionSubtopicToggled, ip, map[string]interface{}{
		"roadmap_id": roadmapID, "subtopic_id": subtopicID, "completed": completed,
	})
	badges, err := l.EvaluateBadges(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ToggleResult{SubtopicID: subtopicID, Completed: completed, Progress: p, NewBadges: badges}, nil
}

type ProgressDetail struct {
	Progress           *models.RoadmapProgress `json:"progress"`
	CompletedSubtopics []string                `json:"completed_subtopics"`
}

func (l *LearningService) ProgressForRoadmap(ctx context.Context, userID, roadmapID string) (*ProgressDetail, error) {
	if _, err := l.publishedRoadmap(ctx, roadmapID); err != nil {
		return nil, err
	}
	p, err := l.store.GetProgress(ctx, userID, roadmapID)
	if err != nil {
		if !store.IsNotFound(err) {
			return nil, errors.Wrap(err, "load progress")
		}
		p = &models.RoadmapProgress{UserID: userID, RoadmapID: roadmapID}
	}
	done, err := l.store.CompletedSubtopicIDs(ctx, userID, roadmapID)
	if err != nil {
		return nil, errors.Wrap(err, "load completions")
	}
	if done == nil {
		done = []string{}
	}
	return &ProgressDetail{Progress: p, CompletedSubtopics: done}, nil
}

func (l *LearningService) ListProgress(ctx context.Context, userID string) ([]*models.RoadmapProgress, error) {
	res, err := l.store.ListProgressForUser(ctx, userID)
	return res, errors.Wrap(err, "list progress")
}

var bookmarkKinds = map[string]struct{}{"roadmap": {}, "subtopic": {}, "question": {}}

func (l *LearningService) ToggleBookmark(ctx context.Context, userID, kind, itemID string) (bool, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if _, ok := bookmarkKinds[kind]; !ok {
		return false, errors.Wrapf(ErrInvalid, "unknown bookmark kind %q", kind)
	}
	if strings.TrimSpace(itemID) == "" {
		return false, errors.Wrap(ErrInvalid, "item_id is required")
	}
	on, err := l.store.ToggleBookmark(ctx, userID, kind, itemID)
	return on, errors.Wrap(err, "toggle bookmark")
}

func (l *LearningService) ListBookmarks(ctx context.Context, userID, kind string) ([]*models.Bookmark, error) {
	res, err := l.store.ListBookmarks(ctx, userID, kind)
	return res, errors.Wrap(err, "list bookmarks")
}
