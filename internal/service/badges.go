package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
)

type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	earned      func(store.UserStats) bool
}

var Catalog = []Badge{
	{"first-step", "First Step", "Complete your first subtopic", func(s store.UserStats) bool { return s.CompletedSubtopics >= 1 }},
	{"steady-learner", "Steady Learner", "Complete 25 subtopics", func(s store.UserStats) bool { return s.CompletedSubtopics >= 25 }},
	{"centurion", "Centurion", "Complete 100 subtopics", func(s store.UserStats) bool { return s.CompletedSubtopics >= 100 }},
	{"quiz-taker", "Quiz Taker", "Attempt a quiz", func(s store.UserStats) bool { return s.QuizAttempts >= 1 }},
	{"quiz-ace", "Quiz Ace", "Pass 5 quizzes", func(s store.UserStats) bool { return s.QuizzesPassed >= 5 }},
	{"roadmap-finisher", "Finisher", "Complete every subtopic of a roadmap", func(s store.UserStats) bool { return s.CompletedRoadmaps >= 1 }},
	{"master", "Master", "Master a roadmap", func(s store.UserStats) bool { return s.MasteredRoadmaps >= 1 }},
	{"grandmaster", "Grandmaster", "Master 3 roadmaps", func(s store.UserStats) bool { return s.MasteredRoadmaps >= 3 }},
	{"curious-mind", "Curious Mind", "Ask a mentor for help", func(s store.UserStats) bool { return s.MentorshipRequests >= 1 }},
}

// EarnedBadges is the pure rule evaluation: stats in, earned ids out (catalog order).
func EarnedBadges(st store.UserStats) []string {
	out := []string{}
	for _, b := range Catalog {
		if b.earned(st) {
			out = append(out, b.ID)
		}
	}
	return out
}

func badgeName(id string) string {
	for _, b := range Catalog {
		if b.ID == id {
			return b.Name
		}
	}
	return id
}

// EvaluateBadges awards whatever the user now qualifies for and returns the newly unlocked ids.
func (l *LearningService) EvaluateBadges(ctx context.Context, userID string) ([]string, error) {
	s := l.store
	st, err := s.GetUserStats(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "user stats")
	}
	newly := []string{}
	for _, id := range EarnedBadges(st) {
		ok, err := s.AwardBadge(ctx, userID, id)
		if err != nil {
			return nil, errors.Wrap(err, "award badge")
		}
		if !ok {
			continue
		}
		newly = append(newly, id)
		logActivity(ctx, s, l.log, userID, models.ActionBadgeUnlocked, "", map[string]interface{}{"badge_id": id})
		notify(ctx, s, l.log, &models.Notification{
			UserID: userID,
			Kind:   models.NotifyBadge,
			Title:  "Badge unlocked: " + badgeName(id),
			Link:   "/badges",
		})
	}
	return newly, nil
}

type BadgeView struct {
	Badge
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

func (l *LearningService) ListBadges(ctx context.Context, userID string) ([]BadgeView, error) {
	held, err := l.store.ListUserBadges(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list badges")
	}
	at := make(map[string]time.Time, len(held))
	for _, h := range held {
		at[h.BadgeID] = h.UnlockedAt
	}
	out := make([]BadgeView, 0, len(Catalog))
	for _, b := range Catalog {
		v := BadgeView{Badge: b}
		if t, ok := at[b.ID]; ok {
			t := t
			v.Unlocked, v.UnlockedAt = true, &t
		}
		out = append(out, v)
	}
	return out, nil
}
