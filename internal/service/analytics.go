package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
)

type AnalyticsService struct {
	store *store.Store
}

func NewAnalyticsService(s *store.Store) *AnalyticsService {
	return &AnalyticsService{store: s}
}

type UserTotals struct {
	Users     int64 `json:"users"`
	NewUsers  int64 `json:"new_users_30d"`
	Active7d  int   `json:"active_7d"`
	Active30d int   `json:"active_30d"`
}

type QuizAnalytics struct {
	Attempts       int     `json:"attempts"`
	PassRate       float64 `json:"pass_rate"`
	MeanScore      float64 `json:"mean_score"`
	StdDevScore    float64 `json:"stddev_score"`
	MeanTimeSecond float64 `json:"mean_time_seconds"`
}

type RoadmapAnalytics struct {
	store.RoadmapAggregate
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type Analytics struct {
	Totals      UserTotals         `json:"totals"`
	CohortSize  int                `json:"cohort_size"`
	Retention   float64            `json:"retention"`
	Churn       float64            `json:"churn"`
	Quizzes     QuizAnalytics      `json:"quizzes"`
	Roadmaps    []RoadmapAnalytics `json:"roadmaps"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Retention is the share of the cohort found in active; churn is its complement.
// Both are 0 for an empty cohort.
func Retention(cohort, active []string) (retention, churn float64) {
	if len(cohort) == 0 {
		return 0, 0
	}
	set := make(map[string]struct{}, len(active))
	for _, id := range active {
		set[id] = struct{}{}
	}
	kept := 0
	for _, id := range cohort {
		if _, ok := set[id]; ok {
			kept++
		}
	}
	retention = float64(kept) / float64(len(cohort))
	return retention, 1 - retention
}

// SummarizeQuizzes computes attempt statistics; the standard deviation is the
// sample one and is 0 below two attempts.
func SummarizeQuizzes(samples []store.QuizSample) QuizAnalytics {
	out := QuizAnalytics{Attempts: len(samples)}
	if len(samples) == 0 {
		return out
	}
	scores := make([]float64, len(samples))
	times := make([]float64, len(samples))
	passed := 0
	for i, s := range samples {
		scores[i] = float64(s.Percentage)
		times[i] = float64(s.ElapsedSeconds)
		if s.Passed {
			passed++
		}
	}
	out.PassRate = float64(passed) / float64(len(samples))
	if len(samples) > 1 {
		out.MeanScore, out.StdDevScore = stat.MeanStdDev(scores, nil)
	} else {
		out.MeanScore = scores[0]
	}
	out.MeanTimeSecond = stat.Mean(times, nil)
	return out
}

func (a *AnalyticsService) Overview(ctx context.Context, now time.Time) (*Analytics, error) {
	out := &Analytics{GeneratedAt: now}
	var err error
	if out.Totals.Users, err = a.store.CountUsers(ctx); err != nil {
		return nil, errors.Wrap(err, "count users")
	}
	month := now.Add(-30 * 24 * time.Hour)
	if out.Totals.NewUsers, err = a.store.CountUsersCreatedSince(ctx, month); err != nil {
		return nil, errors.Wrap(err, "count new users")
	}
	active30, err := a.store.ActiveUserIDsSince(ctx, month)
	if err != nil {
		return nil, errors.Wrap(err, "active users")
	}
	active7, err := a.store.ActiveUserIDsSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, errors.Wrap(err, "active users")
	}
	out.Totals.Active30d, out.Totals.Active7d = len(active30), len(active7)

	cohort, err := a.store.UserIDsCreatedBefore(ctx, month)
	if err != nil {
		return nil, errors.Wrap(err, "cohort")
	}
	out.CohortSize = len(cohort)
	out.Retention, out.Churn = Retention(cohort, active30)

	samples, err := a.store.QuizSamples(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "quiz samples")
	}
	out.Quizzes = SummarizeQuizzes(samples)

	aggs, err := a.store.RoadmapAggregates(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "roadmap aggregates")
	}
	roadmaps, err := a.store.ListRoadmaps(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "list roadmaps")
	}
	byID := make(map[string]*models.Roadmap, len(roadmaps))
	for _, r := range roadmaps {
		byID[r.ID] = r
	}
	out.Roadmaps = make([]RoadmapAnalytics, 0, len(aggs))
	for _, agg := range aggs {
		ra := RoadmapAnalytics{RoadmapAggregate: agg}
		if r, ok := byID[agg.RoadmapID]; ok {
			ra.Title, ra.Slug = r.Title, r.Slug
		}
		out.Roadmaps = append(out.Roadmaps, ra)
	}
	return out, nil
}

type Dashboard struct {
	Progress            []*models.RoadmapProgress `json:"progress"`
	QuizAttempts        int64                     `json:"quiz_attempts"`
	QuizzesPassed       int64                     `json:"quizzes_passed"`
	RecentResults       []*models.QuizResult      `json:"recent_results"`
	Badges              []*models.UserBadge       `json:"badges"`
	UnreadNotifications int64                     `json:"unread_notifications"`
}

func (a *AnalyticsService) UserDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	out := &Dashboard{}
	var err error
	if out.Progress, err = a.store.ListProgressForUser(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "progress")
	}
	qc, err := a.store.CountQuizResults(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "quiz counts")
	}
	out.QuizAttempts, out.QuizzesPassed = qc.Attempts, qc.Passed
	if out.RecentResults, err = a.store.ListQuizResults(ctx, userID, "", 5); err != nil {
		return nil, errors.Wrap(err, "recent results")
	}
	if out.Badges, err = a.store.ListUserBadges(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "badges")
	}
	if out.UnreadNotifications, err = a.store.CountUnreadNotifications(ctx, userID); err != nil {
		return nil, errors.Wrap(err, "notifications")
	}
	return out, nil
}
