package store

import (
	"context"
	"time"

	"github.com/dsa-patterns/dsa-api/internal/models"
)

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (s *Store) CountUsersCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("created_at >= ?", since.UTC()).Count(&n).Error
	return n, err
}

// UserIDsCreatedBefore is the retention cohort.
func (s *Store) UserIDsCreatedBefore(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.User{}).Where("created_at < ?", before.UTC()).Pluck("id", &ids).Error
	return ids, err
}

// QuizSample is one attempt reduced to what analytics needs.
type QuizSample struct {
	Percentage     int  `gorm:"column:percentage"`
	Passed         bool `gorm:"column:passed"`
	ElapsedSeconds int  `gorm:"column:elapsed_seconds"`
}

func (s *Store) QuizSamples(ctx context.Context) ([]QuizSample, error) {
	var res []QuizSample
	err := s.DB.WithContext(ctx).Model(&models.QuizResult{}).
		Select("percentage, passed, elapsed_seconds").Scan(&res).Error
	return res, err
}

type RoadmapAggregate struct {
	RoadmapID         string  `gorm:"column:roadmap_id" json:"roadmap_id"`
	Learners          int64   `gorm:"column:learners" json:"learners"`
	AverageCompletion float64 `gorm:"column:average_completion" json:"average_completion"`
	MasteredCount     int64   `gorm:"column:mastered_count" json:"mastered_count"`
}

func (s *Store) RoadmapAggregates(ctx context.Context) ([]RoadmapAggregate, error) {
	var res []RoadmapAggregate
	err := s.DB.WithContext(ctx).Model(&models.RoadmapProgress{}).
		Select("roadmap_id, COUNT(*) AS learners, AVG(percentage) AS average_completion, " +
			"SUM(CASE WHEN mastered THEN 1 ELSE 0 END) AS mastered_count").
		Group("roadmap_id").
		Order("roadmap_id asc").
		Scan(&res).Error
	return res, err
}

func (s *Store) CountOpenMentorshipBefore(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.MentorshipRequest{}).
		Where("status = ? AND created_at < ?", models.MentorshipOpen, before.UTC()).Count(&n).Error
	return n, err
}
