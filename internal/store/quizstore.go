package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/dsa-patterns/dsa-api/internal/models"
)

func (s *Store) CreateQuestion(ctx context.Context, q *models.QuizQuestion) error {
	return s.DB.WithContext(ctx).Create(q).Error
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.QuizQuestion{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) ListQuestions(ctx context.Context, roadmapID string) ([]*models.QuizQuestion, error) {
	var res []*models.QuizQuestion
	if err := s.DB.WithContext(ctx).Where("roadmap_id = ?", roadmapID).
		Order("position asc, created_at asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) CreateQuizResult(ctx context.Context, r *models.QuizResult) error {
	return s.DB.WithContext(ctx).Create(r).Error
}

// ListQuizResults returns a user's attempts newest first; empty roadmapID means all roadmaps.
func (s *Store) ListQuizResults(ctx context.Context, userID, roadmapID string, limit int) ([]*models.QuizResult, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if roadmapID != "" {
		q = q.Where("roadmap_id = ?", roadmapID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var res []*models.QuizResult
	if err := q.Order("created_at desc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

type QuizCounts struct {
	Attempts int64
	Passed   int64
}

func (s *Store) CountQuizResults(ctx context.Context, userID string) (QuizCounts, error) {
	var c QuizCounts
	db := s.DB.WithContext(ctx).Model(&models.QuizResult{})
	if err := db.Where("user_id = ?", userID).Count(&c.Attempts).Error; err != nil {
		return c, err
	}
	err := s.DB.WithContext(ctx).Model(&models.QuizResult{}).
		Where("user_id = ? AND passed = ?", userID, true).Count(&c.Passed).Error
	return c, err
}
