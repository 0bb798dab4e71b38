package store

import (
	"context"
	"time"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type ActivityListFilter struct {
	UserID *string
	Action *string
	Since  *time.Time
	Limit  int
}

func (s *Store) LogActivity(ctx context.Context, a *models.ActivityLog) error {
	if a.ID == "" {
		a.ID = utils.GenerateID()
	}
	return s.DB.WithContext(ctx).Create(a).Error
}

func (s *Store) ListActivity(ctx context.Context, f ActivityListFilter) ([]*models.ActivityLog, error) {
	q := s.DB.WithContext(ctx).Model(&models.ActivityLog{})
	if f.UserID != nil && *f.UserID != "" {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.Action != nil && *f.Action != "" {
		q = q.Where("action = ?", *f.Action)
	}
	if f.Since != nil {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	var res []*models.ActivityLog
	if err := q.Order("created_at desc").Limit(f.Limit).Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

type UserActionCount struct {
	UserID string `gorm:"column:user_id"`
	Count  int64  `gorm:"column:count"`
}

// ActionCountsSince groups rows of one action by user, keeping users with at least min rows.
func (s *Store) ActionCountsSince(ctx context.Context, action string, since time.Time, min int) ([]UserActionCount, error) {
	var res []UserActionCount
	err := s.DB.WithContext(ctx).Model(&models.ActivityLog{}).
		Select("user_id, COUNT(*) AS count").
		Where("action = ? AND created_at >= ? AND user_id <> ''", action, since.UTC()).
		Group("user_id").
		Having("COUNT(*) >= ?", min).
		Order("user_id asc").
		Scan(&res).Error
	return res, err
}

func (s *Store) CountUserActionSince(ctx context.Context, userID, action string, since time.Time) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("user_id = ? AND action = ? AND created_at >= ?", userID, action, since.UTC()).Count(&n).Error
	return n, err
}

// ActiveUserIDsSince returns distinct users with any activity since the given time.
func (s *Store) ActiveUserIDsSince(ctx context.Context, since time.Time) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.ActivityLog{}).
		Where("created_at >= ? AND user_id <> ''", since.UTC()).
		Distinct().Pluck("user_id", &ids).Error
	return ids, err
}
