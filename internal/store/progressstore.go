package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dsa-patterns/dsa-api/internal/models"
)

/* ------------------ Subtopic completion ------------------ */

// ToggleSubtopic flips the completion row for (user, roadmap, subtopic) and
// reports whether the subtopic is completed afterwards.
func (s *Store) ToggleSubtopic(ctx context.Context, userID, roadmapID, subtopicID string) (bool, error) {
	completed := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND roadmap_id = ? AND subtopic_id = ?", userID, roadmapID, subtopicID).
			Delete(&models.SubtopicCompletion{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		completed = true
		return tx.Create(&models.SubtopicCompletion{
			UserID:      userID,
			RoadmapID:   roadmapID,
			SubtopicID:  subtopicID,
			CompletedAt: nowUTC(),
		}).Error
	})
	return completed, err
}

func (s *Store) CompletedSubtopicIDs(ctx context.Context, userID, roadmapID string) ([]string, error) {
	var ids []string
	err := s.DB.WithContext(ctx).Model(&models.SubtopicCompletion{}).
		Where("user_id = ? AND roadmap_id = ?", userID, roadmapID).
		Order("completed_at asc").Pluck("subtopic_id", &ids).Error
	return ids, err
}

func (s *Store) CountCompletedSubtopics(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.SubtopicCompletion{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

/* ------------------ Roadmap progress ------------------ */

// EnsureProgress creates the (user, roadmap) progress row if missing.
func (s *Store) EnsureProgress(ctx context.Context, userID, roadmapID string) error {
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.RoadmapProgress{
		UserID:    userID,
		RoadmapID: roadmapID,
		UpdatedAt: nowUTC(),
	}).Error
}

func (s *Store) GetProgress(ctx context.Context, userID, roadmapID string) (*models.RoadmapProgress, error) {
	var p models.RoadmapProgress
	if err := s.DB.WithContext(ctx).First(&p, "user_id = ? AND roadmap_id = ?", userID, roadmapID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) SaveProgressCounts(ctx context.Context, userID, roadmapID string, completed, total, percentage int) error {
	if err := s.EnsureProgress(ctx, userID, roadmapID); err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(&models.RoadmapProgress{}).
		Where("user_id = ? AND roadmap_id = ?", userID, roadmapID).
		Updates(map[string]interface{}{
			"completed_count": completed,
			"total_count":     total,
			"percentage":      percentage,
			"updated_at":      nowUTC(),
		}).Error
}

// IncrementQuizCounters bumps attempts (and passes when passed) with column
// arithmetic and raises best_score. Returns the row after the update.
func (s *Store) IncrementQuizCounters(ctx context.Context, userID, roadmapID string, passed bool, score int) (*models.RoadmapProgress, error) {
	if err := s.EnsureProgress(ctx, userID, roadmapID); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)
	q := db.Model(&models.RoadmapProgress{}).Where("user_id = ? AND roadmap_id = ?", userID, roadmapID)
	fields := map[string]interface{}{
		"quiz_attempts": gorm.Expr("quiz_attempts + 1"),
		"updated_at":    nowUTC(),
	}
	if passed {
		fields["quiz_passes"] = gorm.Expr("quiz_passes + 1")
	}
	if err := q.Updates(fields).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.RoadmapProgress{}).
		Where("user_id = ? AND roadmap_id = ? AND best_score < ?", userID, roadmapID, score).
		Update("best_score", score).Error; err != nil {
		return nil, err
	}
	return s.GetProgress(ctx, userID, roadmapID)
}

// MarkMastered sets mastered once. Reports true only for the call that flipped it.
func (s *Store) MarkMastered(ctx context.Context, userID, roadmapID string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.RoadmapProgress{}).
		Where("user_id = ? AND roadmap_id = ? AND mastered = ?", userID, roadmapID, false).
		Updates(map[string]interface{}{"mastered": true, "mastered_at": nowUTC()})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) ListProgressForUser(ctx context.Context, userID string) ([]*models.RoadmapProgress, error) {
	var res []*models.RoadmapProgress
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("updated_at desc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// AllProgress is used by the CSV export.
func (s *Store) AllProgress(ctx context.Context) ([]*models.RoadmapProgress, error) {
	var res []*models.RoadmapProgress
	if err := s.DB.WithContext(ctx).Order("user_id asc, roadmap_id asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

/* ------------------ Bookmarks ------------------ */

// ToggleBookmark flips (user, kind, item) and reports whether it is bookmarked afterwards.
func (s *Store) ToggleBookmark(ctx context.Context, userID, kind, itemID string) (bool, error) {
	bookmarked := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND kind = ? AND item_id = ?", userID, kind, itemID).Delete(&models.Bookmark{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		bookmarked = true
		return tx.Create(&models.Bookmark{UserID: userID, Kind: kind, ItemID: itemID, CreatedAt: nowUTC()}).Error
	})
	return bookmarked, err
}

func (s *Store) ListBookmarks(ctx context.Context, userID, kind string) ([]*models.Bookmark, error) {
	q := s.DB.WithContext(ctx).Where("user_id = ?", userID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	var res []*models.Bookmark
	if err := q.Order("created_at desc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}
