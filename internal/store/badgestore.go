package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/dsa-patterns/dsa-api/internal/models"
)

func (s *Store) ListUserBadges(ctx context.Context, userID string) ([]*models.UserBadge, error) {
	var res []*models.UserBadge
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Order("unlocked_at asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// AwardBadge inserts the badge unless already held; true when newly unlocked.
func (s *Store) AwardBadge(ctx context.Context, userID, badgeID string) (bool, error) {
	res := s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserBadge{UserID: userID, BadgeID: badgeID, UnlockedAt: nowUTC()})
	return res.RowsAffected > 0, res.Error
}

// UserStats are the counters badge rules are evaluated against.
type UserStats struct {
	CompletedSubtopics int64
	QuizAttempts       int64
	QuizzesPassed      int64
	MasteredRoadmaps   int64
	CompletedRoadmaps  int64
	MentorshipRequests int64
}

func (s *Store) GetUserStats(ctx context.Context, userID string) (UserStats, error) {
	var st UserStats
	var err error
	if st.CompletedSubtopics, err = s.CountCompletedSubtopics(ctx, userID); err != nil {
		return st, err
	}
	qc, err := s.CountQuizResults(ctx, userID)
	if err != nil {
		return st, err
	}
	st.QuizAttempts, st.QuizzesPassed = qc.Attempts, qc.Passed
	db := s.DB.WithContext(ctx)
	if err = db.Model(&models.RoadmapProgress{}).
		Where("user_id = ? AND mastered = ?", userID, true).Count(&st.MasteredRoadmaps).Error; err != nil {
		return st, err
	}
	if err = s.DB.WithContext(ctx).Model(&models.RoadmapProgress{}).
		Where("user_id = ? AND total_count > 0 AND completed_count >= total_count", userID).
		Count(&st.CompletedRoadmaps).Error; err != nil {
		return st, err
	}
	st.MentorshipRequests, err = s.CountMentorshipByStudent(ctx, userID)
	return st, err
}
