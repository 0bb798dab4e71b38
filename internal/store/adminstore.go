package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/dsa-patterns/dsa-api/internal/models"
)

/* ------------------ Moderation ------------------ */

func (s *Store) ChangeUserRole(ctx context.Context, userID string, role models.Role) error {
	return s.UpdateUserFields(ctx, userID, map[string]interface{}{"role": role})
}

// BlockUser marks the user blocked and revokes their refresh tokens.
func (s *Store) BlockUser(ctx context.Context, userID, reason string) error {
	now := nowUTC()
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"blocked":        true,
			"blocked_reason": reason,
			"blocked_at":     now,
			"updated_at":     now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return revokeUserTokens(tx, userID)
	})
}

func (s *Store) UnblockUser(ctx context.Context, userID string) error {
	return s.UpdateUserFields(ctx, userID, map[string]interface{}{
		"blocked":        false,
		"blocked_reason": "",
		"blocked_at":     nil,
		"unblocked_at":   nowUTC(),
	})
}

/* ------------------ Appeals ------------------ */

func (s *Store) CreateAppeal(ctx context.Context, a *models.Appeal) error {
	return s.DB.WithContext(ctx).Create(a).Error
}

func (s *Store) HasPendingAppeal(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Appeal{}).
		Where("user_id = ? AND status = ?", userID, models.AppealPending).Count(&n).Error
	return n > 0, err
}

func (s *Store) GetAppealByID(ctx context.Context, id string) (*models.Appeal, error) {
	var a models.Appeal
	if err := s.DB.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAppeals returns appeals oldest first; empty status means all.
func (s *Store) ListAppeals(ctx context.Context, status models.AppealStatus) ([]*models.Appeal, error) {
	q := s.DB.WithContext(ctx).Model(&models.Appeal{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var res []*models.Appeal
	if err := q.Order("created_at asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// DecideAppeal moves a pending appeal to approved/rejected. When approving, the
// user is unblocked in the same transaction. Returns ErrRecordNotFound if the
// appeal is missing or already decided.
func (s *Store) DecideAppeal(ctx context.Context, id, reviewerID string, status models.AppealStatus, note string) (*models.Appeal, error) {
	var out models.Appeal
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := nowUTC()
		res := tx.Model(&models.Appeal{}).Where("id = ? AND status = ?", id, models.AppealPending).Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"review_note": note,
			"reviewed_at": now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.First(&out, "id = ?", id).Error; err != nil {
			return err
		}
		if status != models.AppealApproved {
			return nil
		}
		return tx.Model(&models.User{}).Where("id = ?", out.UserID).Updates(map[string]interface{}{
			"blocked":        false,
			"blocked_reason": "",
			"blocked_at":     nil,
			"unblocked_at":   now,
			"updated_at":     now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

/* ------------------ Escalations ------------------ */

func (s *Store) CreateEscalation(ctx context.Context, e *models.Escalation) error {
	return s.DB.WithContext(ctx).Create(e).Error
}

func (s *Store) ListEscalations(ctx context.Context, includeResolved bool) ([]*models.Escalation, error) {
	q := s.DB.WithContext(ctx).Model(&models.Escalation{})
	if !includeResolved {
		q = q.Where("resolved = ?", false)
	}
	var res []*models.Escalation
	if err := q.Order("created_at desc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) ResolveEscalation(ctx context.Context, id, adminID string) error {
	res := s.DB.WithContext(ctx).Model(&models.Escalation{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]interface{}{"resolved": true, "resolved_by": adminID, "resolved_at": nowUTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
