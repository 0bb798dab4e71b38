package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dsa-patterns/dsa-api/internal/models"
)

/* ------------------ User CRUD ------------------ */

func (s *Store) CreateUser(ctx context.Context, u *models.User, ud *models.UserDetails) error {
	// create user and empty details in a transaction
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		if ud.AdditionalInfo == nil {
			ud.AdditionalInfo = map[string]interface{}{}
		}
		return tx.Create(ud).Error
	})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Preload("UserDetails").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Preload("UserDetails").First(&u, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateUserFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = nowUTC()
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) UpdateUserDetailsFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = nowUTC()
	tx := s.DB.WithContext(ctx)
	// details row may be missing for very old accounts
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserDetails{UserID: id, AdditionalInfo: map[string]interface{}{}}).Error; err != nil {
		return err
	}
	return tx.Model(&models.UserDetails{}).Where("user_id = ?", id).Updates(fields).Error
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at.UTC()).Error
}

type UserListFilter struct {
	Role    *models.Role
	Blocked *bool
	Search  string
	Limit   int
	Offset  int
}

// ListUsers returns users newest first plus the unpaged total.
func (s *Store) ListUsers(ctx context.Context, f UserListFilter) ([]*models.User, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.User{})
	if f.Role != nil && *f.Role != "" {
		q = q.Where("role = ?", *f.Role)
	}
	if f.Blocked != nil {
		q = q.Where("blocked = ?", *f.Blocked)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(name) LIKE ?", like, like)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	var res []*models.User
	if err := q.Order("created_at desc").Limit(f.Limit).Offset(f.Offset).Find(&res).Error; err != nil {
		return nil, 0, err
	}
	return res, total, nil
}

func (s *Store) ListUsersByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	var res []*models.User
	if err := s.DB.WithContext(ctx).Where("role = ?", role).Order("created_at asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// AllUsers is used by the CSV export; ordered by creation.
func (s *Store) AllUsers(ctx context.Context) ([]*models.User, error) {
	var res []*models.User
	if err := s.DB.WithContext(ctx).Order("created_at asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}
