package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type Store struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// AllModels is the AutoMigrate set.
var AllModels = []interface{}{
	&models.User{},
	&models.UserDetails{},
	&models.RefreshToken{},
	&models.Roadmap{},
	&models.RoadmapNode{},
	&models.RoadmapProgress{},
	&models.SubtopicCompletion{},
	&models.Bookmark{},
	&models.QuizQuestion{},
	&models.QuizResult{},
	&models.MentorshipRequest{},
	&models.Appeal{},
	&models.Notification{},
	&models.ActivityLog{},
	&models.UserBadge{},
	&models.Escalation{},
}

func nowUTC() time.Time { return time.Now().UTC() }

// GormConfig is shared by the postgres store and the sqlite test store.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: nowUTC,
	}
}

func NewGormStore(cfg *config.Config) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), GormConfig())
	if err != nil {
		return nil, err
	}
	s := New(db, cfg)
	if err := s.AutoMigrate(); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Pooling sensible defaults for small VPS (tune later)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return s, nil
}

func New(db *gorm.DB, cfg *config.Config) *Store {
	return &Store{DB: db, Cfg: cfg}
}

// AutoMigrate is non-destructive: creates tables/columns/indexes.
func (s *Store) AutoMigrate() error {
	return s.DB.Set("gorm:DisableForeignKeyConstraintWhenMigrating", true).AutoMigrate(AllModels...)
}

/* ------------------ Refresh token methods ------------------ */

func hashTokenPlain(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SaveRefreshToken stores a token (hashed) and expiry
func (s *Store) SaveRefreshToken(ctx context.Context, userID, plainToken string, expiresAt time.Time) error {
	rt := models.RefreshToken{
		ID:        utils.GenerateID(),
		UserID:    userID,
		TokenHash: hashTokenPlain(plainToken),
		IssuedAt:  nowUTC(),
		ExpiresAt: expiresAt.UTC(),
	}
	return s.DB.WithContext(ctx).Create(&rt).Error
}

func (s *Store) RevokeRefreshToken(ctx context.Context, plainToken string) error {
	return s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashTokenPlain(plainToken)).Update("revoked", true).Error
}

// RevokeUserTokens revokes every refresh token of a user.
func (s *Store) RevokeUserTokens(ctx context.Context, userID string) error {
	return revokeUserTokens(s.DB.WithContext(ctx), userID)
}

func revokeUserTokens(db *gorm.DB, userID string) error {
	return db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).Update("revoked", true).Error
}

// RotateRefreshToken revokes the old token and inserts the new one in a tx.
// Returns the owning user id.
func (s *Store) RotateRefreshToken(ctx context.Context, oldPlain, newPlain string, newExpiry time.Time) (string, error) {
	var userID string
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old models.RefreshToken
		if err := tx.Where("token_hash = ? AND revoked = ? AND expires_at > ?", hashTokenPlain(oldPlain), false, nowUTC()).
			First(&old).Error; err != nil {
			return err
		}
		res := tx.Model(&models.RefreshToken{}).Where("id = ? AND revoked = ?", old.ID, false).Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// concurrently rotated
			return gorm.ErrRecordNotFound
		}
		userID = old.UserID
		return tx.Create(&models.RefreshToken{
			ID:        utils.GenerateID(),
			UserID:    old.UserID,
			TokenHash: hashTokenPlain(newPlain),
			IssuedAt:  nowUTC(),
			ExpiresAt: newExpiry.UTC(),
		}).Error
	})
	return userID, err
}

// DeleteExpiredTokens purges expired rows and returns how many were removed.
func (s *Store) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Where("expires_at < ?", nowUTC()).Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}

/* ------------------ Helpers ------------------ */

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsNotFound is used by callers to tell not-found from other errors.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
