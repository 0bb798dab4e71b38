package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

// Sentinel causes; handlers map errors.Cause(err) to an HTTP status.
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalid      = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
)

// storeErr turns gorm's not-found into ErrNotFound and wraps everything else.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	if store.IsNotFound(err) {
		return errors.Wrap(ErrNotFound, what)
	}
	return errors.Wrap(err, what)
}

// logActivity is best effort: a failed audit row never fails the request.
func logActivity(ctx context.Context, s *store.Store, log *zap.Logger, userID, action, ip string, meta map[string]interface{}) {
	a := &models.ActivityLog{
		UserID:   userID,
		Action:   action,
		IP:       ip,
		Metadata: utils.DatatypesJSONFromMap(meta),
	}
	if err := s.LogActivity(ctx, a); err != nil {
		log.Warn("activity log failed", zap.String("action", action), zap.String("user_id", userID), zap.Error(err))
	}
}

func notify(ctx context.Context, s *store.Store, log *zap.Logger, n *models.Notification) {
	if err := s.CreateNotification(ctx, n); err != nil {
		log.Warn("notification failed", zap.String("kind", n.Kind), zap.String("user_id", n.UserID), zap.Error(err))
	}
}
