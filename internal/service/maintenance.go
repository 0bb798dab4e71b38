package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/mail"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

// MaintenanceService runs the periodic threshold checks an external cron triggers.
type MaintenanceService struct {
	store  *store.Store
	mailer mail.Mailer
	cfg    *config.Config
	log    *zap.Logger
}

func NewMaintenanceService(s *store.Store, mailer mail.Mailer, cfg *config.Config, log *zap.Logger) *MaintenanceService {
	return &MaintenanceService{store: s, mailer: mailer, cfg: cfg, log: log}
}

type MaintenanceSummary struct {
	EscalatedMentorships int   `json:"escalated_mentorships"`
	BlockedUsers         int   `json:"blocked_users"`
	PurgedTokens         int64 `json:"purged_tokens"`
}

// Run executes every sweep. A failing item is logged and skipped; a failing query aborts.
func (m *MaintenanceService) Run(ctx context.Context, now time.Time) (*MaintenanceSummary, error) {
	var sum MaintenanceSummary
	var err error
	if sum.EscalatedMentorships, err = m.EscalateMentorship(ctx, now); err != nil {
		return nil, err
	}
	if sum.BlockedUsers, err = m.BlockRepeatedLoginFailures(ctx, now); err != nil {
		return nil, err
	}
	if sum.PurgedTokens, err = m.store.DeleteExpiredTokens(ctx); err != nil {
		return nil, errors.Wrap(err, "purge tokens")
	}
	m.log.Info("maintenance run",
		zap.Int("escalated_mentorships", sum.EscalatedMentorships),
		zap.Int("blocked_users", sum.BlockedUsers),
		zap.Int64("purged_tokens", sum.PurgedTokens),
	)
	return &sum, nil
}

func (m *MaintenanceService) EscalateMentorship(ctx context.Context, now time.Time) (int, error) {
	stale, err := m.store.StaleMentorship(ctx, now.Add(-m.cfg.EscalationAfter))
	if err != nil {
		return 0, errors.Wrap(err, "stale mentorship")
	}
	if len(stale) == 0 {
		return 0, nil
	}
	admins, err := m.store.ListUsersByRole(ctx, models.RoleAdmin)
	if err != nil {
		return 0, errors.Wrap(err, "list admins")
	}

	var escalated []*models.MentorshipRequest
	for _, req := range stale {
		ok, err := m.store.MarkMentorshipEscalated(ctx, req.ID)
		if err != nil {
			m.log.Error("escalate mentorship", zap.String("request_id", req.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		age := now.Sub(req.CreatedAt).Round(time.Hour)
		if err := m.store.CreateEscalation(ctx, &models.Escalation{
			ID:        utils.GenerateID(),
			Kind:      models.EscalationMentorshipUnanswered,
			SubjectID: req.ID,
			Details:   fmt.Sprintf("request %q from %s unanswered for %s", req.Topic, req.StudentID, age),
		}); err != nil {
			m.log.Error("create escalation", zap.String("request_id", req.ID), zap.Error(err))
		}
		notes := make([]*models.Notification, 0, len(admins))
		for _, a := range admins {
			notes = append(notes, &models.Notification{
				UserID:   a.ID,
				Kind:     models.NotifyEscalation,
				Title:    "Mentorship request unanswered: " + req.Topic,
				Link:     "/admin/escalations",
				Metadata: utils.DatatypesJSONFromMap(map[string]interface{}{"request_id": req.ID}),
			})
		}
		if err := m.store.CreateNotifications(ctx, notes); err != nil {
			m.log.Warn("notify admins", zap.String("request_id", req.ID), zap.Error(err))
		}
		escalated = append(escalated, req)
	}

	if len(escalated) > 0 && m.cfg.AdminEmail != "" {
		var b strings.Builder
		for _, req := range escalated {
			fmt.Fprintf(&b, "- %s (student %s, opened %s)\n", req.Topic, req.StudentID, req.CreatedAt.Format(time.RFC3339))
		}
		if err := m.mailer.Send(ctx, mail.Message{
			To:      []string{m.cfg.AdminEmail},
			Subject: fmt.Sprintf("%d mentorship request(s) escalated", len(escalated)),
			Text:    "These requests have been open longer than " + m.cfg.EscalationAfter.String() + ":\n\n" + b.String(),
		}); err != nil {
			m.log.Error("escalation mail", zap.Error(err))
		}
	}
	return len(escalated), nil
}

func (m *MaintenanceService) BlockRepeatedLoginFailures(ctx context.Context, now time.Time) (int, error) {
	since := now.Add(-m.cfg.LoginFailureWindow)
	counts, err := m.store.ActionCountsSince(ctx, models.ActionLoginFailed, since, m.cfg.LoginFailureLimit)
	if err != nil {
		return 0, errors.Wrap(err, "count login failures")
	}
	blocked := 0
	for _, c := range counts {
		u, err := m.store.GetUserByID(ctx, c.UserID)
		if err != nil {
			m.log.Warn("load user for blocking", zap.String("user_id", c.UserID), zap.Error(err))
			continue
		}
		if u.Blocked {
			continue
		}
		// failures before a manual unblock were already forgiven
		if u.UnblockedAt != nil && u.UnblockedAt.After(since) {
			n, err := m.store.CountUserActionSince(ctx, u.ID, models.ActionLoginFailed, *u.UnblockedAt)
			if err != nil {
				m.log.Warn("recount login failures", zap.String("user_id", u.ID), zap.Error(err))
				continue
			}
			if n < int64(m.cfg.LoginFailureLimit) {
				continue
			}
			c.Count = n
		}
		reason := fmt.Sprintf("%d failed logins within %s", c.Count, m.cfg.LoginFailureWindow)
		if err := m.store.BlockUser(ctx, u.ID, reason); err != nil {
			m.log.Error("block user", zap.String("user_id", u.ID), zap.Error(err))
			continue
		}
		if err := m.store.CreateEscalation(ctx, &models.Escalation{
			ID:        utils.GenerateID(),
			Kind:      models.EscalationLoginFailures,
			SubjectID: u.ID,
			Details:   reason,
		}); err != nil {
			m.log.Error("create escalation", zap.String("user_id", u.ID), zap.Error(err))
		}
		logActivity(ctx, m.store, m.log, u.ID, models.ActionUserBlocked, "", map[string]interface{}{"reason": reason, "automatic": true})
		blocked++
	}
	return blocked, nil
}
