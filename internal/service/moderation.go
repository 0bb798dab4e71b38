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

// ModerationService covers admin user management, appeals and escalations.
type ModerationService struct {
	store  *store.Store
	users  *UserService
	mailer mail.Mailer
	cfg    *config.Config
	log    *zap.Logger
}

func NewModerationService(s *store.Store, users *UserService, mailer mail.Mailer, cfg *config.Config, log *zap.Logger) *ModerationService {
	return &ModerationService{store: s, users: users, mailer: mailer, cfg: cfg, log: log}
}

func (m *ModerationService) sendMail(ctx context.Context, msg mail.Message) {
	if err := m.mailer.Send(ctx, msg); err != nil {
		m.log.Error("send mail", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

/* ------------------ Users ------------------ */

func (m *ModerationService) ListUsers(ctx context.Context, f store.UserListFilter) ([]*models.User, int64, error) {
	res, total, err := m.store.ListUsers(ctx, f)
	return res, total, errors.Wrap(err, "list users")
}

func (m *ModerationService) ChangeRole(ctx context.Context, admin *models.User, userID string, role models.Role, ip string) error {
	if !role.Valid() {
		return errors.Wrapf(ErrInvalid, "unknown role %q", role)
	}
	if admin.ID == userID {
		return errors.Wrap(ErrForbidden, "admins cannot change their own role")
	}
	target, err := m.store.GetUserByID(ctx, userID)
	if err != nil {
		return storeErr(err, "user")
	}
	if err := m.store.ChangeUserRole(ctx, userID, role); err != nil {
		return storeErr(err, "change role")
	}
	logActivity(ctx, m.store, m.log, admin.ID, models.ActionRoleChanged, ip, map[string]interface{}{
		"target_id": userID, "from": target.Role, "to": role,
	})
	return nil
}

func (m *ModerationService) Block(ctx context.Context, admin *models.User, userID, reason, ip string) error {
	if admin.ID == userID {
		return errors.Wrap(ErrForbidden, "admins cannot block themselves")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return errors.Wrap(ErrInvalid, "reason is required")
	}
	target, err := m.store.GetUserByID(ctx, userID)
	if err != nil {
		return storeErr(err, "user")
	}
	if target.Blocked {
		return errors.Wrap(ErrConflict, "user already blocked")
	}
	if err := m.store.BlockUser(ctx, userID, reason); err != nil {
		return storeErr(err, "block user")
	}
	logActivity(ctx, m.store, m.log, admin.ID, models.ActionUserBlocked, ip, map[string]interface{}{"target_id": userID, "reason": reason})
	return nil
}

func (m *ModerationService) Unblock(ctx context.Context, admin *models.User, userID, ip string) error {
	target, err := m.store.GetUserByID(ctx, userID)
	if err != nil {
		return storeErr(err, "user")
	}
	if !target.Blocked {
		return errors.Wrap(ErrConflict, "user is not blocked")
	}
	if err := m.store.UnblockUser(ctx, userID); err != nil {
		return storeErr(err, "unblock user")
	}
	logActivity(ctx, m.store, m.log, admin.ID, models.ActionUserUnblocked, ip, map[string]interface{}{"target_id": userID})
	return nil
}

func (m *ModerationService) ListActivity(ctx context.Context, f store.ActivityListFilter) ([]*models.ActivityLog, error) {
	res, err := m.store.ListActivity(ctx, f)
	return res, errors.Wrap(err, "list activity")
}

/* ------------------ Appeals ------------------ */

// SubmitAppeal is unauthenticated: the blocked user proves ownership with their credentials.
func (m *ModerationService) SubmitAppeal(ctx context.Context, email, password, message, ip string) (*models.Appeal, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, errors.Wrap(ErrInvalid, "message is required")
	}
	// wrong credentials count toward the login failure limit, and an unblocked
	// account gets the same answer so this cannot be used to test passwords
	user, err := m.users.VerifyCredentials(ctx, email, password)
	if err != nil {
		if user != nil {
			logActivity(ctx, m.store, m.log, user.ID, models.ActionLoginFailed, ip, map[string]interface{}{"source": "appeal"})
		}
		return nil, err
	}
	if !user.Blocked {
		return nil, errors.Wrap(ErrUnauthorized, "invalid credentials")
	}
	pending, err := m.store.HasPendingAppeal(ctx, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "check appeals")
	}
	if pending {
		return nil, errors.Wrap(ErrConflict, "an appeal is already pending")
	}
	a := &models.Appeal{
		ID:      utils.GenerateID(),
		UserID:  user.ID,
		Message: message,
		Status:  models.AppealPending,
	}
	if err := m.store.CreateAppeal(ctx, a); err != nil {
		return nil, errors.Wrap(err, "create appeal")
	}
	logActivity(ctx, m.store, m.log, user.ID, models.ActionAppealSubmitted, ip, map[string]interface{}{"appeal_id": a.ID})
	if m.cfg.AdminEmail != "" {
		m.sendMail(ctx, mail.Message{
			To:      []string{m.cfg.AdminEmail},
			Subject: "New appeal from " + user.Email,
			Text:    fmt.Sprintf("User %s (%s) appealed their block:\n\n%s", user.Name, user.ID, message),
		})
	}
	return a, nil
}

func (m *ModerationService) ListAppeals(ctx context.Context, status models.AppealStatus) ([]*models.Appeal, error) {
	res, err := m.store.ListAppeals(ctx, status)
	return res, errors.Wrap(err, "list appeals")
}

func (m *ModerationService) DecideAppeal(ctx context.Context, admin *models.User, id string, approve bool, note, ip string) (*models.Appeal, error) {
	current, err := m.store.GetAppealByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "appeal")
	}
	if current.Status != models.AppealPending {
		return nil, errors.Wrapf(ErrConflict, "appeal already %s", current.Status)
	}
	status := models.AppealRejected
	if approve {
		status = models.AppealApproved
	}
	a, err := m.store.DecideAppeal(ctx, id, admin.ID, status, strings.TrimSpace(note))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, errors.Wrap(ErrConflict, "appeal decided concurrently")
		}
		return nil, errors.Wrap(err, "decide appeal")
	}
	logActivity(ctx, m.store, m.log, admin.ID, models.ActionAppealDecided, ip, map[string]interface{}{
		"appeal_id": id, "status": status, "target_id": a.UserID,
	})

	title := "Your appeal was rejected"
	if approve {
		title = "Your appeal was approved"
	}
	notify(ctx, m.store, m.log, &models.Notification{
		UserID: a.UserID,
		Kind:   models.NotifyAppeal,
		Title:  title,
		Body:   a.ReviewNote,
	})
	if u, err := m.store.GetUserByID(ctx, a.UserID); err == nil {
		m.sendMail(ctx, mail.Message{To: []string{u.Email}, Subject: title, Text: a.ReviewNote})
	}
	return a, nil
}

/* ------------------ Escalations ------------------ */

func (m *ModerationService) ListEscalations(ctx context.Context, includeResolved bool) ([]*models.Escalation, error) {
	res, err := m.store.ListEscalations(ctx, includeResolved)
	return res, errors.Wrap(err, "list escalations")
}

func (m *ModerationService) ResolveEscalation(ctx context.Context, admin *models.User, id string) error {
	return storeErr(m.store.ResolveEscalation(ctx, id, admin.ID), "escalation")
}

type Insights struct {
	OpenEscalations       []*models.Escalation `json:"open_escalations"`
	StaleMentorship       int64                `json:"stale_mentorship"`
	UsersNearFailureLimit []UserFailureCount   `json:"users_near_failure_limit"`
}

type UserFailureCount struct {
	UserID   string `json:"user_id"`
	Failures int64  `json:"failures"`
}

// Insights reports what the next maintenance run is likely to act on.
func (m *ModerationService) Insights(ctx context.Context, now time.Time) (*Insights, error) {
	open, err := m.store.ListEscalations(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "list escalations")
	}
	stale, err := m.store.CountOpenMentorshipBefore(ctx, now.Add(-m.cfg.EscalationAfter))
	if err != nil {
		return nil, errors.Wrap(err, "count stale mentorship")
	}
	near := (m.cfg.LoginFailureLimit + 1) / 2
	counts, err := m.store.ActionCountsSince(ctx, models.ActionLoginFailed, now.Add(-m.cfg.LoginFailureWindow), near)
	if err != nil {
		return nil, errors.Wrap(err, "count login failures")
	}
	out := &Insights{OpenEscalations: open, StaleMentorship: stale, UsersNearFailureLimit: []UserFailureCount{}}
	for _, c := range counts {
		if c.Count >= int64(m.cfg.LoginFailureLimit) {
			continue
		}
		out.UsersNearFailureLimit = append(out.UsersNearFailureLimit, UserFailureCount{UserID: c.UserID, Failures: c.Count})
	}
	return out, nil
}
