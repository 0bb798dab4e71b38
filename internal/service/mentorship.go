package service

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type MentorshipService struct {
	store    *store.Store
	learning *LearningService
	log      *zap.Logger
}

func NewMentorshipService(s *store.Store, learning *LearningService, log *zap.Logger) *MentorshipService {
	return &MentorshipService{store: s, learning: learning, log: log}
}

func canMentor(u *models.User) bool {
	return u.Role == models.RoleMentor || u.Role == models.RoleAdmin
}

func (m *MentorshipService) Create(ctx context.Context, student *models.User, topic, message, mentorID, ip string) (*models.MentorshipRequest, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.Wrap(ErrInvalid, "topic is required")
	}
	if mentorID != "" {
		mentor, err := m.store.GetUserByID(ctx, mentorID)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, errors.Wrap(ErrInvalid, "mentor does not exist")
			}
			return nil, errors.Wrap(err, "lookup mentor")
		}
		if !canMentor(mentor) || mentor.Blocked {
			return nil, errors.Wrap(ErrInvalid, "user is not an active mentor")
		}
	}
	req := &models.MentorshipRequest{
		ID:        utils.GenerateID(),
		StudentID: student.ID,
		MentorID:  mentorID,
		Topic:     topic,
		Message:   strings.TrimSpace(message),
		Status:    models.MentorshipOpen,
	}
	if err := m.store.CreateMentorshipRequest(ctx, req); err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	logActivity(ctx, m.store, m.log, student.ID, models.ActionMentorRequest, ip, map[string]interface{}{"request_id": req.ID})
	if _, err := m.learning.EvaluateBadges(ctx, student.ID); err != nil {
		m.log.Warn("badge evaluation failed", zap.String("user_id", student.ID), zap.Error(err))
	}
	return req, nil
}

func (m *MentorshipService) ListMine(ctx context.Context, userID string) ([]*models.MentorshipRequest, error) {
	res, err := m.store.ListMentorshipByStudent(ctx, userID)
	return res, errors.Wrap(err, "list requests")
}

// ListOpen shows mentors their own and unassigned requests; admins see everything.
func (m *MentorshipService) ListOpen(ctx context.Context, viewer *models.User) ([]*models.MentorshipRequest, error) {
	scope := viewer.ID
	if viewer.Role == models.RoleAdmin {
		scope = ""
	}
	res, err := m.store.ListOpenMentorship(ctx, scope)
	return res, errors.Wrap(err, "list open requests")
}

func (m *MentorshipService) Respond(ctx context.Context, responder *models.User, id, response, ip string) (*models.MentorshipRequest, error) {
	if !canMentor(responder) {
		return nil, errors.Wrap(ErrForbidden, "only mentors can respond")
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, errors.Wrap(ErrInvalid, "response is required")
	}
	req, err := m.store.GetMentorshipRequest(ctx, id)
	if err != nil {
		return nil, storeErr(err, "mentorship request")
	}
	if req.Status != models.MentorshipOpen {
		return nil, errors.Wrapf(ErrConflict, "request is %s", req.Status)
	}
	if responder.Role != models.RoleAdmin && req.MentorID != "" && req.MentorID != responder.ID {
		return nil, errors.Wrap(ErrForbidden, "request is assigned to another mentor")
	}
	if err := m.store.RespondMentorship(ctx, id, responder.ID, response); err != nil {
		if store.IsNotFound(err) {
			return nil, errors.Wrap(ErrConflict, "request was answered concurrently")
		}
		return nil, errors.Wrap(err, "respond")
	}
	logActivity(ctx, m.store, m.log, responder.ID, models.ActionMentorResponse, ip, map[string]interface{}{"request_id": id})
	notify(ctx, m.store, m.log, &models.Notification{
		UserID:   req.StudentID,
		Kind:     models.NotifyMentorshipReply,
		Title:    "Your mentor replied: " + req.Topic,
		Body:     response,
		Link:     "/mentorship",
		Metadata: utils.DatatypesJSONFromMap(map[string]interface{}{"request_id": id}),
	})
	updated, err := m.store.GetMentorshipRequest(ctx, id)
	return updated, storeErr(err, "mentorship request")
}

// Resolve is allowed for the requester and for admins.
func (m *MentorshipService) Resolve(ctx context.Context, user *models.User, id string) error {
	req, err := m.store.GetMentorshipRequest(ctx, id)
	if err != nil {
		return storeErr(err, "mentorship request")
	}
	if req.StudentID != user.ID && user.Role != models.RoleAdmin {
		return errors.Wrap(ErrForbidden, "not your request")
	}
	if req.Status == models.MentorshipResolved {
		return errors.Wrap(ErrConflict, "request already resolved")
	}
	return storeErr(m.store.ResolveMentorship(ctx, id), "resolve")
}
