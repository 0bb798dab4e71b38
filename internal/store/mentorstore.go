package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/dsa-patterns/dsa-api/internal/models"
)

func (s *Store) CreateMentorshipRequest(ctx context.Context, m *models.MentorshipRequest) error {
	return s.DB.WithContext(ctx).Create(m).Error
}

func (s *Store) GetMentorshipRequest(ctx context.Context, id string) (*models.MentorshipRequest, error) {
	var m models.MentorshipRequest
	if err := s.DB.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) ListMentorshipByStudent(ctx context.Context, studentID string) ([]*models.MentorshipRequest, error) {
	var res []*models.MentorshipRequest
	if err := s.DB.WithContext(ctx).Where("student_id = ?", studentID).Order("created_at desc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// ListOpenMentorship returns open requests, escalated first then oldest first.
// A non-empty mentorID restricts to requests addressed to that mentor or to nobody.
func (s *Store) ListOpenMentorship(ctx context.Context, mentorID string) ([]*models.MentorshipRequest, error) {
	q := s.DB.WithContext(ctx).Where("status = ?", models.MentorshipOpen)
	if mentorID != "" {
		q = q.Where("mentor_id = ? OR mentor_id = ''", mentorID)
	}
	var res []*models.MentorshipRequest
	if err := q.Order("escalated desc, created_at asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// RespondMentorship records the answer. Only open requests can be answered.
func (s *Store) RespondMentorship(ctx context.Context, id, responderID, response string) error {
	now := nowUTC()
	res := s.DB.WithContext(ctx).Model(&models.MentorshipRequest{}).
		Where("id = ? AND status = ?", id, models.MentorshipOpen).
		Updates(map[string]interface{}{
			"status":       models.MentorshipAnswered,
			"response":     response,
			"responded_by": responderID,
			"responded_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) ResolveMentorship(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Model(&models.MentorshipRequest{}).
		Where("id = ? AND status <> ?", id, models.MentorshipResolved).
		Updates(map[string]interface{}{"status": models.MentorshipResolved, "updated_at": nowUTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// StaleMentorship lists open, not yet escalated requests created before the cutoff.
func (s *Store) StaleMentorship(ctx context.Context, before time.Time) ([]*models.MentorshipRequest, error) {
	var res []*models.MentorshipRequest
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND escalated = ? AND created_at < ?", models.MentorshipOpen, false, before.UTC()).
		Order("created_at asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

// MarkMentorshipEscalated flags a request once; false means it was already escalated or closed.
func (s *Store) MarkMentorshipEscalated(ctx context.Context, id string) (bool, error) {
	now := nowUTC()
	res := s.DB.WithContext(ctx).Model(&models.MentorshipRequest{}).
		Where("id = ? AND status = ? AND escalated = ?", id, models.MentorshipOpen, false).
		Updates(map[string]interface{}{"escalated": true, "escalated_at": now, "updated_at": now})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) CountMentorshipByStudent(ctx context.Context, studentID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.MentorshipRequest{}).Where("student_id = ?", studentID).Count(&n).Error
	return n, err
}
