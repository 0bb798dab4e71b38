package store

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/dsa-patterns/dsa-api/internal/models"
)

func (s *Store) CreateRoadmap(ctx context.Context, r *models.Roadmap) error {
	return s.DB.WithContext(ctx).Omit("Nodes").Create(r).Error
}

func (s *Store) UpdateRoadmapFields(ctx context.Context, id string, fields map[string]interface{}) error {
	fields["updated_at"] = nowUTC()
	res := s.DB.WithContext(ctx).Model(&models.Roadmap{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteRoadmap soft-deletes the roadmap; nodes, questions and progress rows stay.
func (s *Store) DeleteRoadmap(ctx context.Context, id string) error {
	res := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Roadmap{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func orderedNodes(db *gorm.DB) *gorm.DB {
	return db.Order("position asc, created_at asc")
}

// ListRoadmaps returns roadmaps without nodes. publishedOnly hides drafts.
func (s *Store) ListRoadmaps(ctx context.Context, publishedOnly bool) ([]*models.Roadmap, error) {
	q := s.DB.WithContext(ctx).Model(&models.Roadmap{})
	if publishedOnly {
		q = q.Where("published = ?", true)
	}
	var res []*models.Roadmap
	if err := q.Order("created_at asc").Find(&res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) GetRoadmapBySlug(ctx context.Context, slug string) (*models.Roadmap, error) {
	var r models.Roadmap
	if err := s.DB.WithContext(ctx).Preload("Nodes", orderedNodes).First(&r, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetRoadmapByID(ctx context.Context, id string) (*models.Roadmap, error) {
	var r models.Roadmap
	if err := s.DB.WithContext(ctx).Preload("Nodes", orderedNodes).First(&r, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &r, nil
}

// SlugTaken also counts soft-deleted roadmaps; the unique index still holds them.
func (s *Store) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var n int64
	err := s.DB.WithContext(ctx).Unscoped().Model(&models.Roadmap{}).Where("slug = ?", slug).Count(&n).Error
	return n > 0, err
}

func (s *Store) CreateRoadmapNode(ctx context.Context, n *models.RoadmapNode) error {
	return s.DB.WithContext(ctx).Create(n).Error
}

// RoadmapSubtopicIDs walks every node of the roadmap and returns its subtopic ids in order.
func (s *Store) RoadmapSubtopicIDs(ctx context.Context, roadmapID string) ([]string, error) {
	var nodes []models.RoadmapNode
	if err := orderedNodes(s.DB.WithContext(ctx)).Where("roadmap_id = ?", roadmapID).Find(&nodes).Error; err != nil {
		return nil, err
	}
	ids := []string{}
	for _, n := range nodes {
		for _, st := range NodeSubtopics(n) {
			ids = append(ids, st.ID)
		}
	}
	return ids, nil
}

// NodeSubtopics decodes the jsonb subtopic list of a node; malformed data yields none.
func NodeSubtopics(n models.RoadmapNode) []models.Subtopic {
	var out []models.Subtopic
	if len(n.Subtopics) == 0 {
		return out
	}
	_ = json.Unmarshal(n.Subtopics, &out)
	return out
}
