package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

var slugRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type RoadmapInput struct {
	Slug        string
	Title       string
	Description string
	Difficulty  string
	Published   bool
}

func (l *LearningService) CreateRoadmap(ctx context.Context, admin *models.User, in RoadmapInput) (*models.Roadmap, error) {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Title = strings.TrimSpace(in.Title)
	if !slugRe.MatchString(in.Slug) {
		return nil, errors.Wrap(ErrInvalid, "slug must be lowercase words joined by dashes")
	}
	if in.Title == "" {
		return nil, errors.Wrap(ErrInvalid, "title is required")
	}
	taken, err := l.store.SlugTaken(ctx, in.Slug)
	if err != nil {
		return nil, errors.Wrap(err, "check slug")
	}
	if taken {
		return nil, errors.Wrap(ErrConflict, "slug already in use")
	}
	r := &models.Roadmap{
		ID:          utils.GenerateID(),
		Slug:        in.Slug,
		Title:       in.Title,
		Description: in.Description,
		Difficulty:  in.Difficulty,
		Published:   in.Published,
		CreatedBy:   admin.ID,
	}
	if err := l.store.CreateRoadmap(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create roadmap")
	}
	// gorm skips false for a column with a default
	if !in.Published {
		if err := l.store.UpdateRoadmapFields(ctx, r.ID, map[string]interface{}{"published": false}); err != nil {
			return nil, errors.Wrap(err, "create roadmap")
		}
	}
	return r, nil
}

type RoadmapPatch struct {
	Title       *string
	Description *string
	Difficulty  *string
	Published   *bool
}

func (l *LearningService) UpdateRoadmap(ctx context.Context, id string, p RoadmapPatch) (*models.Roadmap, error) {
	fields := map[string]interface{}{}
	if p.Title != nil {
		fields["title"] = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Difficulty != nil {
		fields["difficulty"] = *p.Difficulty
	}
	if p.Published != nil {
		fields["published"] = *p.Published
	}
	if len(fields) > 0 {
		if err := l.store.UpdateRoadmapFields(ctx, id, fields); err != nil {
			return nil, storeErr(err, "roadmap")
		}
	}
	r, err := l.store.GetRoadmapByID(ctx, id)
	return r, storeErr(err, "roadmap")
}

func (l *LearningService) DeleteRoadmap(ctx context.Context, id string) error {
	return storeErr(l.store.DeleteRoadmap(ctx, id), "roadmap")
}

type NodeInput struct {
	Title       string
	Description string
	Position    int
	Subtopics   []models.Subtopic
}

// AddNode appends a node. Subtopics without an id get one; ids must be unique within the roadmap.
func (l *LearningService) AddNode(ctx context.Context, roadmapID string, in NodeInput) (*models.RoadmapNode, error) {
	if _, err := l.store.GetRoadmapByID(ctx, roadmapID); err != nil {
		return nil, storeErr(err, "roadmap")
	}
	existing, err := l.store.RoadmapSubtopicIDs(ctx, roadmapID)
	if err != nil {
		return nil, errors.Wrap(err, "load subtopics")
	}
	seen := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		seen[id] = struct{}{}
	}
	subs := make([]models.Subtopic, 0, len(in.Subtopics))
	for _, st := range in.Subtopics {
		st.Title = strings.TrimSpace(st.Title)
		if st.Title == "" {
			return nil, errors.Wrap(ErrInvalid, "subtopic title is required")
		}
		if st.ID == "" {
			st.ID = utils.GenerateID()
		}
		if _, dup := seen[st.ID]; dup {
			return nil, errors.Wrapf(ErrConflict, "subtopic id %q already used in this roadmap", st.ID)
		}
		seen[st.ID] = struct{}{}
		subs = append(subs, st)
	}
	n := &models.RoadmapNode{
		ID:          utils.GenerateID(),
		RoadmapID:   roadmapID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Position:    in.Position,
		Subtopics:   utils.DatatypesJSONFrom(subs),
	}
	if err := l.store.CreateRoadmapNode(ctx, n); err != nil {
		return nil, errors.Wrap(err, "create node")
	}
	return n, nil
}

type QuestionInput struct {
	Prompt       string
	Options      []string
	CorrectIndex int
	Explanation  string
	Position     int
}

func (l *LearningService) AddQuestion(ctx context.Context, roadmapID string, in QuestionInput) (*models.QuizQuestion, error) {
	if _, err := l.store.GetRoadmapByID(ctx, roadmapID); err != nil {
		return nil, storeErr(err, "roadmap")
	}
	if len(in.Options) < 2 {
		return nil, errors.Wrap(ErrInvalid, "a question needs at least two options")
	}
	if in.CorrectIndex < 0 || in.CorrectIndex >= len(in.Options) {
		return nil, errors.Wrap(ErrInvalid, "correct_index out of range")
	}
	q := &models.QuizQuestion{
		ID:           utils.GenerateID(),
		RoadmapID:    roadmapID,
		Prompt:       strings.TrimSpace(in.Prompt),
		Options:      utils.DatatypesJSONFromStrings(in.Options),
		CorrectIndex: in.CorrectIndex,
		Explanation:  in.Explanation,
		Position:     in.Position,
	}
	if err := l.store.CreateQuestion(ctx, q); err != nil {
		return nil, errors.Wrap(err, "create question")
	}
	return q, nil
}

func (l *LearningService) DeleteQuestion(ctx context.Context, id string) error {
	return storeErr(l.store.DeleteQuestion(ctx, id), "question")
}

// AllRoadmaps includes drafts; admin listing.
func (l *LearningService) AllRoadmaps(ctx context.Context) ([]*models.Roadmap, error) {
	res, err := l.store.ListRoadmaps(ctx, false)
	return res, errors.Wrap(err, "list roadmaps")
}
