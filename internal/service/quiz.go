package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type QuestionResult struct {
	QuestionID    string `json:"question_id"`
	Chosen        *int   `json:"chosen"`
	CorrectOption int    `json:"correct_option"`
	IsCorrect     bool   `json:"is_correct"`
	Explanation   string `json:"explanation,omitempty"`
}

type Score struct {
	Correct    int              `json:"correct"`
	Total      int              `json:"total"`
	Percentage int              `json:"percentage"`
	Passed     bool             `json:"passed"`
	Results    []QuestionResult `json:"results"`
}

// ScoreQuiz grades answers (question id -> chosen option) against every question
// of a roadmap. Unknown ids are ignored and unanswered questions count as wrong.
func ScoreQuiz(questions []*models.QuizQuestion, answers map[string]int, passThreshold int) (Score, error) {
	if len(questions) == 0 {
		return Score{}, errors.Wrap(ErrInvalid, "roadmap has no quiz questions")
	}
	sc := Score{Total: len(questions), Results: make([]QuestionResult, 0, len(questions))}
	for _, q := range questions {
		res := QuestionResult{QuestionID: q.ID, CorrectOption: q.CorrectIndex, Explanation: q.Explanation}
		if chosen, ok := answers[q.ID]; ok {
			c := chosen
			res.Chosen = &c
			res.IsCorrect = chosen == q.CorrectIndex
		}
		if res.IsCorrect {
			sc.Correct++
		}
		sc.Results = append(sc.Results, res)
	}
	sc.Percentage = Percent(sc.Correct, sc.Total)
	sc.Passed = sc.Percentage >= passThreshold
	return sc, nil
}

type SubmitResult struct {
	Score
	ResultID      string   `json:"result_id"`
	Attempts      int      `json:"attempts"`
	Passes        int      `json:"passes"`
	Mastered      bool     `json:"mastered"`
	NewlyMastered bool     `json:"newly_mastered"`
	NewBadges     []string `json:"new_badges"`
}

// QuizForRoadmap returns the questions; answer keys are not serialised.
func (l *LearningService) QuizForRoadmap(ctx context.Context, roadmapID string) ([]*models.QuizQuestion, error) {
	if _, err := l.publishedRoadmap(ctx, roadmapID); err != nil {
		return nil, err
	}
	qs, err := l.store.ListQuestions(ctx, roadmapID)
	return qs, errors.Wrap(err, "list questions")
}

// SubmitQuiz records an attempt and advances the mastery counters.
//
// The pass counter is incremented in SQL, but the mastered check that follows
// reads it back separately, so two concurrent passing submissions can both see
// the threshold. MarkMastered only flips once, which keeps NewlyMastered unique.
func (l *LearningService) SubmitQuiz(ctx context.Context, userID, roadmapID string, answers map[string]int, elapsedSeconds int, ip string) (*SubmitResult, error) {
	if elapsedSeconds < 0 {
		return nil, errors.Wrap(ErrInvalid, "elapsed_seconds cannot be negative")
	}
	questions, err := l.QuizForRoadmap(ctx, roadmapID)
	if err != nil {
		return nil, err
	}
	sc, err := ScoreQuiz(questions, answers, l.cfg.QuizPassThreshold)
	if err != nil {
		return nil, err
	}

	result := &models.QuizResult{
		ID:             utils.GenerateID(),
		UserID:         userID,
		RoadmapID:      roadmapID,
		Correct:        sc.Correct,
		Total:          sc.Total,
		Percentage:     sc.Percentage,
		Passed:         sc.Passed,
		ElapsedSeconds: elapsedSeconds,
		Answers:        utils.DatatypesJSONFrom(answers),
	}
	if err := l.store.CreateQuizResult(ctx, result); err != nil {
		return nil, errors.Wrap(err, "save result")
	}
	p, err := l.store.IncrementQuizCounters(ctx, userID, roadmapID, sc.Passed, sc.Percentage)
	if err != nil {
		return nil, errors.Wrap(err, "update counters")
	}

	out := &SubmitResult{
		Score:    sc,
		ResultID: result.ID,
		Attempts: p.QuizAttempts,
		Passes:   p.QuizPasses,
		Mastered: p.Mastered,
	}
	if !p.Mastered && p.QuizPasses >= l.cfg.MasteryPasses {
		newly, err := l.store.MarkMastered(ctx, userID, roadmapID)
		if err != nil {
			return nil, errors.Wrap(err, "mark mastered")
		}
		out.Mastered = true
		out.NewlyMastered = newly
	}
	logActivity(ctx, l.store, l.log, userID, models.ActionQuizSubmitted, ip, map[string]interface{}{
		"roadmap_id": roadmapID, "percentage": sc.Percentage, "passed": sc.Passed,
	})

	if out.NewlyMastered {
		if _, err := l.RecalculateProgress(ctx, userID, roadmapID); err != nil {
			return nil, err
		}
		logActivity(ctx, l.store, l.log, userID, models.ActionRoadmapMastered, ip, map[string]interface{}{"roadmap_id": roadmapID})
		notify(ctx, l.store, l.log, &models.Notification{
			UserID: userID,
			Kind:   models.NotifyMastery,
			Title:  "Roadmap mastered",
			Body:   "You passed this roadmap's quiz enough times to master it.",
			Link:   "/roadmaps/" + roadmapID,
		})
	}
	if out.NewBadges, err = l.EvaluateBadges(ctx, userID); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *LearningService) ListResults(ctx context.Context, userID, roadmapID string) ([]*models.QuizResult, error) {
	res, err := l.store.ListQuizResults(ctx, userID, roadmapID, 100)
	return res, errors.Wrap(err, "list results")
}

func (l *LearningService) ListRoadmaps(ctx context.Context) ([]*models.Roadmap, error) {
	res, err := l.store.ListRoadmaps(ctx, true)
	return res, errors.Wrap(err, "list roadmaps")
}

// publishedRoadmap loads a roadmap for the learner paths; drafts are not found.
func (l *LearningService) publishedRoadmap(ctx context.Context, roadmapID string) (*models.Roadmap, error) {
	r, err := l.store.GetRoadmapByID(ctx, roadmapID)
	if err != nil {
		return nil, storeErr(err, "roadmap")
	}
	if !r.Published {
		return nil, errors.Wrap(ErrNotFound, "roadmap")
	}
	return r, nil
}

// RoadmapBySlug hides unpublished roadmaps from everyone but admins.
func (l *LearningService) RoadmapBySlug(ctx context.Context, slug string, viewer *models.User) (*models.Roadmap, error) {
	r, err := l.store.GetRoadmapBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr(err, "roadmap")
	}
	if !r.Published && (viewer == nil || viewer.Role != models.RoleAdmin) {
		return nil, errors.Wrap(ErrNotFound, "roadmap")
	}
	return r, nil
}
