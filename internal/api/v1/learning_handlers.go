package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/auth"
	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

// LearningHandler serves roadmaps, progress, bookmarks, quizzes and badges.
type LearningHandler struct {
	learning *service.LearningService
	log      *zap.Logger
}

func NewLearningHandler(learning *service.LearningService, log *zap.Logger) *LearningHandler {
	return &LearningHandler{learning: learning, log: log}
}

// GET /roadmaps
func (h *LearningHandler) ListRoadmaps(w http.ResponseWriter, r *http.Request) {
	rs, err := h.learning.ListRoadmaps(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", rs, nil)
}

// GET /roadmaps/{slug}
func (h *LearningHandler) GetRoadmap(w http.ResponseWriter, r *http.Request) {
	rm, err := h.learning.RoadmapBySlug(r.Context(), chi.URLParam(r, "slug"), auth.GetUserFromCtx(r.Context()))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", rm, nil)
}

// GET /progress
func (h *LearningHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	ps, err := h.learning.ListProgress(r.Context(), current.ID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", ps, nil)
}

// GET /progress/{roadmapID}
func (h *LearningHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	p, err := h.learning.ProgressForRoadmap(r.Context(), current.ID, chi.URLParam(r, "roadmapID"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", p, nil)
}

// POST /progress/{roadmapID}/subtopics/{subtopicID}/toggle
func (h *LearningHandler) ToggleSubtopic(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	res, err := h.learning.ToggleSubtopic(r.Context(), current.ID,
		chi.URLParam(r, "roadmapID"), chi.URLParam(r, "subtopicID"), clientIP(r))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "toggled", res, nil)
}

// GET /bookmarks?kind=
func (h *LearningHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	bms, err := h.learning.ListBookmarks(r.Context(), current.ID, r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", bms, nil)
}

// POST /bookmarks/toggle
func (h *LearningHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	var req struct {
		Kind   string `json:"kind" validate:"required"`
		ItemID string `json:"item_id" validate:"required,max=64"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	on, err := h.learning.ToggleBookmark(r.Context(), current.ID, req.Kind, req.ItemID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "toggled", map[string]interface{}{
		"kind":       req.Kind,
		"item_id":    req.ItemID,
		"bookmarked": on,
	}, nil)
}

// GET /quizzes/{roadmapID}
func (h *LearningHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	qs, err := h.learning.QuizForRoadmap(r.Context(), chi.URLParam(r, "roadmapID"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", qs, nil)
}

// POST /quizzes/{roadmapID}/submit
func (h *LearningHandler) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	var req struct {
		Answers        map[string]int `json:"answers" validate:"required"`
		ElapsedSeconds int            `json:"elapsed_seconds" validate:"gte=0"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.learning.SubmitQuiz(r.Context(), current.ID, chi.URLParam(r, "roadmapID"),
		req.Answers, req.ElapsedSeconds, clientIP(r))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "quiz submitted", res, nil)
}

// GET /quizzes/{roadmapID}/results
func (h *LearningHandler) ListResults(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	rs, err := h.learning.ListResults(r.Context(), current.ID, chi.URLParam(r, "roadmapID"))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", rs, nil)
}

// GET /badges
func (h *LearningHandler) ListBadges(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	bs, err := h.learning.ListBadges(r.Context(), current.ID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", bs, nil)
}
