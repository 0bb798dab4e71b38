package v1

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/auth"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type AdminHandler struct {
	moderation *service.ModerationService
	learning   *service.LearningService
	analytics  *service.AnalyticsService
	log        *zap.Logger
}

func NewAdminHandler(moderation *service.ModerationService, learning *service.LearningService, analytics *service.AnalyticsService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{moderation: moderation, learning: learning, analytics: analytics, log: log}
}

/* ------------------ Users ------------------ */

// GET /admin/users?role=&blocked=&q=&limit=&offset=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	f := store.UserListFilter{
		Blocked: queryBool(r, "blocked"),
		Search:  r.URL.Query().Get("q"),
		Limit:   queryInt(r, "limit", 50),
		Offset:  queryInt(r, "offset", 0),
	}
	if v := r.URL.Query().Get("role"); v != "" {
		role := models.Role(v)
		if !role.Valid() {
			utils.WriteJSONResponse(w, http.StatusBadRequest, false, "unknown role", nil, v)
			return
		}
		f.Role = &role
	}
	users, total, err := h.moderation.ListUsers(r.Context(), f)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", map[string]interface{}{
		"users": users,
		"total": total,
	}, nil)
}

// PUT /admin/users/{id}/role
func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role" validate:"required,oneof=admin mentor student"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	current := auth.GetUserFromCtx(r.Context())
	if err := h.moderation.ChangeRole(r.Context(), current, chi.URLParam(r, "id"), models.Role(req.Role), clientIP(r)); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "role updated", nil, nil)
}

// POST /admin/users/{id}/block
func (h *AdminHandler) BlockUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason" validate:"required,max=500"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	current := auth.GetUserFromCtx(r.Context())
	if err := h.moderation.Block(r.Context(), current, chi.URLParam(r, "id"), req.Reason, clientIP(r)); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "user blocked", nil, nil)
}

// POST /admin/users/{id}/unblock
func (h *AdminHandler) UnblockUser(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	if err := h.moderation.Unblock(r.Context(), current, chi.URLParam(r, "id"), clientIP(r)); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "user unblocked", nil, nil)
}

/* ------------------ Content ------------------ */

// GET /admin/roadmaps (drafts included)
func (h *AdminHandler) ListRoadmaps(w http.ResponseWriter, r *http.Request) {
	rs, err := h.learning.AllRoadmaps(r.Context())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", rs, nil)
}

// POST /admin/roadmaps
func (h *AdminHandler) CreateRoadmap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Slug        string `json:"slug" validate:"required,max=80"`
		Title       string `json:"title" validate:"required,max=200"`
		Description string `json:"description"`
		Difficulty  string `json:"difficulty" validate:"omitempty,oneof=beginner intermediate advanced"`
		Published   *bool  `json:"published"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	in := service.RoadmapInput{
		Slug:        req.Slug,
		Title:       req.Title,
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Published:   req.Published == nil || *req.Published,
	}
	rm, err := h.learning.CreateRoadmap(r.Context(), auth.GetUserFromCtx(r.Context()), in)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "roadmap created", rm, nil)
}

// PUT /admin/roadmaps/{id}
func (h *AdminHandler) UpdateRoadmap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
		Description *string `json:"description,omitempty"`
		Difficulty  *string `json:"difficulty,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
		Published   *bool   `json:"published,omitempty"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	rm, err := h.learning.UpdateRoadmap(r.Context(), chi.URLParam(r, "id"), service.RoadmapPatch{
		Title:       req.Title,
		Description: req.Description,
		Difficulty:  req.Difficulty,
		Published:   req.Published,
	})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "roadmap updated", rm, nil)
}

// DELETE /admin/roadmaps/{id}
func (h *AdminHandler) DeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	if err := h.learning.DeleteRoadmap(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "roadmap deleted", nil, nil)
}

// POST /admin/roadmaps/{id}/nodes
func (h *AdminHandler) AddNode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string            `json:"title" validate:"required,max=200"`
		Description string            `json:"description"`
		Position    int               `json:"position" validate:"gte=0"`
		Subtopics   []models.Subtopic `json:"subtopics" validate:"required,min=1"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	n, err := h.learning.AddNode(r.Context(), chi.URLParam(r, "id"), service.NodeInput{
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
		Subtopics:   req.Subtopics,
	})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "node added", n, nil)
}

// POST /admin/roadmaps/{id}/questions
func (h *AdminHandler) AddQuestion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt       string   `json:"prompt" validate:"required"`
		Options      []string `json:"options" validate:"required,min=2,dive,required"`
		CorrectIndex int      `json:"correct_index" validate:"gte=0"`
		Explanation  string   `json:"explanation"`
		Position     int      `json:"position" validate:"gte=0"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	q, err := h.learning.AddQuestion(r.Context(), chi.URLParam(r, "id"), service.QuestionInput{
		Prompt:       req.Prompt,
		Options:      req.Options,
		CorrectIndex: req.CorrectIndex,
		Explanation:  req.Explanation,
		Position:     req.Position,
	})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "question added", q, nil)
}

// DELETE /admin/questions/{id}
func (h *AdminHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.learning.DeleteQuestion(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "question deleted", nil, nil)
}

/* ------------------ Appeals & escalations ------------------ */

// GET /admin/appeals?status=pending
func (h *AdminHandler) ListAppeals(w http.ResponseWriter, r *http.Request) {
	status := models.AppealStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.AppealPending, models.AppealApproved, models.AppealRejected:
	default:
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "unknown status", nil, string(status))
		return
	}
	res, err := h.moderation.ListAppeals(r.Context(), status)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", res, nil)
}

func (h *AdminHandler) decideAppeal(w http.ResponseWriter, r *http.Request, approve bool) {
	var req struct {
		Note string `json:"note" validate:"max=2000"`
	}
	if !decodeOptional(w, r, &req) {
		return
	}
	current := auth.GetUserFromCtx(r.Context())
	a, err := h.moderation.DecideAppeal(r.Context(), current, chi.URLParam(r, "id"), approve, req.Note, clientIP(r))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "appeal "+string(a.Status), a, nil)
}

// POST /admin/appeals/{id}/approve
func (h *AdminHandler) ApproveAppeal(w http.ResponseWriter, r *http.Request) {
	h.decideAppeal(w, r, true)
}

// POST /admin/appeals/{id}/reject
func (h *AdminHandler) RejectAppeal(w http.ResponseWriter, r *http.Request) {
	h.decideAppeal(w, r, false)
}

// GET /admin/escalations?all=true
func (h *AdminHandler) ListEscalations(w http.ResponseWriter, r *http.Request) {
	all := false
	if b := queryBool(r, "all"); b != nil {
		all = *b
	}
	res, err := h.moderation.ListEscalations(r.Context(), all)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", res, nil)
}

// POST /admin/escalations/{id}/resolve
func (h *AdminHandler) ResolveEscalation(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	if err := h.moderation.ResolveEscalation(r.Context(), current, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "escalation resolved", nil, nil)
}

// GET /admin/insights
func (h *AdminHandler) Insights(w http.ResponseWriter, r *http.Request) {
	res, err := h.moderation.Insights(r.Context(), utils.Now())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", res, nil)
}

/* ------------------ Analytics, activity, exports ------------------ */

// GET /admin/analytics
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	res, err := h.analytics.Overview(r.Context(), utils.Now())
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", res, nil)
}

// GET /admin/activity?user_id=&action=&since=RFC3339&limit=
func (h *AdminHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ActivityListFilter{Limit: queryInt(r, "limit", 100)}
	if v := q.Get("user_id"); v != "" {
		f.UserID = &v
	}
	if v := q.Get("action"); v != "" {
		f.Action = &v
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			utils.WriteJSONResponse(w, http.StatusBadRequest, false, "since must be RFC3339", nil, err.Error())
			return
		}
		f.Since = &t
	}
	res, err := h.moderation.ListActivity(r.Context(), f)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", res, nil)
}

// writeCSV renders into a buffer first so a failed query still gets a JSON error response.
func (h *AdminHandler) writeCSV(w http.ResponseWriter, r *http.Request, filename string, render func(context.Context, io.Writer) error) {
	var buf bytes.Buffer
	if err := render(r.Context(), &buf); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// GET /admin/export/users.csv
func (h *AdminHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	h.writeCSV(w, r, "users.csv", h.analytics.ExportUsersCSV)
}

// GET /admin/export/progress.csv
func (h *AdminHandler) ExportProgress(w http.ResponseWriter, r *http.Request) {
	h.writeCSV(w, r, "progress.csv", h.analytics.ExportProgressCSV)
}
