package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/auth"
	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type MentorshipHandler struct {
	mentorship *service.MentorshipService
	log        *zap.Logger
}

func NewMentorshipHandler(m *service.MentorshipService, log *zap.Logger) *MentorshipHandler {
	return &MentorshipHandler{mentorship: m, log: log}
}

// POST /mentorship
func (h *MentorshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	var req struct {
		Topic    string `json:"topic" validate:"required,max=200"`
		Message  string `json:"message" validate:"required,max=5000"`
		MentorID string `json:"mentor_id,omitempty" validate:"omitempty,len=10"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	mr, err := h.mentorship.Create(r.Context(), current, req.Topic, req.Message, req.MentorID, clientIP(r))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "request created", mr, nil)
}

// GET /mentorship
func (h *MentorshipHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	res, err := h.mentorship.ListMine(r.Context(), current.ID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", res, nil)
}

// GET /mentorship/open (mentor|admin)
func (h *MentorshipHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	res, err := h.mentorship.ListOpen(r.Context(), current)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", res, nil)
}

// POST /mentorship/{id}/respond (mentor|admin)
func (h *MentorshipHandler) Respond(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	var req struct {
		Response string `json:"response" validate:"required,max=10000"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	mr, err := h.mentorship.Respond(r.Context(), current, chi.URLParam(r, "id"), req.Response, clientIP(r))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "response sent", mr, nil)
}

// POST /mentorship/{id}/resolve
func (h *MentorshipHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	if err := h.mentorship.Resolve(r.Context(), current, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "resolved", nil, nil)
}
