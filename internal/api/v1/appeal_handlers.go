package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type AppealHandler struct {
	moderation *service.ModerationService
	log        *zap.Logger
}

func NewAppealHandler(moderation *service.ModerationService, log *zap.Logger) *AppealHandler {
	return &AppealHandler{moderation: moderation, log: log}
}

// POST /appeals - public; a blocked account cannot obtain a token, so it proves
// ownership with its credentials instead.
func (h *AppealHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Message  string `json:"message" validate:"required,max=5000"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	a, err := h.moderation.SubmitAppeal(r.Context(), req.Email, req.Password, req.Message, clientIP(r))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "appeal submitted", a, nil)
}
