package v1

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/auth"
	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type UserHandler struct {
	store     serviceStore
	user      *service.UserService
	analytics *service.AnalyticsService
	storage   utils.Storage
	log       *zap.Logger
}

func NewUserHandler(store serviceStore, userSvc *service.UserService, analytics *service.AnalyticsService, storage utils.Storage, log *zap.Logger) *UserHandler {
	return &UserHandler{store: store, user: userSvc, analytics: analytics, storage: storage, log: log}
}

// GET /users/me
func (h *UserHandler) GetSelfProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetUserFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}

	u, err := h.store.GetUserByID(ctx, current.ID)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "not found", nil, nil)
		return
	}
	// presigned object URLs expire, so resolve the avatar from its key on every read
	if key := u.UserDetails.ProfilePictureKey; key != "" && h.storage != nil {
		if url, err := h.storage.URL(ctx, key); err == nil {
			u.UserDetails.ProfilePictureURL = url
		}
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", u, nil)
}

// PUT /users/me - profile fields only; role and block state are admin operations
func (h *UserHandler) UpdateSelf(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}

	// pointers to detect omitted fields
	var payload struct {
		Name             *string                 `json:"name,omitempty" validate:"omitempty,max=100"`
		Bio              *string                 `json:"bio,omitempty" validate:"omitempty,max=2000"`
		Country          *string                 `json:"country,omitempty" validate:"omitempty,max=64"`
		GithubUsername   *string                 `json:"github_username,omitempty" validate:"omitempty,max=39"`
		LeetcodeUsername *string                 `json:"leetcode_username,omitempty" validate:"omitempty,max=64"`
		AdditionalInfo   *map[string]interface{} `json:"additional_info,omitempty"`
	}
	if !decodeAndValidate(w, r, &payload) {
		return
	}

	u, err := h.user.UpdateProfile(r.Context(), current.ID, service.ProfileUpdate{
		Name:             payload.Name,
		Bio:              payload.Bio,
		Country:          payload.Country,
		GithubUsername:   payload.GithubUsername,
		LeetcodeUsername: payload.LeetcodeUsername,
		AdditionalInfo:   payload.AdditionalInfo,
	})
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "updated", u, nil)
}

// POST /users/me/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}
	var req struct {
		Current string `json:"current_password" validate:"required"`
		New     string `json:"new_password" validate:"required,min=8,max=72,nefield=Current"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.user.ChangePassword(r.Context(), current.ID, req.Current, req.New); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "password changed", nil, nil)
}

// GET /users/me/dashboard
func (h *UserHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}
	d, err := h.analytics.UserDashboard(r.Context(), current.ID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", d, nil)
}
