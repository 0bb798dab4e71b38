package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/auth"
	"github.com/dsa-patterns/dsa-api/internal/store"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type NotificationHandler struct {
	store serviceStore
	log   *zap.Logger
}

func NewNotificationHandler(store serviceStore, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{store: store, log: log}
}

// GET /notifications?unread=true&limit=50
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetUserFromCtx(ctx)
	unreadOnly := false
	if b := queryBool(r, "unread"); b != nil {
		unreadOnly = *b
	}
	ns, err := h.store.ListNotifications(ctx, current.ID, unreadOnly, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	unread, err := h.store.CountUnreadNotifications(ctx, current.ID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "success", map[string]interface{}{
		"notifications": ns,
		"unread":        unread,
	}, nil)
}

// POST /notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	if err := h.store.MarkNotificationRead(r.Context(), current.ID, chi.URLParam(r, "id")); err != nil {
		if store.IsNotFound(err) {
			utils.WriteJSONResponse(w, http.StatusNotFound, false, "notification not found", nil, nil)
			return
		}
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "marked read", nil, nil)
}

// POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	current := auth.GetUserFromCtx(r.Context())
	n, err := h.store.MarkAllNotificationsRead(r.Context(), current.ID)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "marked read", map[string]int64{"updated": n}, nil)
}
