package v1

import (
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/auth"
	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

const maxAvatarBytes = 5 << 20

var avatarExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true}

type ImageHandler struct {
	store   serviceStore
	user    *service.UserService
	storage utils.Storage
	log     *zap.Logger
}

func NewImageHandler(store serviceStore, userSvc *service.UserService, storage utils.Storage, log *zap.Logger) *ImageHandler {
	return &ImageHandler{store: store, user: userSvc, storage: storage, log: log}
}

// POST /users/me/avatar (multipart, field "file")
func (h *ImageHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetUserFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+1024)
	if err := r.ParseMultipartForm(maxAvatarBytes); err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "file too large or invalid form", nil, err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "missing file field", nil, err.Error())
		return
	}
	defer file.Close()

	if !avatarExtensions[strings.ToLower(filepath.Ext(header.Filename))] {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "unsupported image type", nil, header.Filename)
		return
	}

	user, err := h.store.GetUserByID(ctx, current.ID)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "user not found", nil, nil)
		return
	}

	key, err := h.storage.SaveFile(ctx, "avatars/"+current.ID, header.Filename, file)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	url, err := h.storage.URL(ctx, key)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if err := h.user.SetAvatar(ctx, current.ID, key, url); err != nil {
		_ = h.storage.DeleteFile(ctx, key)
		writeError(w, h.log, r, err)
		return
	}
	if old := user.UserDetails.ProfilePictureKey; old != "" {
		if err := h.storage.DeleteFile(ctx, old); err != nil {
			h.log.Warn("delete old avatar", zap.String("key", old), zap.Error(err))
		}
	}

	utils.WriteJSONResponse(w, http.StatusOK, true, "avatar uploaded", map[string]string{
		"key": key,
		"url": url,
	}, nil)
}

// DELETE /users/me/avatar
func (h *ImageHandler) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := auth.GetUserFromCtx(ctx)
	if current == nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "unauthorized", nil, nil)
		return
	}

	user, err := h.store.GetUserByID(ctx, current.ID)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusNotFound, false, "user not found", nil, nil)
		return
	}
	if key := user.UserDetails.ProfilePictureKey; key != "" {
		if err := h.storage.DeleteFile(ctx, key); err != nil {
			h.log.Warn("delete avatar", zap.String("key", key), zap.Error(err))
		}
	}
	if err := h.user.SetAvatar(ctx, current.ID, "", ""); err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "avatar removed", nil, nil)
}
