package v1

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"

	"github.com/dsa-patterns/dsa-api/internal/auth"
	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/service"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

type AuthHandler struct {
	cfg   *config.Config
	user  *service.UserService
	store serviceStore
	log   *zap.Logger
}

type signupReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type tokenResp struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	User        *models.User `json:"user,omitempty"`
}

func NewAuthHandler(cfg *config.Config, userSvc *service.UserService, store serviceStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, user: userSvc, store: store, log: log}
}

// issueSession creates an access token and a refresh token for u and sets both cookies.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, u *models.User) (*tokenResp, error) {
	access, err := auth.GenerateAccessToken(h.cfg, u.ID, u.Role)
	if err != nil {
		return nil, err
	}
	rt := utils.RandomToken()
	expires := time.Now().Add(h.cfg.RefreshTokenTTL)
	if err := h.store.SaveRefreshToken(r.Context(), u.ID, rt, expires); err != nil {
		return nil, err
	}
	h.setCookies(w, r, access, rt, expires)
	return &tokenResp{AccessToken: access, ExpiresIn: int64(h.cfg.AccessTokenTTL.Seconds()), User: u}, nil
}

func (h *AuthHandler) setCookies(w http.ResponseWriter, r *http.Request, access, refresh string, refreshExpires time.Time) {
	domain := cookieDomain(r)
	http.SetCookie(w, &http.Cookie{
		Name:     auth.AccessCookie,
		Value:    access,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Domain:   domain,
		Expires:  time.Now().Add(h.cfg.AccessTokenTTL),
	})
	http.SetCookie(w, &http.Cookie{
		Name:     auth.RefreshCookie,
		Value:    refresh,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Domain:   domain,
		Expires:  refreshExpires,
	})
}

// clearCookies expires both cookies with the same Domain and Path they were set with.
func (h *AuthHandler) clearCookies(w http.ResponseWriter, r *http.Request) {
	domain := cookieDomain(r)
	for _, name := range []string{auth.AccessCookie, auth.RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
			Domain:   domain,
		})
	}
}

// Signup creates a student account and signs it in.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	u, err := h.user.CreateUser(r.Context(), req.Email, req.Password, req.Name, models.RoleStudent, "")
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	h.user.RecordLogin(r.Context(), u, clientIP(r))
	resp, err := h.issueSession(w, r, u)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, true, "user created", resp, nil)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	u, err := h.user.Authenticate(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	resp, err := h.issueSession(w, r, u)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "login successful", resp, nil)
}

// Logout revokes the refresh token cookie if present and clears both cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.RefreshCookie); err == nil && cookie.Value != "" {
		if err := h.store.RevokeRefreshToken(r.Context(), cookie.Value); err != nil {
			writeError(w, h.log, r, err)
			return
		}
	}
	h.clearCookies(w, r)
	utils.WriteJSONResponse(w, http.StatusOK, true, "logged out", nil, nil)
}

// Refresh rotates the refresh token and returns a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.RefreshCookie)
	if err != nil || cookie.Value == "" {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "missing refresh token cookie", nil, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	newPlain := utils.RandomToken()
	newExpiry := time.Now().Add(h.cfg.RefreshTokenTTL)
	userID, err := h.store.RotateRefreshToken(ctx, cookie.Value, newPlain, newExpiry)
	if err != nil {
		// revoked, expired or concurrently rotated
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "invalid refresh token", nil, nil)
		return
	}
	u, err := h.store.GetUserByID(ctx, userID)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "invalid refresh token", nil, nil)
		return
	}
	if u.Blocked {
		utils.WriteJSONResponse(w, http.StatusForbidden, false, "account blocked", nil, map[string]string{"reason": u.BlockedReason})
		return
	}
	access, err := auth.GenerateAccessToken(h.cfg, u.ID, u.Role)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	h.setCookies(w, r, access, newPlain, newExpiry)
	resp := tokenResp{AccessToken: access, ExpiresIn: int64(h.cfg.AccessTokenTTL.Seconds())}
	utils.WriteJSONResponse(w, http.StatusOK, true, "refresh successful", resp, nil)
}

// GoogleSignIn exchanges an authorization code, validates the id_token and signs the user in.
func (h *AuthHandler) GoogleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code" validate:"required"`
	}
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if h.cfg.GoogleClientID == "" {
		utils.WriteJSONResponse(w, http.StatusNotImplemented, false, "google sign-in is not configured", nil, nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	oauthCfg := &oauth2.Config{
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		RedirectURL:  h.cfg.GoogleRedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       []string{"openid", "email", "profile"},
	}
	token, err := oauthCfg.Exchange(ctx, req.Code)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "code exchange failed", nil, err.Error())
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "id_token not present in token response", nil, nil)
		return
	}
	payload, err := idtoken.Validate(ctx, rawIDToken, h.cfg.GoogleClientID)
	if err != nil {
		utils.WriteJSONResponse(w, http.StatusUnauthorized, false, "invalid id token", nil, err.Error())
		return
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		utils.WriteJSONResponse(w, http.StatusBadRequest, false, "email not present in token", nil, nil)
		return
	}
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)

	u, err := h.user.FindOrCreateGoogleUser(r.Context(), email, name, picture)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	if u.Blocked {
		utils.WriteJSONResponse(w, http.StatusForbidden, false, "account blocked", nil, map[string]string{"reason": u.BlockedReason})
		return
	}
	h.user.RecordLogin(r.Context(), u, clientIP(r))
	resp, err := h.issueSession(w, r, u)
	if err != nil {
		writeError(w, h.log, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, true, "login successful", resp, nil)
}
