package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsa-patterns/dsa-api/internal/auth"
	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/models"
	"github.com/dsa-patterns/dsa-api/internal/store/storetest"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestTokenRoundTrip(t *testing.T) {
	cfg := config.Default("secret")
	tok, err := auth.GenerateAccessToken(cfg, "DSA0000001", models.RoleMentor)
	require.NoError(t, err)

	claims, err := auth.ParseAndValidateToken(cfg, tok)
	require.NoError(t, err)
	assert.Equal(t, "DSA0000001", claims.UserID)
	assert.Equal(t, models.RoleMentor, claims.Role)

	_, err = auth.ParseAndValidateToken(config.Default("other"), tok)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	cfg := config.Default("secret")
	cfg.AccessTokenTTL = -time.Minute
	tok, err := auth.GenerateAccessToken(cfg, "DSA0000001", models.RoleStudent)
	require.NoError(t, err)
	_, err = auth.ParseAndValidateToken(cfg, tok)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	s := storetest.New(t)
	student := storetest.User(t, s, models.RoleStudent)
	blocked := storetest.User(t, s, models.RoleStudent)
	require.NoError(t, s.BlockUser(context.Background(), blocked.ID, "abuse"))

	h := auth.AuthMiddleware(s)(ok)
	tokenFor := func(u *models.User) string {
		tok, err := auth.GenerateAccessToken(s.Cfg, u.ID, u.Role)
		require.NoError(t, err)
		return tok
	}

	cases := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{"no token", func(r *http.Request) {}, http.StatusUnauthorized},
		{"garbage bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: auth.AccessCookie, Value: tokenFor(student)})
		}, http.StatusNoContent},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tokenFor(student)) }, http.StatusNoContent},
		{"blocked", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tokenFor(blocked)) }, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	h := auth.RoleMiddleware(models.RoleAdmin)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &models.User{ID: "x", Role: models.RoleStudent}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithUser(req.Context(), &models.User{ID: "x", Role: models.RoleAdmin}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCronSecretMiddleware(t *testing.T) {
	h := auth.CronSecretMiddleware("s3cret")(ok)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	auth.CronSecretMiddleware("")(ok).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
