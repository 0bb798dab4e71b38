package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dsa-patterns/dsa-api/internal/config"
	"github.com/dsa-patterns/dsa-api/internal/mail"
	"github.com/dsa-patterns/dsa-api/internal/store/storetest"
	"github.com/dsa-patterns/dsa-api/internal/utils"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	s := storetest.New(t)
	dir := t.TempDir()
	s.Cfg.UploadDir = dir
	return NewServer(s.Cfg, s, zap.NewNop(), &mail.Recorder{}), dir
}

func TestStorageSelection(t *testing.T) {
	cfg := config.Default("x")
	_, ok := Storage(cfg).(*utils.FileStorage)
	assert.True(t, ok)

	cfg.R2AccessKeyID = "id"
	cfg.R2SecretAccessKey = "secret"
	cfg.R2Endpoint = "https://account.r2.cloudflarestorage.com"
	cfg.R2BucketName = "avatars"
	_, ok = Storage(cfg).(*utils.R2Storage)
	assert.True(t, ok)
}

func TestHandlerMountsAPIAndUploads(t *testing.T) {
	srv, dir := newTestServer(t)
	h := srv.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "avatars"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "avatars", "a.png"), []byte("img"), 0644))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/uploads/avatars/a.png", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "img", rr.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}
