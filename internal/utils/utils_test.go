package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUserID(t *testing.T) {
	id, err := GenerateUserID()
	require.NoError(t, err)
	assert.Len(t, id, 10)
	assert.Equal(t, "DSA", id[:3])
	assert.Regexp(t, `^DSA[0-9A-Z]{7}$`, id)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)

	ok, err := ComparePasswordAndHash("hunter22", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ComparePasswordAndHash("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWriteJSONResponseFlattensErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSONResponse(rec, http.StatusBadRequest, false, "bad", nil, errors.New("boom"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "boom", body["error"])
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	type req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"min=8"`
	}
	errs := ValidateStruct(req{Email: "nope", Password: "short"})
	assert.Equal(t, "email", errs["email"])
	assert.Equal(t, "min=8", errs["password"])

	assert.Nil(t, ValidateStruct(req{Email: "a@b.co", Password: "longenough"}))
}

func TestGenerateRandomString(t *testing.T) {
	assert.Len(t, GenerateRandomString(12), 12)
	assert.Len(t, GenerateRandomString(7), 7)
}
