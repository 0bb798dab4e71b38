package utils

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorageSaveURLDelete(t *testing.T) {
	ctx := context.Background()
	fs := NewFileStorage(t.TempDir(), "http://localhost:8080/")

	key, err := fs.SaveFile(ctx, "avatars", "me.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "avatars/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	b, err := os.ReadFile(filepath.Join(fs.BaseDir, filepath.FromSlash(key)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))

	url, err := fs.URL(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/"+key, url)

	require.NoError(t, fs.DeleteFile(ctx, key))
	// deleting twice is fine
	require.NoError(t, fs.DeleteFile(ctx, key))
}
