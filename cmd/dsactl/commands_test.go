package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsa-patterns/dsa-api/internal/utils"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestHashPasswordArgument(t *testing.T) {
	out, err := runCmd(t, "hash-password", "s3cret-pass")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	ok, err := utils.ComparePasswordAndHash("s3cret-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordPrompt(t *testing.T) {
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })
	readPasswordFunc = func(int) ([]byte, error) { return []byte("prompted-pass"), nil }

	out, err := runCmd(t, "hash-password")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	hash := strings.TrimSpace(lines[len(lines)-1])
	ok, err := utils.ComparePasswordAndHash("prompted-pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashPasswordPromptErrors(t *testing.T) {
	orig := readPasswordFunc
	t.Cleanup(func() { readPasswordFunc = orig })

	readPasswordFunc = func(int) ([]byte, error) { return nil, nil }
	_, err := runCmd(t, "hash-password")
	assert.EqualError(t, err, "empty password")

	readPasswordFunc = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	_, err = runCmd(t, "hash-password")
	assert.EqualError(t, err, "not a terminal")
}

func TestCreateAdminRequiresEmail(t *testing.T) {
	_, err := runCmd(t, "create-admin")
	assert.EqualError(t, err, "--email is required")
}
