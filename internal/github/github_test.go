package github

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExe writes an executable shell script to use in place of gh.
func stubExe(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gh-stub")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func TestReleaseExists(t *testing.T) {
	gh := NewWithExe(stubExe(t, `exit 0`))

	exists, err := gh.ReleaseExists(context.Background(), "foo-v1.0.0")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReleaseExistsMissing(t *testing.T) {
	// gh release view exits 1 when no release exists for the tag.
	gh := NewWithExe(stubExe(t, `exit 1`))

	exists, err := gh.ReleaseExists(context.Background(), "foo-v1.0.0")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReleaseExistsOtherFailure(t *testing.T) {
	gh := NewWithExe(stubExe(t, `echo 'auth error' >&2; exit 4`))

	_, err := gh.ReleaseExists(context.Background(), "foo-v1.0.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth error")
}

func TestCreateRelease(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	gh := NewWithExe(stubExe(t, `echo "$@" > `+argsFile))

	err := gh.CreateRelease(context.Background(), ReleaseOpts{
		Tag:   "foo-v1.0.0",
		Title: "foo 1.0.0",
		Notes: "first stable release",
		Files: []string{"dist/foo.tar.gz", "dist/foo.sha256"},
	})
	require.NoError(t, err)

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t,
		"release create --verify-tag --title foo 1.0.0 --notes first stable release foo-v1.0.0 dist/foo.tar.gz dist/foo.sha256\n",
		string(recorded))
}

func TestCreateReleaseMinimal(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	gh := NewWithExe(stubExe(t, `echo "$@" > `+argsFile))

	require.NoError(t, gh.CreateRelease(context.Background(), ReleaseOpts{Tag: "foo-v1.0.0"}))

	recorded, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	assert.Equal(t, "release create --verify-tag foo-v1.0.0\n", string(recorded))
}

func TestCreateReleaseFailure(t *testing.T) {
	gh := NewWithExe(stubExe(t, `exit 1`))

	err := gh.CreateRelease(context.Background(), ReleaseOpts{Tag: "foo-v1.0.0"})
	require.Error(t, err)
}
