package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingDefaultFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load(DefaultFile)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ed8port.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
src_root: /games/cs2
shader_db: shaders.db
max_workers: 4
flip_textures: true
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/games/cs2", cfg.SrcRoot)
	assert.Equal(t, "shaders.db", cfg.ShaderDB)
	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.True(t, cfg.FlipTextures)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "tmp", cfg.WorkDir)
	assert.Equal(t, "cs1", cfg.Profile)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("src_root: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnsureRootExistingDir(t *testing.T) {
	dir := t.TempDir()
	got, err := EnsureRoot(dir, "ToCS2")
	require.NoError(t, err)
	assert.Equal(t, dir, got)
}

func TestEnsureRootMissingWithoutTerminal(t *testing.T) {
	in := bufio.NewReader(strings.NewReader(""))
	_, err := ensureRoot(filepath.Join(t.TempDir(), "missing"), "ToCS2", in, false)
	assert.ErrorIs(t, err, ErrRootMissing)
}

func TestEnsureRootPromptRetries(t *testing.T) {
	good := t.TempDir()
	// Two lines arrive in one buffered read; the retry must consume the
	// second line instead of rediscovering an empty stdin.
	in := bufio.NewReader(strings.NewReader("/does/not/exist\n" + good + "\n"))

	got, err := ensureRoot("", "ToCS2", in, true)
	require.NoError(t, err)
	assert.Equal(t, good, got)
}

func TestEnsureRootPromptEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader(""))
	_, err := ensureRoot("", "ToCS2", in, true)
	assert.ErrorIs(t, err, ErrRootMissing)
}
