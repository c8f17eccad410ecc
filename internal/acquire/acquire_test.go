package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeUnpacker records invocations and mimics the codec by creating the
// output directory.
type fakeUnpacker struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func newFakeUnpacker() *fakeUnpacker {
	return &fakeUnpacker{calls: make(map[string]int), fail: make(map[string]error)}
}

func (f *fakeUnpacker) Unpack(ctx context.Context, pkgPath string) error {
	f.mu.Lock()
	f.calls[filepath.Base(pkgPath)]++
	f.mu.Unlock()
	if err := f.fail[filepath.Base(pkgPath)]; err != nil {
		return err
	}
	return os.MkdirAll(UnpackedDir(pkgPath), 0755)
}

func (f *fakeUnpacker) callCount(pkg string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pkg]
}

// newInstall creates an installation root holding the given packages in
// the primary asset directory.
func newInstall(t *testing.T, primary []string, localized []string) string {
	t.Helper()
	root := t.TempDir()
	for sub, pkgs := range map[string][]string{"D3D11": primary, "D3D11_us": localized} {
		dir := filepath.Join(root, "data", "asset", sub)
		require.NoError(t, os.MkdirAll(dir, 0755))
		for _, pkg := range pkgs {
			require.NoError(t, os.WriteFile(filepath.Join(dir, pkg), []byte(pkg), 0644))
		}
	}
	return root
}

func newTestStore(t *testing.T, root string, u Unpacker) *Store {
	t.Helper()
	return NewStore(root, filepath.Join(t.TempDir(), "work"), u, zap.NewNop().Sugar())
}

func TestFindSourcePackageOrder(t *testing.T) {
	root := newInstall(t, []string{"M_A.pkg"}, []string{"M_A.pkg", "M_B.pkg"})
	s := newTestStore(t, root, newFakeUnpacker())

	// Primary directory wins when both have the package.
	path, err := s.FindSourcePackage("M_A.pkg")
	require.NoError(t, err)
	assert.Contains(t, path, filepath.Join("data", "asset", "D3D11")+string(filepath.Separator))

	// Localized directory is the fallback.
	path, err = s.FindSourcePackage("M_B.pkg")
	require.NoError(t, err)
	assert.Contains(t, path, "D3D11_us")

	_, err = s.FindSourcePackage("M_C.pkg")
	assert.ErrorIs(t, err, ErrSourcePackageNotFound)
}

func TestStageIdempotent(t *testing.T) {
	root := newInstall(t, []string{"M_A.pkg"}, nil)
	s := newTestStore(t, root, newFakeUnpacker())

	first, err := s.Stage("M_A.pkg")
	require.NoError(t, err)

	// Replace the staged copy; a second Stage must not overwrite it.
	require.NoError(t, os.WriteFile(first, []byte("local edit"), 0644))
	second, err := s.Stage("M_A.pkg")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	data, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, "local edit", string(data))
}

func TestEnsureUnpackedSkipsExistingOutput(t *testing.T) {
	root := newInstall(t, []string{"M_A.pkg"}, nil)
	u := newFakeUnpacker()
	s := newTestStore(t, root, u)

	staged, err := s.Stage("M_A.pkg")
	require.NoError(t, err)

	require.NoError(t, s.EnsureUnpacked(context.Background(), staged))
	assert.Equal(t, 1, u.callCount("M_A.pkg"))

	// Output directory exists now, so the codec must not run again.
	require.NoError(t, s.EnsureUnpacked(context.Background(), staged))
	assert.Equal(t, 1, u.callCount("M_A.pkg"))
}

func TestStageAndUnpackAllDedupes(t *testing.T) {
	root := newInstall(t, []string{"M_A.pkg", "M_B.pkg"}, nil)
	u := newFakeUnpacker()
	s := newTestStore(t, root, u)

	pkgs := []string{"M_A.pkg", "M_B.pkg"}
	require.NoError(t, s.StageAndUnpackAll(context.Background(), pkgs, 4))
	assert.Equal(t, 1, u.callCount("M_A.pkg"))
	assert.Equal(t, 1, u.callCount("M_B.pkg"))

	// Rerun over the same batch: everything is cached.
	require.NoError(t, s.StageAndUnpackAll(context.Background(), pkgs, 4))
	assert.Equal(t, 1, u.callCount("M_A.pkg"))
	assert.Equal(t, 1, u.callCount("M_B.pkg"))
}

func TestStageAndUnpackAllDrainsOnFailure(t *testing.T) {
	root := newInstall(t, []string{"M_A.pkg", "M_B.pkg", "M_C.pkg"}, nil)
	u := newFakeUnpacker()
	boom := errors.New("codec exploded")
	u.fail["M_A.pkg"] = boom
	s := newTestStore(t, root, u)

	err := s.StageAndUnpackAll(context.Background(), []string{"M_A.pkg", "M_B.pkg", "M_C.pkg"}, 1)
	require.ErrorIs(t, err, boom)

	// Sibling unpacks ran to completion despite the failure.
	assert.Equal(t, 1, u.callCount("M_B.pkg"))
	assert.Equal(t, 1, u.callCount("M_C.pkg"))
}

func TestStageAndUnpackAllMissingSourceIsFatal(t *testing.T) {
	root := newInstall(t, []string{"M_A.pkg"}, nil)
	u := newFakeUnpacker()
	s := newTestStore(t, root, u)

	err := s.StageAndUnpackAll(context.Background(), []string{"M_A.pkg", "M_MISSING.pkg"}, 4)
	assert.ErrorIs(t, err, ErrSourcePackageNotFound)
}

func TestUnpackedDir(t *testing.T) {
	assert.Equal(t, filepath.Join("tmp", "M_T4040"), UnpackedDir(filepath.Join("tmp", "M_T4040.pkg")))
}
