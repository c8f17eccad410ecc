// Package acquire locates donor packages inside a game installation,
// stages them into the working directory, and unpacks them through the
// external codec with bounded parallelism. Staging and unpacking are
// idempotent: already-staged packages and already-unpacked trees are
// reused as a cache across runs.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ed8port/internal/packtools"
)

// ErrSourcePackageNotFound is returned when a package exists in no
// candidate directory of the installation.
var ErrSourcePackageNotFound = errors.New("source package not found")

// DefaultMaxWorkers bounds the unpack pool when the caller passes 0.
const DefaultMaxWorkers = 16

// assetSubdirs are searched in order under <root>/data/asset; the first
// directory containing the package wins. D3D11_us holds the localized
// variants shipped by some releases.
var assetSubdirs = []string{"D3D11", "D3D11_us"}

// Unpacker extracts a package into a sibling directory named after the
// package's base name.
type Unpacker interface {
	Unpack(ctx context.Context, pkgPath string) error
}

// Store stages and unpacks donor packages from one installation root
// into one working directory.
type Store struct {
	root     string
	workDir  string
	unpacker Unpacker
	log      *zap.SugaredLogger
}

// NewStore returns a Store reading packages from the installation at
// root and staging them under workDir.
func NewStore(root, workDir string, unpacker Unpacker, log *zap.SugaredLogger) *Store {
	return &Store{root: root, workDir: workDir, unpacker: unpacker, log: log}
}

// WorkDir returns the staging directory.
func (s *Store) WorkDir() string { return s.workDir }

// FindSourcePackage searches the installation's candidate asset
// directories for pkg and returns the first existing file.
func (s *Store) FindSourcePackage(pkg string) (string, error) {
	for _, sub := range assetSubdirs {
		candidate := filepath.Join(s.root, "data", "asset", sub, pkg)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s under %s", ErrSourcePackageNotFound, pkg, s.root)
}

// Stage copies pkg from the installation into the working directory and
// returns the staged path. A package already present in the working
// directory is reused without touching the installation.
func (s *Store) Stage(pkg string) (string, error) {
	if err := os.MkdirAll(s.workDir, 0755); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	staged := filepath.Join(s.workDir, pkg)
	if _, err := os.Stat(staged); err == nil {
		return staged, nil
	}
	src, err := s.FindSourcePackage(pkg)
	if err != nil {
		return "", err
	}
	if err := packtools.CopyFile(src, staged); err != nil {
		return "", fmt.Errorf("stage %s: %w", pkg, err)
	}
	return staged, nil
}

// UnpackedDir returns the directory the unpacker produces for a staged
// package path (the package name without its extension).
func UnpackedDir(stagedPath string) string {
	return strings.TrimSuffix(stagedPath, filepath.Ext(stagedPath))
}

// EnsureUnpacked unpacks a staged package unless its output directory
// already exists. Safe to call repeatedly for the same package; the
// existence check is the only synchronization between runs.
func (s *Store) EnsureUnpacked(ctx context.Context, stagedPath string) error {
	out := UnpackedDir(stagedPath)
	if _, err := os.Stat(out); err == nil {
		s.log.Debugf("%s already unpacked", stagedPath)
		return nil
	}
	return s.unpacker.Unpack(ctx, stagedPath)
}

// StageAndUnpackAll stages every package and unpacks the staged set with
// at most maxWorkers concurrent unpacker invocations. All submitted
// unpacks run to completion even after one fails; the first error is
// returned once the pool has drained. Callers may rely on every package
// being unpacked when the returned error is nil, but not on any
// particular completion order.
func (s *Store) StageAndUnpackAll(ctx context.Context, pkgs []string, maxWorkers int) error {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}

	staged := make([]string, 0, len(pkgs))
	for _, pkg := range pkgs {
		p, err := s.Stage(pkg)
		if err != nil {
			return err
		}
		staged = append(staged, p)
	}

	var g errgroup.Group
	g.SetLimit(maxWorkers)
	for _, p := range staged {
		p := p
		g.Go(func() error {
			return s.EnsureUnpacked(ctx, p)
		})
	}
	return g.Wait()
}
