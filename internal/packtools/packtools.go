// Package packtools wraps the external (un)pack toolchain. Every
// collaborator is an opaque process: the package format codec, the
// shader similarity search, and the two repack steps all live in the
// tool directory and are invoked as-is, with their output captured for
// failure reports.
package packtools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ErrToolMissing is returned when a required toolchain file is absent
// from the tool directory. This is an environment problem, not an asset
// problem, and is never converted into a per-asset failure.
var ErrToolMissing = errors.New("required tool file missing")

// Names of the toolchain entry points inside the tool directory.
const (
	UnpackerScript   = "ed8pkg2gltf.py"
	SimilarityScript = "find_similar_shaders.py"
	ColladaScript    = "build_collada_cs1.py"
	PackerScript     = "RunMe.bat"
)

// requiredToolFiles must exist in the tool directory before a repack can
// be attempted.
var requiredToolFiles = []string{ColladaScript, PackerScript}

// ExecError carries a failed collaborator invocation with its captured
// output, so batch failure reports can show the tool's own diagnostics.
type ExecError struct {
	Cmd    string
	Stdout string
	Stderr string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %v\nstdout:\n%s\nstderr:\n%s", e.Cmd, e.Err, e.Stdout, e.Stderr)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Tools invokes the external toolchain from a fixed tool directory.
type Tools struct {
	dir    string
	python string
	log    *zap.SugaredLogger
}

// New returns a Tools rooted at dir. The python interpreter defaults to
// "python" when empty.
func New(dir, python string, log *zap.SugaredLogger) *Tools {
	if python == "" {
		python = "python"
	}
	return &Tools{dir: dir, python: python, log: log}
}

// Dir returns the tool directory.
func (t *Tools) Dir() string { return t.dir }

// run executes a command in workDir and captures both output streams.
func (t *Tools) run(ctx context.Context, workDir string, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.String(), &ExecError{
			Cmd:    name + " " + strings.Join(args, " "),
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return stdout.String(), nil
}

// Unpack extracts a package next to itself. The unpacker produces a
// sibling directory named after the package's base name containing the
// extracted shader files and metadata.
func (t *Tools) Unpack(ctx context.Context, pkgPath string) error {
	t.log.Infof("Unpacking %s...", pkgPath)
	_, err := t.run(ctx, filepath.Dir(pkgPath), t.python, filepath.Join(t.dir, UnpackerScript), "-o", pkgPath)
	return err
}

// FindSimilar asks the similarity search for the closest known shader
// for the given target profile. The tool prints the best match to
// stdout and exits non-zero when it has none.
func (t *Tools) FindSimilar(ctx context.Context, shader, profile string) (string, error) {
	out, err := t.run(ctx, t.dir, t.python,
		filepath.Join(t.dir, SimilarityScript),
		"-s="+shader, "-g="+profile, "-p=True")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// StageToolFiles copies the repack toolchain into assetDir so the build
// steps can be run from inside the unpacked asset. Files already present
// are left alone (Windows refuses to copy byte-identical files over
// themselves). Returns ErrToolMissing if a required entry point is not
// in the tool directory.
func (t *Tools) StageToolFiles(assetDir string) error {
	for _, name := range requiredToolFiles {
		if _, err := os.Stat(filepath.Join(t.dir, name)); err != nil {
			return fmt.Errorf("%w: %s not found in %s", ErrToolMissing, name, t.dir)
		}
	}

	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return fmt.Errorf("read tool dir %s: %w", t.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		dst := filepath.Join(assetDir, e.Name())
		if _, err := os.Stat(dst); err == nil {
			t.log.Debugf("%s already exists, skip copying", dst)
			continue
		}
		if err := copyFile(filepath.Join(t.dir, e.Name()), dst); err != nil {
			return fmt.Errorf("stage tool file %s: %w", e.Name(), err)
		}
	}
	return nil
}

// BuildCollada runs the scene-build step inside the asset directory.
func (t *Tools) BuildCollada(ctx context.Context, assetDir string) error {
	_, err := t.run(ctx, assetDir, t.python, filepath.Join(assetDir, ColladaScript))
	return err
}

// RunPacker runs the final packaging step inside the asset directory.
// The packer resolves its inputs relative to the working directory, so
// it is invoked by absolute path with cwd set to the asset dir.
func (t *Tools) RunPacker(ctx context.Context, assetDir string) error {
	packer, err := filepath.Abs(filepath.Join(assetDir, PackerScript))
	if err != nil {
		return fmt.Errorf("resolve packer path: %w", err)
	}
	_, err = t.run(ctx, assetDir, packer)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyFile copies a single file, creating parent directories as needed.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return copyFile(src, dst)
}
