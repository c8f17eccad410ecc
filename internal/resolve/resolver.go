// Package resolve maps shaders referenced by a target asset to donor
// packages of the destination engine. Shaders following the fingerprinted
// naming convention are resolved through the shader database, with an
// external similarity search as fallback; a small closed set of default
// shaders outside the convention is handled separately.
package resolve

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"ed8port/internal/shaderdb"
)

// ErrUnresolvable is returned when neither the database nor the
// similarity search can supply a donor package for a shader.
var ErrUnresolvable = errors.New("unresolvable shader")

// ErrShaderFileMissing is returned when an unpacked donor package lacks
// the shader file its database entry promised.
var ErrShaderFileMissing = errors.New("shader file missing in donor package")

// ShaderExt is the extension of compiled shader files inside packages.
const ShaderExt = ".phyre"

// Mapping links a shader referenced by the target asset to the shader
// that replaces it and the unpacked donor location supplying it.
// Original and Resolved differ only when the similarity search had to
// step in. Two shaders resolving to the same donor package carry equal
// DonorLocation values, so donor packages dedupe by plain equality.
type Mapping struct {
	Original      string
	Resolved      string
	DonorLocation string
}

// SimilaritySearcher finds the closest known shader for a target
// profile. Implemented by packtools.Tools as an external process.
type SimilaritySearcher interface {
	FindSimilar(ctx context.Context, shader, profile string) (string, error)
}

// Resolver resolves shader names against one database and one working
// directory. The database is shared read-only; Resolver itself holds no
// mutable state.
type Resolver struct {
	db      *shaderdb.DB
	search  SimilaritySearcher
	workDir string
	profile string
	log     *zap.SugaredLogger
}

// NewResolver returns a Resolver placing donor locations under workDir.
func NewResolver(db *shaderdb.DB, search SimilaritySearcher, workDir, profile string, log *zap.SugaredLogger) *Resolver {
	return &Resolver{db: db, search: search, workDir: workDir, profile: profile, log: log}
}

// donorLocation derives the unpacked location for a donor package name.
func (r *Resolver) donorLocation(pkg string) string {
	return filepath.Join(r.workDir, strings.TrimSuffix(pkg, filepath.Ext(pkg)))
}

// Resolve maps one shader name to a donor package. Database hits
// resolve to themselves without invoking the similarity search; misses
// go through the search and a second database lookup. A second miss is
// ErrUnresolvable.
func (r *Resolver) Resolve(ctx context.Context, shader string) (Mapping, string, error) {
	resolved := shader
	pkg, ok := r.db.Lookup(shader)
	if !ok {
		r.log.Infof("Shader %q not in database. Finding a similar one...", shader)
		closest, err := r.search.FindSimilar(ctx, shader, r.profile)
		if err != nil {
			return Mapping{}, "", fmt.Errorf("similarity search for %s: %w", shader, err)
		}
		resolved = closest
		pkg, ok = r.db.Lookup(closest)
	}
	if !ok {
		return Mapping{}, "", fmt.Errorf("%w: no package for %q or alternative %q", ErrUnresolvable, shader, resolved)
	}
	return Mapping{
		Original:      shader,
		Resolved:      resolved,
		DonorLocation: r.donorLocation(pkg),
	}, pkg, nil
}

// ResolveAll resolves a batch of shader names and returns the mappings
// together with the deduplicated, sorted set of donor packages the batch
// requires.
func (r *Resolver) ResolveAll(ctx context.Context, shaders []string) ([]Mapping, []string, error) {
	var mappings []Mapping
	pkgSet := make(map[string]bool)
	for _, shader := range shaders {
		m, pkg, err := r.Resolve(ctx, shader)
		if err != nil {
			return nil, nil, err
		}
		mappings = append(mappings, m)
		pkgSet[pkg] = true
	}

	pkgs := make([]string, 0, len(pkgSet))
	for pkg := range pkgSet {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)
	return mappings, pkgs, nil
}

// ListShaderFiles returns the base names (without extension) of the
// fingerprinted shader files in an unpacked asset directory.
func ListShaderFiles(assetDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(assetDir, "ed8.fx#*"+ShaderExt))
	if err != nil {
		return nil, fmt.Errorf("scan shaders in %s: %w", assetDir, err)
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ShaderExt))
	}
	sort.Strings(names)
	return names, nil
}

// DonorShaderPath returns the path of a shader file inside an unpacked
// donor location. The unpacker nests the package contents one level
// under a directory named after the package.
func DonorShaderPath(donorLocation, shader string) string {
	return filepath.Join(donorLocation, filepath.Base(donorLocation), shader+ShaderExt)
}

// WriteMappingCSV writes the mapping table produced during a run.
func WriteMappingCSV(path string, mappings []Mapping) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create mapping file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"orig", "closest", "asset"}); err != nil {
		return fmt.Errorf("write mapping header: %w", err)
	}
	for _, m := range mappings {
		if err := w.Write([]string{m.Original, m.Resolved, m.DonorLocation}); err != nil {
			return fmt.Errorf("write mapping row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadMappingCSV loads a mapping table written by WriteMappingCSV or
// authored by hand. An empty replacement column keeps the original
// shader, so the row merges donor materials without a shader rewrite.
func ReadMappingCSV(path string) ([]Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mapping file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse mapping file %s: %w", path, err)
	}

	var mappings []Mapping
	for i, row := range rows {
		if i == 0 { // header
			continue
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("mapping file %s: row %d has %d column(s), want 3", path, i+1, len(row))
		}
		m := Mapping{Original: row[0], Resolved: row[1], DonorLocation: row[2]}
		if m.Resolved == "" {
			m.Resolved = m.Original
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}
