// Package pipeline runs the shader-replacement phases over one unpacked
// asset: resolve every referenced shader to a donor package, stage and
// unpack the deduplicated donor set in parallel, pick up the default
// shaders, then either merge materials or emit the mapping table. This
// is the fail-fast variant; per-asset error containment lives in the
// porter.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"ed8port/internal/acquire"
	"ed8port/internal/material"
	"ed8port/internal/packtools"
	"ed8port/internal/resolve"
)

// MetadataFile is the material metadata file the unpacker emits at the
// root of an unpacked asset.
const MetadataFile = "metadata.json"

// MappingFile is the shader mapping table written by map-shaders runs.
const MappingFile = "shader_mapping.csv"

// Replacer wires the resolver and the package store into the
// shader-replacement pipeline.
type Replacer struct {
	store      *acquire.Store
	resolver   *resolve.Resolver
	maxWorkers int
	log        *zap.SugaredLogger
}

// NewReplacer returns a Replacer unpacking with at most maxWorkers
// parallel codec invocations.
func NewReplacer(store *acquire.Store, resolver *resolve.Resolver, maxWorkers int, log *zap.SugaredLogger) *Replacer {
	return &Replacer{store: store, resolver: resolver, maxWorkers: maxWorkers, log: log}
}

// ResolveAsset runs phases 1 and 2 for one asset directory: resolve all
// fingerprinted shaders, stage and unpack every required donor package
// exactly once, and resolve the default shaders against the unpacked
// batch. All unpacking has completed when ResolveAsset returns.
func (r *Replacer) ResolveAsset(ctx context.Context, assetDir string) ([]resolve.Mapping, error) {
	shaders, err := resolve.ListShaderFiles(assetDir)
	if err != nil {
		return nil, err
	}
	r.log.Infof("Found %d shaders to process in %s", len(shaders), assetDir)

	mappings, pkgs, err := r.resolver.ResolveAll(ctx, shaders)
	if err != nil {
		return nil, err
	}
	r.log.Infof("Identified %d unique packages to unpack", len(pkgs))

	if err := r.store.StageAndUnpackAll(ctx, pkgs, r.maxWorkers); err != nil {
		return nil, err
	}

	defaults, err := resolve.ResolveDefaults(ctx, assetDir, pkgs, r.store, r.log)
	if err != nil {
		return nil, err
	}
	return append(mappings, defaults...), nil
}

// ReplaceMaterials runs the full replacement for one asset directory:
// resolve, unpack, and merge donor materials into the asset's metadata.
func (r *Replacer) ReplaceMaterials(ctx context.Context, assetDir string) error {
	mappings, err := r.ResolveAsset(ctx, assetDir)
	if err != nil {
		return err
	}
	metaPath := filepath.Join(assetDir, MetadataFile)
	return material.ReplaceMaterials(metaPath, mappings, assetDir, r.log)
}

// MapShaders runs the resolution phases and records the result: the
// mapping table is written into the working directory and every resolved
// shader file is copied from its donor into the asset directory.
func (r *Replacer) MapShaders(ctx context.Context, assetDir string) (string, error) {
	mappings, err := r.ResolveAsset(ctx, assetDir)
	if err != nil {
		return "", err
	}

	csvPath := filepath.Join(r.store.WorkDir(), MappingFile)
	if err := resolve.WriteMappingCSV(csvPath, mappings); err != nil {
		return "", err
	}

	for _, m := range mappings {
		src := resolve.DonorShaderPath(m.DonorLocation, m.Resolved)
		if _, err := os.Stat(src); err != nil {
			return "", fmt.Errorf("%w: %s", resolve.ErrShaderFileMissing, src)
		}
		dst := filepath.Join(assetDir, filepath.Base(src))
		if err := packtools.CopyFile(src, dst); err != nil {
			return "", fmt.Errorf("copy shader %s: %w", src, err)
		}
		r.log.Debugf("Copied %s to %s", src, assetDir)
	}
	return csvPath, nil
}
