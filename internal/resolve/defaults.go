package resolve

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"ed8port/internal/acquire"
)

// DefaultShaders use a different naming scheme and are never present in
// the shader database, so they get a dedicated resolution path.
var DefaultShaders = []string{
	"ed8.fx",
	"ed8_minimap.fx#47C02C9B2DC49A1EAA38DC726CC42326",
	"ed8_minimap.fx",
}

// WellKnownPackage bundles every default shader; it is the fallback
// donor for defaults not found in any batch package.
const WellKnownPackage = "M_C0120.pkg"

// ResolveDefaults maps the default shaders actually referenced by the
// asset (detected by file existence in assetDir). Every already-unpacked
// donor package of the batch is searched first; only defaults still
// unfound afterwards cause the well-known catalog package to be staged
// and unpacked. Failing to locate the catalog package on the host
// installation is fatal.
func ResolveDefaults(ctx context.Context, assetDir string, donorPkgs []string, store *acquire.Store, log *zap.SugaredLogger) ([]Mapping, error) {
	remaining := make(map[string]bool)
	for _, d := range DefaultShaders {
		if _, err := os.Stat(filepath.Join(assetDir, d+ShaderExt)); err == nil {
			remaining[d] = true
		}
	}
	if len(remaining) == 0 {
		return nil, nil
	}

	var mappings []Mapping
	for _, pkg := range donorPkgs {
		location := filepath.Join(store.WorkDir(), baseName(pkg))
		found := make(map[string]bool)
		for _, d := range DefaultShaders {
			if !remaining[d] {
				continue
			}
			if _, err := os.Stat(DonorShaderPath(location, d)); err == nil {
				found[d] = true
				mappings = append(mappings, Mapping{Original: d, Resolved: d, DonorLocation: location})
			}
		}
		for d := range found {
			delete(remaining, d)
		}
		if len(remaining) == 0 {
			return mappings, nil
		}
	}

	log.Infof("%d default shader(s) not in batch packages, falling back to %s", len(remaining), WellKnownPackage)
	staged, err := store.Stage(WellKnownPackage)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureUnpacked(ctx, staged); err != nil {
		return nil, err
	}
	location := acquire.UnpackedDir(staged)
	for _, d := range DefaultShaders {
		if remaining[d] {
			mappings = append(mappings, Mapping{Original: d, Resolved: d, DonorLocation: location})
		}
	}
	return mappings, nil
}

func baseName(pkg string) string {
	ext := filepath.Ext(pkg)
	return pkg[:len(pkg)-len(ext)]
}
