package material

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"ed8port/internal/packtools"
	"ed8port/internal/resolve"
)

// replacement is the donor side of one shader mapping.
type replacement struct {
	shader   string
	location string
}

// ReplaceMaterials rewrites the metadata file at metaPath so that every
// material whose shader appears in the mappings references its resolved
// replacement, copies the replacement shader files from the unpacked
// donor packages into assetDir, and merges the donor material
// definitions into the target materials. The document is written back in
// place.
func ReplaceMaterials(metaPath string, mappings []resolve.Mapping, assetDir string, log *zap.SugaredLogger) error {
	md, err := LoadFile(metaPath)
	if err != nil {
		return err
	}

	shaderMap := make(map[string]replacement, len(mappings))
	for _, m := range mappings {
		shaderMap[m.Original] = replacement{shader: m.Resolved, location: m.DonorLocation}
	}

	// donor location → final shader → material names using it
	groups := make(map[string]map[string][]string)
	for _, name := range md.Names() {
		mat, _ := md.Material(name)
		shader := strings.TrimPrefix(mat.Shader(), ShaderRefPrefix)
		rep, ok := shaderMap[shader]
		if !ok {
			continue
		}
		if shader != rep.shader {
			shader = rep.shader
			mat.SetShaderRef(shader)
		}
		byShader := groups[rep.location]
		if byShader == nil {
			byShader = make(map[string][]string)
			groups[rep.location] = byShader
		}
		byShader[shader] = append(byShader[shader], name)
	}

	locations := make([]string, 0, len(groups))
	for loc := range groups {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	for _, location := range locations {
		byShader := groups[location]
		donorMats, err := indexDonorMaterials(location, byShader)
		if err != nil {
			return err
		}

		shaders := make([]string, 0, len(byShader))
		for s := range byShader {
			shaders = append(shaders, s)
		}
		sort.Strings(shaders)

		for _, shader := range shaders {
			src := resolve.DonorShaderPath(location, shader)
			if _, err := os.Stat(src); err != nil {
				return fmt.Errorf("%w: %s", resolve.ErrShaderFileMissing, src)
			}
			if err := packtools.CopyFile(src, filepath.Join(assetDir, filepath.Base(src))); err != nil {
				return fmt.Errorf("copy shader %s: %w", src, err)
			}
			log.Debugf("Copied %s to %s", src, assetDir)

			donor, ok := donorMats[shader]
			if !ok {
				return fmt.Errorf("no donor material for shader %q in %s", shader, location)
			}
			for _, name := range byShader[shader] {
				mat, _ := md.Material(name)
				if err := mat.MergeFrom(donor); err != nil {
					return fmt.Errorf("merge material %q: %w", name, err)
				}
			}
		}
	}

	return md.SaveFile(metaPath)
}

// indexDonorMaterials loads every metadata file under a donor location
// and indexes its materials by stripped shader name, restricted to the
// shaders actually needed. Later metadata files override earlier ones.
func indexDonorMaterials(location string, needed map[string][]string) (map[string]*Material, error) {
	matches, err := filepath.Glob(filepath.Join(location, "metadata*.json"))
	if err != nil {
		return nil, fmt.Errorf("scan donor metadata in %s: %w", location, err)
	}
	sort.Strings(matches)

	donorMats := make(map[string]*Material)
	for _, path := range matches {
		md, err := LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("donor %s: %w", path, err)
		}
		for _, name := range md.Names() {
			mat, _ := md.Material(name)
			shader := strings.TrimPrefix(mat.Shader(), ShaderRefPrefix)
			if _, ok := needed[shader]; ok {
				donorMats[shader] = mat
			}
		}
	}
	return donorMats, nil
}
