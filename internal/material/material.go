// Package material models the JSON metadata the unpacker emits next to
// an asset's shader files and reconciles target materials with donor
// materials when shaders are swapped. Documents round-trip byte-for-byte
// in structure: key order and fields this tool does not model survive a
// rewrite untouched.
package material

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata field names used by the merge.
const (
	fieldMaterials         = "materials"
	fieldShader            = "shader"
	fieldVertexColorShader = "vertex_color_shader"
	fieldParameters        = "shaderParameters"
	fieldSamplerDefs       = "shaderSamplerDefs"
	fieldSwitches          = "shaderSwitches"
)

// ShaderRefPrefix prefixes shader references inside material tables.
const ShaderRefPrefix = "shaders/"

// Material is one entry of a metadata materials table.
type Material struct {
	obj *Object
}

// Shader returns the material's shader reference (with prefix).
func (m *Material) Shader() string {
	s, _ := m.obj.GetString(fieldShader)
	return s
}

// SetShaderRef rewrites the shader reference and, when the material has
// one, the vertex-color-shader reference to the same shader.
func (m *Material) SetShaderRef(shader string) {
	m.obj.SetString(fieldShader, ShaderRefPrefix+shader)
	if _, ok := m.obj.Get(fieldVertexColorShader); ok {
		m.obj.SetString(fieldVertexColorShader, ShaderRefPrefix+shader)
	}
}

// mergeObjects applies the donor-shape-dominant, target-value-dominant
// key policy: the result holds the donor's keys in donor order, keeps
// the target's value where both sides have the key, and drops keys only
// the target had.
func mergeObjects(target, donor *Object) *Object {
	res := NewObject()
	for _, k := range donor.Keys() {
		if v, ok := target.Get(k); ok {
			res.Set(k, v)
		} else {
			v, _ := donor.Get(k)
			res.Set(k, v)
		}
	}
	return res
}

// MergeFrom merges the donor's parameter and sampler definitions into m.
// A shader swap generally changes the expected parameter set, so the
// donor dictates which keys survive while values the target already
// authored win on shared keys. Switches are merged only when the target
// material carries the field at all.
func (m *Material) MergeFrom(donor *Material) error {
	fields := []string{fieldParameters, fieldSamplerDefs}
	if _, ok := m.obj.Get(fieldSwitches); ok {
		fields = append(fields, fieldSwitches)
	}
	for _, field := range fields {
		donorObj, ok, err := donor.obj.GetObject(field)
		if err != nil {
			return fmt.Errorf("donor %s: %w", field, err)
		}
		if !ok {
			continue
		}
		targetObj, ok, err := m.obj.GetObject(field)
		if err != nil {
			return fmt.Errorf("target %s: %w", field, err)
		}
		if !ok {
			targetObj = NewObject()
		}
		if err := m.obj.SetObject(field, mergeObjects(targetObj, donorObj)); err != nil {
			return err
		}
	}
	return nil
}

// Metadata is a full metadata document with its materials table decoded.
type Metadata struct {
	doc     *Object
	names   []string
	entries map[string]*Material
}

// Names returns the material names in document order.
func (md *Metadata) Names() []string { return md.names }

// Material returns the named material.
func (md *Metadata) Material(name string) (*Material, bool) {
	m, ok := md.entries[name]
	return m, ok
}

// Parse decodes a metadata document.
func Parse(data []byte) (*Metadata, error) {
	doc := NewObject()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}

	mats, ok, err := doc.GetObject(fieldMaterials)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("metadata has no %q table", fieldMaterials)
	}

	md := &Metadata{doc: doc, entries: make(map[string]*Material)}
	for _, name := range mats.Keys() {
		obj, _, err := mats.GetObject(name)
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", name, err)
		}
		md.names = append(md.names, name)
		md.entries[name] = &Material{obj: obj}
	}
	return md, nil
}

// LoadFile reads and parses a metadata file.
func LoadFile(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	return Parse(data)
}

// Marshal re-encodes the document with the current material state,
// 4-space indented like the original files.
func (md *Metadata) Marshal() ([]byte, error) {
	mats := NewObject()
	for _, name := range md.names {
		if err := mats.SetObject(name, md.entries[name].obj); err != nil {
			return nil, fmt.Errorf("material %q: %w", name, err)
		}
	}
	if err := md.doc.SetObject(fieldMaterials, mats); err != nil {
		return nil, err
	}
	return json.MarshalIndent(md.doc, "", "    ")
}

// SaveFile writes the document back to path.
func (md *Metadata) SaveFile(path string) error {
	data, err := md.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write metadata %s: %w", path, err)
	}
	return nil
}
