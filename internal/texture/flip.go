// Package texture flips textures of an unpacked asset tree vertically.
// The two engine versions disagree on texture origin, so ported assets
// need every texture mirrored once. TGA and PNG are handled natively;
// anything else is handed to an external converter when one is
// configured.
package texture

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"go.uber.org/zap"
)

// nativeExtensions are flipped in-process.
var nativeExtensions = map[string]bool{".tga": true, ".png": true}

// externalExtensions are handed to the external converter.
var externalExtensions = map[string]bool{".dds": true}

// Flipper flips textures in place. When external is empty, formats
// without a native codec are skipped with a warning instead of failing
// the asset.
type Flipper struct {
	external string // converter invoked as <external> <file>, flips in place
	log      *zap.SugaredLogger
}

// NewFlipper returns a Flipper using the given external converter, which
// may be empty.
func NewFlipper(external string, log *zap.SugaredLogger) *Flipper {
	return &Flipper{external: external, log: log}
}

// FlipAll walks root and flips every texture found. Returns the number
// of flipped files.
func (f *Flipper) FlipAll(ctx context.Context, root string) (int, error) {
	flipped := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		switch {
		case nativeExtensions[ext]:
			if err := flipNative(path, ext); err != nil {
				return fmt.Errorf("flip %s: %w", path, err)
			}
		case externalExtensions[ext]:
			if f.external == "" {
				f.log.Warnf("no external converter configured, skipping %s", path)
				return nil
			}
			cmd := exec.CommandContext(ctx, f.external, path)
			if out, err := cmd.CombinedOutput(); err != nil {
				return fmt.Errorf("flip %s: %v\n%s", path, err, out)
			}
		default:
			return nil
		}
		flipped++
		return nil
	})
	return flipped, err
}

// flipNative decodes, mirrors and re-encodes a texture in place.
func flipNative(path, ext string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	var img image.Image
	switch ext {
	case ".tga":
		img, err = tga.Decode(in)
	case ".png":
		img, err = png.Decode(in)
	}
	in.Close()
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	switch ext {
	case ".tga":
		err = tga.Encode(out, flipVertical(img))
	case ".png":
		err = png.Encode(out, flipVertical(img))
	}
	if err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// flipVertical returns img mirrored across its horizontal axis.
func flipVertical(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		srcY := b.Min.Y + (b.Dy() - 1 - y)
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, img.At(b.Min.X+x, srcY))
		}
	}
	return dst
}
