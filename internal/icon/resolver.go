package icon

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/ryanm101/librelauncher/internal/game"
	"github.com/ryanm101/librelauncher/internal/logging"
	"github.com/ryanm101/librelauncher/internal/tracing"
)

// Resolver stores one PNG icon per game in a cache directory.
type Resolver struct {
	dir       string
	extractor Extractor
}

// NewResolver creates a resolver writing to dir. A nil extractor uses
// SiblingExtractor.
func NewResolver(dir string, ex Extractor) *Resolver {
	if ex == nil {
		ex = SiblingExtractor{}
	}
	return &Resolver{dir: dir, extractor: ex}
}

// Path returns where the icon of rec is cached.
func (r *Resolver) Path(rec game.Record) string {
	return filepath.Join(r.dir, game.SafeName(rec.Name)+".png")
}

// Resolve extracts the icon of rec, falling back to a placeholder, and
// writes it to the cache. It returns the cached file path.
func (r *Resolver) Resolve(ctx context.Context, rec game.Record) (_ string, err error) {
	_, span := tracing.StartUnit(ctx, "icon.resolve", "", rec.ExePath)
	defer func() { tracing.End(span, err) }()

	img, err := r.extractor.Extract(rec.ExePath)
	if err != nil {
		logging.Game(rec.ExePath).Debug("using placeholder icon", "error", err)
		img = Placeholder(rec.Name)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, fit(img)); err != nil {
		return "", fmt.Errorf("encode icon: %w", err)
	}

	path := r.Path(rec)
	if err := writeFile(path, buf.Bytes()); err != nil {
		return "", fmt.Errorf("save icon: %w", err)
	}
	return path, nil
}

// fit scales img to the icon size unless it already matches.
func fit(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == Size && b.Dy() == Size {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil { //nolint:gosec // Standard dir permissions
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil { //nolint:gosec // Cached media is not secret
		return err
	}
	return os.Rename(tmp, path)
}
