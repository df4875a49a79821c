// Package icon produces the square icon shown next to a game.
package icon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
)

// ErrNoIcon is returned when no icon could be found for an executable.
var ErrNoIcon = errors.New("no icon found")

// Extractor reads the icon belonging to an executable.
type Extractor interface {
	Extract(exePath string) (image.Image, error)
}

// SiblingExtractor looks for an image file next to the executable: first one
// named after it, then a generic "icon" file.
type SiblingExtractor struct{}

// Extract implements Extractor.
func (SiblingExtractor) Extract(exePath string) (image.Image, error) {
	dir := filepath.Dir(exePath)
	stem := strings.TrimSuffix(filepath.Base(exePath), filepath.Ext(exePath))

	for _, base := range []string{stem, "icon"} {
		for _, ext := range []string{".png", ".ico"} {
			path := filepath.Join(dir, base+ext)
			data, err := os.ReadFile(path) //nolint:gosec // Path derived from a user-added game
			if err != nil {
				continue
			}
			img, err := decode(data, ext)
			if err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
			return img, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoIcon, exePath)
}

func decode(data []byte, ext string) (image.Image, error) {
	if ext == ".ico" {
		return decodeICO(data)
	}
	return png.Decode(bytes.NewReader(data))
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// decodeICO returns the largest image stored in an ICO container. Entries are
// either embedded PNGs or headerless BMPs with an AND mask below the pixels.
func decodeICO(data []byte) (image.Image, error) {
	if len(data) < 6 || binary.LittleEndian.Uint16(data[2:4]) != 1 {
		return nil, errors.New("not an ico file")
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))

	var best []byte
	bestArea := -1
	for i := 0; i < count; i++ {
		off := 6 + 16*i
		if off+16 > len(data) {
			break
		}
		e := data[off : off+16]
		w, h := int(e[0]), int(e[1])
		if w == 0 {
			w = 256
		}
		if h == 0 {
			h = 256
		}
		size := int(binary.LittleEndian.Uint32(e[8:12]))
		start := int(binary.LittleEndian.Uint32(e[12:16]))
		if start < 0 || size <= 0 || start+size > len(data) {
			continue
		}
		if w*h > bestArea {
			bestArea = w * h
			best = data[start : start+size]
		}
	}
	if best == nil {
		return nil, errors.New("ico has no usable entries")
	}

	if bytes.HasPrefix(best, pngSignature) {
		return png.Decode(bytes.NewReader(best))
	}
	return decodeDIB(best)
}

// decodeDIB wraps an ICO bitmap in a BMP file header so it can be decoded as
// a regular bitmap. The stored height covers the AND mask, so it is halved.
func decodeDIB(dib []byte) (image.Image, error) {
	if len(dib) < 40 {
		return nil, errors.New("bitmap entry too short")
	}
	headerSize := binary.LittleEndian.Uint32(dib[0:4])
	bpp := binary.LittleEndian.Uint16(dib[14:16])
	colors := binary.LittleEndian.Uint32(dib[32:36])
	if colors == 0 && bpp <= 8 {
		colors = 1 << bpp
	}

	fixed := make([]byte, len(dib))
	copy(fixed, dib)
	height := int32(binary.LittleEndian.Uint32(fixed[8:12])) / 2
	binary.LittleEndian.PutUint32(fixed[8:12], uint32(height))
	// The mask is not part of the pixel data.
	binary.LittleEndian.PutUint32(fixed[20:24], 0)

	pixelOffset := 14 + headerSize + 4*colors
	var file bytes.Buffer
	file.WriteString("BM")
	_ = binary.Write(&file, binary.LittleEndian, uint32(14+len(fixed)))
	_ = binary.Write(&file, binary.LittleEndian, uint32(0))
	_ = binary.Write(&file, binary.LittleEndian, pixelOffset)
	file.Write(fixed)
	return bmp.Decode(&file)
}
