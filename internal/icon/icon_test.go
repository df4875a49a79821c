package icon

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryanm101/librelauncher/internal/game"
)

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// icoWithPNG builds an ICO container holding a single PNG entry.
func icoWithPNG(payload []byte, size int) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 1})
	buf.Write([]byte{byte(size % 256), byte(size % 256), 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(payload)), 22})
	buf.Write(payload)
	return buf.Bytes()
}

// icoWithBitmap builds an ICO container holding a 2x2 32-bit bitmap.
func icoWithBitmap(c color.RGBA) []byte {
	var dib bytes.Buffer
	_ = binary.Write(&dib, binary.LittleEndian, uint32(40))
	_ = binary.Write(&dib, binary.LittleEndian, int32(2))
	_ = binary.Write(&dib, binary.LittleEndian, int32(4)) // doubled for the mask
	_ = binary.Write(&dib, binary.LittleEndian, uint16(1))
	_ = binary.Write(&dib, binary.LittleEndian, uint16(32))
	_ = binary.Write(&dib, binary.LittleEndian, make([]uint32, 6))
	for i := 0; i < 4; i++ {
		dib.Write([]byte{c.B, c.G, c.R, 0xff})
	}
	dib.Write(make([]byte, 8)) // AND mask, 4-byte aligned rows

	payload := dib.Bytes()
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 1})
	buf.Write([]byte{2, 2, 0, 0})
	_ = binary.Write(&buf, binary.LittleEndian, []uint16{1, 32})
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{uint32(len(payload)), 22})
	buf.Write(payload)
	return buf.Bytes()
}

func TestSiblingExtractor_PNG(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "game.exe")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "game.png"), solidPNG(t, 32, 32, color.White), 0644))

	img, err := SiblingExtractor{}.Extract(exe)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
}

func TestSiblingExtractor_ICOWithPNG(t *testing.T) {
	dir := t.TempDir()
	exe := filepath.Join(dir, "game.exe")
	ico := icoWithPNG(solidPNG(t, 48, 48, color.Black), 48)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icon.ico"), ico, 0644))

	img, err := SiblingExtractor{}.Extract(exe)
	require.NoError(t, err)
	assert.Equal(t, 48, img.Bounds().Dx())
}

func TestDecodeICO_Bitmap(t *testing.T) {
	red := color.RGBA{0xff, 0, 0, 0xff}
	img, err := decodeICO(icoWithBitmap(red))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.Equal(t, uint32(0xffff), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0), b)
}

func TestDecodeICO_Invalid(t *testing.T) {
	_, err := decodeICO([]byte("nope"))
	assert.Error(t, err)
	_, err = decodeICO([]byte{0, 0, 1, 0, 1, 0})
	assert.Error(t, err)
}

func TestSiblingExtractor_NoIcon(t *testing.T) {
	_, err := SiblingExtractor{}.Extract(filepath.Join(t.TempDir(), "game.exe"))
	assert.True(t, errors.Is(err, ErrNoIcon))
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder("portal")
	assert.Equal(t, image.Rect(0, 0, Size, Size), img.Bounds())

	// Corners are transparent, the top edge carries the gradient start.
	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).A)
	assert.Equal(t, uint8(0), img.RGBAAt(Size-1, Size-1).A)
	assert.Equal(t, gradientTop, img.RGBAAt(Size/2, 0))
	assert.Equal(t, gradientBottom, img.RGBAAt(Size/2, Size-1))

	// Some pixels are painted in the letter color.
	found := false
	for y := 0; y < Size && !found; y++ {
		for x := 0; x < Size; x++ {
			if img.RGBAAt(x, y) == letterColor {
				found = true
				break
			}
		}
	}
	assert.True(t, found)
}

func TestPlaceholder_Deterministic(t *testing.T) {
	assert.Equal(t, Placeholder("Half-Life").Pix, Placeholder("Half-Life").Pix)
	assert.Equal(t, Placeholder("").Pix, Placeholder("Gothic").Pix)
	assert.NotEqual(t, Placeholder("a").Pix, Placeholder("b").Pix)
}

func TestInitial(t *testing.T) {
	assert.Equal(t, 'P', initial("portal"))
	assert.Equal(t, 'G', initial(""))
	assert.Equal(t, 'G', initial("   "))
	assert.Equal(t, 'G', initial("Ведьмак"))
	assert.Equal(t, '7', initial("7 Days"))
}

type failingExtractor struct{}

func (failingExtractor) Extract(string) (image.Image, error) { return nil, ErrNoIcon }

func TestResolver_Placeholder(t *testing.T) {
	dir := t.TempDir()
	r := NewResolver(dir, failingExtractor{})
	rec := game.Record{Name: "Half-Life 2", ExePath: "/games/hl2.exe"}

	path, err := r.Resolve(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "HalfLife2.png"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, Size, img.Bounds().Dx())
}

func TestResolver_ScalesExtracted(t *testing.T) {
	dir := t.TempDir()
	games := t.TempDir()
	exe := filepath.Join(games, "run.exe")
	require.NoError(t, os.WriteFile(filepath.Join(games, "run.png"), solidPNG(t, 16, 16, color.White), 0644))

	path, err := NewResolver(dir, nil).Resolve(context.Background(), game.Record{Name: "Run", ExePath: exe})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, Size, Size), img.Bounds())
}
