package icon

import (
	"image"
	"image/color"
	"strings"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Placeholder tile geometry and colors.
const (
	Size         = 256
	cornerRadius = 30
	glyphScale   = 10
)

var (
	gradientTop    = color.RGBA{0x33, 0x33, 0x33, 0xff}
	gradientBottom = color.RGBA{0x1a, 0x1a, 0x1a, 0xff}
	letterColor    = color.RGBA{0xf0, 0xf4, 0xf6, 0xff}
)

// Placeholder renders a rounded tile with the upper-cased initial of name.
// An empty name, or an initial the font cannot draw, shows "G".
func Placeholder(name string) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	for y := 0; y < Size; y++ {
		c := lerp(gradientTop, gradientBottom, float64(y)/float64(Size-1))
		for x := 0; x < Size; x++ {
			if insideRoundedRect(x, y, Size, cornerRadius) {
				img.SetRGBA(x, y, c)
			}
		}
	}

	glyph := renderGlyph(initial(name))
	gb := glyph.Bounds()
	w, h := gb.Dx()*glyphScale, gb.Dy()*glyphScale
	dst := image.Rect((Size-w)/2, (Size-h)/2, (Size-w)/2+w, (Size-h)/2+h)
	draw.NearestNeighbor.Scale(img, dst, glyph, gb, draw.Over, nil)
	return img
}

func initial(name string) rune {
	for _, r := range strings.TrimSpace(name) {
		r = unicode.ToUpper(r)
		if hasGlyph(r) {
			return r
		}
		break
	}
	return 'G'
}

func hasGlyph(r rune) bool {
	if unicode.IsSpace(r) || !unicode.IsPrint(r) {
		return false
	}
	for _, rng := range basicfont.Face7x13.Ranges {
		if r >= rng.Low && r < rng.High {
			return true
		}
	}
	return false
}

// renderGlyph draws r at its native size on a transparent background.
func renderGlyph(r rune) *image.RGBA {
	face := basicfont.Face7x13
	glyph := image.NewRGBA(image.Rect(0, 0, face.Advance, face.Height))
	d := font.Drawer{
		Dst:  glyph,
		Src:  image.NewUniform(letterColor),
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	d.DrawString(string(r))
	return glyph
}

func insideRoundedRect(x, y, size, radius int) bool {
	cx, cy := x, y
	switch {
	case x < radius:
		cx = radius
	case x >= size-radius:
		cx = size - radius - 1
	}
	switch {
	case y < radius:
		cy = radius
	case y >= size-radius:
		cy = size - radius - 1
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= radius*radius
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 0xff}
}
