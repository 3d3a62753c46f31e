// Package palette provides color palettes for generated scenes. Palettes are
// generated in HSV with go-colorful and handed to the renderer as RGBA
// floats in [0, 1].
package palette

import (
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

// Size is the number of colors in a palette.
const Size = 5

// Palette holds five colors: a dark base, a plain white and three accents.
type Palette [Size]colorful.Color

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// hsb builds a color from hue, saturation and brightness on 0-100 scales.
func hsb(h, s, b float64) colorful.Color {
	return colorful.Hsv(h*3.6, clamp(s/100.0, 0, 1), clamp(b/100.0, 0, 1))
}

// RandomPalette returns a palette using HSV generation.
func RandomPalette(r *rand.Rand) Palette {
	p := Palette{}
	p[0] = hsb(r.Float64()*100, r.Float64()*100, r.Float64()*30)
	p[1] = colorful.Color{R: 1, G: 1, B: 1}
	for i := 2; i < Size; i++ {
		p[i] = hsb(r.Float64()*100, r.Float64()*50+25, r.Float64()*50+25)
	}
	return p
}

// Shimmered applies a brightness jitter to the accents when shimmer >= 0.
func Shimmered(p Palette, shimmer int, r *rand.Rand) Palette {
	if shimmer < 0 {
		return p
	}
	out := p
	for i := 2; i < Size; i++ {
		h, s, v := out[i].Hsv()
		v = clamp(v+(r.Float64()-0.5)*0.2, 0, 1)
		out[i] = colorful.Hsv(h, s, v)
	}
	return out
}

// RGBA returns color i as opaque RGBA floats. Out-of-range indexes are
// clamped.
func (p Palette) RGBA(i int) [4]float32 {
	return toRGBA(p[int(clamp(float64(i), 0, Size-1))], 1)
}

// Accent returns accent n (wrapping over the three accents) with the given
// alpha.
func (p Palette) Accent(n int, alpha float64) [4]float32 {
	if n < 0 {
		n = -n
	}
	return toRGBA(p[2+n%3], alpha)
}

// Gradient blends from accent a to accent b in Lab space; t runs from 0 to 1.
func (p Palette) Gradient(a, b int, t float64) [4]float32 {
	from, to := p[2+abs(a)%3], p[2+abs(b)%3]
	return toRGBA(from.BlendLab(to, clamp(t, 0, 1)).Clamped(), 1)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func toRGBA(c colorful.Color, alpha float64) [4]float32 {
	c = c.Clamped()
	return [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(clamp(alpha, 0, 1))}
}

// Hex returns color i as a #rrggbb string, for logging.
func (p Palette) Hex(i int) string {
	return p[int(clamp(float64(i), 0, Size-1))].Clamped().Hex()
}
