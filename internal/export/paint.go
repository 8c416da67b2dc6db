package export

import (
	"image"
	"image/color"
	"math"

	"signature-card-studio/internal/card"
)

// blendPixel composites c over the pixel at offset i with source-over on
// non-premultiplied values. coverage further scales the source alpha.
func blendPixel(pix []uint8, i int, c color.NRGBA, coverage float64) {
	sa := float64(c.A) / 255 * coverage
	if sa <= 0 {
		return
	}
	da := float64(pix[i+3]) / 255
	oa := sa + da*(1-sa)
	if oa <= 0 {
		return
	}
	mix := func(s, d uint8) uint8 {
		return clampByte((float64(s)*sa + float64(d)*da*(1-sa)) / oa)
	}
	pix[i+0] = mix(c.R, pix[i+0])
	pix[i+1] = mix(c.G, pix[i+1])
	pix[i+2] = mix(c.B, pix[i+2])
	pix[i+3] = clampByte(oa * 255)
}

func fillRect(dst *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() || c.A == 0 {
		return
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			blendPixel(dst.Pix, i, c, 1)
			i += 4
		}
	}
}

// strokeSides draws border bands inside r, like CSS border-box borders.
func strokeSides(dst *image.NRGBA, r image.Rectangle, s card.Sides, scale float64, c color.NRGBA) {
	top := scaled(s.Top, scale)
	right := scaled(s.Right, scale)
	bottom := scaled(s.Bottom, scale)
	left := scaled(s.Left, scale)

	if top > 0 {
		fillRect(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+top), c)
	}
	if bottom > 0 {
		fillRect(dst, image.Rect(r.Min.X, r.Max.Y-bottom, r.Max.X, r.Max.Y), c)
	}
	if left > 0 {
		fillRect(dst, image.Rect(r.Min.X, r.Min.Y+top, r.Min.X+left, r.Max.Y-bottom), c)
	}
	if right > 0 {
		fillRect(dst, image.Rect(r.Max.X-right, r.Min.Y+top, r.Max.X, r.Max.Y-bottom), c)
	}
}

// innerRect is r minus its border widths.
func innerRect(r image.Rectangle, s card.Sides, scale float64) image.Rectangle {
	return image.Rect(
		r.Min.X+scaled(s.Left, scale),
		r.Min.Y+scaled(s.Top, scale),
		r.Max.X-scaled(s.Right, scale),
		r.Max.Y-scaled(s.Bottom, scale),
	)
}

// drawGradient paints a CSS-style linear gradient over the whole image.
func drawGradient(dst *image.NRGBA, g *card.Gradient) {
	if g == nil || len(g.Stops) == 0 {
		return
	}
	b := dst.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	rad := g.Angle * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	length := math.Abs(w*dx) + math.Abs(h*dy)
	if length == 0 {
		return
	}

	stops := make([]color.NRGBA, len(g.Stops))
	for i, s := range g.Stops {
		stops[i] = colorOr(s.Color, color.NRGBA{})
	}

	cx, cy := w/2, h/2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := dst.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x++ {
			t := ((float64(x-b.Min.X)+0.5-cx)*dx+(float64(y-b.Min.Y)+0.5-cy)*dy)/length + 0.5
			blendPixel(dst.Pix, i, gradientAt(g.Stops, stops, t), 1)
			i += 4
		}
	}
}

func gradientAt(stops []card.GradientStop, colors []color.NRGBA, t float64) color.NRGBA {
	if t <= stops[0].Position {
		return colors[0]
	}
	last := len(stops) - 1
	if t >= stops[last].Position {
		return colors[last]
	}
	for i := 1; i <= last; i++ {
		if t > stops[i].Position {
			continue
		}
		span := stops[i].Position - stops[i-1].Position
		f := 0.0
		if span > 0 {
			f = (t - stops[i-1].Position) / span
		}
		a, b := colors[i-1], colors[i]
		lerp := func(x, y uint8) uint8 { return clampByte(float64(x) + (float64(y)-float64(x))*f) }
		return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
	}
	return colors[last]
}

// drawBoxShadow approximates a CSS box-shadow with an analytic falloff.
// Outer shadows are painted outside box only; inset shadows inside box only.
func drawBoxShadow(dst *image.NRGBA, box image.Rectangle, sh card.BoxShadow, scale float64) {
	c := colorOr(sh.Color, color.NRGBA{A: 0xff})
	blur := sh.Blur * scale
	spread := sh.Spread * scale
	ox, oy := sh.X*scale, sh.Y*scale

	shape := rectF{
		minX: float64(box.Min.X) + ox, minY: float64(box.Min.Y) + oy,
		maxX: float64(box.Max.X) + ox, maxY: float64(box.Max.Y) + oy,
	}

	var area image.Rectangle
	if sh.Inset {
		shape = shape.grow(-spread)
		area = box
	} else {
		shape = shape.grow(spread)
		reach := int(math.Ceil(blur))
		area = shape.rect().Inset(-reach)
	}
	area = area.Intersect(dst.Bounds())

	for y := area.Min.Y; y < area.Max.Y; y++ {
		i := dst.PixOffset(area.Min.X, y)
		for x := area.Min.X; x < area.Max.X; x++ {
			p := image.Pt(x, y)
			inBox := p.In(box)
			if sh.Inset == inBox {
				var d float64
				if sh.Inset {
					d = shape.depth(float64(x)+0.5, float64(y)+0.5)
				} else {
					d = shape.distance(float64(x)+0.5, float64(y)+0.5)
				}
				if cov := falloff(d, blur); cov > 0 {
					blendPixel(dst.Pix, i, c, cov)
				}
			}
			i += 4
		}
	}
}

func falloff(d, blur float64) float64 {
	if d <= 0 {
		return 1
	}
	if blur <= 0 || d >= blur {
		return 0
	}
	t := 1 - d/blur
	return t * t
}

type rectF struct{ minX, minY, maxX, maxY float64 }

func (r rectF) grow(by float64) rectF {
	return rectF{r.minX - by, r.minY - by, r.maxX + by, r.maxY + by}
}

func (r rectF) rect() image.Rectangle {
	return image.Rect(int(math.Floor(r.minX)), int(math.Floor(r.minY)), int(math.Ceil(r.maxX)), int(math.Ceil(r.maxY)))
}

// distance from a point outside r to r; zero inside.
func (r rectF) distance(x, y float64) float64 {
	dx := math.Max(math.Max(r.minX-x, 0), x-r.maxX)
	dy := math.Max(math.Max(r.minY-y, 0), y-r.maxY)
	return math.Hypot(dx, dy)
}

// depth of a point inside r measured from the nearest edge; zero outside.
func (r rectF) depth(x, y float64) float64 {
	if x <= r.minX || x >= r.maxX || y <= r.minY || y >= r.maxY {
		return 0
	}
	return math.Min(math.Min(x-r.minX, r.maxX-x), math.Min(y-r.minY, r.maxY-y))
}

func scaled(v, scale float64) int {
	return int(math.Round(v * scale))
}
