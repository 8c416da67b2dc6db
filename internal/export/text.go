package export

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// fontSet holds one parsed font per weight/style pair.
type fontSet struct {
	regular, bold, italic, boldItalic *opentype.Font
}

// newFontSet parses custom (a TTF or OTF) for every style when given, and
// falls back to the Go fonts otherwise. The Go fonts have no Hangul glyphs.
func newFontSet(custom []byte) (*fontSet, error) {
	if len(custom) > 0 {
		f, err := opentype.Parse(custom)
		if err != nil {
			return nil, fmt.Errorf("parse font: %w", err)
		}
		return &fontSet{regular: f, bold: f, italic: f, boldItalic: f}, nil
	}

	var fs fontSet
	for _, item := range []struct {
		dst  **opentype.Font
		data []byte
	}{
		{&fs.regular, goregular.TTF},
		{&fs.bold, gobold.TTF},
		{&fs.italic, goitalic.TTF},
		{&fs.boldItalic, gobolditalic.TTF},
	} {
		f, err := opentype.Parse(item.data)
		if err != nil {
			return nil, fmt.Errorf("parse go font: %w", err)
		}
		*item.dst = f
	}
	return &fs, nil
}

// HangulSample is the rune checked to decide whether a font can set Korean.
const HangulSample = '안'

// FontCovers reports whether the font in data has a glyph for r. Empty data
// means the built-in Go fonts.
func FontCovers(data []byte, r rune) (bool, error) {
	fs, err := newFontSet(data)
	if err != nil {
		return false, err
	}
	return fs.covers(r), nil
}

func (fs *fontSet) covers(r rune) bool {
	var buf sfnt.Buffer
	idx, err := fs.regular.GlyphIndex(&buf, r)
	return err == nil && idx != 0
}

func (fs *fontSet) face(bold, italic bool, size float64) (font.Face, error) {
	f := fs.regular
	switch {
	case bold && italic:
		f = fs.boldItalic
	case bold:
		f = fs.bold
	case italic:
		f = fs.italic
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	return face, nil
}

// textStyle is a face plus CSS letter-spacing in device pixels.
type textStyle struct {
	face     font.Face
	tracking float64
}

func (s textStyle) measure(text string) float64 {
	var w fixed.Int26_6
	n := 0
	for _, r := range text {
		adv, _ := s.face.GlyphAdvance(r)
		w += adv
		n++
	}
	return float64(w)/64 + float64(n)*s.tracking
}

// wrap breaks text into lines no wider than maxWidth. Explicit newlines are
// kept; words are only split when a single word does not fit.
func (s textStyle) wrap(text string, maxWidth float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Split(paragraph, " ") {
			candidate := word
			if line != "" {
				candidate = line + " " + word
			}
			if s.measure(candidate) <= maxWidth {
				line = candidate
				continue
			}
			if line != "" {
				lines = append(lines, line)
			}
			line = ""
			if s.measure(word) <= maxWidth {
				line = word
				continue
			}
			for _, r := range word {
				next := line + string(r)
				if line != "" && s.measure(next) > maxWidth {
					lines = append(lines, line)
					next = string(r)
				}
				line = next
			}
		}
		lines = append(lines, line)
	}
	return lines
}

// baseline returns the baseline offset of a line box of the given height,
// splitting the leading evenly above and below like CSS does.
func (s textStyle) baseline(lineHeight float64) float64 {
	m := s.face.Metrics()
	ascent := float64(m.Ascent) / 64
	descent := float64(m.Descent) / 64
	return (lineHeight-(ascent+descent))/2 + ascent
}

func (s textStyle) draw(dst *image.NRGBA, text string, x, baseline float64, c color.NRGBA) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: s.face,
		Dot:  fixed.Point26_6{X: toFixed(x), Y: toFixed(baseline)},
	}
	step := toFixed(s.tracking)
	for _, r := range text {
		d.DrawString(string(r))
		d.Dot.X += step
	}
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
