package card

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"
)

// PaddingVariant selects which padding column of the style table applies.
// The card renderer and the message editor differ only for short messages.
type PaddingVariant int

const (
	PaddingCard PaddingVariant = iota
	PaddingEditor
)

// Padding is a vertical/horizontal pair expressed in percent of the card width.
type Padding struct {
	Vertical   float64 `json:"vertical"`
	Horizontal float64 `json:"horizontal"`
}

func (p Padding) CSS() string {
	return fmt.Sprintf("%s%% %s%%", formatNumber(p.Vertical), formatNumber(p.Horizontal))
}

// BaseStyle is one row of the style table.
type BaseStyle struct {
	FontSize      float64 // px
	LineHeight    float64 // unitless multiplier
	LetterSpacing float64 // em
	Padding       Padding
}

type styleBucket struct {
	below         int // exclusive upper bound on message length
	base          BaseStyle
	editorPadding Padding
}

// Buckets are ordered by upper bound; the last one is open-ended so every
// length lands in exactly one row.
var styleTable = []styleBucket{
	{
		below:         25,
		base:          BaseStyle{FontSize: 42, LineHeight: 1.35, LetterSpacing: 0.08, Padding: Padding{Vertical: 24, Horizontal: 15}},
		editorPadding: Padding{Vertical: 25, Horizontal: 15},
	},
	{
		below:         55,
		base:          BaseStyle{FontSize: 32, LineHeight: 1.55, LetterSpacing: 0.04, Padding: Padding{Vertical: 22, Horizontal: 13}},
		editorPadding: Padding{Vertical: 22, Horizontal: 13},
	},
	{
		below:         100,
		base:          BaseStyle{FontSize: 24, LineHeight: 1.7, LetterSpacing: 0.01, Padding: Padding{Vertical: 18, Horizontal: 10}},
		editorPadding: Padding{Vertical: 18, Horizontal: 10},
	},
	{
		below:         math.MaxInt,
		base:          BaseStyle{FontSize: 18, LineHeight: 1.8, LetterSpacing: -0.01, Padding: Padding{Vertical: 14, Horizontal: 8}},
		editorPadding: Padding{Vertical: 14, Horizontal: 8},
	},
}

// MessageLength is the only signal the style table looks at: the number of
// characters, line breaks included.
func MessageLength(text string) int {
	return utf8.RuneCountInString(text)
}

// BucketIndex returns the style table row for a message length.
// Negative lengths are treated as zero.
func BucketIndex(length int) int {
	if length < 0 {
		length = 0
	}
	for i, b := range styleTable {
		if length < b.below {
			return i
		}
	}
	return len(styleTable) - 1
}

// BaseStyleFor looks up the base typography for a message length.
func BaseStyleFor(length int, variant PaddingVariant) BaseStyle {
	b := styleTable[BucketIndex(length)]
	out := b.base
	if variant == PaddingEditor {
		out.Padding = b.editorPadding
	}
	return out
}

// formatNumber renders a float for CSS without float noise (0.09000000000000001 → 0.09).
func formatNumber(v float64) string {
	r := math.Round(v*10000) / 10000
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}
