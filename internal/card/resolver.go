package card

import (
	"fmt"
	"strings"
	"sync"
)

// Alignment is the horizontal placement of the text block.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// ParseAlignment falls back to center for anything it does not recognise.
func ParseAlignment(value string) Alignment {
	switch Alignment(strings.ToLower(strings.TrimSpace(value))) {
	case AlignLeft:
		return AlignLeft
	case AlignRight:
		return AlignRight
	default:
		return AlignCenter
	}
}

// CrossAxis is the flex cross-axis value that must accompany the text alignment.
// Emitting only text-align lets the block drift away from the container edge.
func (a Alignment) CrossAxis() string {
	switch a {
	case AlignLeft:
		return "flex-start"
	case AlignRight:
		return "flex-end"
	default:
		return "center"
	}
}

const (
	WeightBold   = 900
	WeightNormal = 400

	letterSpacingStep = 0.05
	shadowSpreadRatio = 2.2
)

// Scales are the user multipliers applied on top of the style table.
type Scales struct {
	FontSize      float64 `json:"font_size"`      // typical 0.5–2.0
	LetterSpacing float64 `json:"letter_spacing"` // typical 0.5–1.5, neutral at 1.0
	LineHeight    float64 `json:"line_height"`    // typical 0.5–3.0
}

func DefaultScales() Scales {
	return Scales{FontSize: 1, LetterSpacing: 1, LineHeight: 1}
}

// Appearance groups the settings that do not depend on message length.
type Appearance struct {
	FontFamily      string    `json:"font_family"`
	Bold            bool      `json:"bold"`
	Italic          bool      `json:"italic"`
	Align           Alignment `json:"align"`
	TextColor       string    `json:"text_color"`
	TextOpacity     float64   `json:"text_opacity"`
	ShadowIntensity float64   `json:"shadow_intensity"` // px
	ShadowColor     string    `json:"shadow_color"`
}

func DefaultAppearance() Appearance {
	return Appearance{
		FontFamily:      "'Noto Sans KR', sans-serif",
		Bold:            true,
		Align:           AlignCenter,
		TextColor:       "#ffffff",
		TextOpacity:     1,
		ShadowIntensity: 12,
		ShadowColor:     "rgba(0,0,0,0.9)",
	}
}

// Profile is the resolved typography for one message. It is a value type:
// equal inputs always produce equal profiles.
type Profile struct {
	FontFamily      string    `json:"font_family"`
	FontWeight      int       `json:"font_weight"`
	Italic          bool      `json:"italic"`
	FontSize        float64   `json:"font_size"` // px
	LineHeight      float64   `json:"line_height"`
	LetterSpacing   float64   `json:"letter_spacing"` // em
	Padding         Padding   `json:"padding"`
	Align           Alignment `json:"align"`
	CrossAxis       string    `json:"cross_axis"`
	Color           string    `json:"color"`
	Opacity         float64   `json:"opacity"`
	ShadowIntensity float64   `json:"shadow_intensity"`
	ShadowSpread    float64   `json:"shadow_spread"`
	ShadowColor     string    `json:"shadow_color"`
}

func (p Profile) FontStyle() string {
	if p.Italic {
		return "italic"
	}
	return "normal"
}

// TextShadow is the single soft, offset-down shadow used for message and signature.
func (p Profile) TextShadow() string {
	return fmt.Sprintf("0 %spx %spx %s", formatNumber(p.ShadowIntensity), formatNumber(p.ShadowSpread), p.ShadowColor)
}

func (p Profile) FontSizeCSS() string      { return formatNumber(p.FontSize) + "px" }
func (p Profile) LetterSpacingCSS() string { return formatNumber(p.LetterSpacing) + "em" }
func (p Profile) LineHeightCSS() string    { return formatNumber(p.LineHeight) }

// Input is everything the resolver depends on. It is comparable so it can key the memo.
type Input struct {
	Length     int
	Variant    PaddingVariant
	Scales     Scales
	Appearance Appearance
}

// Resolve combines the style table row with scales and appearance.
func Resolve(in Input) Profile {
	base := BaseStyleFor(in.Length, in.Variant)
	ap := in.Appearance

	align := ParseAlignment(string(ap.Align))
	weight := WeightNormal
	if ap.Bold {
		weight = WeightBold
	}

	return Profile{
		FontFamily: ap.FontFamily,
		FontWeight: weight,
		Italic:     ap.Italic,
		FontSize:   base.FontSize * in.Scales.FontSize,
		LineHeight: base.LineHeight * in.Scales.LineHeight,
		// The letter-spacing scale drives a delta around the base value, so 1.0
		// reproduces the table exactly.
		LetterSpacing:   base.LetterSpacing + (in.Scales.LetterSpacing-1)*letterSpacingStep,
		Padding:         base.Padding,
		Align:           align,
		CrossAxis:       align.CrossAxis(),
		Color:           ap.TextColor,
		Opacity:         ap.TextOpacity,
		ShadowIntensity: ap.ShadowIntensity,
		ShadowSpread:    ap.ShadowIntensity * shadowSpreadRatio,
		ShadowColor:     ap.ShadowColor,
	}
}

// ResolveText is Resolve for the card-render padding variant.
func ResolveText(text string, scales Scales, appearance Appearance) Profile {
	return Resolve(Input{Length: MessageLength(text), Variant: PaddingCard, Scales: scales, Appearance: appearance})
}

// Memo keeps the last resolved profile and recomputes only when the input tuple changes.
type Memo struct {
	mu      sync.Mutex
	valid   bool
	last    Input
	profile Profile
	misses  int
}

func (m *Memo) Resolve(in Input) Profile {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid && m.last == in {
		return m.profile
	}
	m.last = in
	m.profile = Resolve(in)
	m.valid = true
	m.misses++
	return m.profile
}

// Computations reports how many times the memo had to resolve.
func (m *Memo) Computations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.misses
}
