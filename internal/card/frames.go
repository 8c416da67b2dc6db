package card

import (
	"fmt"
	"strings"
)

// LayoutFrame decorates the whole card.
type LayoutFrame string

const (
	LayoutNone           LayoutFrame = "None"
	LayoutFullGold       LayoutFrame = "FullGold"
	LayoutOrnateAntique  LayoutFrame = "OrnateAntique"
	LayoutModernMinimal  LayoutFrame = "ModernMinimal"
	LayoutDeepWood       LayoutFrame = "DeepWood"
	LayoutCyberNeon      LayoutFrame = "CyberNeon"
	LayoutRoyalSignature LayoutFrame = "RoyalSignature"
	LayoutGalleryEdge    LayoutFrame = "GalleryEdge"
)

// TextFrame decorates only the text block.
type TextFrame string

const (
	TextFrameNone        TextFrame = "None"
	TextFrameBracket     TextFrame = "Bracket"
	TextFrameGlass       TextFrame = "Glass"
	TextFrameUnderline   TextFrame = "Underline"
	TextFrameDoubleLine  TextFrame = "DoubleLine"
	TextFrameSoftGlow    TextFrame = "SoftGlow"
	TextFrameVerticalBar TextFrame = "VerticalBar"
)

var layoutFrameLabels = map[LayoutFrame]string{
	LayoutNone:           "프레임 없음",
	LayoutFullGold:       "가장자리 골드",
	LayoutOrnateAntique:  "화려한 앤티크",
	LayoutModernMinimal:  "모던 엣지",
	LayoutDeepWood:       "중후한 원목",
	LayoutCyberNeon:      "네온 글로우",
	LayoutRoyalSignature: "왕실 문장",
	LayoutGalleryEdge:    "갤러리 화이트",
}

var textFrameLabels = map[TextFrame]string{
	TextFrameNone:        "문구 프레임 없음",
	TextFrameBracket:     "장식형 대괄호",
	TextFrameGlass:       "하이엔드 글래스",
	TextFrameUnderline:   "강조 언더라인",
	TextFrameDoubleLine:  "더블 라인",
	TextFrameSoftGlow:    "은은한 빛 확산",
	TextFrameVerticalBar: "리더십 수직 바",
}

func AllLayoutFrames() []LayoutFrame {
	return []LayoutFrame{
		LayoutNone, LayoutFullGold, LayoutOrnateAntique, LayoutModernMinimal,
		LayoutDeepWood, LayoutCyberNeon, LayoutRoyalSignature, LayoutGalleryEdge,
	}
}

func AllTextFrames() []TextFrame {
	return []TextFrame{
		TextFrameNone, TextFrameBracket, TextFrameGlass, TextFrameUnderline,
		TextFrameDoubleLine, TextFrameSoftGlow, TextFrameVerticalBar,
	}
}

// ParseLayoutFrame matches case-insensitively; an empty value means None.
func ParseLayoutFrame(value string) (LayoutFrame, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return LayoutNone, nil
	}
	for _, f := range AllLayoutFrames() {
		if strings.EqualFold(string(f), value) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown layout frame %q", value)
}

func ParseTextFrame(value string) (TextFrame, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return TextFrameNone, nil
	}
	for _, f := range AllTextFrames() {
		if strings.EqualFold(string(f), value) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown text frame %q", value)
}

func (f LayoutFrame) Label() string { return layoutFrameLabels[f] }
func (f TextFrame) Label() string   { return textFrameLabels[f] }

// Anchor positions a decoration inside the card.
type Anchor int

const (
	AnchorFill Anchor = iota
	AnchorTopLeft
	AnchorBottomRight
	AnchorTopCenter
	AnchorBottomCenter
)

// Sides holds per-edge pixel widths.
type Sides struct {
	Top, Right, Bottom, Left float64
}

func Uniform(w float64) Sides { return Sides{Top: w, Right: w, Bottom: w, Left: w} }

func (s Sides) IsZero() bool { return s == Sides{} }

type BoxShadow struct {
	X, Y, Blur, Spread float64
	Color              string
	Inset              bool
}

// Decoration is one border element of a layout frame, in CSS pixels of the
// 600px-wide reference card.
type Decoration struct {
	Name        string
	Anchor      Anchor
	Inset       float64 // AnchorFill only
	Width       float64 // anchored decorations only
	Height      float64
	Border      Sides
	BorderColor string
	Opacity     float64
	Shadows     []BoxShadow
	Z           int
}

const (
	zFrame    = 30
	zOrnament = 40

	whiteHairline = "rgba(255,255,255,0.2)"
	whiteFaint    = "rgba(255,255,255,0.1)"
	deepWoodColor = "#2d1b10"
	galleryWhite  = "#ffffff"
)

// LayoutDecorations returns the fixed geometry of a layout frame. Only the
// color is configurable; DeepWood and GalleryEdge ignore it.
func LayoutDecorations(frame LayoutFrame, color string) []Decoration {
	switch frame {
	case LayoutFullGold:
		return fullGold(color)
	case LayoutOrnateAntique:
		return ornateAntique(color)
	case LayoutModernMinimal:
		return modernMinimal(color)
	case LayoutDeepWood:
		return deepWood()
	case LayoutCyberNeon:
		return cyberNeon(color)
	case LayoutRoyalSignature:
		return royalSignature(color)
	case LayoutGalleryEdge:
		return galleryEdge()
	default:
		return nil
	}
}

func fullGold(color string) []Decoration {
	return []Decoration{
		{Name: "border", Anchor: AnchorFill, Border: Uniform(16), BorderColor: color, Opacity: 0.9, Z: zFrame},
		{Name: "hairline", Anchor: AnchorFill, Inset: 8, Border: Uniform(1), BorderColor: whiteHairline, Opacity: 1, Z: zFrame},
		{Name: "corner-top-left", Anchor: AnchorTopLeft, Width: 128, Height: 128, Border: Sides{Top: 8, Left: 8}, BorderColor: color, Opacity: 1, Z: zOrnament},
		{Name: "corner-bottom-right", Anchor: AnchorBottomRight, Width: 128, Height: 128, Border: Sides{Bottom: 8, Right: 8}, BorderColor: color, Opacity: 1, Z: zOrnament},
	}
}

func ornateAntique(color string) []Decoration {
	return []Decoration{
		{
			Name: "border", Anchor: AnchorFill, Border: Uniform(40), BorderColor: color, Opacity: 1, Z: zFrame,
			Shadows: []BoxShadow{{Blur: 80, Color: "rgba(0,0,0,0.9)", Inset: true}},
		},
		{Name: "inner-hairline", Anchor: AnchorFill, Inset: 40, Border: Uniform(2), BorderColor: whiteFaint, Opacity: 1, Z: zFrame},
	}
}

func modernMinimal(color string) []Decoration {
	return []Decoration{
		{Name: "border", Anchor: AnchorFill, Border: Uniform(2), BorderColor: color, Opacity: 0.7, Z: zFrame},
	}
}

func deepWood() []Decoration {
	return []Decoration{
		{
			Name: "border", Anchor: AnchorFill, Border: Uniform(35), BorderColor: deepWoodColor, Opacity: 1, Z: zFrame,
			Shadows: []BoxShadow{{Blur: 100, Color: "rgba(0,0,0,0.8)", Inset: true}},
		},
	}
}

func cyberNeon(color string) []Decoration {
	return []Decoration{
		{
			Name: "border", Anchor: AnchorFill, Border: Uniform(3), BorderColor: color, Opacity: 1, Z: zFrame,
			Shadows: []BoxShadow{
				{Blur: 20, Color: color},
				{Blur: 20, Color: color, Inset: true},
			},
		},
	}
}

func royalSignature(color string) []Decoration {
	return []Decoration{
		{Name: "hairline", Anchor: AnchorFill, Border: Uniform(1), BorderColor: whiteHairline, Opacity: 1, Z: zFrame},
		{Name: "crest-top", Anchor: AnchorTopCenter, Width: 192, Height: 32, Border: Sides{Bottom: 2}, BorderColor: color, Opacity: 1, Z: zOrnament},
		{Name: "crest-bottom", Anchor: AnchorBottomCenter, Width: 192, Height: 32, Border: Sides{Top: 2}, BorderColor: color, Opacity: 1, Z: zOrnament},
	}
}

func galleryEdge() []Decoration {
	return []Decoration{
		{
			Name: "border", Anchor: AnchorFill, Border: Uniform(60), BorderColor: galleryWhite, Opacity: 1, Z: zFrame,
			Shadows: []BoxShadow{{Y: 25, Blur: 50, Spread: -12, Color: "rgba(0,0,0,0.25)"}},
		},
	}
}

// Bracket describes the two side brackets drawn around a Bracket text frame.
type Bracket struct {
	Width  float64
	Offset float64 // distance outside the text box
	Stroke float64
}

// TextTreatment is the padding/border/fill applied around the message only.
type TextTreatment struct {
	Frame        TextFrame
	Padding      Sides
	Border       Sides
	BorderColor  string
	Fill         string
	Radius       float64
	BackdropBlur float64
	Shadows      []BoxShadow
	Opacity      float64
	Bracket      *Bracket
}

// TextTreatmentFor returns the fixed treatment for a text frame. Every border
// takes the frame color.
func TextTreatmentFor(frame TextFrame, color string) TextTreatment {
	t := TextTreatment{Frame: TextFrameNone, Opacity: 1, BorderColor: color}

	switch frame {
	case TextFrameBracket:
		t.Frame = frame
		t.Padding = Sides{Top: 16, Bottom: 16, Left: 64, Right: 64}
		t.Bracket = &Bracket{Width: 32, Offset: 48, Stroke: 4}
	case TextFrameGlass:
		t.Frame = frame
		t.Padding = Sides{Top: 48, Bottom: 48, Left: 56, Right: 56}
		t.Border = Uniform(1)
		t.Fill = "rgba(255,255,255,0.05)"
		t.Radius = 50
		t.BackdropBlur = 40
		t.Shadows = []BoxShadow{{Y: 40, Blur: 80, Color: "rgba(0,0,0,0.4)"}}
	case TextFrameUnderline:
		t.Frame = frame
		t.Padding = Sides{Bottom: 32}
		t.Border = Sides{Bottom: 4}
	case TextFrameDoubleLine:
		t.Frame = frame
		t.Padding = Sides{Top: 48, Bottom: 48}
		t.Border = Sides{Top: 1, Bottom: 1}
		t.Opacity = 0.9
	case TextFrameSoftGlow:
		t.Frame = frame
		t.Padding = Uniform(56)
		t.Fill = "rgba(0,0,0,0.2)"
		t.Radius = 60
		t.BackdropBlur = 12
		t.Shadows = []BoxShadow{{Blur: 120, Color: "rgba(0,0,0,0.6)"}}
	case TextFrameVerticalBar:
		t.Frame = frame
		t.Padding = Sides{Left: 48}
		t.Border = Sides{Left: 8}
	}

	return t
}
