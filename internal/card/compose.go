package card

import "strings"

// ReferenceWidth is the CSS width of the card every pixel constant refers to.
const ReferenceWidth = 600

const (
	baseColor    = "#010206"
	TextureURL   = "https://www.transparenttextures.com/patterns/natural-paper.png"
	textureAlpha = 0.05
)

// LayerKind names the composition layers, back to front.
type LayerKind string

const (
	LayerBackground  LayerKind = "background"
	LayerOverlay     LayerKind = "overlay"
	LayerGradient    LayerKind = "gradient"
	LayerLayoutFrame LayerKind = "layout-frame"
	LayerTextFrame   LayerKind = "text-frame"
	LayerText        LayerKind = "text"
	LayerSignature   LayerKind = "signature"
	LayerTexture     LayerKind = "texture"
)

// Overlay is the flat darkening layer over a background asset.
type Overlay struct {
	Color   string
	Opacity float64
}

// GradientStop is a color at a position in [0, 1] along the gradient axis.
type GradientStop struct {
	Color    string
	Position float64
}

// Gradient runs from the bottom-left corner towards the top-right corner.
type Gradient struct {
	Angle float64 // degrees, CSS convention
	Stops []GradientStop
}

// TextBlock is the message with its typography and frame treatment.
type TextBlock struct {
	Message   string
	Profile   Profile
	Treatment TextTreatment
}

// Signature is the sender block under the message.
type Signature struct {
	Name           string
	DividerWidth   float64
	DividerHeight  float64
	DividerColor   string
	DividerOpacity float64
	FontSize       float64
	FontWeight     int
	Tracking       float64 // em
	Uppercase      bool
	Shadow         string
	Gap            float64 // px between message and signature
}

// Texture is the decorative paper grain on top of everything.
type Texture struct {
	URL     string
	Opacity float64
}

// Composition is a fully laid out card. It is pure data; renderers decide
// how to draw it.
type Composition struct {
	Ratio       AspectRatio
	BaseColor   string
	Background  Background
	Overlay     *Overlay
	Gradient    *Gradient
	LayoutFrame LayoutFrame
	Decorations []Decoration
	Text        TextBlock
	Signature   *Signature
	Texture     Texture
}

// Request is the input of Compose.
type Request struct {
	Message string
	Sender  string
	Ratio   AspectRatio
	Profile Profile
	Visual  VisualState
}

// Compose lays out the card. It never fails: an empty visual state yields a
// text-only card.
func Compose(req Request) Composition {
	ratio := req.Ratio
	if _, err := ParseAspectRatio(string(ratio)); err != nil {
		ratio = RatioSquare
	}

	visual := req.Visual
	comp := Composition{
		Ratio:       ratio,
		BaseColor:   baseColor,
		Background:  visual.Background,
		LayoutFrame: LayoutNone,
		Text: TextBlock{
			Message:   req.Message,
			Profile:   req.Profile,
			Treatment: TextTreatmentFor(visual.TextFrame, visual.FrameColor),
		},
		Texture: Texture{URL: TextureURL, Opacity: textureAlpha},
	}

	if visual.Background.IsSet() {
		comp.Overlay = &Overlay{Color: "#000000", Opacity: clamp01(visual.OverlayOpacity)}
		comp.Gradient = &Gradient{
			Angle: 45,
			Stops: []GradientStop{
				{Color: "rgba(0,0,0,0.5)", Position: 0},
				{Color: "rgba(0,0,0,0)", Position: 0.5},
				{Color: "rgba(0,0,0,0.4)", Position: 1},
			},
		}
	}

	if decorations := LayoutDecorations(visual.LayoutFrame, visual.FrameColor); len(decorations) > 0 {
		comp.LayoutFrame = visual.LayoutFrame
		comp.Decorations = decorations
	}

	if name := strings.TrimSpace(req.Sender); name != "" {
		comp.Signature = &Signature{
			Name:           name,
			DividerWidth:   64,
			DividerHeight:  2,
			DividerColor:   visual.FrameColor,
			DividerOpacity: 0.3,
			FontSize:       14,
			FontWeight:     WeightBold,
			Tracking:       1.3,
			Uppercase:      true,
			Shadow:         req.Profile.TextShadow(),
			Gap:            48,
		}
	}

	return comp
}

// Layers lists the layers actually present, back to front.
func (c Composition) Layers() []LayerKind {
	var out []LayerKind
	if c.Background.IsSet() {
		out = append(out, LayerBackground)
	}
	if c.Overlay != nil {
		out = append(out, LayerOverlay)
	}
	if c.Gradient != nil {
		out = append(out, LayerGradient)
	}
	if len(c.Decorations) > 0 {
		out = append(out, LayerLayoutFrame)
	}
	if c.Text.Treatment.Frame != TextFrameNone {
		out = append(out, LayerTextFrame)
	}
	out = append(out, LayerText)
	if c.Signature != nil {
		out = append(out, LayerSignature)
	}
	return append(out, LayerTexture)
}
