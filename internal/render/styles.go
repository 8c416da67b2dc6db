package render

import (
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"

	"signature-card-studio/internal/card"
)

// css joins declarations into a style attribute value.
type css []string

func (c *css) add(prop, value string) {
	if value == "" {
		return
	}
	*c = append(*c, prop+":"+value)
}

func (c css) value() template.CSS {
	return template.CSS(strings.Join(c, ";"))
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sides(s card.Sides) string {
	return fmt.Sprintf("%s %s %s %s", px(s.Top), px(s.Right), px(s.Bottom), px(s.Left))
}

func boxShadows(shadows []card.BoxShadow) string {
	if len(shadows) == 0 {
		return ""
	}
	parts := make([]string, 0, len(shadows))
	for _, s := range shadows {
		v := fmt.Sprintf("%s %s %s %s %s", px(s.X), px(s.Y), px(s.Blur), px(s.Spread), s.Color)
		if s.Inset {
			v = "inset " + v
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, ", ")
}

func containerStyle(c card.Composition) template.CSS {
	var s css
	s.add("position", "relative")
	s.add("width", "100%")
	s.add("max-width", px(card.ReferenceWidth))
	s.add("aspect-ratio", c.Ratio.CSSValue())
	s.add("overflow", "hidden")
	s.add("background-color", c.BaseColor)
	return s.value()
}

func mediaStyle() template.CSS {
	var s css
	s.add("position", "absolute")
	s.add("inset", "0")
	s.add("width", "100%")
	s.add("height", "100%")
	s.add("object-fit", "cover")
	s.add("object-position", "center")
	s.add("z-index", "0")
	return s.value()
}

func overlayStyle(o *card.Overlay) template.CSS {
	var s css
	s.add("position", "absolute")
	s.add("inset", "0")
	s.add("background-color", o.Color)
	s.add("opacity", num(o.Opacity))
	s.add("z-index", "10")
	s.add("pointer-events", "none")
	return s.value()
}

func gradientStyle(g *card.Gradient) template.CSS {
	stops := make([]string, 0, len(g.Stops))
	for _, st := range g.Stops {
		stops = append(stops, fmt.Sprintf("%s %s%%", st.Color, num(st.Position*100)))
	}
	var s css
	s.add("position", "absolute")
	s.add("inset", "0")
	s.add("background-image", fmt.Sprintf("linear-gradient(%sdeg, %s)", num(g.Angle), strings.Join(stops, ", ")))
	s.add("z-index", "11")
	s.add("pointer-events", "none")
	return s.value()
}

func decorationStyle(d card.Decoration) template.CSS {
	var s css
	s.add("position", "absolute")
	switch d.Anchor {
	case card.AnchorFill:
		s.add("inset", px(d.Inset))
	case card.AnchorTopLeft:
		s.add("top", "0")
		s.add("left", "0")
	case card.AnchorBottomRight:
		s.add("bottom", "0")
		s.add("right", "0")
	case card.AnchorTopCenter:
		s.add("top", "0")
		s.add("left", "50%")
		s.add("transform", "translateX(-50%)")
	case card.AnchorBottomCenter:
		s.add("bottom", "0")
		s.add("left", "50%")
		s.add("transform", "translateX(-50%)")
	}
	if d.Anchor != card.AnchorFill {
		s.add("width", px(d.Width))
		s.add("height", px(d.Height))
	}
	s.add("box-sizing", "border-box")
	s.add("border-style", "solid")
	s.add("border-width", sides(d.Border))
	s.add("border-color", d.BorderColor)
	s.add("opacity", num(d.Opacity))
	s.add("box-shadow", boxShadows(d.Shadows))
	s.add("z-index", strconv.Itoa(d.Z))
	s.add("pointer-events", "none")
	return s.value()
}

func textLayerStyle(p card.Profile) template.CSS {
	var s css
	s.add("position", "relative")
	s.add("z-index", "20")
	s.add("width", "100%")
	s.add("height", "100%")
	s.add("box-sizing", "border-box")
	s.add("display", "flex")
	s.add("flex-direction", "column")
	s.add("justify-content", "center")
	s.add("align-items", p.CrossAxis)
	s.add("padding", p.Padding.CSS())
	return s.value()
}

func textFrameStyle(t card.TextTreatment) template.CSS {
	var s css
	s.add("position", "relative")
	s.add("box-sizing", "border-box")
	if !t.Padding.IsZero() {
		s.add("padding", sides(t.Padding))
	}
	if !t.Border.IsZero() {
		s.add("border-style", "solid")
		s.add("border-width", sides(t.Border))
		s.add("border-color", t.BorderColor)
	}
	s.add("background-color", t.Fill)
	if t.Radius > 0 {
		s.add("border-radius", px(t.Radius))
	}
	if t.BackdropBlur > 0 {
		s.add("backdrop-filter", "blur("+px(t.BackdropBlur)+")")
	}
	s.add("box-shadow", boxShadows(t.Shadows))
	if t.Opacity != 1 {
		s.add("opacity", num(t.Opacity))
	}
	return s.value()
}

func bracketStyle(b *card.Bracket, color string, left bool) template.CSS {
	var s css
	s.add("position", "absolute")
	s.add("top", "0")
	s.add("bottom", "0")
	s.add("width", px(b.Width))
	if left {
		s.add("left", px(-b.Offset))
		s.add("border-left", px(b.Stroke)+" solid "+color)
	} else {
		s.add("right", px(-b.Offset))
		s.add("border-right", px(b.Stroke)+" solid "+color)
	}
	s.add("border-top", px(b.Stroke)+" solid "+color)
	s.add("border-bottom", px(b.Stroke)+" solid "+color)
	return s.value()
}

func messageStyle(p card.Profile) template.CSS {
	var s css
	s.add("margin", "0")
	s.add("font-family", p.FontFamily)
	s.add("font-size", p.FontSizeCSS())
	s.add("font-weight", strconv.Itoa(p.FontWeight))
	s.add("font-style", p.FontStyle())
	s.add("line-height", p.LineHeightCSS())
	s.add("letter-spacing", p.LetterSpacingCSS())
	s.add("text-align", string(p.Align))
	s.add("color", p.Color)
	s.add("opacity", num(p.Opacity))
	s.add("text-shadow", p.TextShadow())
	s.add("white-space", "pre-wrap")
	s.add("word-break", "keep-all")
	return s.value()
}

func signatureStyle(sig *card.Signature, p card.Profile) template.CSS {
	var s css
	s.add("display", "flex")
	s.add("flex-direction", "column")
	s.add("align-items", p.CrossAxis)
	s.add("margin-top", px(sig.Gap))
	return s.value()
}

func dividerStyle(sig *card.Signature) template.CSS {
	var s css
	s.add("width", px(sig.DividerWidth))
	s.add("height", px(sig.DividerHeight))
	s.add("background-color", sig.DividerColor)
	s.add("opacity", num(sig.DividerOpacity))
	s.add("margin-bottom", "16px")
	return s.value()
}

func senderStyle(sig *card.Signature, p card.Profile) template.CSS {
	var s css
	s.add("font-family", p.FontFamily)
	s.add("font-size", px(sig.FontSize))
	s.add("font-weight", strconv.Itoa(sig.FontWeight))
	s.add("letter-spacing", num(sig.Tracking)+"em")
	if sig.Uppercase {
		s.add("text-transform", "uppercase")
	}
	s.add("color", p.Color)
	s.add("text-shadow", sig.Shadow)
	return s.value()
}

func textureStyle(t card.Texture) template.CSS {
	var s css
	s.add("position", "absolute")
	s.add("inset", "0")
	s.add("background-image", "url('"+t.URL+"')")
	s.add("opacity", num(t.Opacity))
	s.add("z-index", "50")
	s.add("pointer-events", "none")
	return s.value()
}

// assetURL lets generated data URLs through html/template's URL filter, which
// would otherwise replace them. Anything else must be http(s).
func assetURL(raw string) template.URL {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "data:image/") || strings.HasPrefix(lower, "data:video/") {
		return template.URL(raw)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return template.URL("about:blank")
	}
	return template.URL(u.String())
}

// FontHref returns the web font stylesheet for a CSS font-family value, or ""
// for generic families.
func FontHref(family string) string {
	first := strings.TrimSpace(strings.Split(family, ",")[0])
	name := strings.Trim(first, `'"`)
	switch strings.ToLower(name) {
	case "", "serif", "sans-serif", "cursive", "monospace", "system-ui":
		return ""
	}
	return "https://fonts.googleapis.com/css2?family=" + url.QueryEscape(name) + ":wght@400;900&display=swap"
}
