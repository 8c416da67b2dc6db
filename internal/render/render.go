package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"signature-card-studio/internal/card"
)

//go:embed templates/*.html
var templateFS embed.FS

// ElementID is the DOM id of the card root, the region exported as an image.
const ElementID = "card-to-save"

type decorationView struct {
	Name  string
	Style template.CSS
}

type signatureView struct {
	Name      string
	Style     template.CSS
	Divider   template.CSS
	NameStyle template.CSS
}

type cardView struct {
	Ratio          string
	Container      template.CSS
	Media          template.CSS
	Image          template.URL
	Video          template.URL
	Overlay        template.CSS
	Gradient       template.CSS
	Decorations    []decorationView
	TextLayer      template.CSS
	TextFrame      string
	TextFrameStyle template.CSS
	Bracket        bool
	BracketLeft    template.CSS
	BracketRight   template.CSS
	Message        string
	MessageStyle   template.CSS
	Signature      *signatureView
	Texture        template.CSS
}

type pageView struct {
	Title    string
	FontHref string
	Card     cardView
}

// Renderer turns compositions into HTML.
type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("render").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// RenderCard writes the card fragment only.
func (r *Renderer) RenderCard(w io.Writer, comp card.Composition) error {
	return r.execute(w, "card", newCardView(comp))
}

// RenderPage writes a standalone HTML document containing the card.
func (r *Renderer) RenderPage(w io.Writer, title string, comp card.Composition) error {
	return r.execute(w, "page", pageView{
		Title:    title,
		FontHref: FontHref(comp.Text.Profile.FontFamily),
		Card:     newCardView(comp),
	})
}

func (r *Renderer) execute(w io.Writer, name string, data any) error {
	// Render to a buffer first so a template error never leaves half a card behind.
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func newCardView(c card.Composition) cardView {
	v := cardView{
		Ratio:          string(c.Ratio),
		Container:      containerStyle(c),
		Media:          mediaStyle(),
		TextLayer:      textLayerStyle(c.Text.Profile),
		TextFrame:      string(c.Text.Treatment.Frame),
		TextFrameStyle: textFrameStyle(c.Text.Treatment),
		Message:        c.Text.Message,
		MessageStyle:   messageStyle(c.Text.Profile),
		Texture:        textureStyle(c.Texture),
	}

	if u, ok := c.Background.Image(); ok {
		v.Image = assetURL(u)
	}
	if u, ok := c.Background.Video(); ok {
		v.Video = assetURL(u)
	}
	if c.Overlay != nil {
		v.Overlay = overlayStyle(c.Overlay)
	}
	if c.Gradient != nil {
		v.Gradient = gradientStyle(c.Gradient)
	}
	for _, d := range c.Decorations {
		v.Decorations = append(v.Decorations, decorationView{Name: d.Name, Style: decorationStyle(d)})
	}
	if b := c.Text.Treatment.Bracket; b != nil {
		v.Bracket = true
		v.BracketLeft = bracketStyle(b, c.Text.Treatment.BorderColor, true)
		v.BracketRight = bracketStyle(b, c.Text.Treatment.BorderColor, false)
	}
	if sig := c.Signature; sig != nil {
		v.Signature = &signatureView{
			Name:      sig.Name,
			Style:     signatureStyle(sig, c.Text.Profile),
			Divider:   dividerStyle(sig),
			NameStyle: senderStyle(sig, c.Text.Profile),
		}
	}
	return v
}
