package render

import (
	"bytes"
	"html"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-card-studio/internal/card"
)

func compose(t *testing.T, mutate func(*card.Request)) card.Composition {
	t.Helper()
	msg := "늘 감사합니다\n함께해서 든든합니다"
	req := card.Request{
		Message: msg,
		Sender:  "Hong",
		Ratio:   card.RatioLandscape,
		Profile: card.ResolveText(msg, card.DefaultScales(), card.DefaultAppearance()),
		Visual:  card.DefaultVisualState(),
	}
	if mutate != nil {
		mutate(&req)
	}
	return card.Compose(req)
}

func renderCard(t *testing.T, comp card.Composition) string {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, r.RenderCard(&buf, comp))
	return buf.String()
}

func TestRenderCardStructure(t *testing.T) {
	out := renderCard(t, compose(t, nil))

	assert.Contains(t, out, `id="card-to-save"`)
	assert.Contains(t, out, "aspect-ratio:4 / 3")
	assert.Contains(t, out, "font-size:42px")
	assert.Contains(t, out, "letter-spacing:0.08em")
	assert.Contains(t, out, "align-items:center")
	assert.Contains(t, out, "padding:24% 15%")
	assert.Contains(t, out, "text-shadow:0 12px 26.4px rgba(0,0,0,0.9)")
	assert.Contains(t, out, "늘 감사합니다\n함께해서 든든합니다")
	assert.Contains(t, out, `class="signature-name"`)
	assert.Contains(t, out, "text-transform:uppercase")
	assert.Contains(t, out, "frame-corner-top-left")
	assert.NotContains(t, out, "card-overlay")
	assert.NotContains(t, out, "<img")
}

func TestRenderCardVideoBackground(t *testing.T) {
	out := renderCard(t, compose(t, func(r *card.Request) {
		r.Visual.SetBackgroundVideo("https://files.example/clip.mp4?alt=media&key=k")
	}))

	assert.Contains(t, out, "<video")
	assert.Contains(t, out, "autoplay loop muted playsinline")
	assert.NotContains(t, out, "controls")
	assert.Contains(t, out, "card-overlay")
	assert.Contains(t, out, "card-gradient")
	assert.Contains(t, out, "linear-gradient(45deg, rgba(0,0,0,0.5) 0%, rgba(0,0,0,0) 50%, rgba(0,0,0,0.4) 100%)")
}

func TestRenderCardKeepsDataURL(t *testing.T) {
	out := renderCard(t, compose(t, func(r *card.Request) {
		r.Visual.SetBackgroundImage("data:image/png;base64,iVBORw0KGgo=")
	}))
	assert.Contains(t, out, `src="data:image/png;base64,iVBORw0KGgo="`)
	assert.NotContains(t, out, "ZgotmplZ")
}

func TestRenderCardRejectsScriptURL(t *testing.T) {
	out := renderCard(t, compose(t, func(r *card.Request) {
		r.Visual.SetBackgroundImage("javascript:alert(1)")
	}))
	assert.Contains(t, out, `src="about:blank"`)
}

func TestRenderCardEscapesMessage(t *testing.T) {
	out := renderCard(t, compose(t, func(r *card.Request) {
		r.Message = "<script>alert(1)</script>"
		r.Sender = ""
	}))
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "signature")
}

func TestRenderCardTextFrames(t *testing.T) {
	out := renderCard(t, compose(t, func(r *card.Request) {
		r.Visual.LayoutFrame = card.LayoutNone
		r.Visual.TextFrame = card.TextFrameBracket
	}))
	assert.NotContains(t, out, `class="frame `)
	assert.Contains(t, out, "bracket-left")
	assert.Contains(t, out, "left:-48px")

	out = renderCard(t, compose(t, func(r *card.Request) {
		r.Visual.TextFrame = card.TextFrameGlass
	}))
	assert.Contains(t, out, "backdrop-filter:blur(40px)")
	assert.Contains(t, out, "border-radius:50px")
	assert.NotContains(t, out, "bracket")
}

func TestRenderPage(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.RenderPage(&buf, "Signature Card", compose(t, nil)))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<!doctype html>"))
	assert.Contains(t, out, "<title>Signature Card</title>")
	assert.Contains(t, out, `family=Noto&#43;Sans&#43;KR`)
	assert.Contains(t, html.UnescapeString(out), `href="https://fonts.googleapis.com/css2?family=Noto+Sans+KR:wght@400;900&display=swap"`)
	assert.Contains(t, out, `id="card-to-save"`)
}

func TestFontHref(t *testing.T) {
	assert.Equal(t, "https://fonts.googleapis.com/css2?family=Cinzel:wght@400;900&display=swap", FontHref("'Cinzel', serif"))
	assert.Empty(t, FontHref("sans-serif"))
	assert.Empty(t, FontHref(""))
}
