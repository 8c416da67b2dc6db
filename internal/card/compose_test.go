package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(visual VisualState) Request {
	return Request{
		Message: "새해 복 많이 받으세요",
		Sender:  "홍길동",
		Ratio:   RatioSquare,
		Profile: ResolveText("새해 복 많이 받으세요", DefaultScales(), DefaultAppearance()),
		Visual:  visual,
	}
}

func TestComposeWithoutFrames(t *testing.T) {
	v := DefaultVisualState()
	v.LayoutFrame = LayoutNone
	v.TextFrame = TextFrameNone
	v.SetBackgroundImage("https://example.com/bg.png")

	req := newRequest(v)
	req.Sender = ""
	comp := Compose(req)

	assert.Empty(t, comp.Decorations)
	assert.Equal(t, LayoutNone, comp.LayoutFrame)
	assert.Equal(t, []LayerKind{LayerBackground, LayerOverlay, LayerGradient, LayerText, LayerTexture}, comp.Layers())
}

func TestComposeWithoutSender(t *testing.T) {
	req := newRequest(DefaultVisualState())
	req.Sender = "   "
	comp := Compose(req)

	assert.Nil(t, comp.Signature)
	assert.NotContains(t, comp.Layers(), LayerSignature)
}

func TestComposeSignature(t *testing.T) {
	comp := Compose(newRequest(DefaultVisualState()))
	require.NotNil(t, comp.Signature)
	assert.Equal(t, "홍길동", comp.Signature.Name)
	assert.Equal(t, "#f59e0b", comp.Signature.DividerColor)
	assert.Equal(t, comp.Text.Profile.TextShadow(), comp.Signature.Shadow)
	assert.True(t, comp.Signature.Uppercase)
}

func TestComposeAllEmptyState(t *testing.T) {
	comp := Compose(Request{})

	assert.Equal(t, RatioSquare, comp.Ratio)
	assert.Nil(t, comp.Overlay)
	assert.Nil(t, comp.Gradient)
	assert.Nil(t, comp.Signature)
	assert.Empty(t, comp.Decorations)
	assert.Equal(t, []LayerKind{LayerText, LayerTexture}, comp.Layers())
}

func TestComposeOverlayFollowsOpacity(t *testing.T) {
	v := DefaultVisualState()
	v.SetBackgroundVideo("https://example.com/clip.mp4")
	v.SetOverlayOpacity(0.2)

	comp := Compose(newRequest(v))
	require.NotNil(t, comp.Overlay)
	assert.Equal(t, 0.2, comp.Overlay.Opacity)
	assert.Equal(t, BackgroundVideo, comp.Background.Kind())
}

func TestEveryLayoutFrameHasDistinctGeometry(t *testing.T) {
	seen := map[string]LayoutFrame{}
	for _, f := range AllLayoutFrames() {
		decorations := LayoutDecorations(f, "#123456")
		if f == LayoutNone {
			assert.Empty(t, decorations)
			continue
		}
		require.NotEmpty(t, decorations, "frame %s", f)
		key := ""
		for _, d := range decorations {
			key += d.Name + ":" + formatNumber(d.Border.Top) + ":" + formatNumber(d.Inset) + ";"
		}
		if other, dup := seen[key]; dup {
			t.Fatalf("frames %s and %s share geometry", f, other)
		}
		seen[key] = f
		assert.NotEmpty(t, f.Label())
	}
}

func TestFrameColorApplies(t *testing.T) {
	d := LayoutDecorations(LayoutModernMinimal, "#abcdef")
	require.Len(t, d, 1)
	assert.Equal(t, "#abcdef", d[0].BorderColor)

	// Wood and gallery frames have their own material color.
	assert.Equal(t, deepWoodColor, LayoutDecorations(LayoutDeepWood, "#abcdef")[0].BorderColor)
	assert.Equal(t, galleryWhite, LayoutDecorations(LayoutGalleryEdge, "#abcdef")[0].BorderColor)
}

func TestTextTreatments(t *testing.T) {
	none := TextTreatmentFor(TextFrameNone, "#fff")
	assert.True(t, none.Padding.IsZero())
	assert.True(t, none.Border.IsZero())
	assert.Nil(t, none.Bracket)

	bracket := TextTreatmentFor(TextFrameBracket, "#fff")
	require.NotNil(t, bracket.Bracket)
	assert.Equal(t, 48.0, bracket.Bracket.Offset)

	bar := TextTreatmentFor(TextFrameVerticalBar, "#fff")
	assert.Equal(t, Sides{Left: 8}, bar.Border)
	assert.Equal(t, "#fff", bar.BorderColor)

	for _, f := range AllTextFrames() {
		assert.Equal(t, f, TextTreatmentFor(f, "#fff").Frame)
	}
}

func TestParseFrames(t *testing.T) {
	f, err := ParseLayoutFrame("cyberneon")
	require.NoError(t, err)
	assert.Equal(t, LayoutCyberNeon, f)

	f, err = ParseLayoutFrame("")
	require.NoError(t, err)
	assert.Equal(t, LayoutNone, f)

	_, err = ParseLayoutFrame("Rainbow")
	assert.Error(t, err)

	tf, err := ParseTextFrame("GLASS")
	require.NoError(t, err)
	assert.Equal(t, TextFrameGlass, tf)
}
