package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-card-studio/internal/card"
	"signature-card-studio/internal/config"
)

type stubFetcher struct {
	img  image.Image
	err  error
	urls []string
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (image.Image, error) {
	f.urls = append(f.urls, rawURL)
	return f.img, f.err
}

func newRasterizer(t *testing.T, fetcher AssetFetcher) *Rasterizer {
	t.Helper()
	r, err := NewRasterizer(RasterOptions{Fetcher: fetcher})
	require.NoError(t, err)
	return r
}

func compose(message, sender string, ratio card.AspectRatio, visual card.VisualState) card.Composition {
	return card.Compose(card.Request{
		Message: message,
		Sender:  sender,
		Ratio:   ratio,
		Profile: card.ResolveText(message, card.DefaultScales(), card.DefaultAppearance()),
		Visual:  visual,
	})
}

func TestRenderDimensionsFollowRatio(t *testing.T) {
	r := newRasterizer(t, nil)
	tests := []struct {
		ratio card.AspectRatio
		scale float64
		w, h  int
	}{
		{card.RatioSquare, 1, 600, 600},
		{card.RatioLandscape, 1, 600, 450},
		{card.RatioPortrait, 1, 600, 800},
		{card.RatioWide, 2, 1200, 675},
		{card.RatioTall, 1, 600, 1067},
	}
	for _, tt := range tests {
		img, err := r.Render(context.Background(), compose("Happy new year", "", tt.ratio, card.DefaultVisualState()), tt.scale)
		require.NoError(t, err, tt.ratio)
		assert.Equal(t, tt.w, img.Bounds().Dx(), tt.ratio)
		assert.Equal(t, tt.h, img.Bounds().Dy(), tt.ratio)
	}
}

func TestRenderRejectsScale(t *testing.T) {
	r := newRasterizer(t, nil)
	comp := compose("hi", "", card.RatioSquare, card.DefaultVisualState())
	_, err := r.Render(context.Background(), comp, 0.5)
	assert.Error(t, err)
	_, err = r.Render(context.Background(), comp, MaxScale+1)
	assert.Error(t, err)
}

func TestRenderDrawsText(t *testing.T) {
	r := newRasterizer(t, nil)
	v := card.DefaultVisualState()
	v.LayoutFrame = card.LayoutNone
	v.TextFrame = card.TextFrameNone

	img, err := r.Render(context.Background(), compose("WWWW", "Kim", card.RatioSquare, v), 1)
	require.NoError(t, err)
	assert.Greater(t, brightPixels(img), 50)
}

func brightPixels(img *image.NRGBA) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 200 && img.Pix[i+1] > 200 && img.Pix[i+2] > 200 {
			n++
		}
	}
	return n
}

func TestRenderZeroFontScaleKeepsSignature(t *testing.T) {
	r := newRasterizer(t, nil)
	v := card.DefaultVisualState()
	v.LayoutFrame = card.LayoutNone
	v.TextFrame = card.TextFrameNone

	scales := card.DefaultScales()
	scales.FontSize = 0
	build := func(sender string) card.Composition {
		return card.Compose(card.Request{
			Message: "WWWW",
			Sender:  sender,
			Ratio:   card.RatioSquare,
			Profile: card.ResolveText("WWWW", scales, card.DefaultAppearance()),
			Visual:  v,
		})
	}

	img, err := r.Render(context.Background(), build(""), 1)
	require.NoError(t, err)
	assert.Zero(t, brightPixels(img))

	img, err = r.Render(context.Background(), build("HONG"), 1)
	require.NoError(t, err)
	assert.Greater(t, brightPixels(img), 10)
}

func TestRenderPaintsBackground(t *testing.T) {
	red := imaging.New(10, 10, color.NRGBA{R: 255, A: 255})
	fetcher := &stubFetcher{img: red}
	r := newRasterizer(t, fetcher)

	v := card.DefaultVisualState()
	v.LayoutFrame = card.LayoutNone
	v.TextFrame = card.TextFrameNone
	v.SetBackgroundImage("https://example.com/bg.png")
	v.SetOverlayOpacity(0)

	img, err := r.Render(context.Background(), compose("", "", card.RatioSquare, v), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/bg.png"}, fetcher.urls)

	c := img.NRGBAAt(300, 300)
	assert.InDelta(t, 255, int(c.R), 3)
	assert.InDelta(t, 0, int(c.G), 3)
}

func TestRenderSurvivesMissingBackground(t *testing.T) {
	r := newRasterizer(t, &stubFetcher{err: errors.New("gone")})
	v := card.DefaultVisualState()
	v.SetBackgroundImage("https://example.com/bg.png")

	img, err := r.Render(context.Background(), compose("hello", "", card.RatioSquare, v), 1)
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())
}

func TestRenderStampsQRForVideo(t *testing.T) {
	r := newRasterizer(t, nil)
	v := card.DefaultVisualState()
	v.LayoutFrame = card.LayoutNone
	v.SetBackgroundVideo("https://example.com/clip.mp4?key=secret")

	img, err := r.Render(context.Background(), compose("hello", "", card.RatioSquare, v), 1)
	require.NoError(t, err)

	// The QR quiet zone is plain white.
	corner := img.NRGBAAt(600-qrMargin-qrSize+1, 600-qrMargin-qrSize+1)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, corner)
}

func TestShareableLinkDropsKey(t *testing.T) {
	assert.Equal(t, "https://example.com/v?alt=media", ShareableLink("https://example.com/v?alt=media&key=abc"))
	assert.Equal(t, "https://example.com/v", ShareableLink("https://example.com/v"))
}

func TestWrapKeepsWordsAndNewlines(t *testing.T) {
	fs, err := newFontSet(nil)
	require.NoError(t, err)
	face, err := fs.face(false, false, 20)
	require.NoError(t, err)
	defer face.Close()
	s := textStyle{face: face}

	lines := s.wrap("alpha beta\ngamma", 1000)
	assert.Equal(t, []string{"alpha beta", "gamma"}, lines)

	narrow := math.Max(s.measure("alpha"), math.Max(s.measure("beta"), s.measure("gamma"))) + 1
	require.Less(t, narrow, s.measure("alpha beta"))
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, s.wrap("alpha beta\ngamma", narrow))
}

func TestWrapSplitsOverlongWord(t *testing.T) {
	fs, err := newFontSet(nil)
	require.NoError(t, err)
	face, err := fs.face(false, false, 20)
	require.NoError(t, err)
	defer face.Close()
	s := textStyle{face: face}

	word := "abcdefghijklmnopqrstuvwxyz"
	require.Greater(t, s.measure(word), 60.0)

	lines := s.wrap("hi "+word, 60)
	require.Greater(t, len(lines), 2)
	assert.Equal(t, "hi", lines[0])
	assert.Equal(t, word, strings.Join(lines[1:], ""))
	for _, line := range lines {
		assert.LessOrEqual(t, s.measure(line), 60.0)
	}
}

func TestGoFontsLackHangul(t *testing.T) {
	ok, err := FontCovers(nil, 'A')
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = FontCovers(nil, HangulSample)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = FontCovers([]byte("not a font"), 'A')
	assert.Error(t, err)

	r := newRasterizer(t, nil)
	assert.True(t, r.SupportsRune('W'))
	assert.False(t, r.SupportsRune(HangulSample))

	_, err = NewRasterizer(RasterOptions{RequireHangul: true})
	assert.ErrorContains(t, err, "Hangul")
}

func TestKoreanFontCoversHangul(t *testing.T) {
	path := config.SystemFont()
	if path == "" {
		t.Skip("no Korean system font installed")
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	ok, err := FontCovers(data, HangulSample)
	require.NoError(t, err)
	assert.True(t, ok, path)

	r, err := NewRasterizer(RasterOptions{FontData: data, RequireHangul: true})
	require.NoError(t, err)
	assert.True(t, r.SupportsRune('한'))
}

func TestHTTPFetcherDecodesDataURL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, imaging.New(3, 2, color.White)))
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())

	img, err := NewHTTPFetcher(nil, "test").Fetch(context.Background(), dataURL)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	_, err = NewHTTPFetcher(nil, "").Fetch(context.Background(), "data:image/png,plain")
	assert.Error(t, err)
}
