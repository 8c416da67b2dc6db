package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"signature-card-studio/internal/card"
)

const (
	MaxScale = 8

	qrSize   = 96 // reference px
	qrMargin = 24
)

// RasterOptions configures a Rasterizer.
type RasterOptions struct {
	Fetcher  AssetFetcher
	Logger   *slog.Logger
	FontData []byte // optional TTF/OTF; needed for Hangul glyphs

	// RequireHangul makes NewRasterizer fail when the font cannot set Korean
	// text instead of only logging a warning.
	RequireHangul bool
}

// Rasterizer turns a composition into pixels.
type Rasterizer struct {
	fetcher AssetFetcher
	fonts   *fontSet
	logger  *slog.Logger
}

func NewRasterizer(opts RasterOptions) (*Rasterizer, error) {
	fonts, err := newFontSet(opts.FontData)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !fonts.covers(HangulSample) {
		if opts.RequireHangul {
			return nil, errors.New("export font has no Hangul glyphs")
		}
		logger.Warn("export font has no Hangul glyphs; Korean text will render as boxes", "hint", "set CARD_FONT_PATH to a Korean TTF/OTF")
	}
	return &Rasterizer{fetcher: opts.Fetcher, fonts: fonts, logger: logger}, nil
}

// SupportsRune reports whether the export font has a glyph for r.
func (r *Rasterizer) SupportsRune(c rune) bool {
	return r.fonts.covers(c)
}

// Render draws comp at scale times the 600px reference width. The paper
// texture and rounded corners are not reproduced. A video background is
// replaced by a QR code linking to the clip.
func (r *Rasterizer) Render(ctx context.Context, comp card.Composition, scale float64) (*image.NRGBA, error) {
	if scale < 1 || scale > MaxScale {
		return nil, fmt.Errorf("render: scale %v out of range [1, %d]", scale, MaxScale)
	}
	width := int(math.Round(card.ReferenceWidth * scale))
	height := comp.Ratio.HeightFor(width)
	if height <= 0 {
		height = width
	}

	var (
		background image.Image
		text       *textLayers
		qr         image.Image
	)

	g, gctx := errgroup.WithContext(ctx)
	if u, ok := comp.Background.Image(); ok && r.fetcher != nil {
		g.Go(func() error {
			img, err := r.fetcher.Fetch(gctx, u)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.logger.Warn("background unavailable, exporting without it", "error", err)
				return nil
			}
			background = imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
			return nil
		})
	}
	if u, ok := comp.Background.Video(); ok {
		g.Go(func() error {
			code, err := qrcode.New(ShareableLink(u), qrcode.Medium)
			if err != nil {
				return fmt.Errorf("video qr: %w", err)
			}
			qr = code.Image(int(math.Round(qrSize * scale)))
			return nil
		})
	}
	g.Go(func() error {
		layers, err := r.drawText(comp, scale, width, height)
		if err != nil {
			return err
		}
		text = layers
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	canvas := imaging.New(width, height, colorOr(comp.BaseColor, color.NRGBA{A: 0xff}))
	if background != nil {
		canvas = imaging.Paste(canvas, background, image.Pt(0, 0))
	}
	if comp.Overlay != nil {
		fillRect(canvas, canvas.Bounds(), withOpacity(colorOr(comp.Overlay.Color, color.NRGBA{A: 0xff}), comp.Overlay.Opacity))
	}
	drawGradient(canvas, comp.Gradient)

	decorations := append([]card.Decoration(nil), comp.Decorations...)
	sort.SliceStable(decorations, func(i, j int) bool { return decorations[i].Z < decorations[j].Z })
	for _, d := range decorations {
		drawDecoration(canvas, d, scale)
	}

	canvas = imaging.Overlay(canvas, text.frame, image.Pt(0, 0), 1)
	if text.shadow != nil {
		canvas = imaging.Overlay(canvas, text.shadow, text.shadowOffset, 1)
	}
	canvas = imaging.Overlay(canvas, text.glyphs, image.Pt(0, 0), 1)

	if qr != nil {
		margin := int(math.Round(qrMargin * scale))
		at := image.Pt(width-qr.Bounds().Dx()-margin, height-qr.Bounds().Dy()-margin)
		canvas = imaging.Paste(canvas, qr, at)
	}
	return canvas, nil
}

// ShareableLink drops the API key the download URL carries.
func ShareableLink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if !q.Has("key") {
		return raw
	}
	q.Del("key")
	u.RawQuery = q.Encode()
	return u.String()
}

func decorationRect(d card.Decoration, bounds image.Rectangle, scale float64) image.Rectangle {
	w, h := scaled(d.Width, scale), scaled(d.Height, scale)
	W, H := bounds.Dx(), bounds.Dy()
	switch d.Anchor {
	case card.AnchorTopLeft:
		return image.Rect(0, 0, w, h)
	case card.AnchorBottomRight:
		return image.Rect(W-w, H-h, W, H)
	case card.AnchorTopCenter:
		return image.Rect((W-w)/2, 0, (W-w)/2+w, h)
	case card.AnchorBottomCenter:
		return image.Rect((W-w)/2, H-h, (W-w)/2+w, H)
	default:
		return bounds.Inset(scaled(d.Inset, scale))
	}
}

func drawDecoration(dst *image.NRGBA, d card.Decoration, scale float64) {
	rect := decorationRect(d, dst.Bounds(), scale)
	if rect.Empty() {
		return
	}
	for _, sh := range d.Shadows {
		box := rect
		if sh.Inset {
			box = innerRect(rect, d.Border, scale)
		}
		drawBoxShadow(dst, box, withShadowOpacity(sh, d.Opacity), scale)
	}
	strokeSides(dst, rect, d.Border, scale, withOpacity(colorOr(d.BorderColor, color.NRGBA{A: 0xff}), d.Opacity))
}

func withShadowOpacity(sh card.BoxShadow, opacity float64) card.BoxShadow {
	if opacity >= 1 {
		return sh
	}
	c := withOpacity(colorOr(sh.Color, color.NRGBA{A: 0xff}), opacity)
	sh.Color = fmt.Sprintf("rgba(%d,%d,%d,%.3f)", c.R, c.G, c.B, float64(c.A)/255)
	return sh
}

// textLayers are the transparent layers holding the message block.
type textLayers struct {
	frame        *image.NRGBA
	glyphs       *image.NRGBA
	shadow       *image.NRGBA
	shadowOffset image.Point
}

func (r *Rasterizer) drawText(comp card.Composition, scale float64, width, height int) (*textLayers, error) {
	layers := &textLayers{
		frame:  image.NewNRGBA(image.Rect(0, 0, width, height)),
		glyphs: image.NewNRGBA(image.Rect(0, 0, width, height)),
	}

	p := comp.Text.Profile
	t := comp.Text.Treatment
	W, H := float64(width), float64(height)

	// CSS resolves percentage padding against the container width.
	padV := W * p.Padding.Vertical / 100
	padH := W * p.Padding.Horizontal / 100

	boxL := (t.Padding.Left + t.Border.Left) * scale
	boxR := (t.Padding.Right + t.Border.Right) * scale
	boxT := (t.Padding.Top + t.Border.Top) * scale
	boxB := (t.Padding.Bottom + t.Border.Bottom) * scale

	// A zero font scale hides the message block; the signature still draws.
	fontSize := p.FontSize * scale
	showMessage := fontSize >= 1
	var (
		style        textStyle
		lines        []string
		lineH, textW float64
		boxW, boxH   float64
	)
	if showMessage {
		face, err := r.fonts.face(p.FontWeight >= card.WeightBold, p.Italic, fontSize)
		if err != nil {
			return nil, err
		}
		defer face.Close()
		style = textStyle{face: face, tracking: p.LetterSpacing * fontSize}

		maxText := math.Max(W-2*padH-boxL-boxR, fontSize)
		lines = style.wrap(comp.Text.Message, maxText)
		lineH = fontSize * p.LineHeight

		for _, line := range lines {
			textW = math.Max(textW, style.measure(line))
		}
		boxW = textW + boxL + boxR
		boxH = float64(len(lines))*lineH + boxT + boxB
	}

	var sigStyle textStyle
	var sigH, sigFontSize float64
	sig := comp.Signature
	if sig != nil && sig.FontSize*scale >= 1 {
		sigFontSize = sig.FontSize * scale
		sigFace, err := r.fonts.face(sig.FontWeight >= card.WeightBold, false, sigFontSize)
		if err != nil {
			return nil, err
		}
		defer sigFace.Close()
		sigStyle = textStyle{face: sigFace, tracking: sig.Tracking * sigFontSize}
		sigH = (sig.Gap+sig.DividerHeight+16)*scale + sigFontSize*1.4
	}

	top := padV + (H-2*padV-(boxH+sigH))/2
	place := func(w float64) float64 {
		switch p.Align {
		case card.AlignLeft:
			return padH
		case card.AlignRight:
			return W - padH - w
		default:
			return (W - w) / 2
		}
	}

	box := image.Rect(
		int(math.Round(place(boxW))), int(math.Round(top)),
		int(math.Round(place(boxW)+boxW)), int(math.Round(top+boxH)),
	)
	if showMessage {
		r.drawTextFrame(layers.frame, box, t, scale)
	}

	textColor := withOpacity(colorOr(p.Color, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}), p.Opacity)
	contentX := float64(box.Min.X) + boxL
	for i, line := range lines {
		x := contentX
		switch p.Align {
		case card.AlignRight:
			x += textW - style.measure(line)
		case card.AlignLeft:
		default:
			x += (textW - style.measure(line)) / 2
		}
		y := float64(box.Min.Y) + boxT + float64(i)*lineH + style.baseline(lineH)
		style.draw(layers.glyphs, line, x, y, textColor)
	}

	if sig != nil && sigFontSize >= 1 {
		y := top + boxH + sig.Gap*scale
		divW := sig.DividerWidth * scale
		divX := place(divW)
		divider := image.Rect(int(math.Round(divX)), int(math.Round(y)), int(math.Round(divX+divW)), int(math.Round(y+sig.DividerHeight*scale)))
		fillRect(layers.frame, divider, withOpacity(colorOr(sig.DividerColor, textColor), sig.DividerOpacity))

		name := sig.Name
		if sig.Uppercase {
			name = strings.ToUpper(name)
		}
		nameW := sigStyle.measure(name)
		baseline := y + (sig.DividerHeight+16)*scale + sigStyle.baseline(sigFontSize*1.4)
		sigStyle.draw(layers.glyphs, name, place(nameW), baseline, textColor)
	}

	if p.ShadowIntensity > 0 || p.ShadowSpread > 0 {
		layers.shadow = textShadow(layers.glyphs, colorOr(p.ShadowColor, color.NRGBA{A: 0xff}), p.ShadowSpread, scale)
		layers.shadowOffset = image.Pt(0, scaled(p.ShadowIntensity, scale))
	}
	return layers, nil
}

func (r *Rasterizer) drawTextFrame(dst *image.NRGBA, box image.Rectangle, t card.TextTreatment, scale float64) {
	if t.Frame == card.TextFrameNone {
		return
	}
	for _, sh := range t.Shadows {
		drawBoxShadow(dst, box, sh, scale)
	}
	if t.Fill != "" {
		fillRect(dst, box, withOpacity(colorOr(t.Fill, color.NRGBA{}), t.Opacity))
	}
	border := withOpacity(colorOr(t.BorderColor, color.NRGBA{A: 0xff}), t.Opacity)
	strokeSides(dst, box, t.Border, scale, border)

	if b := t.Bracket; b != nil {
		w, off := scaled(b.Width, scale), scaled(b.Offset, scale)
		stroke := b.Stroke
		left := image.Rect(box.Min.X-off, box.Min.Y, box.Min.X-off+w, box.Max.Y)
		right := image.Rect(box.Max.X+off-w, box.Min.Y, box.Max.X+off, box.Max.Y)
		strokeSides(dst, left, card.Sides{Top: stroke, Bottom: stroke, Left: stroke}, scale, border)
		strokeSides(dst, right, card.Sides{Top: stroke, Bottom: stroke, Right: stroke}, scale, border)
	}
}

// textShadow tints the glyph layer and blurs it. The blur runs at the
// reference scale to keep its cost independent of the export scale.
func textShadow(glyphs *image.NRGBA, c color.NRGBA, spread, scale float64) *image.NRGBA {
	b := glyphs.Bounds()
	tinted := image.NewNRGBA(b)
	for i := 0; i < len(glyphs.Pix); i += 4 {
		a := glyphs.Pix[i+3]
		if a == 0 {
			continue
		}
		tinted.Pix[i+0] = c.R
		tinted.Pix[i+1] = c.G
		tinted.Pix[i+2] = c.B
		tinted.Pix[i+3] = uint8(uint16(a) * uint16(c.A) / 255)
	}
	if spread <= 0 {
		return tinted
	}

	small := tinted
	if scale > 1 {
		small = imaging.Resize(tinted, int(math.Round(float64(b.Dx())/scale)), 0, imaging.Box)
	}
	// CSS blur radius is roughly twice the gaussian sigma.
	blurred := imaging.Blur(small, spread/2)
	if scale > 1 {
		blurred = imaging.Resize(blurred, b.Dx(), b.Dy(), imaging.Linear)
	}
	return blurred
}
