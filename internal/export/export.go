package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"time"

	"signature-card-studio/internal/card"
	cerrors "signature-card-studio/internal/errors"
)

const (
	DownloadScale = 5
	ShareScale    = 3

	ShareTitle = "20년 베테랑의 시그니처 인사말"
	ShareText  = "전문가의 감각이 담긴 리더십 카드를 공유합니다."
)

// Sharer hands a finished card to a share target.
type Sharer interface {
	ShareImage(ctx context.Context, name string, png []byte, caption string) error
}

// Artifact is an encoded card image.
type Artifact struct {
	Name string
	PNG  []byte
}

// Exporter renders compositions to PNG files and optionally shares them.
type Exporter struct {
	raster *Rasterizer
	sharer Sharer
	now    func() time.Time
}

// NewExporter builds an exporter. sharer may be nil, in which case Share
// reports that sharing is unsupported.
func NewExporter(raster *Rasterizer, sharer Sharer) *Exporter {
	return &Exporter{raster: raster, sharer: sharer, now: time.Now}
}

// FileName is the download name for a card exported at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("Signature_Card_%d.png", t.UnixMilli())
}

// Download renders comp at scale and encodes it.
func (e *Exporter) Download(ctx context.Context, comp card.Composition, scale float64) (Artifact, error) {
	if scale < 1 || scale > MaxScale {
		return Artifact{}, cerrors.NewInvalidRequest(fmt.Sprintf("scale must be between 1 and %d", MaxScale))
	}
	img, err := e.raster.Render(ctx, comp, scale)
	if err != nil {
		return Artifact{}, cerrors.NewInternal(err)
	}
	data, err := EncodePNG(img)
	if err != nil {
		return Artifact{}, cerrors.NewInternal(err)
	}
	return Artifact{Name: FileName(e.now()), PNG: data}, nil
}

// Share renders comp at ShareScale and hands it to the sharer.
func (e *Exporter) Share(ctx context.Context, comp card.Composition) (Artifact, error) {
	if e.sharer == nil {
		return Artifact{}, cerrors.NewShareUnsupported()
	}
	art, err := e.Download(ctx, comp, ShareScale)
	if err != nil {
		return Artifact{}, err
	}
	if err := e.sharer.ShareImage(ctx, art.Name, art.PNG, ShareTitle+"\n"+ShareText); err != nil {
		return Artifact{}, cerrors.NewUpstream(err)
	}
	return art, nil
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
