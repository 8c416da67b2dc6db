package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"
)

// AssetFetcher loads a background asset for rasterization.
type AssetFetcher interface {
	Fetch(ctx context.Context, rawURL string) (image.Image, error)
}

// HTTPFetcher downloads http(s) assets and decodes data: URLs in place.
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher wraps the shared HTTP client. A nil client gets resty's default.
func NewHTTPFetcher(httpClient *http.Client, userAgent string) *HTTPFetcher {
	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New().SetTimeout(30 * time.Second)
	}
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &HTTPFetcher{client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (image.Image, error) {
	rawURL = strings.TrimSpace(rawURL)
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch asset: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch asset: status %d", resp.StatusCode())
	}

	img, err := imaging.Decode(bytes.NewReader(resp.Body()), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode asset: %w", err)
	}
	return img, nil
}

func decodeDataURL(dataURL string) (image.Image, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("decode data url: not base64")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode data url image: %w", err)
	}
	return img, nil
}
