package card

import (
	"encoding/json"
	"fmt"
	"strings"
)

type BackgroundKind int

const (
	BackgroundNone BackgroundKind = iota
	BackgroundImage
	BackgroundVideo
)

func (k BackgroundKind) String() string {
	switch k {
	case BackgroundImage:
		return "image"
	case BackgroundVideo:
		return "video"
	default:
		return "none"
	}
}

// Background holds at most one asset. The fields are unexported so an image
// and a video can never be set at the same time.
type Background struct {
	kind BackgroundKind
	url  string
}

func NoBackground() Background { return Background{} }

func ImageBackground(url string) Background {
	if strings.TrimSpace(url) == "" {
		return Background{}
	}
	return Background{kind: BackgroundImage, url: url}
}

func VideoBackground(url string) Background {
	if strings.TrimSpace(url) == "" {
		return Background{}
	}
	return Background{kind: BackgroundVideo, url: url}
}

func (b Background) Kind() BackgroundKind { return b.kind }
func (b Background) URL() string          { return b.url }
func (b Background) IsSet() bool          { return b.kind != BackgroundNone }

func (b Background) Image() (string, bool) {
	return b.url, b.kind == BackgroundImage
}

func (b Background) Video() (string, bool) {
	return b.url, b.kind == BackgroundVideo
}

type backgroundJSON struct {
	Kind string `json:"kind"`
	URL  string `json:"url,omitempty"`
}

func (b Background) MarshalJSON() ([]byte, error) {
	return json.Marshal(backgroundJSON{Kind: b.kind.String(), URL: b.url})
}

func (b *Background) UnmarshalJSON(data []byte) error {
	var raw backgroundJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "", "none":
		*b = NoBackground()
	case "image":
		*b = ImageBackground(raw.URL)
	case "video":
		*b = VideoBackground(raw.URL)
	default:
		return fmt.Errorf("unknown background kind %q", raw.Kind)
	}
	return nil
}

// VisualState is everything about the card that is not typography.
type VisualState struct {
	Background     Background  `json:"background"`
	OverlayOpacity float64     `json:"overlay_opacity"`
	LayoutFrame    LayoutFrame `json:"layout_frame"`
	TextFrame      TextFrame   `json:"text_frame"`
	FrameColor     string      `json:"frame_color"`
}

func DefaultVisualState() VisualState {
	return VisualState{
		OverlayOpacity: 0.5,
		LayoutFrame:    LayoutFullGold,
		TextFrame:      TextFrameNone,
		FrameColor:     "#f59e0b",
	}
}

// SetBackgroundImage replaces any existing background, video included.
func (v *VisualState) SetBackgroundImage(url string) {
	v.Background = ImageBackground(url)
}

// SetBackgroundVideo replaces any existing background, image included.
func (v *VisualState) SetBackgroundVideo(url string) {
	v.Background = VideoBackground(url)
}

func (v *VisualState) ClearBackground() {
	v.Background = NoBackground()
}

// SetOverlayOpacity clamps to [0, 1].
func (v *VisualState) SetOverlayOpacity(opacity float64) {
	v.OverlayOpacity = clamp01(opacity)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
