package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"signature-card-studio/internal/card"
	"signature-card-studio/internal/prompt"
	"signature-card-studio/internal/studio"
)

// ParseStyleArgs reads /style arguments such as
// "bold align=left size=1.2 layout=CyberNeon 16:9". Bare words toggle flags
// or name an alignment, ratio or frame. Values are validated by Session.Apply.
func ParseStyleArgs(raw string) (studio.Edit, error) {
	var e studio.Edit
	for _, orig := range strings.Fields(raw) {
		tok := strings.ToLower(orig)

		if key, value, ok := strings.Cut(orig, "="); ok {
			if err := applyStyleField(&e, strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)); err != nil {
				return studio.Edit{}, err
			}
			continue
		}

		switch tok {
		case "bold":
			e.Bold = ptr(true)
		case "nobold", "regular":
			e.Bold = ptr(false)
		case "italic":
			e.Italic = ptr(true)
		case "noitalic":
			e.Italic = ptr(false)
		case "left", "center", "right":
			e.Align = ptr(tok)
		case "clearbg", "nobg":
			e.ClearBackground = true
		default:
			if r, err := card.ParseAspectRatio(orig); err == nil {
				e.Ratio = ptr(string(r))
				continue
			}
			if f, err := card.ParseLayoutFrame(orig); err == nil {
				e.LayoutFrame = ptr(string(f))
				continue
			}
			if f, err := card.ParseTextFrame(orig); err == nil {
				e.TextFrame = ptr(string(f))
				continue
			}
			if f, ok := prompt.LookupFont(orig); ok {
				e.Font = ptr(f.Value)
				continue
			}
			return studio.Edit{}, fmt.Errorf("unknown style option %q", orig)
		}
	}
	return e, nil
}

func applyStyleField(e *studio.Edit, key, value string) error {
	switch key {
	case "font":
		e.Font = ptr(value)
	case "align":
		e.Align = ptr(value)
	case "color":
		e.TextColor = ptr(value)
	case "shadowcolor":
		e.ShadowColor = ptr(value)
	case "framecolor":
		e.FrameColor = ptr(value)
	case "layout":
		e.LayoutFrame = ptr(value)
	case "frame", "textframe":
		e.TextFrame = ptr(value)
	case "ratio":
		e.Ratio = ptr(value)
	case "sender", "from":
		e.Sender = ptr(value)
	case "opacity", "shadow", "size", "spacing", "line", "overlay":
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number: %q", key, value)
		}
		switch key {
		case "opacity":
			e.TextOpacity = &n
		case "shadow":
			e.ShadowIntensity = &n
		case "size":
			e.FontScale = &n
		case "spacing":
			e.LetterScale = &n
		case "line":
			e.LineScale = &n
		case "overlay":
			e.OverlayOpacity = &n
		}
	default:
		return fmt.Errorf("unknown style option %q", key)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// styleSummary is the status block shown above the style keyboard.
func styleSummary(snap studio.Snapshot) string {
	ap := snap.Appearance
	font := snap.Font
	if f, ok := prompt.LookupFont(font); ok {
		font = f.Name
	}

	var b strings.Builder
	b.WriteString("🎨 카드 스타일\n\n")
	b.WriteString(fmt.Sprintf("비율: %s\n", snap.Ratio))
	b.WriteString(fmt.Sprintf("서체: %s (%s)\n", font, fontFlags(ap)))
	b.WriteString(fmt.Sprintf("정렬: %s\n", ap.Align))
	b.WriteString(fmt.Sprintf("크기: %s, 자간: %s, 행간: %s\n",
		formatScale(snap.Scales.FontSize), formatScale(snap.Scales.LetterSpacing), formatScale(snap.Scales.LineHeight)))
	b.WriteString(fmt.Sprintf("프레임: %s / %s\n", snap.Visual.LayoutFrame.Label(), snap.Visual.TextFrame.Label()))
	if sender := strings.TrimSpace(snap.Form.Sender); sender != "" {
		b.WriteString("서명: " + sender + "\n")
	}
	switch snap.Visual.Background.Kind() {
	case card.BackgroundImage:
		b.WriteString("배경: 이미지\n")
	case card.BackgroundVideo:
		b.WriteString("배경: 영상\n")
	}
	return strings.TrimSpace(b.String())
}

func fontFlags(ap card.Appearance) string {
	var flags []string
	if ap.Bold {
		flags = append(flags, "굵게")
	}
	if ap.Italic {
		flags = append(flags, "기울임")
	}
	if len(flags) == 0 {
		return "보통"
	}
	return strings.Join(flags, ", ")
}

func formatScale(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "x"
}
