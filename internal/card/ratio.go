package card

import (
	"fmt"
	"strings"
)

// AspectRatio is one of the five card shapes.
type AspectRatio string

const (
	RatioSquare    AspectRatio = "1:1"
	RatioLandscape AspectRatio = "4:3"
	RatioPortrait  AspectRatio = "3:4"
	RatioWide      AspectRatio = "16:9"
	RatioTall      AspectRatio = "9:16"
)

const (
	landscapeThreshold = 1.25
	portraitThreshold  = 0.75
)

func AllAspectRatios() []AspectRatio {
	return []AspectRatio{RatioSquare, RatioLandscape, RatioPortrait, RatioWide, RatioTall}
}

func ParseAspectRatio(value string) (AspectRatio, error) {
	v := AspectRatio(strings.TrimSpace(value))
	for _, r := range AllAspectRatios() {
		if r == v {
			return r, nil
		}
	}
	return "", fmt.Errorf("unsupported aspect ratio %q", value)
}

// Parts returns width and height units, e.g. 16 and 9. Unknown ratios are square.
func (r AspectRatio) Parts() (int, int) {
	switch r {
	case RatioLandscape:
		return 4, 3
	case RatioPortrait:
		return 3, 4
	case RatioWide:
		return 16, 9
	case RatioTall:
		return 9, 16
	default:
		return 1, 1
	}
}

// CSSValue is the aspect-ratio property value, e.g. "16 / 9".
func (r AspectRatio) CSSValue() string {
	w, h := r.Parts()
	return fmt.Sprintf("%d / %d", w, h)
}

// HeightFor returns the card height for a given width, rounded to whole pixels.
func (r AspectRatio) HeightFor(width int) int {
	w, h := r.Parts()
	return (width*h + w/2) / w
}

// DetectAspectRatio maps a reference image's pixel ratio to a card ratio.
// Both thresholds are exclusive. Wide and tall shapes are never chosen here.
func DetectAspectRatio(width, height int) AspectRatio {
	if width <= 0 || height <= 0 {
		return RatioSquare
	}
	return DetectFromRatio(float64(width) / float64(height))
}

func DetectFromRatio(ratio float64) AspectRatio {
	switch {
	case ratio > landscapeThreshold:
		return RatioLandscape
	case ratio < portraitThreshold:
		return RatioPortrait
	default:
		return RatioSquare
	}
}

// VideoAspectRatio narrows a card ratio to the two shapes video generation
// accepts: 9:16 stays tall, everything else becomes 16:9.
func VideoAspectRatio(r AspectRatio) AspectRatio {
	if r == RatioTall {
		return RatioTall
	}
	return RatioWide
}
