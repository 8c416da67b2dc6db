package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var namedColors = map[string]color.NRGBA{
	"transparent": {},
	"black":       {A: 0xff},
	"white":       {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
}

// ParseColor understands the color forms the composer emits: #rgb, #rrggbb,
// rgb(), rgba() and a few names.
func ParseColor(value string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if c, ok := namedColors[v]; ok {
		return c, nil
	}

	if strings.HasPrefix(v, "#") {
		c, err := colorful.Hex(v)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("parse color %q: %w", value, err)
		}
		r, g, b := c.RGB255()
		return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
	}

	for _, prefix := range []string{"rgba(", "rgb("} {
		if !strings.HasPrefix(v, prefix) || !strings.HasSuffix(v, ")") {
			continue
		}
		fields := strings.Split(strings.TrimSuffix(strings.TrimPrefix(v, prefix), ")"), ",")
		if len(fields) != 3 && len(fields) != 4 {
			return color.NRGBA{}, fmt.Errorf("parse color %q: want 3 or 4 components", value)
		}
		var rgb [3]uint8
		for i := 0; i < 3; i++ {
			n, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
			if err != nil {
				return color.NRGBA{}, fmt.Errorf("parse color %q: %w", value, err)
			}
			rgb[i] = clampByte(n)
		}
		alpha := 1.0
		if len(fields) == 4 {
			a, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
			if err != nil {
				return color.NRGBA{}, fmt.Errorf("parse color %q: %w", value, err)
			}
			alpha = a
		}
		return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: clampByte(alpha * 255)}, nil
	}

	return color.NRGBA{}, fmt.Errorf("parse color %q: unsupported format", value)
}

// colorOr parses value and falls back on error.
func colorOr(value string, fallback color.NRGBA) color.NRGBA {
	c, err := ParseColor(value)
	if err != nil {
		return fallback
	}
	return c
}

// withOpacity scales the alpha channel.
func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = clampByte(float64(c.A) * opacity)
	return c
}

func clampByte(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
