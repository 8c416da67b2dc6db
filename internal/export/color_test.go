package export

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#ffffff", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{"#f59e0b", color.NRGBA{R: 0xf5, G: 0x9e, B: 0x0b, A: 255}},
		{"#fff", color.NRGBA{R: 255, G: 255, B: 255, A: 255}},
		{"rgba(0,0,0,0.5)", color.NRGBA{A: 128}},
		{"rgb(10, 20, 30)", color.NRGBA{R: 10, G: 20, B: 30, A: 255}},
		{" Transparent ", color.NRGBA{}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseColorRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "#12", "rgba(1,2)", "hsl(0,0%,0%)", "rgb(a,b,c)"} {
		_, err := ParseColor(in)
		assert.Error(t, err, in)
	}
	assert.Equal(t, color.NRGBA{R: 1}, colorOr("nope", color.NRGBA{R: 1}))
}

func TestWithOpacity(t *testing.T) {
	assert.Equal(t, uint8(128), withOpacity(color.NRGBA{A: 255}, 0.5).A)
	assert.Equal(t, uint8(0), withOpacity(color.NRGBA{A: 255}, -1).A)
}
