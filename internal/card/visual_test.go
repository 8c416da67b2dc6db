package card

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackgroundIsExclusive(t *testing.T) {
	v := DefaultVisualState()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		switch rng.Intn(3) {
		case 0:
			v.SetBackgroundImage("https://example.com/a.png")
			_, hasVideo := v.Background.Video()
			assert.False(t, hasVideo)
			_, hasImage := v.Background.Image()
			assert.True(t, hasImage)
		case 1:
			v.SetBackgroundVideo("https://example.com/a.mp4")
			_, hasImage := v.Background.Image()
			assert.False(t, hasImage)
			_, hasVideo := v.Background.Video()
			assert.True(t, hasVideo)
		default:
			v.ClearBackground()
			assert.False(t, v.Background.IsSet())
		}
	}
}

func TestEmptyAssetURLClearsBackground(t *testing.T) {
	v := DefaultVisualState()
	v.SetBackgroundImage("https://example.com/a.png")
	v.SetBackgroundVideo("  ")
	assert.Equal(t, BackgroundNone, v.Background.Kind())
}

func TestOverlayOpacityIsClamped(t *testing.T) {
	v := DefaultVisualState()
	v.SetOverlayOpacity(1.7)
	assert.Equal(t, 1.0, v.OverlayOpacity)
	v.SetOverlayOpacity(-0.2)
	assert.Equal(t, 0.0, v.OverlayOpacity)
}

func TestVisualStateJSON(t *testing.T) {
	v := DefaultVisualState()
	v.SetBackgroundVideo("https://example.com/clip.mp4")

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"background":{"kind":"video","url":"https://example.com/clip.mp4"}`)

	var back VisualState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, v, back)

	err = json.Unmarshal([]byte(`{"background":{"kind":"hologram"}}`), &back)
	assert.Error(t, err)
}
