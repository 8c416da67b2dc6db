package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-card-studio/internal/card"
	"signature-card-studio/internal/studio"
)

func TestParseStyleArgs(t *testing.T) {
	e, err := ParseStyleArgs("bold noitalic right size=1.5 spacing=0.8 line=2 overlay=0.3 color=#000000 16:9 GalleryEdge Glass framecolor=#123456 sender=홍길동")
	require.NoError(t, err)

	assert.Equal(t, true, *e.Bold)
	assert.Equal(t, false, *e.Italic)
	assert.Equal(t, "right", *e.Align)
	assert.Equal(t, 1.5, *e.FontScale)
	assert.Equal(t, 0.8, *e.LetterScale)
	assert.Equal(t, 2.0, *e.LineScale)
	assert.Equal(t, 0.3, *e.OverlayOpacity)
	assert.Equal(t, "#000000", *e.TextColor)
	assert.Equal(t, "16:9", *e.Ratio)
	assert.Equal(t, string(card.LayoutGalleryEdge), *e.LayoutFrame)
	assert.Equal(t, string(card.TextFrameGlass), *e.TextFrame)
	assert.Equal(t, "#123456", *e.FrameColor)
	assert.Equal(t, "홍길동", *e.Sender)
	assert.Nil(t, e.Font)
}

func TestParseStyleArgsRejectsUnknown(t *testing.T) {
	_, err := ParseStyleArgs("sparkles")
	assert.Error(t, err)

	_, err = ParseStyleArgs("size=big")
	assert.Error(t, err)

	_, err = ParseStyleArgs("glitter=1")
	assert.Error(t, err)
}

func TestParseStyleArgsEmpty(t *testing.T) {
	e, err := ParseStyleArgs("   ")
	require.NoError(t, err)
	assert.Equal(t, studio.Edit{}, e)
}

func TestStyleSummary(t *testing.T) {
	snap := studio.Snapshot{
		Ratio:      card.RatioPortrait,
		Appearance: card.DefaultAppearance(),
		Scales:     card.DefaultScales(),
		Visual:     card.DefaultVisualState(),
	}
	snap.Form.Sender = "김대표"
	snap.Visual.SetBackgroundVideo("https://example.com/v.mp4")

	out := styleSummary(snap)
	assert.Contains(t, out, "비율: 3:4")
	assert.Contains(t, out, "굵게")
	assert.Contains(t, out, "정렬: center")
	assert.Contains(t, out, card.LayoutFullGold.Label())
	assert.Contains(t, out, "서명: 김대표")
	assert.Contains(t, out, "배경: 영상")

	snap.Appearance.Bold = false
	assert.Contains(t, styleSummary(snap), "(보통)")
}
