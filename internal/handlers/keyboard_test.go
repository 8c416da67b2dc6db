package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-card-studio/internal/card"
	"signature-card-studio/internal/studio"
)

func TestCallbackRoundTrip(t *testing.T) {
	data := cb(42, "layout", "CyberNeon")
	assert.Equal(t, "cs:42:layout:CyberNeon", data)

	c, ok := parseCallback(data)
	require.True(t, ok)
	assert.Equal(t, callback{Owner: 42, Action: "layout", Arg: "CyberNeon"}, c)

	c, ok = parseCallback(cb(42, "bold"))
	require.True(t, ok)
	assert.Empty(t, c.Arg)
}

func TestParseCallbackRejectsForeignData(t *testing.T) {
	for _, data := range []string{"", "pv:1:menu", "cs:abc:menu", "cs:1"} {
		_, ok := parseCallback(data)
		assert.False(t, ok, data)
	}
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	snap := studio.Snapshot{Visual: card.DefaultVisualState(), Appearance: card.DefaultAppearance(), Ratio: card.RatioSquare}
	for _, menu := range []string{menuMain, menuLayout, menuText} {
		kb := styleKeyboard(1<<40, snap, menu)
		for _, row := range kb.InlineKeyboard {
			for _, b := range row {
				require.NotNil(t, b.CallbackData)
				assert.LessOrEqual(t, len(*b.CallbackData), 64)
			}
		}
	}
}

func TestFrameKeyboardMarksCurrent(t *testing.T) {
	snap := studio.Snapshot{Visual: card.DefaultVisualState()}
	kb := styleKeyboard(1, snap, menuLayout)

	var marked []string
	for _, row := range kb.InlineKeyboard {
		for _, b := range row {
			if strings.HasPrefix(b.Text, "✅") {
				marked = append(marked, b.Text)
			}
		}
	}
	assert.Equal(t, []string{"✅ " + card.LayoutFullGold.Label()}, marked)

	last := kb.InlineKeyboard[len(kb.InlineKeyboard)-1]
	require.Len(t, last, 1)
	assert.Equal(t, cb(1, "menu", menuMain), *last[0].CallbackData)
}

func TestQuotesKeyboard(t *testing.T) {
	kb := quotesKeyboard(9, 3)
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 3)
	assert.Equal(t, "3", kb.InlineKeyboard[0][2].Text)
	assert.Equal(t, "cs:9:pick:2", *kb.InlineKeyboard[0][2].CallbackData)
}
