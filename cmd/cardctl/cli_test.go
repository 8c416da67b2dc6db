package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-card-studio/internal/calllog"
	"signature-card-studio/internal/gemini"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newCLIApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"cardctl"}, args...))
	return out.String(), err
}

func TestRatioCommand(t *testing.T) {
	out, err := runCLI(t, "ratio", "--video", "1920", "1080")
	require.NoError(t, err)
	assert.Contains(t, out, "4:3")
	assert.Contains(t, out, "16:9")
	assert.Contains(t, out, "450px at 600px")
}

func TestRatioRequiresSize(t *testing.T) {
	_, err := runCLI(t, "ratio", "100")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")

	_, err = runCLI(t, "ratio", "wide", "tall")
	require.Error(t, err)
}

func TestTypographyJSON(t *testing.T) {
	out, err := runCLI(t, "typography", "--json", "--message", "짧은 인사", "--font-scale", "2", "--align", "left")
	require.NoError(t, err)

	var got struct {
		Length  int `json:"length"`
		Bucket  int `json:"bucket"`
		Profile struct {
			FontSize float64 `json:"font_size"`
			Align    string  `json:"align"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 5, got.Length)
	assert.Equal(t, 0, got.Bucket)
	assert.Equal(t, 84.0, got.Profile.FontSize)
	assert.Equal(t, "left", got.Profile.Align)
}

func TestTypographyRejectsBadFrame(t *testing.T) {
	_, err := runCLI(t, "typography", "--message", "x", "--layout", "Rainbow")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestFramesCommand(t *testing.T) {
	out, err := runCLI(t, "frames")
	require.NoError(t, err)
	assert.Contains(t, out, "FullGold")
	assert.Contains(t, out, "VerticalBar")
}

func TestRenderFragment(t *testing.T) {
	out, err := runCLI(t, "render", "--fragment", "--message", "감사합니다", "--sender", "김철수")
	require.NoError(t, err)
	assert.Contains(t, out, "card-to-save")
	assert.Contains(t, out, "김철수")
	assert.NotContains(t, out, "<!doctype html>")
}

func TestExportWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card.png")
	_, err := runCLI(t, "export", "--message", "hello", "--ratio", "16:9", "--scale", "1", "--out", path)
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dx())
	assert.Equal(t, 338, img.Bounds().Dy())
}

func TestExportRejectsBadFont(t *testing.T) {
	font := filepath.Join(t.TempDir(), "font.ttf")
	require.NoError(t, os.WriteFile(font, []byte("not a font"), 0o600))

	_, err := runCLI(t, "export", "--message", "hello", "--font-file", font, "--out", filepath.Join(t.TempDir(), "card.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "font")
}

func TestExportRejectsBackgroundAndVideo(t *testing.T) {
	_, err := runCLI(t, "export", "--message", "x", "--background", "https://a/b.png", "--video", "https://a/b.mp4")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "mutually exclusive"))
}

func TestCallsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")
	log, err := calllog.Open(path, nil)
	require.NoError(t, err)
	log.RecordCall(context.Background(), gemini.Call{Kind: gemini.CallGreeting, Model: "text-model", Duration: 40 * time.Millisecond})
	require.NoError(t, log.Close())

	out, err := runCLI(t, "calls", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"model": "text-model"`)

	_, err = runCLI(t, "calls", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[NOT_FOUND]")
}
