package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"signature-card-studio/internal/calllog"
	"signature-card-studio/internal/card"
	"signature-card-studio/internal/config"
	cerrors "signature-card-studio/internal/errors"
	"signature-card-studio/internal/export"
	"signature-card-studio/internal/httpclient"
	"signature-card-studio/internal/render"
	"signature-card-studio/internal/studio"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp() *cli.App {
	app := &cli.App{
		Name:    "cardctl",
		Usage:   "Inspect and render signature cards offline",
		Version: Version,
		Commands: []*cli.Command{
			typographyCmd(),
			ratioCmd(),
			framesCmd(),
			renderCmd(),
			exportCmd(),
			callsCmd(),
		},
	}
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func cardFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "Card message (reads stdin when piped and unset)"},
		&cli.StringFlag{Name: "sender", Aliases: []string{"s"}, Usage: "Signature name"},
		&cli.StringFlag{Name: "font", Usage: "Font name or key from the catalog"},
		&cli.BoolFlag{Name: "bold", Value: true, Usage: "Bold weight"},
		&cli.BoolFlag{Name: "italic", Usage: "Italic style"},
		&cli.StringFlag{Name: "align", Value: string(card.AlignCenter), Usage: "left|center|right"},
		&cli.StringFlag{Name: "color", Usage: "Text color"},
		&cli.Float64Flag{Name: "font-scale", Value: 1, Usage: "Font size multiplier"},
		&cli.Float64Flag{Name: "letter-scale", Value: 1, Usage: "Letter spacing multiplier"},
		&cli.Float64Flag{Name: "line-scale", Value: 1, Usage: "Line height multiplier"},
		&cli.StringFlag{Name: "layout", Usage: "Layout frame"},
		&cli.StringFlag{Name: "text-frame", Usage: "Text frame"},
		&cli.StringFlag{Name: "frame-color", Usage: "Frame color"},
		&cli.StringFlag{Name: "ratio", Aliases: []string{"r"}, Usage: "1:1|4:3|3:4|16:9|9:16"},
		&cli.Float64Flag{Name: "overlay", Value: 0.5, Usage: "Overlay opacity over the background"},
		&cli.StringFlag{Name: "background", Usage: "Background image URL or data URL"},
		&cli.StringFlag{Name: "video", Usage: "Background video URL"},
	}
}

// cardEdit turns the styling flags into an edit.
func cardEdit(c *cli.Context) (studio.Edit, error) {
	message := c.String("message")
	if !c.IsSet("message") && stdinHasData() {
		text, err := readStdin()
		if err != nil {
			return studio.Edit{}, cerrors.NewInternal(err)
		}
		message = text
	}

	edit := studio.Edit{
		Message:     &message,
		Bold:        ptr(c.Bool("bold")),
		Italic:      ptr(c.Bool("italic")),
		Align:       ptr(c.String("align")),
		FontScale:   ptr(c.Float64("font-scale")),
		LetterScale: ptr(c.Float64("letter-scale")),
		LineScale:   ptr(c.Float64("line-scale")),
	}
	for name, dst := range map[string]**string{
		"sender":      &edit.Sender,
		"font":        &edit.Font,
		"color":       &edit.TextColor,
		"layout":      &edit.LayoutFrame,
		"text-frame":  &edit.TextFrame,
		"frame-color": &edit.FrameColor,
		"ratio":       &edit.Ratio,
	} {
		if c.IsSet(name) {
			*dst = ptr(c.String(name))
		}
	}
	if c.IsSet("overlay") {
		edit.OverlayOpacity = ptr(c.Float64("overlay"))
	}
	if c.IsSet("background") && c.IsSet("video") {
		return studio.Edit{}, cerrors.NewInvalidRequest("background and video are mutually exclusive")
	}
	return edit, nil
}

// buildComposition lays out a card from the flags.
func buildComposition(c *cli.Context) (card.Composition, studio.Snapshot, error) {
	edit, err := cardEdit(c)
	if err != nil {
		return card.Composition{}, studio.Snapshot{}, err
	}
	sess := studio.NewService(studio.Options{}).Create()
	if err := sess.Apply(edit); err != nil {
		return card.Composition{}, studio.Snapshot{}, err
	}

	snap := sess.Snapshot()
	visual := snap.Visual
	if url := c.String("background"); url != "" {
		visual.SetBackgroundImage(url)
	}
	if url := c.String("video"); url != "" {
		visual.SetBackgroundVideo(url)
	}
	comp := card.Compose(card.Request{
		Message: snap.Message,
		Sender:  snap.Form.Sender,
		Ratio:   snap.Ratio,
		Profile: snap.Profile,
		Visual:  visual,
	})
	return comp, snap, nil
}

// typographyCmd creates the typography command.
func typographyCmd() *cli.Command {
	return &cli.Command{
		Name:  "typography",
		Usage: "Resolve the typography for a message",
		Flags: append(cardFlags(), &cli.BoolFlag{Name: "json", Usage: "Print JSON"}),
		Action: func(c *cli.Context) error {
			_, snap, err := buildComposition(c)
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(c.App.Writer, map[string]any{
					"length":         card.MessageLength(snap.Message),
					"bucket":         card.BucketIndex(card.MessageLength(snap.Message)),
					"profile":        snap.Profile,
					"editor_profile": snap.EditorProfile,
				})
			}

			p := snap.Profile
			length := card.MessageLength(snap.Message)
			fmt.Fprintln(c.App.Writer, panel("Typography", []field{
				{"length", fmt.Sprintf("%d (row %d)", length, card.BucketIndex(length))},
				{"font", p.FontFamily},
				{"weight", fmt.Sprintf("%d %s", p.FontWeight, p.FontStyle())},
				{"size", p.FontSizeCSS()},
				{"line height", p.LineHeightCSS()},
				{"letter spacing", p.LetterSpacingCSS()},
				{"padding", p.Padding.CSS()},
				{"editor padding", snap.EditorProfile.Padding.CSS()},
				{"align", fmt.Sprintf("%s (%s)", p.Align, p.CrossAxis)},
				{"shadow", p.TextShadow()},
			}))
			return nil
		},
	}
}

// ratioCmd creates the ratio command.
func ratioCmd() *cli.Command {
	return &cli.Command{
		Name:      "ratio",
		Usage:     "Detect the card ratio for an image size",
		ArgsUsage: "<width> <height>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "video", Usage: "Also print the ratio a video would use"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return outputError(cerrors.NewInvalidRequest("width and height are required"))
			}
			var w, h int
			if _, err := fmt.Sscan(c.Args().Get(0)+" "+c.Args().Get(1), &w, &h); err != nil {
				return outputError(cerrors.NewInvalidRequest("width and height must be integers"))
			}

			r := card.DetectAspectRatio(w, h)
			fields := []field{
				{"size", fmt.Sprintf("%dx%d", w, h)},
				{"card ratio", string(r)},
				{"preview height", fmt.Sprintf("%dpx at %dpx", r.HeightFor(card.ReferenceWidth), card.ReferenceWidth)},
			}
			if c.Bool("video") {
				fields = append(fields, field{"video ratio", string(card.VideoAspectRatio(r))})
			}
			fmt.Fprintln(c.App.Writer, panel("Ratio", fields))
			return nil
		},
	}
}

// framesCmd creates the frames command.
func framesCmd() *cli.Command {
	return &cli.Command{
		Name:  "frames",
		Usage: "List layout and text frames",
		Action: func(c *cli.Context) error {
			var layouts, texts []field
			for _, f := range card.AllLayoutFrames() {
				layouts = append(layouts, field{string(f), f.Label()})
			}
			for _, f := range card.AllTextFrames() {
				texts = append(texts, field{string(f), f.Label()})
			}
			fmt.Fprintln(c.App.Writer, panel("Layout frames", layouts))
			fmt.Fprintln(c.App.Writer, panel("Text frames", texts))
			return nil
		},
	}
}

// renderCmd creates the render command.
func renderCmd() *cli.Command {
	return &cli.Command{
		Name:  "render",
		Usage: "Render the card as HTML",
		Flags: append(cardFlags(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (stdout when empty)"},
			&cli.BoolFlag{Name: "fragment", Usage: "Only the card element, no page"},
		),
		Action: func(c *cli.Context) error {
			comp, _, err := buildComposition(c)
			if err != nil {
				return outputError(err)
			}
			cards, err := render.New()
			if err != nil {
				return outputError(cerrors.NewInternal(err))
			}

			w, closeFn, err := openOutput(c)
			if err != nil {
				return outputError(err)
			}
			defer closeFn()

			if c.Bool("fragment") {
				err = cards.RenderCard(w, comp)
			} else {
				err = cards.RenderPage(w, export.ShareTitle, comp)
			}
			if err != nil {
				return outputError(cerrors.NewInternal(err))
			}
			return nil
		},
	}
}

// exportCmd creates the export command.
func exportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Rasterize the card to a PNG file",
		Flags: append(cardFlags(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (defaults to Signature_Card_<ms>.png)"},
			&cli.Float64Flag{Name: "scale", Value: export.DownloadScale, Usage: "Pixel ratio"},
			&cli.StringFlag{Name: "font-file", EnvVars: []string{"CARD_FONT_PATH"}, Usage: "TTF/OTF used for the text (defaults to an installed Korean font)"},
			&cli.BoolFlag{Name: "require-hangul", EnvVars: []string{"REQUIRE_HANGUL_FONT"}, Usage: "Fail when the font has no Hangul glyphs"},
			&cli.DurationFlag{Name: "timeout", Value: time.Minute, Usage: "Background download timeout"},
		),
		Action: func(c *cli.Context) error {
			comp, _, err := buildComposition(c)
			if err != nil {
				return outputError(err)
			}

			var font []byte
			fontPath := c.String("font-file")
			if fontPath == "" {
				fontPath = config.SystemFont()
			}
			if fontPath != "" {
				if font, err = os.ReadFile(fontPath); err != nil {
					return outputError(cerrors.NewInvalidRequest(fmt.Sprintf("font: %v", err)))
				}
			}
			client := httpclient.New(httpclient.Options{PreferIPv4: true, Timeout: c.Duration("timeout"), UserAgent: "cardctl/" + Version})
			raster, err := export.NewRasterizer(export.RasterOptions{
				Fetcher:       export.NewHTTPFetcher(client, "cardctl/"+Version),
				FontData:      font,
				RequireHangul: c.Bool("require-hangul"),
			})
			if err != nil {
				return outputError(cerrors.NewInvalidRequest(fmt.Sprintf("font: %v", err)))
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()
			art, err := export.NewExporter(raster, nil).Download(ctx, comp, c.Float64("scale"))
			if err != nil {
				return outputError(err)
			}

			path := c.String("out")
			if path == "" {
				path = art.Name
			}
			if err := os.WriteFile(path, art.PNG, 0o644); err != nil {
				return outputError(cerrors.NewInternal(err))
			}
			fmt.Fprintln(c.App.Writer, mutedStyle.Render(fmt.Sprintf("wrote %s (%d bytes)", path, len(art.PNG))))
			return nil
		},
	}
}

// callsCmd creates the calls command.
func callsCmd() *cli.Command {
	return &cli.Command{
		Name:  "calls",
		Usage: "Show recent generation calls from the call log",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", EnvVars: []string{"CALL_LOG_PATH"}, Usage: "Call log database path"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Number of recent calls"},
		},
		Action: func(c *cli.Context) error {
			path := c.String("db")
			if path == "" {
				return outputError(cerrors.NewInvalidRequest("db is required"))
			}
			if _, err := os.Stat(path); err != nil {
				return outputError(cerrors.NewNotFound("call log", path))
			}
			calls, err := calllog.Open(path, nil)
			if err != nil {
				return outputError(cerrors.NewInternal(err))
			}
			defer calls.Close()

			recent, err := calls.Recent(c.Context, c.Int("limit"))
			if err != nil {
				return outputError(cerrors.NewInternal(err))
			}
			summary, err := calls.Summarize(c.Context)
			if err != nil {
				return outputError(cerrors.NewInternal(err))
			}
			return outputJSON(c.App.Writer, map[string]any{"recent": recent, "summary": summary})
		},
	}
}

// openOutput returns the --out file or the app writer.
func openOutput(c *cli.Context) (io.Writer, func(), error) {
	path := c.String("out")
	if path == "" {
		return c.App.Writer, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, cerrors.NewInternal(err)
	}
	return f, func() { _ = f.Close() }, nil
}

// outputJSON writes JSON to w.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if cErr, ok := cerrors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func ptr[T any](v T) *T {
	return &v
}
