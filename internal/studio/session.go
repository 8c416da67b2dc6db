package studio

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"signature-card-studio/internal/card"
	"signature-card-studio/internal/export"
	"signature-card-studio/internal/gemini"
	"signature-card-studio/internal/prompt"
)

// Gate names, also used in BUSY errors.
const (
	GateQuote  = "quote"
	GateText   = "text"
	GateVisual = "visual"
)

// Session is the state of one card being designed. All fields are guarded by
// mu; generation calls run without holding it.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	form       prompt.Form
	font       string
	appearance card.Appearance
	scales     card.Scales
	visual     card.VisualState
	message    string
	content    *gemini.GreetingContent
	quotes     []prompt.Quote
	selected   int
	reference  *gemini.ImageInput
	ratio      card.AspectRatio
	baseRatio  card.AspectRatio
	progress   string
	memo       card.Memo
	video      videoJob
	epoch      uint64

	gates map[string]*gate

	ctx    context.Context
	cancel context.CancelFunc
}

func newSession(id string, now time.Time) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		ID:        id,
		CreatedAt: now,
		gates: map[string]*gate{
			GateQuote:  newGate(),
			GateText:   newGate(),
			GateVisual: newGate(),
		},
		ctx:    ctx,
		cancel: cancel,
	}
	s.resetLocked()
	return s
}

func (s *Session) resetLocked() {
	s.epoch++
	s.form = prompt.DefaultForm()
	s.appearance = card.DefaultAppearance()
	s.font = s.appearance.FontFamily
	s.scales = card.DefaultScales()
	s.visual = card.DefaultVisualState()
	s.message = ""
	s.content = nil
	s.quotes = nil
	s.selected = -1
	s.reference = nil
	s.ratio = s.baseRatio
	if s.ratio == "" {
		s.ratio = card.RatioSquare
	}
	s.progress = ""
	s.video.supersede()
}

// setBaseRatio changes the ratio a fresh or reset session starts with.
func (s *Session) setBaseRatio(r card.AspectRatio) {
	if r == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseRatio = r
	if s.reference == nil {
		s.ratio = r
	}
}

// Close stops any video polling owned by the session.
func (s *Session) Close() {
	s.cancel()
}

// gate admits one request at a time and never queues.
type gate struct {
	sem  *semaphore.Weighted
	held atomic.Bool
}

func newGate() *gate {
	return &gate{sem: semaphore.NewWeighted(1)}
}

// tryAcquire takes a busy gate without waiting.
func (s *Session) tryAcquire(name string) bool {
	g := s.gates[name]
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.held.Store(true)
	return true
}

func (s *Session) release(name string) {
	g := s.gates[name]
	g.held.Store(false)
	g.sem.Release(1)
}

// Busy reports which gates are currently held.
func (s *Session) Busy() map[string]bool {
	out := make(map[string]bool, len(s.gates))
	for name, g := range s.gates {
		out[name] = g.held.Load()
	}
	return out
}

// Snapshot is a read-only copy of the session.
type Snapshot struct {
	ID            string                  `json:"id"`
	Form          prompt.Form             `json:"form"`
	Font          string                  `json:"font"`
	Appearance    card.Appearance         `json:"appearance"`
	Scales        card.Scales             `json:"scales"`
	Visual        card.VisualState        `json:"visual"`
	Message       string                  `json:"message"`
	Content       *gemini.GreetingContent `json:"content,omitempty"`
	Quotes        []prompt.Quote          `json:"quotes,omitempty"`
	SelectedQuote int                     `json:"selected_quote"`
	HasReference  bool                    `json:"has_reference"`
	Ratio         card.AspectRatio        `json:"ratio"`
	Profile       card.Profile            `json:"profile"`
	EditorProfile card.Profile            `json:"editor_profile"`
	Progress      string                  `json:"progress,omitempty"`
	Video         VideoJob                `json:"video"`
	Busy          map[string]bool         `json:"busy"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.ID,
		Form:          s.form,
		Font:          s.font,
		Appearance:    s.appearance,
		Scales:        s.scales,
		Visual:        s.visual,
		Message:       s.message,
		SelectedQuote: s.selected,
		HasReference:  s.reference != nil,
		Ratio:         s.ratio,
		Profile:       s.profileLocked(),
		EditorProfile: s.editorProfileLocked(),
		Progress:      s.progress,
		Video:         s.video.public(),
		Busy:          s.Busy(),
	}
	if s.content != nil {
		c := *s.content
		snap.Content = &c
	}
	snap.Quotes = append([]prompt.Quote(nil), s.quotes...)
	return snap
}

// Composition lays out the card for the current state.
func (s *Session) Composition() card.Composition {
	s.mu.Lock()
	defer s.mu.Unlock()

	return card.Compose(card.Request{
		Message: s.message,
		Sender:  s.form.Sender,
		Ratio:   s.ratio,
		Profile: s.profileLocked(),
		Visual:  s.visual,
	})
}

// Profile is the typography of the card preview. It goes through the memo,
// so repeated reads with unchanged inputs reuse the last value.
func (s *Session) Profile() card.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileLocked()
}

func (s *Session) profileLocked() card.Profile {
	return s.memo.Resolve(s.typographyInput(card.PaddingCard))
}

// The editor uses the wider short-message padding; it is not memoized.
func (s *Session) editorProfileLocked() card.Profile {
	return card.Resolve(s.typographyInput(card.PaddingEditor))
}

func (s *Session) typographyInput(variant card.PaddingVariant) card.Input {
	ap := s.appearance
	ap.FontFamily = s.font
	return card.Input{
		Length:     card.MessageLength(s.message),
		Variant:    variant,
		Scales:     s.scales,
		Appearance: ap,
	}
}

// Edit is a partial update; nil fields are left alone.
type Edit struct {
	Form            *prompt.Form `json:"form,omitempty"`
	Message         *string      `json:"message,omitempty"`
	Sender          *string      `json:"sender,omitempty"`
	Font            *string      `json:"font,omitempty"`
	Bold            *bool        `json:"bold,omitempty"`
	Italic          *bool        `json:"italic,omitempty"`
	Align           *string      `json:"align,omitempty"`
	TextColor       *string      `json:"text_color,omitempty"`
	TextOpacity     *float64     `json:"text_opacity,omitempty"`
	ShadowIntensity *float64     `json:"shadow_intensity,omitempty"`
	ShadowColor     *string      `json:"shadow_color,omitempty"`
	FontScale       *float64     `json:"font_scale,omitempty"`
	LetterScale     *float64     `json:"letter_scale,omitempty"`
	LineScale       *float64     `json:"line_scale,omitempty"`
	LayoutFrame     *string      `json:"layout_frame,omitempty"`
	TextFrame       *string      `json:"text_frame,omitempty"`
	FrameColor      *string      `json:"frame_color,omitempty"`
	OverlayOpacity  *float64     `json:"overlay_opacity,omitempty"`
	Ratio           *string      `json:"ratio,omitempty"`
	ClearBackground bool         `json:"clear_background,omitempty"`
}

// Apply validates the whole edit before changing anything.
func (s *Session) Apply(e Edit) error {
	var (
		layout    card.LayoutFrame
		textFrame card.TextFrame
		ratio     card.AspectRatio
		font      string
		err       error
	)
	if e.LayoutFrame != nil {
		if layout, err = card.ParseLayoutFrame(*e.LayoutFrame); err != nil {
			return invalid(err)
		}
	}
	if e.TextFrame != nil {
		if textFrame, err = card.ParseTextFrame(*e.TextFrame); err != nil {
			return invalid(err)
		}
	}
	if e.Ratio != nil {
		if ratio, err = card.ParseAspectRatio(*e.Ratio); err != nil {
			return invalid(err)
		}
	}
	if e.Font != nil {
		f, ok := prompt.LookupFont(*e.Font)
		if !ok {
			return invalidf("unknown font %q", *e.Font)
		}
		font = f.Value
	}
	for name, v := range map[string]*float64{
		"font_scale":   e.FontScale,
		"letter_scale": e.LetterScale,
		"line_scale":   e.LineScale,
	} {
		if v != nil && *v < 0 {
			return invalidf("%s must not be negative", name)
		}
	}
	for name, v := range map[string]*string{
		"text_color":   e.TextColor,
		"shadow_color": e.ShadowColor,
		"frame_color":  e.FrameColor,
	} {
		if v == nil {
			continue
		}
		if _, err := export.ParseColor(*v); err != nil {
			return invalidf("invalid %s %q", name, *v)
		}
	}
	if e.Form != nil {
		if err := e.Form.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Form != nil {
		s.form = e.Form.Normalize()
	}
	if e.Message != nil {
		s.message = *e.Message
	}
	if e.Sender != nil {
		s.form.Sender = strings.TrimSpace(*e.Sender)
	}
	if e.Font != nil {
		s.font = font
	}
	if e.Bold != nil {
		s.appearance.Bold = *e.Bold
	}
	if e.Italic != nil {
		s.appearance.Italic = *e.Italic
	}
	if e.Align != nil {
		s.appearance.Align = card.ParseAlignment(*e.Align)
	}
	if e.TextColor != nil {
		s.appearance.TextColor = strings.TrimSpace(*e.TextColor)
	}
	if e.TextOpacity != nil {
		s.appearance.TextOpacity = clamp(*e.TextOpacity, 0, 1)
	}
	if e.ShadowIntensity != nil {
		s.appearance.ShadowIntensity = clamp(*e.ShadowIntensity, 0, 100)
	}
	if e.ShadowColor != nil {
		s.appearance.ShadowColor = strings.TrimSpace(*e.ShadowColor)
	}
	if e.FontScale != nil {
		s.scales.FontSize = *e.FontScale
	}
	if e.LetterScale != nil {
		s.scales.LetterSpacing = *e.LetterScale
	}
	if e.LineScale != nil {
		s.scales.LineHeight = *e.LineScale
	}
	if e.LayoutFrame != nil {
		s.visual.LayoutFrame = layout
	}
	if e.TextFrame != nil {
		s.visual.TextFrame = textFrame
	}
	if e.FrameColor != nil {
		s.visual.FrameColor = strings.TrimSpace(*e.FrameColor)
	}
	if e.OverlayOpacity != nil {
		s.visual.SetOverlayOpacity(*e.OverlayOpacity)
	}
	if e.Ratio != nil {
		s.ratio = ratio
	}
	if e.ClearBackground {
		s.visual.ClearBackground()
	}
	return nil
}

// SetReference stores a reference image and detects the card ratio from
// its pixel size.
func (s *Session) SetReference(ref gemini.ImageInput, width, height int) card.AspectRatio {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reference = &ref
	s.ratio = card.DetectAspectRatio(width, height)
	return s.ratio
}

// SetRefinement stores feedback for the next refined image request without
// touching the rest of the form.
func (s *Session) SetRefinement(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Refinement = strings.TrimSpace(text)
}

func (s *Session) ClearReference() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reference = nil
}

// Reset returns the session to its initial state and abandons any video job.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
