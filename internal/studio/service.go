package studio

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"signature-card-studio/internal/card"
	cerrors "signature-card-studio/internal/errors"
	"signature-card-studio/internal/gemini"
	"signature-card-studio/internal/prompt"
	"signature-card-studio/internal/session"
)

const (
	DefaultPollInterval = 10 * time.Second
	DefaultVideoTimeout = 10 * time.Minute
)

// Generator is the generation backend. *gemini.Client satisfies it.
type Generator interface {
	GenerateGreeting(ctx context.Context, req prompt.TextRequest) (gemini.GreetingContent, error)
	FetchQuotes(ctx context.Context, req prompt.TextRequest) ([]prompt.Quote, error)
	GenerateImage(ctx context.Context, params gemini.ImageParams) (string, error)
	SubmitVideo(ctx context.Context, params gemini.VideoParams) (string, error)
	PollVideo(ctx context.Context, name string) (gemini.VideoOperation, error)
}

type Options struct {
	Generator    Generator
	Logger       *slog.Logger
	PollInterval time.Duration
	VideoTimeout time.Duration
	IdleTimeout  time.Duration
	// DefaultRatio is the ratio new sessions start with. Empty means 1:1.
	DefaultRatio card.AspectRatio
}

// Service owns the sessions and runs generation against them.
type Service struct {
	gen          Generator
	logger       *slog.Logger
	sessions     *session.Store[string, *Session]
	pollInterval time.Duration
	videoTimeout time.Duration
	baseRatio    card.AspectRatio
	now          func() time.Time
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	timeout := opts.VideoTimeout
	if timeout <= 0 {
		timeout = DefaultVideoTimeout
	}

	return &Service{
		gen:    opts.Generator,
		logger: logger,
		sessions: session.NewStore(session.Options[string, *Session]{
			IdleTimeout: opts.IdleTimeout,
			OnEvict:     func(_ string, s *Session) { s.Close() },
		}),
		pollInterval: poll,
		videoTimeout: timeout,
		baseRatio:    opts.DefaultRatio,
		now:          time.Now,
	}
}

// Run evicts idle sessions until ctx is done.
func (s *Service) Run(ctx context.Context) {
	s.sessions.Run(ctx, time.Minute)
}

func newID(now time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String()
}

// Create starts a fresh session with a new ID.
func (s *Service) Create() *Session {
	now := s.now()
	sess := newSession(newID(now), now)
	sess.setBaseRatio(s.baseRatio)
	s.sessions.Put(sess.ID, sess)
	return sess
}

// Session looks up a session by ID.
func (s *Service) Session(id string) (*Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, cerrors.NewNotFound("session", id)
	}
	return sess, nil
}

// SessionFor returns the session bound to key, creating it on first use.
func (s *Service) SessionFor(key string) *Session {
	return s.sessions.GetOrCreate(key, func() *Session {
		sess := newSession(key, s.now())
		sess.setBaseRatio(s.baseRatio)
		return sess
	})
}

// Delete closes and forgets a session.
func (s *Service) Delete(id string) bool {
	return s.sessions.Delete(id)
}

// FetchQuotes asks for five quotes on theme, or on the form's theme when
// theme is empty. A new list clears the previous selection.
func (s *Service) FetchQuotes(ctx context.Context, sess *Session, theme string) ([]prompt.Quote, error) {
	if err := (prompt.Form{QuoteTheme: theme}).Validate(); err != nil {
		return nil, err
	}
	if !sess.tryAcquire(GateQuote) {
		return nil, cerrors.NewBusy(GateQuote)
	}
	defer sess.release(GateQuote)

	sess.mu.Lock()
	epoch := sess.epoch
	if theme != "" {
		f := sess.form
		f.QuoteTheme = theme
		sess.form = f.Normalize()
	}
	theme = sess.form.QuoteTheme
	sess.mu.Unlock()

	quotes, err := s.gen.FetchQuotes(ctx, prompt.BuildQuotes(theme))
	if err != nil {
		s.logger.Warn("quote fetch failed", "session", sess.ID, "theme", theme, "error", err)
		return nil, wrap(err)
	}

	sess.mu.Lock()
	if sess.epoch == epoch {
		sess.quotes = quotes
		sess.selected = -1
	}
	sess.mu.Unlock()

	return append([]prompt.Quote(nil), quotes...), nil
}

// SelectQuote picks one of the fetched quotes for quote mode.
func (s *Service) SelectQuote(sess *Session, index int) (prompt.Quote, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if len(sess.quotes) == 0 {
		return prompt.Quote{}, cerrors.NewMissingPrerequisite("quotes")
	}
	if index < 0 || index >= len(sess.quotes) {
		return prompt.Quote{}, invalidf("quote index %d out of range [0, %d)", index, len(sess.quotes))
	}
	sess.selected = index
	return sess.quotes[index], nil
}

// GenerateContent writes the card text. In quote mode a quote must be
// selected first.
func (s *Service) GenerateContent(ctx context.Context, sess *Session) (gemini.GreetingContent, error) {
	sess.mu.Lock()
	form := sess.form
	epoch := sess.epoch
	quoteText := ""
	if form.Mode == prompt.ModeQuote {
		if sess.selected < 0 || sess.selected >= len(sess.quotes) {
			sess.mu.Unlock()
			return gemini.GreetingContent{}, cerrors.NewMissingPrerequisite("quote")
		}
		quoteText = sess.quotes[sess.selected].Format()
	}
	sess.mu.Unlock()

	if !sess.tryAcquire(GateText) {
		return gemini.GreetingContent{}, cerrors.NewBusy(GateText)
	}
	defer sess.release(GateText)

	started := s.now()
	content, err := s.gen.GenerateGreeting(ctx, prompt.BuildGreeting(form, quoteText, started))
	if err != nil {
		s.logger.Warn("content generation failed", "session", sess.ID, "mode", form.Mode, "error", err)
		return gemini.GreetingContent{}, wrap(err)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.epoch != epoch {
		return content, nil
	}

	sess.content = &content
	sess.message = content.MainMessage
	if sess.form.Sender == "" && content.Sender != "" {
		sess.form.Sender = content.Sender
	}
	if content.RecommendedSeason != "" {
		sess.form.DesignRequirement = content.RecommendedSeason
	}
	sess.appearance.Align = card.AlignCenter

	s.logger.Info("content generated", "session", sess.ID, "mode", form.Mode, "length", card.MessageLength(content.MainMessage))
	return content, nil
}

// visualInputs is what image and video generation read from the session.
type visualInputs struct {
	epoch     uint64
	content   gemini.GreetingContent
	form      prompt.Form
	message   string
	reference *gemini.ImageInput
	ratio     card.AspectRatio
}

func (s *Session) visualInputs() (visualInputs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.content == nil {
		return visualInputs{}, cerrors.NewMissingPrerequisite("content")
	}
	in := visualInputs{
		epoch:   s.epoch,
		content: *s.content,
		form:    s.form,
		message: s.message,
		ratio:   s.ratio,
	}
	if s.reference != nil {
		ref := *s.reference
		in.reference = &ref
	}
	return in, nil
}

func (s *Session) setProgress(msg string) {
	s.mu.Lock()
	s.progress = msg
	s.mu.Unlock()
}

// GenerateImage replaces the background with a generated image. With refine
// set, the form's refinement text is sent along.
func (s *Service) GenerateImage(ctx context.Context, sess *Session, refine bool) (string, error) {
	in, err := sess.visualInputs()
	if err != nil {
		return "", err
	}
	if !sess.tryAcquire(GateVisual) {
		return "", cerrors.NewBusy(GateVisual)
	}
	defer sess.release(GateVisual)

	sess.setProgress(prompt.ProgressMessage(false, in.reference != nil))
	defer sess.setProgress("")

	req := prompt.ImageRequest{
		Theme:             in.content.BgTheme,
		Style:             prompt.ImageStyle,
		DesignRequirement: in.form.DesignRequirement,
		HasReference:      in.reference != nil,
		ImageType:         in.form.ImageType,
		StylePreset:       in.form.StylePreset,
		MessageContext:    in.message,
	}
	if refine {
		req.Refinement = in.form.Refinement
	}

	url, err := s.gen.GenerateImage(ctx, gemini.ImageParams{
		Prompt:      prompt.BuildImagePrompt(req),
		Reference:   in.reference,
		AspectRatio: string(in.ratio),
	})
	if err != nil {
		s.logger.Warn("image generation failed", "session", sess.ID, "error", err)
		return "", wrap(err)
	}

	sess.mu.Lock()
	if sess.epoch == in.epoch {
		sess.visual.SetBackgroundImage(url)
	}
	sess.mu.Unlock()
	return url, nil
}

// StartVideo submits a background video and polls it in the background. The
// visual gate stays held until the job finishes.
func (s *Service) StartVideo(ctx context.Context, sess *Session) (VideoJob, error) {
	in, err := sess.visualInputs()
	if err != nil {
		return VideoJob{}, err
	}
	if !sess.tryAcquire(GateVisual) {
		return VideoJob{}, cerrors.NewBusy(GateVisual)
	}

	sess.setProgress(prompt.ProgressMessage(true, in.reference != nil))
	ratio := card.VideoAspectRatio(in.ratio)
	name, err := s.gen.SubmitVideo(ctx, gemini.VideoParams{
		Prompt: prompt.BuildVideoPrompt(prompt.VideoRequest{
			Theme:          prompt.VideoTheme(in.form.ImageType, in.content.BgTheme),
			Context:        in.message,
			HasReference:   in.reference != nil,
			DesignGuidance: in.form.DesignRequirement,
		}),
		Reference:   in.reference,
		AspectRatio: string(ratio),
	})
	if err != nil {
		sess.setProgress("")
		sess.release(GateVisual)
		s.logger.Warn("video submit failed", "session", sess.ID, "error", err)
		return VideoJob{}, wrap(err)
	}

	pollCtx, cancel := context.WithTimeout(sess.ctx, s.videoTimeout)
	now := s.now()
	sess.mu.Lock()
	if sess.epoch != in.epoch {
		sess.mu.Unlock()
		cancel()
		sess.setProgress("")
		sess.release(GateVisual)
		return VideoJob{}, cerrors.NewNotFound("video job", name)
	}
	seq := sess.video.submit(newID(now), name, string(ratio), now, cancel)
	job := sess.video.public()
	sess.mu.Unlock()

	s.logger.Info("video submitted", "session", sess.ID, "job", job.ID, "operation", name, "ratio", ratio)
	go s.pollVideo(pollCtx, sess, seq, name)
	return job, nil
}

// pollVideo is the only poll loop for submission seq. ctx ends when the job
// is superseded, the session closes or the timeout passes.
func (s *Service) pollVideo(ctx context.Context, sess *Session, seq uint64, name string) {
	defer sess.release(GateVisual)
	defer sess.setProgress("")

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	fail := func(err *cerrors.CardError) {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		if sess.video.fail(seq, err, s.now()) {
			s.logger.Warn("video failed", "session", sess.ID, "operation", name, "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			fail(cerrors.NewUpstream(fmt.Errorf("video polling stopped: %w", ctx.Err())))
			return
		case <-ticker.C:
		}

		op, err := s.gen.PollVideo(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			fail(asCardError(err))
			return
		}

		sess.mu.Lock()
		if !op.Done {
			ok := sess.video.polled(seq, s.now())
			sess.mu.Unlock()
			if !ok {
				return
			}
			continue
		}
		if op.URI == "" {
			sess.mu.Unlock()
			fail(cerrors.NewVideoFailed(name))
			return
		}
		if sess.video.succeed(seq, op.URI, s.now()) {
			sess.visual.SetBackgroundVideo(op.URI)
			s.logger.Info("video ready", "session", sess.ID, "operation", name)
		}
		sess.mu.Unlock()
		return
	}
}

// Video returns the current job.
func (s *Service) Video(sess *Session) VideoJob {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.video.public()
}

// WaitVideo blocks until job id finishes. A superseded job reports NOT_FOUND.
func (s *Service) WaitVideo(ctx context.Context, sess *Session, id string) (VideoJob, error) {
	sess.mu.Lock()
	if sess.video.ID != id || sess.video.done == nil {
		sess.mu.Unlock()
		return VideoJob{}, cerrors.NewNotFound("video job", id)
	}
	done := sess.video.done
	sess.mu.Unlock()

	select {
	case <-ctx.Done():
		return VideoJob{}, ctx.Err()
	case <-done:
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.video.ID != id {
		return VideoJob{}, cerrors.NewNotFound("video job", id)
	}
	job := sess.video.public()
	if sess.video.err != nil {
		return job, sess.video.err
	}
	return job, nil
}

// GenerateVideo submits a video and waits for it.
func (s *Service) GenerateVideo(ctx context.Context, sess *Session) (VideoJob, error) {
	job, err := s.StartVideo(ctx, sess)
	if err != nil {
		return VideoJob{}, err
	}
	return s.WaitVideo(ctx, sess, job.ID)
}

func asCardError(err error) *cerrors.CardError {
	if cErr, ok := cerrors.As(err); ok {
		return cErr
	}
	return cerrors.NewUpstream(err)
}

// wrap gives backend failures a code while keeping context errors intact.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := cerrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return cerrors.NewUpstream(err)
}

func invalid(err error) error {
	return cerrors.NewInvalidRequest(err.Error())
}

func invalidf(format string, args ...any) error {
	return cerrors.NewInvalidRequest(fmt.Sprintf(format, args...))
}
