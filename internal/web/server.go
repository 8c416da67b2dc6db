package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"signature-card-studio/internal/calllog"
	"signature-card-studio/internal/export"
	"signature-card-studio/internal/render"
	"signature-card-studio/internal/studio"
)

//go:embed templates/*.html help.md
var assetFS embed.FS

// CallLog is the read side of the generation call log.
type CallLog interface {
	Recent(ctx context.Context, limit int) ([]calllog.Entry, error)
	Summarize(ctx context.Context) ([]calllog.Summary, error)
}

type Options struct {
	Studio   *studio.Service
	Exporter *export.Exporter
	Cards    *render.Renderer
	Calls    CallLog // optional
	Logger   *slog.Logger

	// RequestTimeout bounds generation calls made on behalf of a request.
	RequestTimeout time.Duration
}

// Server serves the card studio JSON API and the rendered card pages.
type Server struct {
	studio   *studio.Service
	exporter *export.Exporter
	cards    *render.Renderer
	calls    CallLog
	logger   *slog.Logger
	timeout  time.Duration
	help     *template.Template
	helpHTML template.HTML
}

func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}

	help, err := template.ParseFS(assetFS, "templates/help.html")
	if err != nil {
		return nil, err
	}
	md, err := assetFS.ReadFile("help.md")
	if err != nil {
		return nil, err
	}

	return &Server{
		studio:   opts.Studio,
		exporter: opts.Exporter,
		cards:    opts.Cards,
		calls:    opts.Calls,
		logger:   logger,
		timeout:  timeout,
		help:     help,
		helpHTML: renderMarkdown(string(md)),
	}, nil
}

// Handler returns the routed, wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/help", http.StatusFound)
	})
	mux.HandleFunc("GET /help", s.handleHelp)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /api/calls", s.handleCalls)

	mux.HandleFunc("POST /api/sessions", s.handleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGet)
	mux.HandleFunc("PATCH /api/sessions/{id}", s.handlePatch)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /api/sessions/{id}/quotes", s.handleQuotes)
	mux.HandleFunc("POST /api/sessions/{id}/quotes/select", s.handleSelectQuote)
	mux.HandleFunc("POST /api/sessions/{id}/content", s.handleContent)
	mux.HandleFunc("POST /api/sessions/{id}/reference", s.handleReference)
	mux.HandleFunc("DELETE /api/sessions/{id}/reference", s.handleClearReference)
	mux.HandleFunc("POST /api/sessions/{id}/image", s.handleImage)
	mux.HandleFunc("POST /api/sessions/{id}/video", s.handleStartVideo)
	mux.HandleFunc("GET /api/sessions/{id}/video", s.handleVideo)
	mux.HandleFunc("GET /api/sessions/{id}/card", s.handleCard)
	mux.HandleFunc("GET /api/sessions/{id}/export", s.handleExport)
	mux.HandleFunc("POST /api/sessions/{id}/share", s.handleShare)

	return withLogging(securityHeaders(mux), s.logger)
}

// securityHeaders adds security-related HTTP headers to all responses. Cards
// use inline styles, Google Fonts and remote or inline media.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; "+
			"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; font-src https://fonts.gstatic.com; "+
			"img-src 'self' data: https:; media-src 'self' data: https:")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "status", rec.status, "dur_ms", time.Since(start).Milliseconds())
	})
}

// Run serves srv until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("web started", "addr", srv.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
