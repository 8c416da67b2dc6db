package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"signature-card-studio/internal/calllog"
	"signature-card-studio/internal/config"
	"signature-card-studio/internal/export"
	"signature-card-studio/internal/gemini"
	"signature-card-studio/internal/httpclient"
	"signature-card-studio/internal/render"
	"signature-card-studio/internal/studio"
	"signature-card-studio/internal/telegram"
	"signature-card-studio/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		UserAgent:  cfg.UserAgent,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gemOpts := gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		TextModel:  cfg.TextModel,
		ImageModel: cfg.ImageModel,
		VideoModel: cfg.VideoModel,
		HTTPClient: httpClient,
		Logger:     logger,
	}
	webOpts := web.Options{Logger: logger, RequestTimeout: cfg.RequestTimeout}

	if cfg.CallLogPath != "" {
		calls, err := calllog.Open(cfg.CallLogPath, logger)
		if err != nil {
			logger.Error("call log open failed", "path", cfg.CallLogPath, "err", err)
			os.Exit(1)
		}
		defer calls.Close()
		gemOpts.Recorder = calls
		webOpts.Calls = calls
	}

	svc := studio.NewService(studio.Options{
		Generator:    gemini.New(gemOpts),
		Logger:       logger,
		PollInterval: cfg.VideoPollInterval,
		VideoTimeout: cfg.VideoTimeout,
		IdleTimeout:  cfg.SessionIdleTimeout,
		DefaultRatio: cfg.DefaultRatio,
	})
	go svc.Run(ctx)

	font, err := cfg.LoadFont()
	if err != nil {
		logger.Error("font load failed", "path", cfg.ResolveFontPath(), "err", err)
		os.Exit(1)
	}
	raster, err := export.NewRasterizer(export.RasterOptions{
		Fetcher:       export.NewHTTPFetcher(httpClient, cfg.UserAgent),
		Logger:        logger,
		FontData:      font,
		RequireHangul: cfg.RequireHangulFont,
	})
	if err != nil {
		logger.Error("rasterizer init failed", "err", err)
		os.Exit(1)
	}

	var sharer export.Sharer
	if cfg.ShareEnabled() {
		tg, err := telegram.New(telegram.Options{
			Token:      cfg.TelegramToken,
			HTTPClient: httpClient,
			Logger:     logger,
			Debug:      cfg.Debug,
		})
		if err != nil {
			logger.Error("telegram init failed", "err", err)
			os.Exit(1)
		}
		sharer = telegram.NewSharer(tg, cfg.ShareChatID)
		logger.Info("sharing enabled", "chat_id", cfg.ShareChatID)
	}

	cards, err := render.New()
	if err != nil {
		logger.Error("card templates failed", "err", err)
		os.Exit(1)
	}

	webOpts.Studio = svc
	webOpts.Exporter = export.NewExporter(raster, sharer)
	webOpts.Cards = cards
	server, err := web.New(webOpts)
	if err != nil {
		logger.Error("web init failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	if err := web.Run(ctx, srv, logger); err != nil {
		logger.Error("web server failed", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
