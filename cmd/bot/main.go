package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"signature-card-studio/internal/calllog"
	"signature-card-studio/internal/config"
	"signature-card-studio/internal/export"
	"signature-card-studio/internal/gemini"
	"signature-card-studio/internal/handlers"
	"signature-card-studio/internal/httpclient"
	"signature-card-studio/internal/mediagroup"
	"signature-card-studio/internal/studio"
	"signature-card-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireBot(); err != nil {
		panic(err)
	}

	logger := newLogger(cfg)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		UserAgent:  cfg.UserAgent,
	})

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
	if cfg.CallLogPath != "" {
		calls, err := calllog.Open(cfg.CallLogPath, logger)
		if err != nil {
			logger.Error("call log open failed", "path", cfg.CallLogPath, "err", err)
			os.Exit(1)
		}
		defer calls.Close()
		gemOpts.Recorder = calls
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
		sharer = telegram.NewSharer(tg, cfg.ShareChatID)
	}

	handler := handlers.New(handlers.Options{
		Telegram:  tg,
		Studio:    svc,
		Exporter:  export.NewExporter(raster, sharer),
		Logger:    logger,
		VideoWait: cfg.VideoTimeout,
	})

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onAlbumFlush := func(album mediagroup.Album) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleAlbum(reqCtx, album)
		}()
	}

	aggregator := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onAlbumFlush,
	})
	defer aggregator.Close()
	handler.SetMediaGroupAggregator(aggregator)

	logger.Info("bot started", "username", tg.Username(), "sharing", cfg.ShareEnabled())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
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
