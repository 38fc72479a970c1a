package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spothinta/spothinta/pkg/fetcher"
	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/pricecache"
	"github.com/spothinta/spothinta/pkg/pricing"
	"github.com/spothinta/spothinta/pkg/server"
	"github.com/spothinta/spothinta/pkg/spotfeed"
	"github.com/spothinta/spothinta/pkg/storage"

	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
)

func main() {
	// init packages
	db := storage.Configured()
	feed := spotfeed.Configured()
	cache := pricecache.New(pricecache.SourceFunc(db.GetPricesForPeriod))
	engine := pricing.Configured(cache)
	f := fetcher.Configured(feed, db)

	// init server
	srv := server.Configured(engine, cache, db)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := db.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	// background price sync, stops with the same signal context
	go func() {
		if err := f.Run(ctx); err != nil && ctx.Err() == nil {
			log.Ctx(ctx).ErrorContext(ctx, "price sync failed", "error", err)
		}
	}()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
