package main

import (
	"context"
	"os"

	"github.com/levenlabs/go-lflag"
	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/storage"
)

// seed loads a historic price CSV into the local firestore emulator so the
// comparison API has data to work with during development.
func main() {
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	s := storage.Configured()
	historyPath := lflag.String("history-csv", "prices.csv", "Path to a timestamp;price history CSV to load")
	lflag.Configure()

	ctx := context.Background()
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	f, err := os.Open(*historyPath)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to open history csv", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	log.Ctx(ctx).InfoContext(ctx, "seeding price history")
	stats, err := storage.LoadHistoryCSV(ctx, s, f)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load history csv", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "seeded price history",
		"rows", stats.Rows, "inserted", stats.Inserted, "skipped", stats.Skipped)
}
