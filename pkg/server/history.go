package server

import (
	"log/slog"
	"net/http"

	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/storage"
)

// handlePriceHistoryUpload ingests a historic price CSV into storage.
// Rows already present are skipped so re-uploading the same file is safe.
func (s *Server) handlePriceHistoryUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "missing or invalid price history file", slog.Any("error", err))
		writeJSONError(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	stats, err := storage.LoadHistoryCSV(ctx, s.storage, file)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to load price history", slog.Any("error", err))
		writeJSONError(w, "failed to load price history", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "loaded price history",
		slog.Int("rows", stats.Rows),
		slog.Int("inserted", stats.Inserted),
		slog.Int("skipped", stats.Skipped))
	writeJSON(w, stats)
}
