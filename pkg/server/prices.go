package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/types"
)

// handleGetPrices returns the cached hourly spot prices for the requested
// range, defaulting to the last 24 hours.
func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	prices, err := s.cache.GetPrices(ctx, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get prices", slog.Any("error", err))
		writeJSONError(w, "failed to get prices", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", cacheControl(end, time.Now()))
	writeJSON(w, prices)
}

// cacheControl picks the Cache-Control value for a price range ending at
// end. Ranges ending before today (Helsinki midnight, the timezone prices
// are published in) are confirmed history and cache for 24 hours;
// anything touching today caches for 1 minute.
func cacheControl(end, now time.Time) string {
	local := now.In(types.Helsinki)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, types.Helsinki)
	if end.Before(today) {
		return "private, max-age=86400"
	}
	return "private, max-age=60"
}

func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		// Default to last 24 hours if not specified
		end := time.Now()
		start := end.Add(-24 * time.Hour)
		return start, end, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	return start, end, nil
}
