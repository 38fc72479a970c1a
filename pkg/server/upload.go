package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/spothinta/spothinta/pkg/log"
	"github.com/spothinta/spothinta/pkg/pricing"
)

// handleConsumptionUpload accepts a multipart consumption CSV and returns
// the fixed-vs-spot comparison for its span. Missing data is not an HTTP
// error: the response carries the sentinel result so the frontend can show
// it verbatim. Only unexpected calculation failures surface as a 500.
func (s *Server) handleConsumptionUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "missing or invalid consumption file", slog.Any("error", err))
		writeJSONError(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	fixedPrice, err := parseFixedPrice(r)
	if err != nil {
		writeJSONError(w, "invalid fixedPrice: "+err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.engine.Calculate(ctx, file, fixedPrice)
	if err != nil {
		var calcErr *pricing.CalculationError
		if errors.As(err, &calcErr) {
			log.Ctx(ctx).ErrorContext(ctx, "comparison failed", slog.Any("error", err))
			writeJSONError(w, calcErr.Error(), http.StatusInternalServerError)
			return
		}
		// no data, unreadable CSV or an unavailable price source all come
		// back as the sentinel result the engine already produced
		log.Ctx(ctx).WarnContext(ctx, "comparison produced no data", slog.Any("error", err))
	}

	writeJSON(w, result)
}

// parseFixedPrice reads the optional fixedPrice query parameter, a fixed
// contract price in cents per kWh. nil means no fixed contract to compare
// against.
func parseFixedPrice(r *http.Request) (*decimal.Decimal, error) {
	raw := r.URL.Query().Get("fixedPrice")
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
