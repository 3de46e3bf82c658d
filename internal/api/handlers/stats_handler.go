package handlers

import (
	"database/sql"
	"net/http"

	"github.com/isdelr/pollboard/internal/models"
	"github.com/isdelr/pollboard/internal/services"
	"github.com/rs/zerolog/log"
)

// HostSampler exposes the most recent host resource sample.
type HostSampler interface {
	Latest() (models.HostSample, bool)
}

// StatsHandler serves store totals, host usage and the health probe.
type StatsHandler struct {
	service services.StatsServiceProvider
	sampler HostSampler
	db      *sql.DB
}

// NewStatsHandler creates a new StatsHandler. sampler may be nil.
func NewStatsHandler(service services.StatsServiceProvider, sampler HostSampler, db *sql.DB) *StatsHandler {
	return &StatsHandler{service: service, sampler: sampler, db: db}
}

// Get handles the request for aggregate statistics.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.GetTotals(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute totals")
		writeError(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}

	stats := models.Stats{Totals: totals}
	if h.sampler != nil {
		if sample, ok := h.sampler.Latest(); ok {
			stats.Host = &sample
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

// Health reports whether the database is reachable.
func (h *StatsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		log.Error().Err(err).Msg("Health check failed")
		writeError(w, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
