package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/audit"
	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

// healthResponse is the /healthz payload.
type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// handleHealthz reports liveness.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{Status: "ok", Time: time.Now().UTC()})
}

// handleSummary returns per-entity acceptance counts and flag histograms
// folded from the outcome logs of the most recent run.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := audit.Summarize(s.logsDir)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to read outcome logs")
		return
	}
	writeJSON(w, map[string]any{"entities": summaries})
}

// handleOutcomes returns the recorded outcomes for one entity type.
//
// Query parameters:
//   - decision: "accepted" or "rejected" to filter
//   - limit: maximum number of outcomes to return (default 100, max 1000)
//   - offset: number of matching outcomes to skip, for paging
func (s *Server) handleOutcomes(w http.ResponseWriter, r *http.Request) {
	entity := quality.EntityType(chi.URLParam(r, "entity"))
	switch entity {
	case quality.EntityPatient, quality.EntityEncounter, quality.EntityDiagnosis:
	default:
		writeError(w, r, http.StatusNotFound, "unknown entity type")
		return
	}

	decision := r.URL.Query().Get("decision")
	if decision != "" && decision != string(quality.DecisionAccepted) && decision != string(quality.DecisionRejected) {
		writeError(w, r, http.StatusBadRequest, "decision must be accepted or rejected")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n > 1000 {
			n = 1000
		}
		limit = n
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	outcomes, err := audit.ReadOutcomes(s.logsDir, entity)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to read outcome logs")
		return
	}

	skipped := 0
	filtered := make([]quality.Outcome, 0, limit)
	for _, o := range outcomes {
		if decision != "" && string(o.Decision) != decision {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		filtered = append(filtered, o)
		if len(filtered) == limit {
			break
		}
	}

	writeJSON(w, map[string]any{
		"entity":   entity,
		"count":    len(filtered),
		"offset":   offset,
		"outcomes": filtered,
	})
}

// handleWarehouseCounts returns row counts of the warehouse tables.
// Returns 503 when the server runs without a database connection.
func (s *Server) handleWarehouseCounts(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		writeError(w, r, http.StatusServiceUnavailable, "warehouse not configured")
		return
	}

	counts, err := s.loader.TableCounts(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "failed to query warehouse")
		return
	}
	writeJSON(w, counts)
}
