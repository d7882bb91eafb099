package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	apperrors "github.com/indexer-snapshots/internal/errors"
	"github.com/indexer-snapshots/internal/models"
	"github.com/indexer-snapshots/internal/service"
	"github.com/indexer-snapshots/internal/types"
)

// EventRequest is the body of POST /api/indexers/{indexer}/events
type EventRequest struct {
	Type      types.EventType `json:"type"`
	Amount    string          `json:"amount,omitempty"`
	Timestamp *int64          `json:"timestamp"`
}

// SnapshotsResponse wraps a list of snapshots
type SnapshotsResponse struct {
	Indexer   string                    `json:"indexer"`
	Snapshots []*models.IndexerSnapshot `json:"snapshots"`
}

// handleApplyEvent handles POST /api/indexers/{indexer}/events
func (s *Server) handleApplyEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if req.Timestamp == nil {
		respondServiceError(w, r, apperrors.NewInvalidParameterError("timestamp", "required"))
		return
	}

	result, err := s.service.ApplyEvent(r.Context(), &service.EventInput{
		Indexer:   mux.Vars(r)["indexer"],
		Type:      req.Type,
		Amount:    req.Amount,
		Timestamp: *req.Timestamp,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	respondJSON(w, status, result)
}

// handleGetIndexer handles GET /api/indexers/{indexer}
func (s *Server) handleGetIndexer(w http.ResponseWriter, r *http.Request) {
	indexer, err := s.service.GetIndexer(r.Context(), mux.Vars(r)["indexer"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, indexer)
}

// handleGetSnapshot handles GET /api/indexers/{indexer}/snapshots/{day}
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	day, err := strconv.ParseInt(vars["day"], 10, 64)
	if err != nil {
		respondServiceError(w, r, apperrors.NewInvalidParameterError("day", "must be an integer"))
		return
	}

	snap, err := s.service.GetSnapshot(r.Context(), vars["indexer"], day)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// handleGetSnapshots handles GET /api/indexers/{indexer}/snapshots.
// ?timestamp= returns the snapshot of that day, ?from=&to= a day range.
func (s *Server) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	indexer, err := types.NormalizeIndexerID(mux.Vars(r)["indexer"])
	if err != nil {
		respondServiceError(w, r, apperrors.NewInvalidIndexerError(mux.Vars(r)["indexer"]))
		return
	}
	query := r.URL.Query()

	if query.Get("timestamp") != "" {
		ts, ok := queryInt(w, r, "timestamp")
		if !ok {
			return
		}
		snap, err := s.service.GetSnapshotAt(r.Context(), indexer, ts)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, snap)
		return
	}

	if query.Get("from") == "" || query.Get("to") == "" {
		respondServiceError(w, r, apperrors.NewInvalidParameterError("timestamp", "provide 'timestamp' or both 'from' and 'to'"))
		return
	}

	from, ok := queryInt(w, r, "from")
	if !ok {
		return
	}
	to, ok := queryInt(w, r, "to")
	if !ok {
		return
	}

	snaps, err := s.service.ListSnapshots(r.Context(), indexer, from, to)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if snaps == nil {
		snaps = []*models.IndexerSnapshot{}
	}

	respondJSON(w, http.StatusOK, SnapshotsResponse{Indexer: indexer, Snapshots: snaps})
}

// handleRollingRewards handles GET /api/indexers/{indexer}/rolling-rewards?timestamp=
func (s *Server) handleRollingRewards(w http.ResponseWriter, r *http.Request) {
	ts, ok := queryInt(w, r, "timestamp")
	if !ok {
		return
	}

	rolling, err := s.service.RollingRewards(r.Context(), mux.Vars(r)["indexer"], ts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rolling)
}

// queryInt parses an integer query parameter, writing a 400 when it is malformed
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil {
		respondServiceError(w, r, apperrors.NewInvalidParameterError(name, "must be an integer"))
		return 0, false
	}
	return value, true
}
