package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/seclens/alertgraph/pkg/engine"
	"github.com/seclens/alertgraph/pkg/health"
	"github.com/seclens/alertgraph/pkg/logging"
	"github.com/seclens/alertgraph/pkg/source"
	"github.com/seclens/alertgraph/pkg/store"
	"github.com/seclens/alertgraph/pkg/validation"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := s.checker.CheckLiveness()
	status := http.StatusOK
	if response.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, response)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	response := s.checker.CheckReadiness()
	status := http.StatusOK
	if response.Status == health.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	s.respondJSON(w, status, response)
}

// handleGraph serves GET /graph/{alertID}?depth=N.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	alertID := r.PathValue("alertID")

	depth := 1
	if v := r.URL.Query().Get("depth"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "depth must be an integer")
			return
		}
		depth = parsed
	}

	if err := validation.ValidateGraphRequest(&validation.GraphRequest{
		AlertID: alertID,
		Depth:   depth,
	}); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	graph, err := s.engine.Expand(r.Context(), alertID, depth)
	if err != nil {
		s.respondEngineError(w, err, "expand graph")
		return
	}

	s.respondJSON(w, http.StatusOK, GraphResponse{Graph: graph})
}

// handleExpandNode serves POST /graph/expand: interactive single-level
// expansion inside a shared session store.
func (s *Server) handleExpandNode(w http.ResponseWriter, r *http.Request) {
	var req ExpandNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.ValidateExpandNodeRequest(&validation.ExpandNodeRequest{
		NodeID:    req.NodeID,
		SessionID: req.SessionID,
	}); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := s.resolveSession(req.SessionID)
	if session == nil {
		s.respondError(w, http.StatusNotFound, "session not found or expired")
		return
	}

	graph, err := s.engine.ExpandOne(r.Context(), session.Store, req.NodeID)
	if err != nil {
		s.respondEngineError(w, err, "expand node")
		return
	}

	s.respondJSON(w, http.StatusOK, GraphResponse{Graph: graph, SessionID: session.ID})
}

// handleCorrelate serves POST /graph/correlate.
func (s *Server) handleCorrelate(w http.ResponseWriter, r *http.Request) {
	var req CorrelateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.ValidateCorrelateRequest(&validation.CorrelateRequest{
		TimeWindowHours: req.TimeWindowHours,
	}); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Correlation writes into the session store when one is named, or a
	// request-scoped store otherwise.
	var target *store.EntityStore
	if req.SessionID != "" {
		session := s.sessions.Get(req.SessionID)
		if session == nil {
			s.respondError(w, http.StatusNotFound, "session not found or expired")
			return
		}
		target = session.Store
	} else {
		target = store.NewEntityStore()
	}

	created, err := s.engine.Correlate(r.Context(), target, req.TimeWindowHours)
	if err != nil {
		s.respondEngineError(w, err, "correlate")
		return
	}

	s.respondJSON(w, http.StatusOK, CorrelateResponse{EdgesCreated: created})
}

// handleLateralMovement serves GET /graph/lateral-movement?org_key=&hours=.
// Without an explicit org_key the caller's own org from the token is used.
func (s *Server) handleLateralMovement(w http.ResponseWriter, r *http.Request) {
	orgKey := r.URL.Query().Get("org_key")
	if orgKey == "" {
		if claims := claimsFrom(r); claims != nil {
			orgKey = claims.OrgKey
		}
	}

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "hours must be an integer")
			return
		}
		hours = parsed
	}

	if err := validation.ValidateLateralMovementRequest(&validation.LateralMovementRequest{
		OrgKey: orgKey,
		Hours:  hours,
	}); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	paths, err := s.engine.DetectLateralMovement(r.Context(), orgKey, hours)
	if err != nil {
		s.respondEngineError(w, err, "lateral movement")
		return
	}

	s.respondJSON(w, http.StatusOK, LateralMovementResponse{Paths: paths})
}

// resolveSession returns the named session, or a fresh one when id is empty.
func (s *Server) resolveSession(id string) *engine.Session {
	if id == "" {
		return s.sessions.Create()
	}
	return s.sessions.Get(id)
}

// respondEngineError maps engine errors onto HTTP statuses. Invariant
// violations (dangling edge, type mismatch) are logic bugs: they are logged
// loudly and surface as 500, never silently corrected.
func (s *Server) respondEngineError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, source.ErrNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, source.ErrTimeout):
		s.respondError(w, http.StatusGatewayTimeout, "query budget exceeded")
	case errors.Is(err, source.ErrUpstreamUnavailable):
		s.respondError(w, http.StatusBadGateway, "backing data source unavailable")
	case errors.Is(err, store.ErrDanglingEdge), errors.Is(err, store.ErrTypeMismatch):
		s.logger.Error("graph invariant violation",
			logging.String("operation", operation),
			logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal graph invariant violation")
	default:
		s.logger.Error("operation failed",
			logging.String("operation", operation),
			logging.Error(err))
		s.respondError(w, http.StatusInternalServerError, operation+" failed")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{Error: message})
}
