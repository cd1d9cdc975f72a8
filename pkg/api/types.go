package api

import "github.com/seclens/alertgraph/pkg/model"

// GraphResponse is the body returned by graph queries.
type GraphResponse struct {
	Graph     *model.Graph `json:"graph"`
	SessionID string       `json:"session_id,omitempty"`
}

// CorrelateRequest is the body for POST /graph/correlate.
type CorrelateRequest struct {
	TimeWindowHours int    `json:"time_window_hours"`
	SessionID       string `json:"session_id,omitempty"`
}

// CorrelateResponse is the body returned by POST /graph/correlate.
type CorrelateResponse struct {
	EdgesCreated int `json:"edges_created"`
}

// ExpandNodeRequest is the body for POST /graph/expand.
type ExpandNodeRequest struct {
	NodeID    string `json:"node_id"`
	SessionID string `json:"session_id,omitempty"`
}

// LateralMovementResponse is the body returned by the lateral-movement query.
type LateralMovementResponse struct {
	Paths []string `json:"paths"`
}

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
