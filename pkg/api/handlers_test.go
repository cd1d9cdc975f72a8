package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seclens/alertgraph/pkg/auth"
	"github.com/seclens/alertgraph/pkg/config"
	"github.com/seclens/alertgraph/pkg/engine"
	"github.com/seclens/alertgraph/pkg/health"
	"github.com/seclens/alertgraph/pkg/logging"
	"github.com/seclens/alertgraph/pkg/source"
)

const testSecret = "api-test-secret-api-test-secret!"

// stubSource serves a fixed org of correlated alerts hopping between two
// devices within the last hour.
type stubSource struct {
	alerts []*source.AlertRecord
}

func newStubSource() *stubSource {
	now := time.Now()
	return &stubSource{
		alerts: []*source.AlertRecord{
			{ID: "A1", OrgKey: "org-1", Title: "Alert A1", Severity: 2,
				DeviceID: "D1", CreateTime: now.Add(-30 * time.Minute)},
			{ID: "A2", OrgKey: "org-1", Title: "Alert A2", Severity: 4,
				DeviceID: "D2", CreateTime: now.Add(-20 * time.Minute)},
		},
	}
}

func (s *stubSource) AlertByID(ctx context.Context, id string) (*source.AlertRecord, error) {
	for _, rec := range s.alerts {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, fmt.Errorf("alert %s: %w", id, source.ErrNotFound)
}

func (s *stubSource) AlertsInWindow(ctx context.Context, from, to time.Time) ([]*source.AlertRecord, error) {
	var out []*source.AlertRecord
	for _, rec := range s.alerts {
		if !rec.CreateTime.Before(from) && !rec.CreateTime.After(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubSource) AlertsByOrg(ctx context.Context, orgKey string, from, to time.Time) ([]*source.AlertRecord, error) {
	if orgKey != "org-1" {
		return nil, fmt.Errorf("org %s: %w", orgKey, source.ErrNotFound)
	}
	return s.AlertsInWindow(ctx, from, to)
}

func (s *stubSource) DeviceByID(ctx context.Context, id string) (*source.DeviceRecord, error) {
	return &source.DeviceRecord{ID: id, Hostname: "host-" + id, IP: "10.0.0.1", OS: "linux"}, nil
}

func (s *stubSource) ProcessesForAlert(ctx context.Context, alertID string) ([]*source.ProcessRecord, error) {
	return nil, nil
}

func (s *stubSource) IOCsForAlert(ctx context.Context, alertID string) ([]*source.IOCRecord, error) {
	// Both alerts share an IOC so they correlate across devices.
	return []*source.IOCRecord{{
		ID: "ioc-" + alertID, AlertID: alertID,
		Value: "bad.example.com", Kind: "domain", ThreatScore: 0.9,
	}}, nil
}

func (s *stubSource) Ping(ctx context.Context) error { return nil }
func (s *stubSource) Close()                         {}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	validator, err := auth.NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	eng := engine.NewService(newStubSource(), engine.Options{}, logging.NewNopLogger(), nil)

	checker := health.NewHealthChecker()
	checker.RegisterLivenessCheck("service", health.SimpleCheck("service"))
	checker.RegisterReadinessCheck("database", health.DatabaseCheck(func() error { return nil }))

	return NewServer(eng, engine.NewSessionRegistry(0), validator, checker,
		logging.NewNopLogger(), nil, config.ServerConfig{Port: 8080})
}

func bearerToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: "user-1",
		OrgKey: "org-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doRequest(t *testing.T, srv *Server, method, target string, body any, authorize bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if authorize {
		req.Header.Set("Authorization", bearerToken(t))
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthEndpointsRequireNoAuth(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/ready", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGraphEndpointsRequireAuth(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/graph/A1", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/graph/A1", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	bad := httptest.NewRecorder()
	srv.Handler().ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)
}

func TestHandleGraph(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/graph/A1?depth=2", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[GraphResponse](t, rec)
	require.NotNil(t, resp.Graph)
	assert.True(t, resp.Graph.HasNode("A1"))
	assert.True(t, resp.Graph.HasNode("D1"))
	assert.True(t, resp.Graph.HasNode("A2"), "correlated alert pulled in at depth 2")
	assert.Equal(t, resp.Graph.Statistics.TotalNodes, len(resp.Graph.Nodes))
}

func TestHandleGraph_UnknownAlert(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/graph/A404", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGraph_InvalidDepth(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/graph/A1?depth=99", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/graph/A1?depth=abc", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCorrelate(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/graph/correlate",
		CorrelateRequest{TimeWindowHours: 1}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[CorrelateResponse](t, rec)
	assert.Equal(t, 1, resp.EdgesCreated)
}

func TestHandleCorrelate_BadWindow(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/graph/correlate",
		CorrelateRequest{TimeWindowHours: 0}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExpandNode_SessionFlow(t *testing.T) {
	srv := newTestServer(t)

	// First call with no session id starts a session.
	rec := doRequest(t, srv, http.MethodPost, "/graph/expand",
		ExpandNodeRequest{NodeID: "A1"}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	first := decodeBody[GraphResponse](t, rec)
	require.NotEmpty(t, first.SessionID)
	assert.True(t, first.Graph.HasNode("A1"))

	// Expanding another node in the same session accumulates.
	rec = doRequest(t, srv, http.MethodPost, "/graph/expand",
		ExpandNodeRequest{NodeID: "A2", SessionID: first.SessionID}, true)
	require.Equal(t, http.StatusOK, rec.Code)

	second := decodeBody[GraphResponse](t, rec)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.True(t, second.Graph.HasNode("A1"))
	assert.True(t, second.Graph.HasNode("A2"))
}

func TestHandleExpandNode_UnknownSession(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/graph/expand",
		ExpandNodeRequest{NodeID: "A1", SessionID: "3b9f9b1e-9b37-4a59-a9d4-0f1c2d3e4f5a"}, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleLateralMovement(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/graph/lateral-movement?org_key=org-1&hours=1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[LateralMovementResponse](t, rec)
	require.Len(t, resp.Paths, 1)
	assert.Contains(t, resp.Paths[0], "D1 -> D2")
}

func TestHandleLateralMovement_OrgFromClaims(t *testing.T) {
	srv := newTestServer(t)

	// No org_key in the query: the token's org is used.
	rec := doRequest(t, srv, http.MethodGet, "/graph/lateral-movement?hours=1", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[LateralMovementResponse](t, rec)
	assert.Len(t, resp.Paths, 1)
}

func TestHandleLateralMovement_UnknownOrg(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/graph/lateral-movement?org_key=org-missing&hours=1", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
