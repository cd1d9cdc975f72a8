package engine

import (
	"context"
	"fmt"

	"github.com/seclens/alertgraph/pkg/logging"
	"github.com/seclens/alertgraph/pkg/model"
	"github.com/seclens/alertgraph/pkg/source"
	"github.com/seclens/alertgraph/pkg/store"
)

type bfsEntry struct {
	alertID string
	hop     int
}

// Expand performs a depth-bounded BFS from the root alert, materializing its
// devices, processes, and IOCs, and at depth >= 2 the alerts correlated with
// each frontier alert. Already-visited alerts are never re-expanded, so
// mutually correlated alerts cannot loop the traversal.
func (s *Service) Expand(ctx context.Context, rootAlertID string, depth int) (g *model.Graph, err error) {
	start := s.now()
	defer func() { s.observe("expand", start, err) }()

	if depth < 1 {
		return nil, fmt.Errorf("depth must be >= 1, got %d", depth)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryBudget)
	defer cancel()

	scratch := store.NewEntityStore()
	if err := s.expandInto(ctx, scratch, rootAlertID, depth); err != nil {
		return nil, err
	}

	g = scratch.Graph()
	s.logger.Debug("graph expanded",
		logging.Field{Key: "root", Value: rootAlertID},
		logging.Field{Key: "depth", Value: depth},
		logging.Field{Key: "nodes", Value: g.Statistics.TotalNodes},
		logging.Field{Key: "edges", Value: g.Statistics.TotalEdges})
	return g, nil
}

// expandInto runs the BFS into the given store.
func (s *Service) expandInto(ctx context.Context, st *store.EntityStore, rootAlertID string, depth int) error {
	visited := make(map[string]bool)
	queue := []bfsEntry{{alertID: rootAlertID, hop: 0}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return source.AsEngineError(err)
		}

		current := queue[0]
		queue = queue[1:]
		if visited[current.alertID] {
			continue
		}
		visited[current.alertID] = true

		alert, err := s.src.AlertByID(ctx, current.alertID)
		if err != nil {
			return err
		}

		if err := s.materializeAlert(ctx, st, alert); err != nil {
			return err
		}

		// Correlated-alert hops need at least two levels of remaining
		// depth: one for the correlated alert, one for its entities.
		if depth-current.hop < 2 {
			continue
		}

		partners, err := s.correlatedPartners(ctx, st, alert)
		if err != nil {
			return err
		}
		for _, partnerID := range partners {
			if !visited[partnerID] {
				queue = append(queue, bfsEntry{alertID: partnerID, hop: current.hop + 1})
			}
		}
	}

	return nil
}

// ExpandOne performs a single-level expansion of one node, merging the
// result into the given store without discarding previously fetched
// neighbors. Alert nodes gain their direct entities; Device nodes gain the
// alerts that triggered on them inside the expand window. Other node types
// have no further neighbors to fetch.
func (s *Service) ExpandOne(ctx context.Context, st *store.EntityStore, nodeID string) (g *model.Graph, err error) {
	start := s.now()
	defer func() { s.observe("expand_one", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryBudget)
	defer cancel()

	node := st.GetNode(nodeID)
	if node == nil {
		// The node may not be in this session yet; treat an unknown id
		// as an alert to seed from.
		alert, err := s.src.AlertByID(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		if err := s.materializeAlert(ctx, st, alert); err != nil {
			return nil, err
		}
		return st.Graph(), nil
	}

	switch node.Type {
	case model.NodeAlert:
		alert, err := s.src.AlertByID(ctx, nodeID)
		if err != nil {
			return nil, err
		}
		if err := s.materializeAlert(ctx, st, alert); err != nil {
			return nil, err
		}
	case model.NodeDevice:
		if err := s.attachDeviceAlerts(ctx, st, nodeID); err != nil {
			return nil, err
		}
	}

	return st.Graph(), nil
}

// materializeAlert upserts the alert node plus its directly related device,
// processes, and IOCs with their typed edges.
func (s *Service) materializeAlert(ctx context.Context, st *store.EntityStore, alert *source.AlertRecord) error {
	if err := st.UpsertNode(alertNode(alert)); err != nil {
		return err
	}

	if alert.DeviceID != "" {
		device, err := s.src.DeviceByID(ctx, alert.DeviceID)
		if err != nil {
			return err
		}
		if err := st.UpsertNode(deviceNode(device)); err != nil {
			return err
		}
		if err := st.UpsertEdge(&model.Edge{
			Type: model.EdgeTriggeredOn,
			From: alert.ID,
			To:   device.ID,
		}); err != nil {
			return err
		}
	}

	processes, err := s.src.ProcessesForAlert(ctx, alert.ID)
	if err != nil {
		return err
	}
	for _, proc := range processes {
		if err := st.UpsertNode(processNode(proc)); err != nil {
			return err
		}
		if err := st.UpsertEdge(&model.Edge{
			Type: model.EdgeInvolvesProcess,
			From: alert.ID,
			To:   proc.ID,
		}); err != nil {
			return err
		}
	}
	// Parent links only after all process nodes exist.
	for _, proc := range processes {
		if proc.ParentID == "" || !st.HasNode(proc.ParentID) {
			continue
		}
		if err := st.UpsertEdge(&model.Edge{
			Type: model.EdgeParentOf,
			From: proc.ParentID,
			To:   proc.ID,
		}); err != nil {
			return err
		}
	}

	iocs, err := s.src.IOCsForAlert(ctx, alert.ID)
	if err != nil {
		return err
	}
	for _, ioc := range iocs {
		if err := st.UpsertNode(iocNode(ioc)); err != nil {
			return err
		}
		if err := st.UpsertEdge(&model.Edge{
			Type: model.EdgeContainsIOC,
			From: alert.ID,
			To:   ioc.ID,
		}); err != nil {
			return err
		}
	}

	return nil
}

// correlatedPartners finds alerts correlated with the given alert inside the
// expand window, upserts the partner nodes and CORRELATED_WITH edges, and
// returns the partner ids. Correlation is computed lazily here, never read
// from persisted state.
func (s *Service) correlatedPartners(ctx context.Context, st *store.EntityStore, alert *source.AlertRecord) ([]string, error) {
	from := alert.CreateTime.Add(-s.opts.ExpandWindow)
	to := alert.CreateTime.Add(s.opts.ExpandWindow)

	candidates, err := s.src.AlertsInWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}

	self, err := s.pivotProfile(ctx, alert)
	if err != nil {
		return nil, err
	}

	var partners []string
	for _, candidate := range candidates {
		if candidate.ID == alert.ID {
			continue
		}
		other, err := s.pivotProfile(ctx, candidate)
		if err != nil {
			return nil, err
		}
		score := s.pivotScore(self, other)
		if score == 0 {
			continue
		}

		if err := st.UpsertNode(alertNode(candidate)); err != nil {
			return nil, err
		}
		edgeFrom, edgeTo := canonicalPair(alert, candidate)
		if err := st.UpsertEdge(&model.Edge{
			Type:  model.EdgeCorrelatedWith,
			From:  edgeFrom,
			To:    edgeTo,
			Score: score,
		}); err != nil {
			return nil, err
		}
		partners = append(partners, candidate.ID)
	}

	return partners, nil
}

// attachDeviceAlerts adds the alerts that triggered on a device within the
// expand window around now.
func (s *Service) attachDeviceAlerts(ctx context.Context, st *store.EntityStore, deviceID string) error {
	to := s.now()
	from := to.Add(-s.opts.ExpandWindow)

	alerts, err := s.src.AlertsInWindow(ctx, from, to)
	if err != nil {
		return err
	}
	for _, alert := range alerts {
		if alert.DeviceID != deviceID {
			continue
		}
		if err := st.UpsertNode(alertNode(alert)); err != nil {
			return err
		}
		if err := st.UpsertEdge(&model.Edge{
			Type: model.EdgeTriggeredOn,
			From: alert.ID,
			To:   deviceID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Node constructors from source records.

func alertNode(rec *source.AlertRecord) *model.Node {
	return &model.Node{
		ID:       rec.ID,
		Type:     model.NodeAlert,
		Label:    rec.Title,
		Severity: rec.Severity,
		Properties: map[string]any{
			"org_key":     rec.OrgKey,
			"device_id":   rec.DeviceID,
			"create_time": rec.CreateTime,
		},
	}
}

func deviceNode(rec *source.DeviceRecord) *model.Node {
	return &model.Node{
		ID:    rec.ID,
		Type:  model.NodeDevice,
		Label: rec.Hostname,
		Properties: map[string]any{
			"ip": rec.IP,
			"os": rec.OS,
		},
	}
}

func processNode(rec *source.ProcessRecord) *model.Node {
	return &model.Node{
		ID:    rec.ID,
		Type:  model.NodeProcess,
		Label: rec.Name,
		Properties: map[string]any{
			"pid":  rec.PID,
			"name": rec.Name,
			"hash": rec.Hash,
		},
	}
}

func iocNode(rec *source.IOCRecord) *model.Node {
	return &model.Node{
		ID:    rec.ID,
		Type:  model.NodeIOC,
		Label: rec.Value,
		Properties: map[string]any{
			"value":        rec.Value,
			"kind":         rec.Kind,
			"threat_score": rec.ThreatScore,
		},
	}
}
