package engine

import (
	"context"
	"time"

	"github.com/seclens/alertgraph/pkg/logging"
	"github.com/seclens/alertgraph/pkg/model"
	"github.com/seclens/alertgraph/pkg/source"
	"github.com/seclens/alertgraph/pkg/store"
)

// pivotProfile is the set of attributes an alert can be correlated on.
type pivotProfile struct {
	deviceID  string
	processes map[string]bool // hash when present, otherwise name
	iocs      map[string]bool // ioc values
}

// pivotProfile builds the correlation profile of an alert.
func (s *Service) pivotProfile(ctx context.Context, alert *source.AlertRecord) (*pivotProfile, error) {
	profile := &pivotProfile{
		deviceID:  alert.DeviceID,
		processes: make(map[string]bool),
		iocs:      make(map[string]bool),
	}

	processes, err := s.src.ProcessesForAlert(ctx, alert.ID)
	if err != nil {
		return nil, err
	}
	for _, proc := range processes {
		key := proc.Hash
		if key == "" {
			key = proc.Name
		}
		if key != "" {
			profile.processes[key] = true
		}
	}

	iocs, err := s.src.IOCsForAlert(ctx, alert.ID)
	if err != nil {
		return nil, err
	}
	for _, ioc := range iocs {
		if ioc.Value != "" {
			profile.iocs[ioc.Value] = true
		}
	}

	return profile, nil
}

// pivotScore scores a pair of profiles: the count of distinct matching pivot
// categories (device, process, IOC each count once no matter how many values
// match) divided by the configured category count. Zero means no edge.
func (s *Service) pivotScore(a, b *pivotProfile) float64 {
	shared := 0
	if a.deviceID != "" && a.deviceID == b.deviceID {
		shared++
	}
	if intersects(a.processes, b.processes) {
		shared++
	}
	if intersects(a.iocs, b.iocs) {
		shared++
	}
	if shared == 0 {
		return 0
	}
	return float64(shared) / float64(s.opts.PivotCategories)
}

func intersects(a, b map[string]bool) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if b[k] {
			return true
		}
	}
	return false
}

// canonicalPair fixes the direction of a CORRELATED_WITH edge: earlier
// create_time first, alert id as tie-break. Scoring is computed once per
// unordered pair, so no reverse duplicate can appear.
func canonicalPair(a, b *source.AlertRecord) (from, to string) {
	if a.CreateTime.Before(b.CreateTime) {
		return a.ID, b.ID
	}
	if b.CreateTime.Before(a.CreateTime) {
		return b.ID, a.ID
	}
	if a.ID < b.ID {
		return a.ID, b.ID
	}
	return b.ID, a.ID
}

// correlatedPair is one qualifying alert pair with its score.
type correlatedPair struct {
	from, to *source.AlertRecord
	score    float64
}

// correlatePairs fetches the window's alerts, builds pivot profiles, and
// scores every unordered pair. Pure computation apart from source reads.
func (s *Service) correlatePairs(ctx context.Context, alerts []*source.AlertRecord) ([]correlatedPair, error) {
	profiles := make([]*pivotProfile, len(alerts))
	for i, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return nil, source.AsEngineError(err)
		}
		profile, err := s.pivotProfile(ctx, alert)
		if err != nil {
			return nil, err
		}
		profiles[i] = profile
	}

	var pairs []correlatedPair
	for i := 0; i < len(alerts); i++ {
		for j := i + 1; j < len(alerts); j++ {
			score := s.pivotScore(profiles[i], profiles[j])
			if score == 0 {
				continue
			}
			pairs = append(pairs, correlatedPair{from: alerts[i], to: alerts[j], score: score})
		}
		if err := ctx.Err(); err != nil {
			return nil, source.AsEngineError(err)
		}
	}
	return pairs, nil
}

// Correlate groups the window's alerts by shared pivots and writes one
// CORRELATED_WITH edge per qualifying pair into the given store. It returns
// the number of edges actually created; re-running over the same window only
// merges, so the count drops to zero. Pairs are built into a scratch store
// first: a canceled or timed-out run discards everything instead of merging
// a partial result.
func (s *Service) Correlate(ctx context.Context, st *store.EntityStore, windowHours int) (created int, err error) {
	start := s.now()
	defer func() { s.observe("correlate", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryBudget)
	defer cancel()

	to := s.now()
	from := to.Add(-time.Duration(windowHours) * time.Hour)

	alerts, err := s.src.AlertsInWindow(ctx, from, to)
	if err != nil {
		return 0, err
	}

	pairs, err := s.correlatePairs(ctx, alerts)
	if err != nil {
		return 0, err
	}

	scratch := store.NewEntityStore()
	for _, pair := range pairs {
		if err := scratch.UpsertNode(alertNode(pair.from)); err != nil {
			return 0, err
		}
		if err := scratch.UpsertNode(alertNode(pair.to)); err != nil {
			return 0, err
		}
		edgeFrom, edgeTo := canonicalPair(pair.from, pair.to)
		if err := scratch.UpsertEdge(&model.Edge{
			Type:  model.EdgeCorrelatedWith,
			From:  edgeFrom,
			To:    edgeTo,
			Score: pair.score,
		}); err != nil {
			return 0, err
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, source.AsEngineError(err)
	}

	// Count only edges the destination store does not already have, then
	// merge. The merge itself is idempotent per the edge invariant.
	result := scratch.Graph()
	for _, e := range result.Edges {
		if !st.HasEdge(e.From, e.To, e.Type) {
			created++
		}
	}
	if err := st.Merge(result); err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.RecordCorrelationEdges(created)
	}
	s.logger.Info("correlation complete",
		logging.Field{Key: "window_hours", Value: windowHours},
		logging.Field{Key: "alerts", Value: len(alerts)},
		logging.Field{Key: "edges_created", Value: created})
	return created, nil
}
