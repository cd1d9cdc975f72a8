package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/seclens/alertgraph/pkg/logging"
	"github.com/seclens/alertgraph/pkg/source"
)

// DetectLateralMovement scans the org's correlated alerts in the window for
// multi-hop device traversal: maximal runs of correlated, time-ordered
// alerts where each step moves to a different device within the gap bound.
// A qualifying run spans at least two distinct devices and two alerts. This
// is a reporting query; nothing is written back.
func (s *Service) DetectLateralMovement(ctx context.Context, orgKey string, windowHours int) (paths []string, err error) {
	start := s.now()
	defer func() { s.observe("lateral_movement", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, s.opts.QueryBudget)
	defer cancel()

	to := s.now()
	window := time.Duration(windowHours) * time.Hour
	from := to.Add(-window)

	alerts, err := s.src.AlertsByOrg(ctx, orgKey, from, to)
	if err != nil {
		return nil, err
	}
	if len(alerts) < 2 {
		return []string{}, nil
	}

	// Correlation is computed here rather than read from prior state, so
	// the detector works whether or not Correlate ran first.
	pairs, err := s.correlatePairs(ctx, alerts)
	if err != nil {
		return nil, err
	}

	maxGap := s.opts.MaxGap
	if maxGap <= 0 {
		maxGap = window
	}

	paths = extractPaths(alerts, pairs, maxGap)

	s.logger.Info("lateral movement scan complete",
		logging.Field{Key: "org_key", Value: orgKey},
		logging.Field{Key: "window_hours", Value: windowHours},
		logging.Field{Key: "alerts", Value: len(alerts)},
		logging.Field{Key: "paths", Value: len(paths)})
	return paths, nil
}

// extractPaths walks each correlated component in temporal order and
// extracts maximal device-changing runs. Output order is deterministic:
// components by earliest alert, alerts by (create_time, id).
func extractPaths(alerts []*source.AlertRecord, pairs []correlatedPair, maxGap time.Duration) []string {
	components := correlatedComponents(alerts, pairs)

	paths := []string{}
	for _, component := range components {
		sort.Slice(component, func(i, j int) bool {
			if !component[i].CreateTime.Equal(component[j].CreateTime) {
				return component[i].CreateTime.Before(component[j].CreateTime)
			}
			return component[i].ID < component[j].ID
		})

		var run []*source.AlertRecord
		flush := func() {
			if desc := describeRun(run); desc != "" {
				paths = append(paths, desc)
			}
			run = nil
		}

		for _, alert := range component {
			if len(run) == 0 {
				run = append(run, alert)
				continue
			}
			prev := run[len(run)-1]
			sameDevice := alert.DeviceID == prev.DeviceID
			gapExceeded := alert.CreateTime.Sub(prev.CreateTime) > maxGap
			if sameDevice || gapExceeded {
				flush()
				run = append(run, alert)
				continue
			}
			run = append(run, alert)
		}
		flush()
	}

	return paths
}

// describeRun renders a qualifying run as an ordered device sequence with
// its alert ids, or returns "" when the run does not qualify.
func describeRun(run []*source.AlertRecord) string {
	if len(run) < 2 {
		return ""
	}
	devices := make([]string, 0, len(run))
	alertIDs := make([]string, 0, len(run))
	distinct := make(map[string]bool)
	for _, alert := range run {
		devices = append(devices, alert.DeviceID)
		alertIDs = append(alertIDs, alert.ID)
		distinct[alert.DeviceID] = true
	}
	if len(distinct) < 2 {
		return ""
	}
	return fmt.Sprintf("%s (alerts: %s)",
		strings.Join(devices, " -> "), strings.Join(alertIDs, ", "))
}

// correlatedComponents groups alerts into connected components over the
// correlation pairs, ordered by their earliest member.
func correlatedComponents(alerts []*source.AlertRecord, pairs []correlatedPair) [][]*source.AlertRecord {
	parent := make(map[string]string, len(alerts))
	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	for _, alert := range alerts {
		parent[alert.ID] = alert.ID
	}
	for _, pair := range pairs {
		rootA, rootB := find(pair.from.ID), find(pair.to.ID)
		if rootA != rootB {
			parent[rootA] = rootB
		}
	}

	grouped := make(map[string][]*source.AlertRecord)
	for _, alert := range alerts {
		root := find(alert.ID)
		grouped[root] = append(grouped[root], alert)
	}

	components := make([][]*source.AlertRecord, 0, len(grouped))
	for _, members := range grouped {
		if len(members) < 2 {
			continue
		}
		components = append(components, members)
	}
	sort.Slice(components, func(i, j int) bool {
		a, b := earliest(components[i]), earliest(components[j])
		if !a.CreateTime.Equal(b.CreateTime) {
			return a.CreateTime.Before(b.CreateTime)
		}
		return a.ID < b.ID
	})
	return components
}

func earliest(alerts []*source.AlertRecord) *source.AlertRecord {
	best := alerts[0]
	for _, alert := range alerts[1:] {
		if alert.CreateTime.Before(best.CreateTime) ||
			(alert.CreateTime.Equal(best.CreateTime) && alert.ID < best.ID) {
			best = alert
		}
	}
	return best
}
