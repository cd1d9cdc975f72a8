// Package engine implements the alert correlation graph engine: seed
// expansion around a root alert, time-windowed correlation, and
// lateral-movement detection, all computed over records fetched from the
// backing registry.
package engine

import (
	"time"

	"github.com/seclens/alertgraph/pkg/logging"
	"github.com/seclens/alertgraph/pkg/metrics"
	"github.com/seclens/alertgraph/pkg/source"
)

// Options holds the engine's tunable parameters. The pivot weighting and
// time-gap constants are deliberately configuration, not constants.
type Options struct {
	// PivotCategories is the divisor for correlation scores: the number
	// of pivot categories considered (device, process, IOC).
	PivotCategories int

	// ExpandWindow is the correlation window used during depth >= 2
	// expansion, centered on the alert being expanded.
	ExpandWindow time.Duration

	// MaxGap bounds the time between consecutive alerts in a
	// lateral-movement run. Zero means the query window itself.
	MaxGap time.Duration

	// QueryBudget is the whole-query SLA; operations exceeding it are
	// aborted with a timeout error and partial results are discarded.
	QueryBudget time.Duration
}

// DefaultOptions returns the default tunables.
func DefaultOptions() Options {
	return Options{
		PivotCategories: 3,
		ExpandWindow:    24 * time.Hour,
		MaxGap:          0,
		QueryBudget:     5 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.PivotCategories <= 0 {
		o.PivotCategories = def.PivotCategories
	}
	if o.ExpandWindow <= 0 {
		o.ExpandWindow = def.ExpandWindow
	}
	if o.QueryBudget <= 0 {
		o.QueryBudget = def.QueryBudget
	}
	return o
}

// Service is the graph query facade: the single entry point callers use to
// expand, correlate, and analyze alert graphs. Each query computes over a
// request-scoped store; Service itself holds no graph state.
type Service struct {
	src     source.Source
	opts    Options
	logger  logging.Logger
	metrics *metrics.Registry

	// now is replaceable for tests.
	now func() time.Time
}

// NewService creates a graph engine facade over the given source.
func NewService(src source.Source, opts Options, logger logging.Logger, reg *metrics.Registry) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		src:     src,
		opts:    opts.withDefaults(),
		logger:  logger,
		metrics: reg,
		now:     time.Now,
	}
}

func (s *Service) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordEngineOperation(op, status, time.Since(start))
}
