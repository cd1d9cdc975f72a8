package store

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/seclens/alertgraph/pkg/model"
)

// TestStoreInvariants uses property-based testing to verify invariants that
// must hold for any sequence of store operations.
func TestStoreInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	idGen := gen.OneConstOf("a1", "a2", "a3", "d1", "d2", "p1")

	// Property 1: edge insertion only ever succeeds when both endpoints exist
	properties.Property("edges require existing endpoints", prop.ForAll(
		func(nodeIDs []string, from, to string) bool {
			s := NewEntityStore()
			for _, id := range nodeIDs {
				s.UpsertNode(&model.Node{ID: id, Type: model.NodeAlert})
			}

			err := s.UpsertEdge(&model.Edge{
				Type: model.EdgeCorrelatedWith, From: from, To: to, Score: 0.5,
			})
			if err == nil {
				return s.HasNode(from) && s.HasNode(to)
			}
			return true
		},
		gen.SliceOf(idGen),
		idGen,
		idGen,
	))

	// Property 2: repeated upserts of the same node never duplicate
	properties.Property("node upsert is idempotent", prop.ForAll(
		func(id string, repeats uint8) bool {
			s := NewEntityStore()
			for i := 0; i <= int(repeats%10); i++ {
				if err := s.UpsertNode(&model.Node{ID: id, Type: model.NodeAlert}); err != nil {
					return false
				}
			}
			return s.NodeCount() == 1
		},
		gen.OneConstOf("a1", "a2", "a3"),
		gen.UInt8(),
	))

	// Property 3: every graph snapshot is closed over its edges
	properties.Property("snapshots never contain dangling edges", prop.ForAll(
		func(nodeIDs []string, pairs []string) bool {
			s := NewEntityStore()
			for _, id := range nodeIDs {
				s.UpsertNode(&model.Node{ID: id, Type: model.NodeDevice})
			}
			for i := 0; i+1 < len(pairs); i += 2 {
				s.UpsertEdge(&model.Edge{
					Type: model.EdgeParentOf, From: pairs[i], To: pairs[i+1],
				})
			}

			g := s.Graph()
			for _, e := range g.Edges {
				if !g.HasNode(e.From) || !g.HasNode(e.To) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(idGen),
		gen.SliceOf(idGen),
	))

	properties.TestingRun(t)
}
