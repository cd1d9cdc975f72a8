// Package store implements the deduplicating entity container behind the
// alert correlation graph. Nodes and edges are keyed by id; re-inserting an
// existing entity merges rather than duplicates.
package store

import (
	"sync"

	"github.com/seclens/alertgraph/pkg/model"
)

// EntityStore is an in-memory graph of security entities with merge
// semantics. A store instance is scoped to one expansion/correlation
// session; shared sessions are safe because every mutation takes the
// write lock.
type EntityStore struct {
	mu sync.RWMutex

	nodes map[string]*model.Node
	edges map[string]*model.Edge

	// Adjacency by node id, values are edge ids.
	outgoing map[string][]string
	incoming map[string][]string
}

// NewEntityStore creates an empty store.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		nodes:    make(map[string]*model.Node),
		edges:    make(map[string]*model.Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// UpsertNode inserts the node if absent. If a node with the same id exists,
// its properties are merged key-wise (new values win) and label/severity are
// refreshed; id and type never change. Attempting to change the type fails
// with ErrTypeMismatch.
func (s *EntityStore) UpsertNode(node *model.Node) error {
	if node == nil || node.ID == "" {
		return nodeError("UpsertNode", "", ErrInvalidType)
	}
	if !node.Type.Valid() {
		return nodeError("UpsertNode", node.ID, ErrInvalidType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.nodes[node.ID]
	if !ok {
		s.nodes[node.ID] = node.Clone()
		return nil
	}

	if existing.Type != node.Type {
		return nodeError("UpsertNode", node.ID, ErrTypeMismatch)
	}

	if node.Label != "" {
		existing.Label = node.Label
	}
	if node.Severity > 0 {
		existing.Severity = node.Severity
	}
	if len(node.Properties) > 0 {
		if existing.Properties == nil {
			existing.Properties = make(map[string]any, len(node.Properties))
		}
		for k, v := range node.Properties {
			existing.Properties[k] = v
		}
	}
	return nil
}

// UpsertEdge inserts the edge if absent. Both endpoints must already exist
// or the call fails with ErrDanglingEdge. Insertion is idempotent per
// (from, to, type); for CORRELATED_WITH edges the higher score is retained.
func (s *EntityStore) UpsertEdge(edge *model.Edge) error {
	if edge == nil || edge.From == "" || edge.To == "" {
		return edgeError("UpsertEdge", "", ErrInvalidType)
	}
	if !edge.Type.Valid() {
		return edgeError("UpsertEdge", edge.ID, ErrInvalidType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[edge.From]; !ok {
		return edgeError("UpsertEdge", edge.From, ErrDanglingEdge)
	}
	if _, ok := s.nodes[edge.To]; !ok {
		return edgeError("UpsertEdge", edge.To, ErrDanglingEdge)
	}

	// Dedup key is derived from the relationship itself so the caller's
	// id (if any) cannot defeat idempotence.
	id := model.EdgeID(edge.From, edge.To, edge.Type)

	existing, ok := s.edges[id]
	if ok {
		if edge.Type == model.EdgeCorrelatedWith && edge.Score > existing.Score {
			existing.Score = edge.Score
		}
		return nil
	}

	stored := edge.Clone()
	stored.ID = id
	s.edges[id] = stored
	s.outgoing[edge.From] = append(s.outgoing[edge.From], id)
	s.incoming[edge.To] = append(s.incoming[edge.To], id)
	return nil
}

// GetNode returns a copy of the node with the given id, or nil.
func (s *EntityStore) GetNode(id string) *model.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, ok := s.nodes[id]
	if !ok {
		return nil
	}
	return node.Clone()
}

// HasNode reports whether a node with the given id exists.
func (s *EntityStore) HasNode(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nodes[id]
	return ok
}

// HasEdge reports whether an edge with the given relationship exists.
func (s *EntityStore) HasEdge(from, to string, edgeType model.EdgeType) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[model.EdgeID(from, to, edgeType)]
	return ok
}

// NodeCount returns the number of nodes in the store.
func (s *EntityStore) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges in the store.
func (s *EntityStore) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// EdgesByType returns copies of all edges of the given type.
func (s *EntityStore) EdgesByType(edgeType model.EdgeType) []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Edge
	for _, e := range s.edges {
		if e.Type == edgeType {
			out = append(out, e.Clone())
		}
	}
	return out
}

// EdgesFrom returns copies of the outgoing edges of a node.
func (s *EntityStore) EdgesFrom(nodeID string) []*model.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.outgoing[nodeID]
	out := make([]*model.Edge, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.edges[id].Clone())
	}
	return out
}

// Subgraph returns the nodes in nodeIDs plus every edge whose endpoints are
// both in the set. Unknown ids are skipped. The store is not mutated.
func (s *EntityStore) Subgraph(nodeIDs []string) *model.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]bool, len(nodeIDs))
	nodes := make([]*model.Node, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		if wanted[id] {
			continue
		}
		if node, ok := s.nodes[id]; ok {
			wanted[id] = true
			nodes = append(nodes, node.Clone())
		}
	}

	var edges []*model.Edge
	for _, e := range s.edges {
		if wanted[e.From] && wanted[e.To] {
			edges = append(edges, e.Clone())
		}
	}

	return model.NewGraph(nodes, edges)
}

// Graph returns the whole store as a Graph snapshot with statistics.
func (s *EntityStore) Graph() *model.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*model.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n.Clone())
	}
	edges := make([]*model.Edge, 0, len(s.edges))
	for _, e := range s.edges {
		edges = append(edges, e.Clone())
	}
	return model.NewGraph(nodes, edges)
}

// Merge applies every node and edge of g to the store. Nodes are applied
// before edges so a self-consistent graph can never dangle. Used to fold a
// scratch store's results into a session store only after a query succeeds.
func (s *EntityStore) Merge(g *model.Graph) error {
	for _, n := range g.Nodes {
		if err := s.UpsertNode(n); err != nil {
			return err
		}
	}
	for _, e := range g.Edges {
		if err := s.UpsertEdge(e); err != nil {
			return err
		}
	}
	return nil
}
