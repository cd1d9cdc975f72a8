package model

import "sort"

// Statistics summarizes a returned graph.
type Statistics struct {
	TotalNodes  int              `json:"total_nodes"`
	TotalEdges  int              `json:"total_edges"`
	NodesByType map[NodeType]int `json:"nodes_by_type"`
	EdgesByType map[EdgeType]int `json:"edges_by_type"`

	// MaxSeverity is the worst (numerically lowest) severity among Alert
	// nodes in the graph; 0 when the graph contains no alerts.
	MaxSeverity int `json:"max_severity"`
}

// Graph is the node/edge set returned per query.
type Graph struct {
	Nodes      []*Node    `json:"nodes"`
	Edges      []*Edge    `json:"edges"`
	Statistics Statistics `json:"statistics"`
}

// NewGraph builds a Graph from nodes and edges, sorted by id for stable
// output, with derived statistics.
func NewGraph(nodes []*Node, edges []*Edge) *Graph {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	g := &Graph{Nodes: nodes, Edges: edges}
	g.Statistics = computeStatistics(nodes, edges)
	return g
}

// HasNode reports whether the graph contains a node with the given id.
func (g *Graph) HasNode(id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

// NodeIDs returns the ids of all nodes in the graph.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

func computeStatistics(nodes []*Node, edges []*Edge) Statistics {
	stats := Statistics{
		TotalNodes:  len(nodes),
		TotalEdges:  len(edges),
		NodesByType: make(map[NodeType]int),
		EdgesByType: make(map[EdgeType]int),
	}

	for _, n := range nodes {
		stats.NodesByType[n.Type]++
		if n.Type == NodeAlert && n.Severity > 0 {
			if stats.MaxSeverity == 0 || n.Severity < stats.MaxSeverity {
				stats.MaxSeverity = n.Severity
			}
		}
	}
	for _, e := range edges {
		stats.EdgesByType[e.Type]++
	}

	return stats
}
