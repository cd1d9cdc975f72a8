package model

import "fmt"

// NodeType identifies the kind of security entity a node represents.
// The set is closed: adding a new entity kind means adding a constant here
// and updating ValidNodeTypes.
type NodeType string

const (
	NodeAlert   NodeType = "Alert"
	NodeDevice  NodeType = "Device"
	NodeProcess NodeType = "Process"
	NodeIOC     NodeType = "IOC"
	NodeUser    NodeType = "User"
)

var validNodeTypes = map[NodeType]bool{
	NodeAlert:   true,
	NodeDevice:  true,
	NodeProcess: true,
	NodeIOC:     true,
	NodeUser:    true,
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	return validNodeTypes[t]
}

// ParseNodeType converts a string to a NodeType.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown node type %q", s)
	}
	return t, nil
}

// EdgeType identifies the kind of relationship an edge represents.
type EdgeType string

const (
	EdgeTriggeredOn     EdgeType = "TRIGGERED_ON"
	EdgeInvolvesProcess EdgeType = "INVOLVES_PROCESS"
	EdgeParentOf        EdgeType = "PARENT_OF"
	EdgeCorrelatedWith  EdgeType = "CORRELATED_WITH"
	EdgeContainsIOC     EdgeType = "CONTAINS_IOC"
)

var validEdgeTypes = map[EdgeType]bool{
	EdgeTriggeredOn:     true,
	EdgeInvolvesProcess: true,
	EdgeParentOf:        true,
	EdgeCorrelatedWith:  true,
	EdgeContainsIOC:     true,
}

// Valid reports whether t is one of the known edge types.
func (t EdgeType) Valid() bool {
	return validEdgeTypes[t]
}

// ParseEdgeType converts a string to an EdgeType.
func ParseEdgeType(s string) (EdgeType, error) {
	t := EdgeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown edge type %q", s)
	}
	return t, nil
}

// Severity bounds for alert nodes. Lower is worse: 1 is critical,
// 10 is informational.
const (
	SeverityCritical      = 1
	SeverityInformational = 10
)

// Node is a typed security entity in the correlation graph.
type Node struct {
	ID    string   `json:"id"`
	Type  NodeType `json:"type"`
	Label string   `json:"label"`

	// Severity is set for Alert nodes only; 0 means not applicable.
	Severity int `json:"severity,omitempty"`

	// Properties holds type-specific attributes
	// (Device: ip, os; Process: pid, name; IOC: value, threat_score).
	Properties map[string]any `json:"properties,omitempty"`
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	clone := *n
	if n.Properties != nil {
		clone.Properties = make(map[string]any, len(n.Properties))
		for k, v := range n.Properties {
			clone.Properties[k] = v
		}
	}
	return &clone
}

// Edge is a typed, directed relationship between two nodes.
type Edge struct {
	ID   string   `json:"id"`
	Type EdgeType `json:"type"`
	From string   `json:"from"`
	To   string   `json:"to"`

	// Score is the correlation confidence in [0,1], set for
	// CORRELATED_WITH edges only.
	Score float64 `json:"score,omitempty"`
}

// EdgeID derives a deterministic edge identifier from (from, to, type) so
// that repeated insertion of the same relationship is idempotent.
func EdgeID(from, to string, edgeType EdgeType) string {
	return fmt.Sprintf("%s:%s:%s", from, string(edgeType), to)
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	clone := *e
	return &clone
}
