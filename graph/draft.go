package graph

import "fmt"

// Defaults applied to fields the generated output leaves out
const (
	DefaultNodeColor = "#3498db"
	DefaultNodeSize  = 1.0
	DefaultEdgeColor = "#95a5a6"
	DefaultWeight    = 1.0
)

// Submission is raw source text plus the display name of the graph it should become
type Submission struct {
	Source string
	Name   string
}

// NodeDraft is a node positioned in 3D space
type NodeDraft struct {
	Label string         `json:"label"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Z     float64        `json:"z"`
	Color string         `json:"color"`
	Size  float64        `json:"size"`
	Extra map[string]any `json:"extra_data,omitempty"`
}

// EdgeDraft connects two nodes by their position in Draft.Nodes
type EdgeDraft struct {
	Source   int            `json:"source"`
	Target   int            `json:"target"`
	Weight   float64        `json:"weight"`
	Directed bool           `json:"directed"`
	Color    string         `json:"color"`
	Extra    map[string]any `json:"extra_data,omitempty"`
}

// Draft is a normalized graph prior to persistence
type Draft struct {
	Nodes []NodeDraft `json:"nodes"`
	Edges []EdgeDraft `json:"edges"`
}

// NewNode returns a node with default color and size at the origin
func NewNode(label string) NodeDraft {
	return NodeDraft{Label: label, Color: DefaultNodeColor, Size: DefaultNodeSize}
}

// NewEdge returns an undirected edge with default weight and color
func NewEdge(source, target int) EdgeDraft {
	return EdgeDraft{Source: source, Target: target, Weight: DefaultWeight, Color: DefaultEdgeColor}
}

// GeneratedLabel is the label given to the node at zero-based index i when none is supplied
func GeneratedLabel(i int) string {
	return fmt.Sprintf("Node %d", i+1)
}

// InRange reports whether both endpoints of e reference a node of d
func (d Draft) InRange(e EdgeDraft) bool {
	n := len(d.Nodes)
	return e.Source >= 0 && e.Source < n && e.Target >= 0 && e.Target < n
}

// Validate returns an error naming the first edge whose endpoints fall outside Nodes
func (d Draft) Validate() error {
	for i, e := range d.Edges {
		if !d.InRange(e) {
			return fmt.Errorf("edge %d references node %d -> %d outside [0, %d)", i, e.Source, e.Target, len(d.Nodes))
		}
	}
	return nil
}
