package store

import (
	"encoding/json"
	"time"

	"github.com/isdmx/graphbox/graph"
)

// Node is a persisted graph node
type Node struct {
	ID      int64          `json:"id"`
	GraphID int64          `json:"graph_id"`
	Label   string         `json:"label"`
	X       float64        `json:"x"`
	Y       float64        `json:"y"`
	Z       float64        `json:"z"`
	Color   string         `json:"color"`
	Size    float64        `json:"size"`
	Extra   map[string]any `json:"extra_data"`
}

// Edge is a persisted edge; SourceID and TargetID are node ids
type Edge struct {
	ID       int64          `json:"id"`
	GraphID  int64          `json:"graph_id"`
	SourceID int64          `json:"source_id"`
	TargetID int64          `json:"target_id"`
	Weight   float64        `json:"weight"`
	Directed bool           `json:"directed"`
	Color    string         `json:"color"`
	Extra    map[string]any `json:"extra_data"`
}

// Graph is a persisted graph with its nodes and edges
type Graph struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NodeInput describes a node to write. Ref, when set, is the id edges in
// the same GraphInput use to refer to this node.
type NodeInput struct {
	Ref   *int64         `json:"id,omitempty"`
	Label string         `json:"label"`
	X     float64        `json:"x"`
	Y     float64        `json:"y"`
	Z     float64        `json:"z"`
	Color string         `json:"color"`
	Size  float64        `json:"size"`
	Extra map[string]any `json:"extra_data,omitempty"`
}

// UnmarshalJSON applies the node defaults to omitted fields
func (n *NodeInput) UnmarshalJSON(data []byte) error {
	type plain NodeInput
	p := plain{Color: graph.DefaultNodeColor, Size: graph.DefaultNodeSize}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*n = NodeInput(p)
	return nil
}

// EdgeInput describes an edge to write. Inside a GraphInput the endpoints
// are node Refs; for AddEdge they are existing node ids.
type EdgeInput struct {
	SourceID int64          `json:"source_id"`
	TargetID int64          `json:"target_id"`
	Weight   float64        `json:"weight"`
	Directed bool           `json:"directed"`
	Color    string         `json:"color"`
	Extra    map[string]any `json:"extra_data,omitempty"`
}

// UnmarshalJSON applies the edge defaults to omitted fields
func (e *EdgeInput) UnmarshalJSON(data []byte) error {
	type plain EdgeInput
	p := plain{Weight: graph.DefaultWeight, Color: graph.DefaultEdgeColor}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = EdgeInput(p)
	return nil
}

// GraphInput is a whole graph to create or replace. Edges whose endpoints
// do not match a node Ref are skipped.
type GraphInput struct {
	Name  string      `json:"name"`
	Nodes []NodeInput `json:"nodes"`
	Edges []EdgeInput `json:"edges"`
}

// InputFromDraft uses each node's position in the draft as its Ref
func InputFromDraft(name string, draft graph.Draft) GraphInput {
	in := GraphInput{
		Name:  name,
		Nodes: make([]NodeInput, 0, len(draft.Nodes)),
		Edges: make([]EdgeInput, 0, len(draft.Edges)),
	}

	for i, n := range draft.Nodes {
		ref := int64(i)
		in.Nodes = append(in.Nodes, NodeInput{
			Ref:   &ref,
			Label: n.Label,
			X:     n.X,
			Y:     n.Y,
			Z:     n.Z,
			Color: n.Color,
			Size:  n.Size,
			Extra: n.Extra,
		})
	}

	for _, e := range draft.Edges {
		in.Edges = append(in.Edges, EdgeInput{
			SourceID: int64(e.Source),
			TargetID: int64(e.Target),
			Weight:   e.Weight,
			Directed: e.Directed,
			Color:    e.Color,
			Extra:    e.Extra,
		})
	}

	return in
}

// Project groups a named, described workspace with one graph
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	GraphID     *int64    `json:"graph_id"`
	Graph       *Graph    `json:"graph,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectInput creates a project
type ProjectInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// ProjectUpdate changes only the fields that are set
type ProjectUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// ProjectFilter pages and filters ListProjects
type ProjectFilter struct {
	Skip   int
	Limit  int
	Search string
}

// ProjectMetadata summarizes a project without loading its graph
type ProjectMetadata struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	NodeCount   int       `json:"node_count"`
	EdgeCount   int       `json:"edge_count"`
	GraphID     *int64    `json:"graph_id,omitempty"`
}

func encodeExtra(extra map[string]any) (any, error) {
	if extra == nil {
		return nil, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeExtra(raw *string) map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(*raw), &extra); err != nil {
		return nil
	}
	return extra
}
