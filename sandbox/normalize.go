package sandbox

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/isdmx/graphbox/graph"
)

// Normalize turns a run outcome into a Draft. Only Success is parsed; every
// other variant maps directly to its ExecutionError. Individual malformed
// nodes degrade to defaults and malformed or out-of-range edges are dropped,
// so only outer structural problems fail the call.
func Normalize(outcome Outcome) (graph.Draft, error) {
	if outcome.Kind != OutcomeSuccess {
		return graph.Draft{}, outcomeError(outcome)
	}

	payload, err := extractPayload(outcome.Stdout)
	if err != nil {
		return graph.Draft{}, err
	}

	var parsed any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return graph.Draft{}, newError(ErrMalformedOutput, fmt.Sprintf("Failed to parse output as JSON: %v", err))
	}

	root, ok := parsed.(map[string]any)
	if !ok {
		return graph.Draft{}, newError(ErrInvalidShape, "Result must be a dictionary")
	}

	rawNodes, hasNodes := root["nodes"]
	rawEdges, hasEdges := root["edges"]
	if !hasNodes || !hasEdges {
		return graph.Draft{}, newError(ErrInvalidShape, "Result must contain 'nodes' and 'edges' keys")
	}

	return buildDraft(asList(rawNodes), asList(rawEdges)), nil
}

// extractPayload picks the last line that opens a JSON object or array,
// falling back to the whole trimmed output.
func extractPayload(stdout string) (string, error) {
	output := strings.TrimSpace(stdout)
	if output == "" {
		return "", newError(ErrMalformedOutput, "No output from code execution")
	}

	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "{") || strings.HasPrefix(line, "[") {
			return line, nil
		}
	}

	return output, nil
}

func buildDraft(rawNodes, rawEdges []any) graph.Draft {
	draft := graph.Draft{
		Nodes: make([]graph.NodeDraft, 0, len(rawNodes)),
		Edges: make([]graph.EdgeDraft, 0, len(rawEdges)),
	}

	for i, raw := range rawNodes {
		draft.Nodes = append(draft.Nodes, coerceNode(i, raw))
	}

	for _, raw := range rawEdges {
		edge, ok := coerceEdge(raw)
		if !ok || !draft.InRange(edge) {
			continue
		}
		draft.Edges = append(draft.Edges, edge)
	}

	return draft
}

func coerceNode(i int, raw any) graph.NodeDraft {
	node := graph.NewNode(graph.GeneratedLabel(i))

	switch v := raw.(type) {
	case map[string]any:
		if label, ok := labelValue(v["label"]); ok {
			node.Label = label
		}
		node.X = floatOr(v["x"], 0)
		node.Y = floatOr(v["y"], 0)
		node.Z = floatOr(v["z"], 0)
		node.Color = stringOr(v["color"], graph.DefaultNodeColor)
		node.Size = floatOr(v["size"], graph.DefaultNodeSize)
		node.Extra = mapOrNil(v["extra_data"])
	case []any:
		coords := [3]float64{}
		for j := range coords {
			if j < len(v) {
				coords[j] = floatOr(v[j], 0)
			}
		}
		node.X, node.Y, node.Z = coords[0], coords[1], coords[2]
	}

	return node
}

// coerceEdge reports false for shapes that cannot describe an edge
func coerceEdge(raw any) (graph.EdgeDraft, bool) {
	switch v := raw.(type) {
	case map[string]any:
		source, ok := indexField(v, "source_id", "source")
		if !ok {
			return graph.EdgeDraft{}, false
		}
		target, ok := indexField(v, "target_id", "target")
		if !ok {
			return graph.EdgeDraft{}, false
		}
		edge := graph.NewEdge(source, target)
		edge.Weight = floatOr(v["weight"], graph.DefaultWeight)
		edge.Directed = boolOr(v["directed"], false)
		edge.Color = stringOr(v["color"], graph.DefaultEdgeColor)
		edge.Extra = mapOrNil(v["extra_data"])
		return edge, true
	case []any:
		if len(v) < 2 {
			return graph.EdgeDraft{}, false
		}
		source, ok := toIndex(v[0])
		if !ok {
			return graph.EdgeDraft{}, false
		}
		target, ok := toIndex(v[1])
		if !ok {
			return graph.EdgeDraft{}, false
		}
		edge := graph.NewEdge(source, target)
		if len(v) > 2 {
			edge.Weight = floatOr(v[2], graph.DefaultWeight)
		}
		return edge, true
	default:
		return graph.EdgeDraft{}, false
	}
}

// indexField reads the first present key; absent indices default to 0
func indexField(m map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		if raw, ok := m[key]; ok && raw != nil {
			return toIndex(raw)
		}
	}
	return 0, true
}

func asList(raw any) []any {
	list, _ := raw.([]any)
	return list
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func floatOr(raw any, fallback float64) float64 {
	if f, ok := toFloat(raw); ok {
		return f
	}
	return fallback
}

// maxIndex keeps float-to-int conversion exact
const maxIndex = 1 << 53

// toIndex truncates toward zero like Python's int()
func toIndex(raw any) (int, bool) {
	f, ok := toFloat(raw)
	if !ok || math.Abs(f) >= maxIndex {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

func boolOr(raw any, fallback bool) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func stringOr(raw any, fallback string) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return fallback
}

// labelValue accepts strings as-is and renders other scalars
func labelValue(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

func mapOrNil(raw any) map[string]any {
	m, _ := raw.(map[string]any)
	return m
}
