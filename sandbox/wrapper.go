package sandbox

import "strings"

// epilogue runs after the user code. It settles on a value for `result`
// (the assigned variable, else loose nodes/edges, else an empty graph),
// reduces it to JSON-safe values and prints it as the last stdout line.
// The leading bare print() keeps the payload on its own line even if user
// code left a partial line behind.
const epilogue = `
# --- end of submitted code ---

if 'result' not in globals():
    if 'nodes' in globals() and 'edges' in globals():
        result = {"nodes": nodes, "edges": edges}
    else:
        result = {"nodes": [], "edges": []}

import json as _graphbox_json
import math as _graphbox_math

def _graphbox_plain(obj, depth=0):
    if depth > 64:
        return str(obj)
    if obj is None or isinstance(obj, (bool, int, str)):
        return obj
    if isinstance(obj, float):
        return obj if _graphbox_math.isfinite(obj) else None
    if isinstance(obj, dict):
        return {str(k): _graphbox_plain(v, depth + 1) for k, v in obj.items()}
    if isinstance(obj, (list, tuple, set, frozenset)):
        return [_graphbox_plain(v, depth + 1) for v in obj]
    if hasattr(obj, 'tolist'):
        try:
            return _graphbox_plain(obj.tolist(), depth + 1)
        except Exception:
            return str(obj)
    if hasattr(obj, '__dict__'):
        return _graphbox_plain(vars(obj), depth + 1)
    return str(obj)

print()
print(_graphbox_json.dumps(_graphbox_plain(result)))
`

// Wrap surrounds source with the preload prologue and the result epilogue.
// Each preload entry is emitted as its own import line, e.g. "numpy as np".
func Wrap(source string, preload []string) string {
	var b strings.Builder

	for _, entry := range preload {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		b.WriteString("import ")
		b.WriteString(entry)
		b.WriteByte('\n')
	}

	b.WriteString("\n# --- submitted code ---\n")
	b.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(epilogue)

	return b.String()
}
