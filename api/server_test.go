package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/graphbox/ai"
	"github.com/isdmx/graphbox/config"
	"github.com/isdmx/graphbox/graphsvc"
	"github.com/isdmx/graphbox/prompt"
	"github.com/isdmx/graphbox/sandbox"
	"github.com/isdmx/graphbox/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fixedExecutor stands in for the interpreter
type fixedExecutor struct {
	outcome sandbox.Outcome
}

func (e fixedExecutor) Run(context.Context, string) sandbox.Outcome {
	return e.outcome
}

type recordingRealtime struct {
	mu       sync.Mutex
	graphIDs []int64
	messages []map[string]any
}

func (r *recordingRealtime) ServeWS(w http.ResponseWriter, _ *http.Request, graphID int64) {
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte(`{"graph_id":` + jsonNumber(graphID) + `}`))
}

func (r *recordingRealtime) Broadcast(graphID int64, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, _ := json.Marshal(msg)
	var decoded map[string]any
	_ = json.Unmarshal(data, &decoded)
	r.graphIDs = append(r.graphIDs, graphID)
	r.messages = append(r.messages, decoded)
}

func jsonNumber(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}

type fixture struct {
	router   http.Handler
	store    *store.Store
	realtime *recordingRealtime
}

const ringOutput = `{"nodes": [{"label": "a"}, {"label": "b"}, {"label": "c"}], "edges": [[0, 1], [1, 2], [2, 0]]}`

func newFixture(t *testing.T, outcome sandbox.Outcome) fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	cfg := &config.Config{
		Server:  config.ServerConfig{HTTPPort: 8000, CORSOrigins: []string{"http://localhost:8080"}},
		Sandbox: config.SandboxConfig{TimeoutSec: 10, Interpreter: "python3", AllowedImports: config.DefaultAllowedImports},
	}

	st, err := store.Open(filepath.Join(t.TempDir(), "graphbox"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	prompts, err := prompt.New(cfg.Sandbox.AllowedImports)
	require.NoError(t, err)

	executor := sandbox.NewService(logger,
		sandbox.NewValidator(config.DefaultAllowedImports, config.DefaultBlockedKeywords),
		fixedExecutor{outcome: outcome})
	rt := &recordingRealtime{}
	graphs := graphsvc.New(logger, executor, st, ai.Disabled{}, prompts, rt)

	return fixture{
		router:   New(cfg, logger, st, graphs, rt).Handler(),
		store:    st,
		realtime: rt,
	}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRootAndHealth(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	w := f.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "running", decode[map[string]any](t, w)["status"])

	w = f.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"status": "healthy"}, decode[map[string]any](t, w))

	require.NoError(t, f.store.Close())
	w = f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	f.do(t, http.MethodPost, "/api/ai/execute-code", map[string]any{"code": "result = {}"})

	w := f.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graphbox_sandbox_executions_total")
}

func TestGraphCRUD(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	w := f.do(t, http.MethodPost, "/api/graphs", map[string]any{
		"name":  "manual",
		"nodes": []map[string]any{{"id": 0, "label": "a"}, {"id": 1, "label": "b", "color": "#ff0000"}},
		"edges": []map[string]any{{"source_id": 0, "target_id": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[store.Graph](t, w)
	require.Len(t, created.Nodes, 2)
	require.Len(t, created.Edges, 1)
	assert.Equal(t, "#3498db", created.Nodes[0].Color, "omitted color gets the default")
	assert.Equal(t, 1.0, created.Edges[0].Weight)

	w = f.do(t, http.MethodGet, "/api/graphs/"+jsonNumber(created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "manual", decode[store.Graph](t, w).Name)

	w = f.do(t, http.MethodGet, "/api/graphs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]store.Graph](t, w), 1)

	w = f.do(t, http.MethodPut, "/api/graphs/"+jsonNumber(created.ID), map[string]any{
		"name":  "",
		"nodes": []map[string]any{{"label": "only"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	replaced := decode[store.Graph](t, w)
	assert.Equal(t, "manual", replaced.Name)
	assert.Len(t, replaced.Nodes, 1)
	assert.Empty(t, replaced.Edges)
	require.Len(t, f.realtime.messages, 1)
	assert.Equal(t, "graph_updated", f.realtime.messages[0]["type"])

	w = f.do(t, http.MethodDelete, "/api/graphs/"+jsonNumber(created.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodGet, "/api/graphs/"+jsonNumber(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]any{"detail": "Graph not found"}, decode[map[string]any](t, w))
}

func TestGraphRequestValidation(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	for _, tc := range []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/graphs/abc", nil},
		{http.MethodGet, "/api/graphs/0", nil},
		{http.MethodGet, "/api/graphs?limit=0", nil},
		{http.MethodGet, "/api/graphs?limit=1001", nil},
		{http.MethodGet, "/api/graphs?skip=-1", nil},
		{http.MethodPost, "/api/graphs", "{not json"},
	} {
		w := f.do(t, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestNodeAndEdgeEndpoints(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	w := f.do(t, http.MethodPost, "/api/graphs", map[string]any{"name": "g"})
	require.Equal(t, http.StatusCreated, w.Code)
	g := decode[store.Graph](t, w)
	other := decode[store.Graph](t, f.do(t, http.MethodPost, "/api/graphs", map[string]any{"name": "other"}))

	w = f.do(t, http.MethodPost, "/api/graphs/"+jsonNumber(g.ID)+"/nodes", map[string]any{"label": "a", "x": 1})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	a := decode[store.Node](t, w)
	assert.Equal(t, 1.0, a.X)
	assert.Equal(t, 1.0, a.Size)

	b := decode[store.Node](t, f.do(t, http.MethodPost, "/api/graphs/"+jsonNumber(g.ID)+"/nodes", map[string]any{"label": "b"}))
	foreign := decode[store.Node](t, f.do(t, http.MethodPost, "/api/graphs/"+jsonNumber(other.ID)+"/nodes", map[string]any{"label": "x"}))

	w = f.do(t, http.MethodPost, "/api/graphs/"+jsonNumber(g.ID)+"/edges", map[string]any{"source_id": a.ID, "target_id": b.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	e := decode[store.Edge](t, w)

	w = f.do(t, http.MethodPost, "/api/graphs/"+jsonNumber(g.ID)+"/edges", map[string]any{"source_id": a.ID, "target_id": foreign.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/graphs/999/nodes", map[string]any{"label": "lost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPut, "/api/nodes/"+jsonNumber(a.ID), map[string]any{"label": "renamed", "z": 3})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[store.Node](t, w)
	assert.Equal(t, "renamed", updated.Label)
	assert.Equal(t, 3.0, updated.Z)
	assert.Equal(t, 0.0, updated.X, "update overwrites every field")

	w = f.do(t, http.MethodPut, "/api/nodes/999", map[string]any{"label": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Node not found", decode[map[string]any](t, w)["detail"])

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/edges/"+jsonNumber(e.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/edges/"+jsonNumber(e.ID), nil).Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/nodes/"+jsonNumber(b.ID), nil).Code)

	current := decode[store.Graph](t, f.do(t, http.MethodGet, "/api/graphs/"+jsonNumber(g.ID), nil))
	assert.Len(t, current.Nodes, 1)

	var types []string
	for _, msg := range f.realtime.messages {
		types = append(types, msg["type"].(string))
	}
	assert.Equal(t, []string{"node_updated", "node_updated", "node_updated", "edge_updated", "node_updated"}, types)
}

func TestProjectEndpoints(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	w := f.do(t, http.MethodPost, "/api/projects", map[string]any{"name": "Atlas", "description": "maps"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[store.Project](t, w)
	require.NotNil(t, p.Graph)
	assert.Equal(t, "Graph for Atlas", p.Graph.Name)

	f.do(t, http.MethodPost, "/api/projects", map[string]any{"name": "Borealis"})

	w = f.do(t, http.MethodPost, "/api/projects", map[string]any{"description": "nameless"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = f.do(t, http.MethodGet, "/api/projects?search=atl", nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[[]store.Project](t, w)
	require.Len(t, found, 1)
	assert.Equal(t, "Atlas", found[0].Name)

	w = f.do(t, http.MethodGet, "/api/projects?limit=1", nil)
	assert.Len(t, decode[[]store.Project](t, w), 1)

	w = f.do(t, http.MethodPut, "/api/projects/"+jsonNumber(p.ID), map[string]any{"name": "Atlas 2"})
	require.Equal(t, http.StatusOK, w.Code)
	renamed := decode[store.Project](t, w)
	assert.Equal(t, "Atlas 2", renamed.Name)
	require.NotNil(t, renamed.Description)
	assert.Equal(t, "maps", *renamed.Description)

	w = f.do(t, http.MethodGet, "/api/projects/"+jsonNumber(p.ID)+"/metadata", nil)
	require.Equal(t, http.StatusOK, w.Code)
	meta := decode[map[string]any](t, w)
	assert.Equal(t, 0.0, meta["node_count"])
	assert.Equal(t, 0.0, meta["edge_count"])

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/projects/"+jsonNumber(p.ID), nil).Code)
	w = f.do(t, http.MethodGet, "/api/projects/"+jsonNumber(p.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Project not found", decode[map[string]any](t, w)["detail"])
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/graphs/"+jsonNumber(p.Graph.ID), nil).Code)
}

func TestExecuteCodeEndpoint(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, sandbox.Success(ringOutput))

		w := f.do(t, http.MethodPost, "/api/ai/execute-code", map[string]any{"code": "result = {}", "graph_name": "Ring"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := decode[graphsvc.Result](t, w)
		assert.True(t, result.Success)
		require.NotNil(t, result.Graph)
		assert.Equal(t, "Ring", result.Graph.Name)
		assert.Len(t, result.Graph.Edges, 3)
	})

	t.Run("Rejected", func(t *testing.T) {
		f := newFixture(t, sandbox.Success(ringOutput))

		w := f.do(t, http.MethodPost, "/api/ai/execute-code", map[string]any{"code": "import os"})
		require.Equal(t, http.StatusOK, w.Code)
		body := decode[map[string]any](t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "Blocked operation detected: import os", body["error"])
		assert.NotContains(t, body, "graph")
	})

	t.Run("Malformed", func(t *testing.T) {
		f := newFixture(t, sandbox.Success("not json at all"))

		w := f.do(t, http.MethodPost, "/api/ai/execute-code", map[string]any{"code": "print(1)"})
		require.Equal(t, http.StatusOK, w.Code)
		result := decode[graphsvc.Result](t, w)
		assert.False(t, result.Success)
		assert.True(t, strings.HasPrefix(result.Error, "Failed to parse output as JSON"), result.Error)
	})

	t.Run("MissingCode", func(t *testing.T) {
		f := newFixture(t, sandbox.Success(ringOutput))
		assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodPost, "/api/ai/execute-code", map[string]any{}).Code)
	})
}

func TestGenerateAndModifyWithoutModel(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	w := f.do(t, http.MethodPost, "/api/ai/generate", map[string]any{"description": "a ring"})
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[graphsvc.Result](t, w)
	assert.False(t, result.Success)
	assert.Equal(t, graphsvc.NotConfiguredMessage, result.Error)
	assert.Contains(t, result.Prompt, "a ring")

	w = f.do(t, http.MethodPost, "/api/ai/modify", map[string]any{"graph_id": 42, "instruction": "add a node"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Graph 42 not found", decode[map[string]any](t, w)["detail"])

	g := decode[store.Graph](t, f.do(t, http.MethodPost, "/api/graphs", map[string]any{"name": "g"}))
	w = f.do(t, http.MethodPost, "/api/ai/modify", map[string]any{"graph_id": g.ID, "instruction": "add a node"})
	require.Equal(t, http.StatusOK, w.Code)
	result = decode[graphsvc.Result](t, w)
	assert.Contains(t, result.Prompt, "Instruction: add a node")
}

func TestTemplateEndpoint(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	w := f.do(t, http.MethodGet, "/api/ai/template", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tmpl := decode[prompt.ManualTemplate](t, w)
	assert.Len(t, tmpl.Examples, 5)
	assert.Equal(t, config.DefaultAllowedImports, tmpl.AllowedImports)
}

func TestWebSocketRoute(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	w := f.do(t, http.MethodGet, "/ws/graphs/7", nil)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.JSONEq(t, `{"graph_id":7}`, w.Body.String())

	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodGet, "/ws/graphs/x", nil).Code)
}

func TestCORS(t *testing.T) {
	f := newFixture(t, sandbox.Success(ringOutput))

	req := httptest.NewRequest(http.MethodOptions, "/api/graphs", nil)
	req.Header.Set("Origin", "http://localhost:8080")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "requests without an Origin are not CORS requests")
}

func TestCORSWildcard(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{CORSOrigins: []string{"*"}}}
	router := New(cfg, zaptest.NewLogger(t), nil, nil, nil).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://anywhere.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://anywhere.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestShutdownBeforeStart(t *testing.T) {
	s := New(&config.Config{}, zaptest.NewLogger(t), nil, nil, nil)
	assert.NoError(t, s.Shutdown(context.Background()))
}
