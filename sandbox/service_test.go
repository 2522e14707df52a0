package sandbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/isdmx/graphbox/config"
)

type stubExecutor struct {
	outcome Outcome
	calls   int
}

func (s *stubExecutor) Run(_ context.Context, _ string) Outcome {
	s.calls++
	return s.outcome
}

func TestServiceRejectedSourceNeverRuns(t *testing.T) {
	executor := &stubExecutor{outcome: Success(`{"nodes": [], "edges": []}`)}
	svc := NewService(zaptest.NewLogger(t), newDefaultValidator(), executor)

	_, err := svc.ValidateAndRun(context.Background(), "import os\nprint(\"hi\")")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidationRejected))
	assert.Equal(t, "Blocked operation detected: import os", err.Error())
	assert.Zero(t, executor.calls)
}

func TestServiceValidateAndRun(t *testing.T) {
	executor := &stubExecutor{outcome: Success("hi\n" + `{"nodes": [{"label": "a"}, {"label": "b"}], "edges": [[0, 1], [1, 5]]}`)}
	svc := NewService(zaptest.NewLogger(t), newDefaultValidator(), executor)

	draft, err := svc.ValidateAndRun(context.Background(), "result = {}")
	require.NoError(t, err)
	assert.Equal(t, 1, executor.calls)
	require.Len(t, draft.Nodes, 2)
	require.Len(t, draft.Edges, 1)
	assert.Equal(t, "b", draft.Nodes[draft.Edges[0].Target].Label)
}

func TestServicePropagatesExecutionFailures(t *testing.T) {
	executor := &stubExecutor{outcome: NonZeroExit("ZeroDivisionError: division by zero")}
	svc := NewService(zaptest.NewLogger(t), newDefaultValidator(), executor)

	_, err := svc.ValidateAndRun(context.Background(), "1/0")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExecutionFailed))
	assert.Equal(t, "execution_failed", ErrorCode(err))
}

func TestServiceValidate(t *testing.T) {
	svc := NewService(zaptest.NewLogger(t), newDefaultValidator(), &stubExecutor{})
	assert.True(t, svc.Validate(context.Background(), "import math").Accepted())
	assert.False(t, svc.Validate(context.Background(), "import socket").Accepted())
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{Sandbox: config.SandboxConfig{
		TimeoutSec:      3,
		Interpreter:     "python3",
		InterpreterArgs: []string{"-B"},
		Preload:         config.DefaultPreload,
		AllowedImports:  config.DefaultAllowedImports,
		BlockedKeywords: config.DefaultBlockedKeywords,
	}}

	svc := NewFromConfig(zaptest.NewLogger(t), cfg)
	require.NotNil(t, svc)

	runner, ok := svc.executor.(*Runner)
	require.True(t, ok)
	assert.Equal(t, cfg.GetTimeout(), runner.config.Timeout)
	assert.Equal(t, "python3", runner.config.Interpreter)
	assert.Equal(t, config.DefaultPreload, runner.config.Preload)
}
