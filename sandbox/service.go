package sandbox

import (
	"context"

	"go.uber.org/zap"

	"github.com/isdmx/graphbox/graph"
)

// Service composes validation, sandboxed execution and normalization
type Service struct {
	logger    *zap.Logger
	validator *Validator
	executor  SandboxExecutor
}

// NewService creates a Service over the given validator and executor
func NewService(logger *zap.Logger, validator *Validator, executor SandboxExecutor) *Service {
	return &Service{
		logger:    logger,
		validator: validator,
		executor:  executor,
	}
}

// Validate exposes the static checks without running anything
func (s *Service) Validate(ctx context.Context, source string) Verdict {
	return s.validator.Validate(ctx, source)
}

// ValidateAndRun validates source, runs it and normalizes its output.
// A rejected submission never reaches the executor. Every failure is
// returned as an *ExecutionError.
func (s *Service) ValidateAndRun(ctx context.Context, source string) (graph.Draft, error) {
	verdict := s.validator.Validate(ctx, source)
	if !verdict.Accepted() {
		rejectionsTotal.Inc()
		s.logger.Info("submission rejected", zap.String("reason", verdict.Reason()))
		return graph.Draft{}, verdict.Err()
	}

	outcome := s.executor.Run(ctx, source)
	executionsTotal.WithLabelValues(outcome.Kind.String()).Inc()
	executionSeconds.Observe(outcome.Elapsed.Seconds())

	draft, err := Normalize(outcome)
	if err != nil {
		if outcome.Kind == OutcomeSuccess {
			normalizeFailuresTotal.WithLabelValues(ErrorCode(err)).Inc()
		}
		s.logger.Info("execution did not produce a graph",
			zap.String("outcome", outcome.Kind.String()),
			zap.String("code", ErrorCode(err)),
			zap.Duration("elapsed", outcome.Elapsed))
		return graph.Draft{}, err
	}

	s.logger.Info("execution produced graph",
		zap.Int("nodes", len(draft.Nodes)),
		zap.Int("edges", len(draft.Edges)),
		zap.Duration("elapsed", outcome.Elapsed))

	return draft, nil
}
