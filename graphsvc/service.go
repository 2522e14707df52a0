package graphsvc

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/isdmx/graphbox/ai"
	"github.com/isdmx/graphbox/graph"
	"github.com/isdmx/graphbox/prompt"
	"github.com/isdmx/graphbox/sandbox"
	"github.com/isdmx/graphbox/store"
)

// DefaultGraphName names graphs created without an explicit name
const DefaultGraphName = "AI Generated Graph"

// NotConfiguredMessage accompanies the prompt returned when no model is configured
const NotConfiguredMessage = "AI service not configured. Use the provided prompt with ChatGPT/Claude."

// Executor validates and runs graph code
type Executor interface {
	ValidateAndRun(ctx context.Context, source string) (graph.Draft, error)
}

// GraphStore is the persistence the use cases need
type GraphStore interface {
	CreateGraph(ctx context.Context, in store.GraphInput) (*store.Graph, error)
	GetGraph(ctx context.Context, id int64) (*store.Graph, error)
	ReplaceGraph(ctx context.Context, id int64, in store.GraphInput) (*store.Graph, error)
}

// Notifier pushes messages to clients viewing a graph
type Notifier interface {
	Broadcast(graphID int64, msg any)
}

// Result reports the outcome of a use case. A failed run is a Result with
// Success false, not an error; errors are reserved for infrastructure faults.
type Result struct {
	Success   bool         `json:"success"`
	Graph     *store.Graph `json:"graph,omitempty"`
	Code      string       `json:"code,omitempty"`
	Prompt    string       `json:"prompt,omitempty"`
	Error     string       `json:"error,omitempty"`
	ErrorCode string       `json:"error_code,omitempty"`
}

// Service wires the sandbox, storage, prompts and model together
type Service struct {
	logger    *zap.Logger
	executor  Executor
	store     GraphStore
	generator ai.Generator
	prompts   *prompt.Catalog
	notifier  Notifier
}

// New creates a Service
func New(logger *zap.Logger, executor Executor, st GraphStore, generator ai.Generator, prompts *prompt.Catalog, notifier Notifier) *Service {
	return &Service{
		logger:    logger,
		executor:  executor,
		store:     st,
		generator: generator,
		prompts:   prompts,
		notifier:  notifier,
	}
}

// ExecuteCode runs code and stores the resulting graph under name
func (s *Service) ExecuteCode(ctx context.Context, code, name string) (Result, error) {
	if name == "" {
		name = DefaultGraphName
	}
	return s.submit(ctx, graph.Submission{Source: code, Name: name})
}

func (s *Service) submit(ctx context.Context, sub graph.Submission) (Result, error) {
	draft, err := s.executor.ValidateAndRun(ctx, sub.Source)
	if err != nil {
		return failure(err)
	}

	g, err := s.store.CreateGraph(ctx, store.InputFromDraft(sub.Name, draft))
	if err != nil {
		return Result{}, fmt.Errorf("failed to store graph: %w", err)
	}

	s.logger.Info("graph created from code", zap.Int64("graph_id", g.ID), zap.String("name", sub.Name))
	return Result{Success: true, Graph: g}, nil
}

// Generate asks the model for code matching description and runs it. Without
// a model it returns the prompt for manual use.
func (s *Service) Generate(ctx context.Context, description, name string) (Result, error) {
	text, err := s.prompts.Generation(description)
	if err != nil {
		return Result{}, err
	}

	code, err := s.generator.GenerateCode(ctx, text)
	if errors.Is(err, ai.ErrNotConfigured) {
		return Result{Prompt: text, Error: NotConfiguredMessage}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	result, err := s.ExecuteCode(ctx, code, name)
	result.Code = code
	return result, err
}

// Modify regenerates graph graphID from instruction, replaces its contents
// and notifies the graph's viewers.
func (s *Service) Modify(ctx context.Context, graphID int64, instruction string) (Result, error) {
	current, err := s.store.GetGraph(ctx, graphID)
	if err != nil {
		return Result{}, err
	}

	text, err := s.prompts.Modification(instruction, Summarize(current))
	if err != nil {
		return Result{}, err
	}

	code, err := s.generator.GenerateCode(ctx, text)
	if errors.Is(err, ai.ErrNotConfigured) {
		return Result{Prompt: text, Error: NotConfiguredMessage}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to modify graph: %w", err)
	}

	draft, err := s.executor.ValidateAndRun(ctx, code)
	if err != nil {
		result, err := failure(err)
		result.Code = code
		return result, err
	}

	updated, err := s.store.ReplaceGraph(ctx, graphID, store.InputFromDraft("", draft))
	if err != nil {
		return Result{}, fmt.Errorf("failed to store graph: %w", err)
	}

	s.notifier.Broadcast(graphID, map[string]any{"type": "graph_updated", "graph_id": graphID})
	s.logger.Info("graph modified", zap.Int64("graph_id", graphID))
	return Result{Success: true, Graph: updated, Code: code}, nil
}

// Template returns the instructions for writing graph code by hand
func (s *Service) Template() (prompt.ManualTemplate, error) {
	return s.prompts.Template()
}

// Summarize describes g for a modification prompt
func Summarize(g *store.Graph) prompt.GraphSummary {
	labels := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		labels = append(labels, n.Label)
	}
	return prompt.GraphSummary{NodeCount: len(g.Nodes), EdgeCount: len(g.Edges), Labels: labels}
}

// failure converts sandbox errors into a failed Result; anything else is returned as an error
func failure(err error) (Result, error) {
	var execErr *sandbox.ExecutionError
	if !errors.As(err, &execErr) {
		return Result{}, err
	}
	return Result{Error: execErr.Error(), ErrorCode: execErr.Code()}, nil
}
