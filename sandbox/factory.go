package sandbox

import (
	"go.uber.org/zap"

	"github.com/isdmx/graphbox/config"
)

// NewFromConfig builds the validator, runner and service described by cfg.Sandbox
func NewFromConfig(logger *zap.Logger, cfg *config.Config) *Service {
	runnerConfig := Config{
		Timeout:         cfg.GetTimeout(),
		Interpreter:     cfg.Sandbox.Interpreter,
		InterpreterArgs: cfg.Sandbox.InterpreterArgs,
		Preload:         cfg.Sandbox.Preload,
		Environment:     cfg.Sandbox.Environment,
	}

	log := logger.Named("sandbox")
	validator := NewValidator(cfg.Sandbox.AllowedImports, cfg.Sandbox.BlockedKeywords)
	runner := NewRunner(log, &runnerConfig)

	return NewService(log, validator, runner)
}
