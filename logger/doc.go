// Package logger provides structured logging capabilities.
//
// The logger package sets up and configures the application's logging
// system using zap. Components receive a *zap.Logger through their
// constructors and derive a named child via Component.
//
// Usage:
//
//	log, err := logger.New("production", "info")
//	if err != nil {
//	    panic(err)
//	}
//	log.Info("Application started")
package logger
