// Package main is the entry point for the graphbox server.
//
// graphbox stores 3D graphs and builds them from Python code that users
// paste or that an LLM writes. The code runs in a validated, time-bounded
// subprocess sandbox; its printed result becomes the nodes and edges of a
// stored graph. The server exposes a REST API with a WebSocket channel for
// live edits and, optionally, an MCP server over stdio or HTTP.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main
