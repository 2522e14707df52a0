// Package graph defines the caller-agnostic graph values produced by the
// sandbox: a Draft of ordered nodes and index-addressed edges that has not
// yet been assigned storage identifiers.
package graph
