// Package ai asks a language model for graph-building Python code.
package ai
