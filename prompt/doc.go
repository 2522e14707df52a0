// Package prompt renders the instructions given to a language model (or a
// person) asked to write graph-building Python code.
package prompt
