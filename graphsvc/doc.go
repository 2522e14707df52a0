// Package graphsvc implements the graph-from-code use cases shared by the
// REST API and the MCP server: run submitted code, generate code from a
// description, and rewrite an existing graph from an instruction.
package graphsvc
