// Package mcpserver provides the Model Context Protocol (MCP) server implementation.
//
// The mcpserver package exposes the graph-from-code use cases as MCP tools
// using the mark3labs/mcp-go library: execute_graph_code runs Python source
// in the sandbox and stores the resulting graph, and get_generation_template
// returns the instructions for writing such code.
//
// The server supports both stdio and HTTP transports as configured by the
// mcp section of the application configuration.
//
// Usage:
//
//	server, err := mcpserver.New(cfg, logger, graphService)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio() // or server.ServeHTTP()
package mcpserver
