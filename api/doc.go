// Package api serves the REST and WebSocket endpoints of graphbox with gin.
//
// Routes:
//
//	GET    /                        service banner
//	GET    /health                  database ping
//	GET    /metrics                 prometheus exposition
//	GET    /ws/graphs/:id           live updates for one graph
//	GET    /api/graphs              list (skip, limit)
//	POST   /api/graphs              create from nodes and edges
//	GET    /api/graphs/:id          fetch with nodes and edges
//	PUT    /api/graphs/:id          replace contents
//	DELETE /api/graphs/:id
//	POST   /api/graphs/:id/nodes    add a node
//	POST   /api/graphs/:id/edges    connect two nodes of the graph
//	PUT    /api/nodes/:id           overwrite a node
//	DELETE /api/nodes/:id           remove a node and its edges
//	DELETE /api/edges/:id
//	GET    /api/projects            list (skip, limit, search)
//	POST   /api/projects            create with an empty graph
//	GET    /api/projects/:id        fetch with its graph
//	PUT    /api/projects/:id        partial update
//	DELETE /api/projects/:id        remove with its graph
//	GET    /api/projects/:id/metadata
//	POST   /api/ai/execute-code     run pasted code into a new graph
//	POST   /api/ai/generate         generate code from a description and run it
//	POST   /api/ai/modify           regenerate an existing graph
//	GET    /api/ai/template         instructions for writing code by hand
//
// Errors are JSON objects with a "detail" field. Sandbox failures are not
// errors: the ai endpoints answer 200 with success false and the message.
package api
