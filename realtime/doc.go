// Package realtime fans graph edits out to every WebSocket client viewing
// the same graph.
//
// Each graph id is a room. Clients send JSON messages with a "type" field:
// "ping" is answered with "pong", the update types (node_moved,
// node_updated, edge_updated, graph_updated) are re-broadcast to the whole
// room, and anything else gets an error reply. Each connection has one
// writer goroutine; a client whose send buffer fills up is dropped.
package realtime
