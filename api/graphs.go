package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/isdmx/graphbox/realtime"
	"github.com/isdmx/graphbox/store"
)

const graphNotFound = "Graph not found"

// intQuery reads an integer query parameter within [lo, hi]
func intQuery(c *gin.Context, name string, def, lo, hi int) (int, bool) {
	raw, ok := c.GetQuery(name)
	if !ok {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": fmt.Sprintf("%s must be an integer between %d and %d", name, lo, hi)})
		return 0, false
	}
	return v, true
}

func (s *Server) handleListGraphs(c *gin.Context) {
	skip, ok := intQuery(c, "skip", 0, 0, math.MaxInt)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", store.DefaultListLimit, 1, store.MaxListLimit)
	if !ok {
		return
	}

	graphs, err := s.store.ListGraphs(c.Request.Context(), skip, limit)
	if err != nil {
		s.abortWithError(c, err, graphNotFound)
		return
	}
	c.JSON(http.StatusOK, graphs)
}

func (s *Server) handleGetGraph(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	g, err := s.store.GetGraph(c.Request.Context(), id)
	if err != nil {
		s.abortWithError(c, err, graphNotFound)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleCreateGraph(c *gin.Context) {
	var in store.GraphInput
	if !bindJSON(c, &in) {
		return
	}
	g, err := s.store.CreateGraph(c.Request.Context(), in)
	if err != nil {
		s.abortWithError(c, err, graphNotFound)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (s *Server) handleReplaceGraph(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in store.GraphInput
	if !bindJSON(c, &in) {
		return
	}
	g, err := s.store.ReplaceGraph(c.Request.Context(), id, in)
	if err != nil {
		s.abortWithError(c, err, graphNotFound)
		return
	}
	s.realtime.Broadcast(id, gin.H{"type": realtime.TypeGraphUpdated, "graph_id": id})
	c.JSON(http.StatusOK, g)
}

func (s *Server) handleDeleteGraph(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteGraph(c.Request.Context(), id); err != nil {
		s.abortWithError(c, err, graphNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAddNode(c *gin.Context) {
	graphID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in store.NodeInput
	if !bindJSON(c, &in) {
		return
	}
	n, err := s.store.AddNode(c.Request.Context(), graphID, in)
	if err != nil {
		s.abortWithError(c, err, graphNotFound)
		return
	}
	s.realtime.Broadcast(graphID, gin.H{"type": realtime.TypeNodeUpdated, "node": n})
	c.JSON(http.StatusCreated, n)
}

func (s *Server) handleUpdateNode(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in store.NodeInput
	if !bindJSON(c, &in) {
		return
	}
	n, err := s.store.UpdateNode(c.Request.Context(), id, in)
	if err != nil {
		s.abortWithError(c, err, "Node not found")
		return
	}
	s.realtime.Broadcast(n.GraphID, gin.H{"type": realtime.TypeNodeUpdated, "node": n})
	c.JSON(http.StatusOK, n)
}

func (s *Server) handleDeleteNode(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteNode(c.Request.Context(), id); err != nil {
		s.abortWithError(c, err, "Node not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAddEdge(c *gin.Context) {
	graphID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in store.EdgeInput
	if !bindJSON(c, &in) {
		return
	}
	e, err := s.store.AddEdge(c.Request.Context(), graphID, in)
	if err != nil {
		s.abortWithError(c, err, graphNotFound)
		return
	}
	s.realtime.Broadcast(graphID, gin.H{"type": realtime.TypeEdgeUpdated, "edge": e})
	c.JSON(http.StatusCreated, e)
}

func (s *Server) handleDeleteEdge(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteEdge(c.Request.Context(), id); err != nil {
		s.abortWithError(c, err, "Edge not found")
		return
	}
	c.Status(http.StatusNoContent)
}
