package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/isdmx/graphbox/graphsvc"
	"github.com/isdmx/graphbox/store"
)

type executeCodeRequest struct {
	Code      string `json:"code" binding:"required"`
	GraphName string `json:"graph_name"`
}

type generateRequest struct {
	Description string `json:"description" binding:"required"`
	GraphName   string `json:"graph_name"`
}

type modifyRequest struct {
	GraphID     int64  `json:"graph_id" binding:"required"`
	Instruction string `json:"instruction" binding:"required"`
}

func (s *Server) handleExecuteCode(c *gin.Context) {
	var req executeCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.graphs.ExecuteCode(c.Request.Context(), req.Code, req.GraphName)
	s.writeResult(c, result, err, "Failed to execute code", "")
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.graphs.Generate(c.Request.Context(), req.Description, req.GraphName)
	s.writeResult(c, result, err, "Failed to generate graph", "")
}

func (s *Server) handleModify(c *gin.Context) {
	var req modifyRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.graphs.Modify(c.Request.Context(), req.GraphID, req.Instruction)
	s.writeResult(c, result, err, "Failed to modify graph", fmt.Sprintf("Graph %d not found", req.GraphID))
}

func (s *Server) handleTemplate(c *gin.Context) {
	tmpl, err := s.graphs.Template()
	if err != nil {
		s.abortWithError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

// writeResult answers 200 with the result, including failed runs. Only
// infrastructure errors become 5xx responses, prefixed with what failed.
func (s *Server) writeResult(c *gin.Context, result graphsvc.Result, err error, failed, notFound string) {
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}
	if notFound != "" && errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": notFound})
		return
	}
	s.logger.Error(failed, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": fmt.Sprintf("%s: %v", failed, err)})
}
