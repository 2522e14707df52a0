package api

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/isdmx/graphbox/store"
)

const projectNotFound = "Project not found"

type createProjectRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
}

func (s *Server) handleListProjects(c *gin.Context) {
	skip, ok := intQuery(c, "skip", 0, 0, math.MaxInt)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", store.DefaultListLimit, 1, store.MaxListLimit)
	if !ok {
		return
	}

	projects, err := s.store.ListProjects(c.Request.Context(), store.ProjectFilter{
		Skip:   skip,
		Limit:  limit,
		Search: c.Query("search"),
	})
	if err != nil {
		s.abortWithError(c, err, projectNotFound)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.store.GetProject(c.Request.Context(), id)
	if err != nil {
		s.abortWithError(c, err, projectNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleCreateProject(c *gin.Context) {
	var req createProjectRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := s.store.CreateProject(c.Request.Context(), store.ProjectInput{Name: req.Name, Description: req.Description})
	if err != nil {
		s.abortWithError(c, err, projectNotFound)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) handleUpdateProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var in store.ProjectUpdate
	if !bindJSON(c, &in) {
		return
	}
	p, err := s.store.UpdateProject(c.Request.Context(), id, in)
	if err != nil {
		s.abortWithError(c, err, projectNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProject(c.Request.Context(), id); err != nil {
		s.abortWithError(c, err, projectNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleProjectMetadata(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	meta, err := s.store.ProjectMetadata(c.Request.Context(), id)
	if err != nil {
		s.abortWithError(c, err, projectNotFound)
		return
	}
	c.JSON(http.StatusOK, meta)
}
