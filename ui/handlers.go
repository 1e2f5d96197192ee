package ui

import (
	"net/http"

	"mldash/domain/core"
	"mldash/domain/dataset"
	"mldash/internal/browse"
	"mldash/internal/errors"
	"mldash/ui/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type switchDatasetRequest struct {
	DatasetID string `json:"dataset_id"`
}

type searchRequest struct {
	Term string `json:"term"`
}

type pageRequest struct {
	Page int `json:"page"`
}

type toggleColumnRequest struct {
	Column string `json:"column" binding:"required"`
}

type cleanRequest struct {
	Actions        []dataset.CleaningAction `json:"actions" binding:"required"`
	TargetColumn   string                   `json:"target_column"`
	FillValue      interface{}              `json:"fill_value"`
	EncodingMethod string                   `json:"encoding_method"`
	OutlierMethod  string                   `json:"outlier_method"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	id, _ := s.sessions.Create()
	c.JSON(http.StatusCreated, gin.H{"session_id": id})
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	id, err := core.ParseSessionID(c.Param("sid"))
	if err != nil || !s.sessions.Delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found", "code": errors.CodeNotFound})
		return
	}
	c.Status(http.StatusNoContent)
}

// respondView writes the session view, or the error together with the view
// so the client can always render the current state.
func (s *Server) respondView(c *gin.Context, session *browse.Session, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.log.WithError(err).WithField("path", c.FullPath()).Warn("request failed")
		}
		body := s.errorBody(err)
		body["view"] = session.View()
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

func (s *Server) handleView(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.SessionFrom(c).View())
}

func (s *Server) handleSwitchDataset(c *gin.Context) {
	session := middleware.SessionFrom(c)
	var req switchDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput("invalid request body"))
		return
	}
	// a blank id deselects the dataset
	id, perr := core.ParseDatasetID(req.DatasetID)
	if perr != nil {
		id = ""
	}

	err := session.SwitchDataset(c.Request.Context(), id)
	s.log.WithFields(logrus.Fields{"dataset_id": id}).Debug("dataset switched")
	s.respondView(c, session, err)
}

func (s *Server) handleLoadMore(c *gin.Context) {
	session := middleware.SessionFrom(c)
	s.respondView(c, session, session.LoadMore(c.Request.Context()))
}

func (s *Server) handleRefresh(c *gin.Context) {
	session := middleware.SessionFrom(c)
	s.respondView(c, session, session.Refresh(c.Request.Context()))
}

func (s *Server) handleSetSearch(c *gin.Context) {
	session := middleware.SessionFrom(c)
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput("invalid request body"))
		return
	}
	session.SetSearchTerm(req.Term)
	s.respondView(c, session, nil)
}

func (s *Server) handleClearSearch(c *gin.Context) {
	session := middleware.SessionFrom(c)
	session.ClearSearch()
	s.respondView(c, session, nil)
}

func (s *Server) handleGoToPage(c *gin.Context) {
	session := middleware.SessionFrom(c)
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput("invalid request body"))
		return
	}
	session.GoToPage(req.Page)
	s.respondView(c, session, nil)
}

func (s *Server) handleToggleColumn(c *gin.Context) {
	session := middleware.SessionFrom(c)
	var req toggleColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput("column is required"))
		return
	}
	session.ToggleColumn(req.Column)
	s.respondView(c, session, nil)
}

func (s *Server) handleToggleAllColumns(c *gin.Context) {
	session := middleware.SessionFrom(c)
	session.ToggleAllColumns()
	s.respondView(c, session, nil)
}

// handleClean runs cleaning actions on the session's dataset and reloads it
func (s *Server) handleClean(c *gin.Context) {
	session := middleware.SessionFrom(c)
	var req cleanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, errors.InvalidInput("actions are required"))
		return
	}
	id := session.DatasetID()
	if id.IsEmpty() {
		s.respondError(c, errors.InvalidInput("no dataset selected"))
		return
	}

	result, err := s.backend.CleanDataset(c.Request.Context(), dataset.CleaningRequest{
		FileID:         id.String(),
		Actions:        req.Actions,
		TargetColumn:   req.TargetColumn,
		FillValue:      req.FillValue,
		EncodingMethod: req.EncodingMethod,
		OutlierMethod:  req.OutlierMethod,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.log.WithFields(logrus.Fields{
		"dataset_id":    id,
		"original_rows": result.OriginalRows,
		"cleaned_rows":  result.CleanedRows,
	}).Info("dataset cleaned")

	if err := session.Refresh(c.Request.Context()); err != nil {
		body := s.errorBody(err)
		body["result"] = result
		body["view"] = session.View()
		c.JSON(statusFor(err), body)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"result": result,
		"view":   session.View(),
	})
}
