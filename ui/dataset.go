package ui

import (
	"net/http"

	"mldash/domain/core"
	"mldash/internal/browse"
	"mldash/internal/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListDatasets(c *gin.Context) {
	list, err := s.backend.ListDatasets(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"datasets": list,
	})
}

// handleUploadDataset forwards a multipart "file" upload to the backend
func (s *Server) handleUploadDataset(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		s.respondError(c, errors.InvalidInput("multipart field \"file\" is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		s.respondError(c, errors.Wrap(err, "failed to read upload"))
		return
	}
	defer file.Close()

	resp, err := s.backend.UploadFile(c.Request.Context(), header.Filename, file)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.log.WithField("dataset_id", resp.FileID).Info("dataset uploaded")
	c.JSON(http.StatusOK, resp)
}

// handleDeleteDataset deletes a dataset and resets every session that was
// browsing it.
func (s *Server) handleDeleteDataset(c *gin.Context) {
	id, err := core.ParseDatasetID(c.Param("id"))
	if err != nil {
		s.respondError(c, errors.InvalidInput(err.Error()))
		return
	}
	if err := s.backend.DeleteDataset(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}

	s.sessions.Each(func(session *browse.Session) {
		if session.DatasetID() == id {
			session.Reset()
		}
	})
	c.JSON(http.StatusOK, gin.H{"success": true})
}
