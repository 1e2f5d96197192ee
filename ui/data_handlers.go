package ui

import (
	"bytes"
	"fmt"
	"net/http"

	"mldash/internal/browse"
	"mldash/ui/middleware"

	"github.com/gin-gonic/gin"
)

// handleExport downloads the filtered rows of the session restricted to its
// visible columns. format is csv (default) or xlsx.
func (s *Server) handleExport(c *gin.Context) {
	session := middleware.SessionFrom(c)
	format, err := browse.ParseExportFormat(c.Query("format"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := session.Export(&buf, format); err != nil {
		s.respondError(c, err)
		return
	}

	filename := session.ExportFilename(format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}
