package ui

import (
	"net/http"

	"mldash/adapters/api"
	"mldash/internal/errors"

	"github.com/gin-gonic/gin"
)

// statusFor maps an error code to an HTTP status
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput, errors.CodeValidationError:
		return http.StatusBadRequest
	case errors.CodeBusy, errors.CodeStaleResponse:
		return http.StatusConflict
	case errors.CodeLoadFailed, errors.CodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorBody(err error) gin.H {
	return gin.H{
		"error": api.MessageOf(err),
		"code":  errors.GetCode(err),
	}
}

// respondError writes err as JSON
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.FullPath()).Warn("request failed")
	}
	c.JSON(status, s.errorBody(err))
}
