package middleware

import (
	"net/http"
	"time"

	"mldash/domain/core"
	"mldash/internal/browse"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sessionKey = "browse_session"

// SessionLookup resolves a session id to a live browsing session
type SessionLookup interface {
	Lookup(id core.SessionID) (*browse.Session, bool)
}

// RequireSession is middleware that loads the session named by the :sid
// path parameter and aborts with 404 when it does not exist or expired.
func RequireSession(sessions SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := core.ParseSessionID(c.Param("sid"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": "unknown session",
				"code":  "NOT_FOUND",
			})
			return
		}

		session, ok := sessions.Lookup(id)
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"error": "session not found or expired",
				"code":  "NOT_FOUND",
			})
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// SessionFrom returns the session loaded by RequireSession
func SessionFrom(c *gin.Context) *browse.Session {
	return c.MustGet(sessionKey).(*browse.Session)
}

// RequestLogger logs one line per request through log
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Warn("request failed")
		default:
			entry.Debug("request")
		}
	}
}
