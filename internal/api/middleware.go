package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mohamedammareid/finance/internal/logger"
	"github.com/mohamedammareid/finance/internal/metrics"
	"github.com/mohamedammareid/finance/internal/session"
)

func noCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
		h.Set("Expires", "0")
		h.Set("Pragma", "no-cache")
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())

		s.logger.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", status),
			logger.String("ip", c.ClientIP()),
			logger.Duration("latency", elapsed))
	}
}

// requireSession resolves the session token from the cookie or a bearer
// header and stores the account id on the context.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			writeError(c, http.StatusUnauthorized, "unauthorized", "login required")
			c.Abort()
			return
		}

		id, err := s.deps.Sessions.Lookup(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				writeError(c, http.StatusUnauthorized, "unauthorized", "session expired")
			} else {
				s.internalError(c, "session lookup", err)
			}
			c.Abort()
			return
		}

		c.Set(accountIDKey, id)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return cookie
	}
	return ""
}

func accountID(c *gin.Context) int64 {
	return c.GetInt64(accountIDKey)
}
