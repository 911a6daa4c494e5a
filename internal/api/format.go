package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mohamedammareid/finance/internal/logger"
)

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": apiError{Code: code, Message: message}})
}

func (s *Server) internalError(c *gin.Context, where string, err error) {
	s.logger.Error("internal error", logger.String("where", where), logger.Error(err))
	writeError(c, http.StatusInternalServerError, "internal_server_error", "internal server error")
}
