package ui

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
)

// renderTemplate executes a template into a buffer first so that a failing
// template never leaves a half-written page behind
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		s.logger.Error("Template error for %s: %v", templateName, err)
		s.logger.Debug("Template data type: %T", data)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Template rendering failed", "details": err.Error()})
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Writer.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(c.Writer); err != nil {
		s.logger.Error("Error writing template response: %v", err)
	}
}
