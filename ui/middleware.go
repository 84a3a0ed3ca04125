package ui

import (
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())

	staticFS, err := fs.Sub(s.files, "ui/static")
	if err != nil {
		s.logger.Error("Error creating static filesystem: %v", err)
	} else {
		s.router.StaticFS("/static", http.FS(staticFS))
	}
}

// requestLogger logs one line per request through the application logger
func (s *Server) requestLogger() gin.HandlerFunc {
	logger := s.logger.Named("HTTP")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %.2fms", c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			float64(time.Since(start).Nanoseconds())/1e6)
	}
}
