package ui

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"gridsheet/app"
	"gridsheet/domain/sheet"
	"gridsheet/internal"
	"gridsheet/ui/middleware"

	"github.com/gin-gonic/gin"
)

// Server serves the spreadsheet page and its JSON endpoints
type Server struct {
	router    *gin.Engine
	templates *template.Template
	files     fs.FS
	sessions  *app.SessionRegistry
	logger    *internal.Logger
}

// NewServer creates the web server. files must hold ui/templates and ui/static.
func NewServer(files fs.FS, sessions *app.SessionRegistry, logger *internal.Logger) (*Server, error) {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:   gin.New(),
		files:    files,
		sessions: sessions,
		logger:   logger.Named("Server"),
	}

	if err := s.parseTemplates(); err != nil {
		return nil, err
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) parseTemplates() error {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"measure": func(v float64) string {
			return sheet.FormatMeasure(v)
		},
	}

	templatesFS, err := fs.Sub(s.files, "ui/templates")
	if err != nil {
		return fmt.Errorf("failed to create templates filesystem: %w", err)
	}

	files1, err := fs.Glob(templatesFS, "*.html")
	if err != nil {
		return fmt.Errorf("failed to glob root templates: %w", err)
	}
	files2, err := fs.Glob(templatesFS, "*/*.html")
	if err != nil {
		return fmt.Errorf("failed to glob nested templates: %w", err)
	}
	files := append(files1, files2...)
	if len(files) == 0 {
		return fmt.Errorf("no templates found")
	}

	s.templates = template.New("").Funcs(funcMap)
	for _, file := range files {
		content, err := fs.ReadFile(templatesFS, file)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", file, err)
		}
		if _, err := s.templates.New(file).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", file, err)
		}
	}
	s.logger.Debug("Parsed %d templates", len(files))
	return nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	pages := s.router.Group("", middleware.EnsureSession(s.sessions, s.logger))
	pages.GET("/", s.handleIndex)

	sheetAPI := pages.Group("/api/sheet")
	{
		sheetAPI.GET("", s.handleSheet)
		sheetAPI.POST("/cells", s.handleCells)
		sheetAPI.POST("/rows", s.handleAddRows)
		sheetAPI.POST("/save", s.handleSave)
		sheetAPI.POST("/reload", s.handleReload)
		sheetAPI.GET("/stats", s.handleStats)
		sheetAPI.GET("/export.xlsx", s.handleExport)
		sheetAPI.POST("/import", s.handleImport)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until the server fails
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Listening on %s", addr)
	return srv.ListenAndServe()
}
