package ui

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"gridsheet/app"
	"gridsheet/domain/sheet"
	"gridsheet/internal/errors"
	"gridsheet/ui/middleware"
	"gridsheet/ui/templates/fragments"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxUploadBytes bounds imported files
const maxUploadBytes = 10 << 20

type cellsRequest struct {
	Changes []app.CellChange `json:"changes" binding:"required"`
}

type addRowsRequest struct {
	Count int `json:"count"`
}

// handleIndex renders the spreadsheet page, loading the data on first visit
func (s *Server) handleIndex(c *gin.Context) {
	svc := middleware.Sheet(c)
	if err := svc.Mount(c.Request.Context()); err != nil {
		s.logger.Error("Failed to load spreadsheet: %v", err)
	}
	s.renderTemplate(c, fragments.Index, svc.View())
}

// handleSheet renders the grid fragment
func (s *Server) handleSheet(c *gin.Context) {
	s.renderTemplate(c, fragments.Grid, middleware.Sheet(c).View())
}

// handleCells applies a batch of cell edits and reports which values are acceptable
func (s *Server) handleCells(c *gin.Context) {
	var req cellsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	svc := middleware.Sheet(c)
	verdicts, err := svc.ApplyChanges(req.Changes)
	if err != nil {
		s.respondError(c, err)
		return
	}

	view := svc.View()
	c.JSON(http.StatusOK, gin.H{
		"cells":   verdicts,
		"pending": view.Pending,
		"invalid": view.InvalidCells,
		"rows":    len(view.Rows),
	})
}

// handleAddRows appends empty rows
func (s *Server) handleAddRows(c *gin.Context) {
	req := addRowsRequest{Count: 1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	svc := middleware.Sheet(c)
	if err := svc.AddRows(req.Count); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": len(svc.View().Rows)})
}

// handleSave persists the changed rows
func (s *Server) handleSave(c *gin.Context) {
	svc := middleware.Sheet(c)
	result, err := svc.Save(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}

	message := result.Message
	if result.Submitted == 0 {
		message = "No changes to save"
	} else if message == "" {
		message = fmt.Sprintf("Saved %d rows", result.Submitted)
	}
	c.JSON(http.StatusOK, gin.H{
		"submitted": result.Submitted,
		"message":   message,
	})
}

// handleReload discards unsaved edits and reloads from the API
func (s *Server) handleReload(c *gin.Context) {
	svc := middleware.Sheet(c)
	if err := svc.Load(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	s.renderTemplate(c, fragments.Grid, svc.View())
}

// handleStats renders the statistics panel; ?refresh=1 refetches from the API first
func (s *Server) handleStats(c *gin.Context) {
	svc := middleware.Sheet(c)
	if c.Query("refresh") == "1" {
		svc.RefreshStats(c.Request.Context())
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, svc.Statistics())
		return
	}
	s.renderTemplate(c, fragments.Statistics, svc.View())
}

// handleExport downloads the grid as a workbook
func (s *Server) handleExport(c *gin.Context) {
	var buf bytes.Buffer
	if err := middleware.Sheet(c).Export(&buf); err != nil {
		s.respondError(c, err)
		return
	}
	filename := fmt.Sprintf("gridsheet-%s.xlsx", time.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// handleImport appends the rows of an uploaded .xlsx or .csv file
func (s *Server) handleImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to open uploaded file"})
		return
	}
	defer file.Close()

	n, err := middleware.Sheet(c).Import(file, header.Filename)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": n})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
}

// respondError maps application errors to JSON responses. Validation
// failures list every offending cell so the page can point at them.
func (s *Server) respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	body := gin.H{"error": errors.Message(err), "code": errors.GetCode(err)}

	var verr *sheet.ValidationError
	if errors.As(err, &verr) {
		body["error"] = verr.Error()
		body["cells"] = verr.Cells
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, body)
}
