package middleware

import (
	"net/http"

	"gridsheet/app"
	"gridsheet/internal"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionCookie names the cookie holding the browser session id
	SessionCookie = "gridsheet_session"

	sheetKey = "sheet"
)

// EnsureSession attaches the spreadsheet of the caller's session to the
// request, issuing a new session cookie when none is present
func EnsureSession(sessions *app.SessionRegistry, logger *internal.Logger) gin.HandlerFunc {
	logger = logger.Named("EnsureSession")
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookie)
		if err != nil || uuid.Validate(id) != nil {
			id = uuid.NewString()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
			logger.Debug("Issued session %s", id)
		}
		c.Set(sheetKey, sessions.Get(id))
		c.Next()
	}
}

// Sheet returns the spreadsheet attached by EnsureSession
func Sheet(c *gin.Context) *app.SpreadsheetService {
	return c.MustGet(sheetKey).(*app.SpreadsheetService)
}
