package ui

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"gridsheet/adapters/api"
	"gridsheet/adapters/api/apitest"
	"gridsheet/adapters/excel"
	"gridsheet/app"
	"gridsheet/domain/sheet"
	"gridsheet/ui/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBrowser struct {
	t      *testing.T
	server *Server
	cookie *http.Cookie
}

func newTestBrowser(t *testing.T, mode app.SaveMode, rows ...sheet.Row) (*testBrowser, *apitest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	fake := apitest.NewServer(rows...)
	t.Cleanup(fake.Close)

	client := api.NewClient(api.ClientConfig{BaseURL: fake.BaseURL(), Timeout: 5 * time.Second}, nil)
	registry := app.NewSessionRegistry(func() *app.SpreadsheetService {
		return app.NewSpreadsheetService(client, excel.NewFormulaEngine(nil), excel.NewCodec(nil),
			app.SpreadsheetConfig{SaveMode: mode, SpareRows: 1}, nil)
	}, nil)

	srv, err := NewServer(os.DirFS(".."), registry, nil)
	require.NoError(t, err)
	return &testBrowser{t: t, server: srv}, fake
}

func (b *testBrowser) do(req *http.Request) *httptest.ResponseRecorder {
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.server.Handler().ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			b.cookie = c
		}
	}
	return w
}

func (b *testBrowser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *testBrowser) postJSON(path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(b.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func edit(row int, column, value string) map[string]interface{} {
	return map[string]interface{}{
		"changes": []app.CellChange{{Row: row, Column: column, Value: value}},
	}
}

func TestServer_IndexLoadsSheet(t *testing.T) {
	b, _ := newTestBrowser(t, app.SaveModeBulk,
		sheet.Row{Customer: "Acme", Product: "Bolt", Length1: sheet.Float(2), Width1: sheet.Float(4)},
	)

	w := b.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, b.cookie, "a session cookie is issued")
	body := w.Body.String()
	assert.Contains(t, body, `value="Acme"`)
	assert.Contains(t, body, `data-raw="2" data-display="2.00" value="2.00"`)
	assert.Contains(t, body, "Length1")
	assert.Contains(t, body, `id="stat-average">3.00<`)

	w = b.get("/static/js/sheet.js")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_StatisticsNotAvailable(t *testing.T) {
	b, _ := newTestBrowser(t, app.SaveModeBulk)

	w := b.get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `id="stat-average">N/A<`)
	assert.Contains(t, w.Body.String(), `id="stat-stddev">N/A<`)
}

func TestServer_EditAndSave(t *testing.T) {
	b, fake := newTestBrowser(t, app.SaveModeBulk,
		sheet.Row{Customer: "Acme", Product: "Bolt", Length1: sheet.Float(2)},
		sheet.Row{Customer: "Beta", Product: "Nut"},
	)
	b.get("/")

	w := b.postJSON("/api/sheet/cells", edit(0, "length1", "5"))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, 1.0, resp["pending"])
	cells := resp["cells"].([]interface{})
	assert.Equal(t, true, cells[0].(map[string]interface{})["valid"])

	w = b.postJSON("/api/sheet/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["submitted"])

	bulk := fake.BulkRequests()
	require.Len(t, bulk, 1)
	require.Len(t, bulk[0], 1)
	assert.Equal(t, int64(1), *bulk[0][0].ID)
	assert.Equal(t, 5.0, *bulk[0][0].Length1)

	w = b.postJSON("/api/sheet/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "No changes to save", decode(t, w)["message"])
	assert.Len(t, fake.BulkRequests(), 1)

	w = b.get("/api/sheet/stats?format=json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 5.0, decode(t, w)["average"], 1e-9)
}

func TestServer_InvalidCellsBlockSave(t *testing.T) {
	b, fake := newTestBrowser(t, app.SaveModeBulk, sheet.Row{Customer: "Acme"})
	b.get("/")

	w := b.postJSON("/api/sheet/cells", edit(0, "width2", "wide"))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	cell := resp["cells"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, false, cell["valid"])
	assert.Equal(t, sheet.ErrNotNumeric.Error(), cell["reason"])
	assert.Equal(t, 1.0, resp["invalid"])

	w = b.postJSON("/api/sheet/save", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp = decode(t, w)
	assert.Contains(t, resp["error"], "Width2")
	assert.Len(t, resp["cells"], 1)
	assert.Empty(t, fake.BulkRequests())

	grid := b.get("/api/sheet").Body.String()
	assert.Contains(t, grid, `value="wide"`)
	assert.Contains(t, grid, "invalid")
}

func TestServer_SaveFailureReported(t *testing.T) {
	b, fake := newTestBrowser(t, app.SaveModeBulk)
	b.get("/")
	fake.FailSaves(http.StatusInternalServerError)

	b.postJSON("/api/sheet/cells", edit(0, "customer", "New"))
	w := b.postJSON("/api/sheet/save", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, decode(t, w)["error"], "500")

	fake.FailSaves(0)
	w = b.postJSON("/api/sheet/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode(t, w)["submitted"])
}

func TestServer_RowModeSavesEachRow(t *testing.T) {
	b, fake := newTestBrowser(t, app.SaveModeRow)
	b.get("/")

	b.postJSON("/api/sheet/cells", edit(0, "customer", "One"))
	b.postJSON("/api/sheet/cells", edit(1, "customer", "Two"))
	w := b.postJSON("/api/sheet/save", nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Len(t, fake.RowRequests(), 2)
	assert.Empty(t, fake.BulkRequests())
	assert.Contains(t, b.get("/api/sheet").Body.String(), `data-id="2"`)
}

func TestServer_BadRequests(t *testing.T) {
	b, _ := newTestBrowser(t, app.SaveModeBulk)
	b.get("/")

	w := b.postJSON("/api/sheet/cells", edit(0, "height", "1"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/sheet/cells", strings.NewReader("not json"))
	req.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusBadRequest, b.do(req).Code)

	w = b.postJSON("/api/sheet/rows", map[string]int{"count": -2})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_AddRows(t *testing.T) {
	b, _ := newTestBrowser(t, app.SaveModeBulk)
	b.get("/")

	w := b.postJSON("/api/sheet/rows", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2.0, decode(t, w)["rows"])

	w = b.postJSON("/api/sheet/rows", map[string]int{"count": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5.0, decode(t, w)["rows"])
}

func TestServer_ImportAndExport(t *testing.T) {
	b, _ := newTestBrowser(t, app.SaveModeBulk)
	b.get("/")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "rows.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Customer,Product,Length1\nGamma,Pin,1.5\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sheet/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := b.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1.0, decode(t, w)["imported"])

	w = b.get("/api/sheet/export.xlsx")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	rows, err := excel.NewCodec(nil).Decode(bytes.NewReader(w.Body.Bytes()), "export.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Gamma", rows[0].Cells[0])
	assert.Equal(t, "1.5", rows[0].Cells[2])
}

func TestServer_SessionsAreIsolated(t *testing.T) {
	a, fake := newTestBrowser(t, app.SaveModeBulk)
	a.get("/")
	a.postJSON("/api/sheet/cells", edit(0, "customer", "Mine"))

	other := &testBrowser{t: t, server: a.server}
	other.get("/")
	w := other.postJSON("/api/sheet/save", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, decode(t, w)["submitted"])
	assert.Empty(t, fake.BulkRequests())
}

func TestServer_Healthz(t *testing.T) {
	b, _ := newTestBrowser(t, app.SaveModeBulk)

	w := b.get("/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, b.cookie, "health checks do not open sessions")
	assert.Equal(t, 0.0, decode(t, w)["sessions"])
}
