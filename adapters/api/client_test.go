package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gridsheet/adapters/api/apitest"
	"gridsheet/domain/sheet"
	"gridsheet/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{BaseURL: baseURL, Timeout: 5 * time.Second}, nil)
}

func TestClient_FetchData(t *testing.T) {
	srv := apitest.NewServer(sheet.Row{Customer: "A", Product: "P", Length1: sheet.Float(2), Width1: sheet.Float(3)})
	defer srv.Close()

	rows := newTestClient(srv.BaseURL()).FetchData(context.Background())
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), *rows[0].ID)
	assert.Equal(t, "A", rows[0].Customer)
	assert.Equal(t, 2.0, *rows[0].Length1)
	assert.Nil(t, rows[0].Length2)
}

func TestClient_FetchDataFailureReturnsEmptyList(t *testing.T) {
	srv := apitest.NewServer(sheet.Row{Customer: "A"})
	defer srv.Close()
	srv.FailReads(true)

	rows := newTestClient(srv.BaseURL()).FetchData(context.Background())
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	t.Run("unreachable host", func(t *testing.T) {
		rows := newTestClient("http://127.0.0.1:1/api").FetchData(context.Background())
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("malformed body", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"not":"a list"}`))
		}))
		defer bad.Close()
		assert.Empty(t, newTestClient(bad.URL).FetchData(context.Background()))
	})
}

func TestClient_FetchStats(t *testing.T) {
	srv := apitest.NewServer(
		sheet.Row{Length1: sheet.Float(2), Width1: sheet.Float(4)},
		sheet.Row{Length1: sheet.Float(6)},
	)
	defer srv.Close()

	stats := newTestClient(srv.BaseURL()).FetchStats(context.Background())
	require.NotNil(t, stats.Average)
	assert.Equal(t, "4.00", stats.AverageText())
	assert.Equal(t, "2.00", stats.StandardDeviationText())
}

func TestClient_FetchStatsFailureReturnsEmpty(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()

	// No rows: the API answers 404.
	stats := newTestClient(srv.BaseURL()).FetchStats(context.Background())
	assert.True(t, stats.IsEmpty())
	assert.Equal(t, sheet.NotAvailable, stats.AverageText())
}

func TestClient_SaveData(t *testing.T) {
	var gotBody map[string][]map[string]interface{}
	var gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/data/bulk/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotRequestID = r.Header.Get("X-Request-ID")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"message":"Data updated successfully","ids":[7,8]}`))
	}))
	defer srv.Close()

	rows := []sheet.Row{
		{ID: sheet.ID(7), Customer: "A", Length1: sheet.Float(5)},
		{Customer: "B"},
	}
	receipt, err := newTestClient(srv.URL+"/api").SaveData(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, "Data updated successfully", receipt.Message)
	assert.Equal(t, []int64{7, 8}, receipt.IDs)
	assert.NotEmpty(t, gotRequestID)

	items := gotBody["items"]
	require.Len(t, items, 2)
	assert.Equal(t, 5.0, items[0]["length1"])
	assert.Nil(t, items[0]["length2"])
	_, hasID := items[1]["id"]
	assert.False(t, hasID, "new rows are sent without an id")
}

func TestClient_SaveDataPropagatesFailure(t *testing.T) {
	srv := apitest.NewServer()
	defer srv.Close()
	srv.FailSaves(http.StatusBadRequest)

	_, err := newTestClient(srv.BaseURL()).SaveData(context.Background(), []sheet.Row{{Customer: "A"}})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "save rejected")
	assert.Equal(t, errors.CodeExternalService, errors.GetCode(err))
}

func TestClient_SaveRow(t *testing.T) {
	srv := apitest.NewServer(sheet.Row{Customer: "A"})
	defer srv.Close()
	client := newTestClient(srv.BaseURL())

	id, err := client.SaveRow(context.Background(), sheet.Row{Customer: "B", Width2: sheet.Float(1)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)

	id, err = client.SaveRow(context.Background(), sheet.Row{ID: sheet.ID(1), Customer: "A2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	stored := srv.Rows()
	require.Len(t, stored, 2)
	assert.Equal(t, "A2", stored[0].Customer)
	assert.Len(t, srv.RowRequests(), 2)
}

func TestClient_RespectsContext(t *testing.T) {
	srv := apitest.NewServer(sheet.Row{Customer: "A"})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.BaseURL()).SaveData(ctx, []sheet.Row{{Customer: "A"}})
	assert.Error(t, err)
	assert.Empty(t, srv.BulkRequests())
}
