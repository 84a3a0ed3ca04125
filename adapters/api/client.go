package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gridsheet/domain/sheet"
	"gridsheet/internal"
	"gridsheet/internal/errors"
	"gridsheet/ports"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const (
	dataPath  = "/data/"
	bulkPath  = "/data/bulk/"
	statsPath = "/stats/"

	// maxErrorBody caps how much of a failed response is kept for logs
	maxErrorBody = 4 << 10
)

// ClientConfig holds settings for the data API client
type ClientConfig struct {
	BaseURL string        // e.g. http://localhost:8000/api
	Timeout time.Duration // zero disables the client timeout
}

// Client talks to the remote measurement data API
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *internal.Logger
}

var _ ports.DataAPI = (*Client)(nil)

// NewClient creates a data API client
func NewClient(config ClientConfig, logger *internal.Logger) *Client {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger.Named("APIClient"),
	}
}

// APIError is a non-2xx response from the data API
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// FetchData returns every stored row. Failures are logged and yield an empty list.
func (c *Client) FetchData(ctx context.Context) []sheet.Row {
	body, err := c.do(ctx, http.MethodGet, dataPath, nil)
	if err != nil {
		c.logger.Error("Error fetching data: %v", err)
		return []sheet.Row{}
	}

	var rows []sheet.Row
	if err := json.Unmarshal(body, &rows); err != nil {
		c.logger.Error("Error decoding data response: %v", err)
		return []sheet.Row{}
	}
	if rows == nil {
		rows = []sheet.Row{}
	}

	c.logger.Debug("Fetched %d rows", len(rows))
	return rows
}

// FetchStats returns the aggregate statistics. Failures are logged and yield empty statistics.
func (c *Client) FetchStats(ctx context.Context) sheet.Statistics {
	body, err := c.do(ctx, http.MethodGet, statsPath, nil)
	if err != nil {
		c.logger.Error("Error fetching stats: %v", err)
		return sheet.Statistics{}
	}
	if !gjson.ValidBytes(body) {
		c.logger.Error("Error decoding stats response: invalid JSON")
		return sheet.Statistics{}
	}

	var stats sheet.Statistics
	if v := gjson.GetBytes(body, "average"); v.Type == gjson.Number {
		stats.Average = sheet.Float(v.Float())
	}
	if v := gjson.GetBytes(body, "standardDeviation"); v.Type == gjson.Number {
		stats.StandardDeviation = sheet.Float(v.Float())
	}
	return stats
}

// SaveData persists rows in one bulk request. Failures are returned to the caller.
func (c *Client) SaveData(ctx context.Context, rows []sheet.Row) (ports.SaveReceipt, error) {
	payload := struct {
		Items []sheet.Row `json:"items"`
	}{Items: rows}

	body, err := c.do(ctx, http.MethodPost, bulkPath, payload)
	if err != nil {
		c.logSaveError(err)
		return ports.SaveReceipt{}, err
	}

	receipt := ports.SaveReceipt{Message: gjson.GetBytes(body, "message").String()}
	for _, id := range gjson.GetBytes(body, "ids").Array() {
		receipt.IDs = append(receipt.IDs, id.Int())
	}

	c.logger.Info("Saved %d rows", len(rows))
	return receipt, nil
}

// SaveRow persists one row through the legacy single-row endpoint and
// returns the identity the API assigned to it
func (c *Client) SaveRow(ctx context.Context, row sheet.Row) (int64, error) {
	body, err := c.do(ctx, http.MethodPost, dataPath, row)
	if err != nil {
		c.logSaveError(err)
		return 0, err
	}

	id := gjson.GetBytes(body, "id")
	if !id.Exists() {
		return 0, errors.ExternalServiceError("data api", fmt.Errorf("save response carries no id"))
	}
	return id.Int(), nil
}

func (c *Client) logSaveError(err error) {
	c.logger.Error("Error saving data: %v", err)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.logger.Error("Response status: %d", apiErr.StatusCode)
		c.logger.Error("Response data: %s", apiErr.Body)
	}
}

// do sends one request and returns the body of a 2xx response
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode request")
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.ExternalServiceError("data api", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ExternalServiceError("data api", fmt.Errorf("failed to read response: %w", err))
	}
	c.logger.Trace("%s %s -> %d in %s", method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, errors.ExternalServiceError("data api", &APIError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		})
	}
	return body, nil
}
