package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/microgrid/core/estimation"
)

// DefaultTimeout bounds one remote estimate when the caller sets none.
const DefaultTimeout = 2 * time.Second

// Client calls a remote estimator. It implements estimation.Estimator.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Estimate posts req to /simulate.
func (c *Client) Estimate(ctx context.Context, req estimation.Request) (estimation.Result, error) {
	var res estimation.Result
	if err := c.post(ctx, "/simulate", req, &res); err != nil {
		return estimation.Result{}, err
	}
	return res, nil
}

// Forecast posts the current outputs to /forecast and returns the predicted
// combined generation.
func (c *Client) Forecast(ctx context.Context, req ForecastRequest) (float64, error) {
	var res ForecastResponse
	if err := c.post(ctx, "/forecast", req, &res); err != nil {
		return 0, err
	}
	return res.GenKW, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("estimator: encode %s: %w", path, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("estimator: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("estimator: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("estimator: %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("estimator: decode %s: %w", path, err)
	}
	return nil
}
