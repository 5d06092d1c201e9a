package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/justice-digital/incentives-engine/pkg/errors"
)

const dateLayout = "2006-01-02"

// httpClient is the shared plumbing for both upstream services: bounded
// timeout, JSON decoding and the not-found / unavailable error mapping.
type httpClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func newHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) httpClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// getJSON issues a GET and decodes the response body into dest.
func (c httpClient) getJSON(ctx context.Context, path string, dest interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, dest)
}

// postJSON issues a POST with a JSON body and decodes the response into dest.
func (c httpClient) postJSON(ctx context.Context, path string, body interface{}, dest interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request body for %s: %w", path, err)
	}
	return c.doJSON(ctx, http.MethodPost, path, payload, dest)
}

func (c httpClient) doJSON(ctx context.Context, method, path string, body []byte, dest interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return appErrors.Wrap(err, appErrors.ErrProviderUnavailable.Code, appErrors.ErrProviderUnavailable.Status, "upstream request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("upstream resource not found: %s", path))
	case resp.StatusCode >= 400:
		c.logger.Warn("upstream returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return appErrors.Clone(appErrors.ErrProviderUnavailable, fmt.Sprintf("upstream returned %d for %s", resp.StatusCode, path))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrProviderUnavailable.Code, appErrors.ErrProviderUnavailable.Status, "decode upstream response")
	}
	return nil
}

// apiDate unmarshals the date-only strings both upstream services use.
type apiDate struct {
	time.Time
}

func (d *apiDate) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw, err)
	}
	d.Time = parsed
	return nil
}
