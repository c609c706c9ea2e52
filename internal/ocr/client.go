// Package ocr turns CAPTCHA images into text guesses through an OCR server.
package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Solver returns a best-guess reading of a CAPTCHA image. It does not retry.
type Solver interface {
	Solve(ctx context.Context, image []byte) (string, error)
}

// Client talks to a ddddocr-compatible HTTP server: POST {"image": "<base64>"}
// and receive {"result": "abcd"}.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithHTTPClient overrides the transport, mainly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

type solveRequest struct {
	Image string `json:"image"`
}

type solveResponse struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

func (c *Client) Solve(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty captcha image")
	}
	body, err := json.Marshal(solveRequest{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("ocr read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out solveResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		// Some servers answer with the bare text.
		return normalize(string(raw)), nil
	}
	if out.Error != "" {
		return "", fmt.Errorf("ocr error: %s", out.Error)
	}
	return normalize(out.Result), nil
}

func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
