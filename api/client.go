package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-bookstore-client/internal/errors"
)

const (
	DefaultBaseURL = "https://book-store-fastapi.onrender.com"
	DefaultTimeout = 15 * time.Second
)

// Client performs JSON requests against the bookstore API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. A nil httpClient gets the default timeout and transport.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, target interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Method: method, Path: path, Err: apperrors.Wrapf(apperrors.ErrNetwork, "%v", err)}
	}
	return parseResponse(method, path, resp, target)
}

// errorBody covers both {"message": ...} and FastAPI's {"detail": "..."}.
type errorBody struct {
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Detail  json.RawMessage `json:"detail"`
}

func (b errorBody) text() string {
	switch {
	case b.Message != "":
		return b.Message
	case b.Error != "":
		return b.Error
	}
	var detail string
	if len(b.Detail) > 0 && json.Unmarshal(b.Detail, &detail) == nil {
		return detail
	}
	return ""
}

func parseResponse(method, path string, resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

		apiErr := &Error{Method: method, Path: path, StatusCode: resp.StatusCode, Err: apperrors.ErrServer}
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil {
			apiErr.Message = eb.text()
		}
		return apiErr
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return &Error{Method: method, Path: path, StatusCode: resp.StatusCode,
			Err: apperrors.Wrapf(apperrors.ErrBadResponse, "decode: %v", err)}
	}
	return nil
}
