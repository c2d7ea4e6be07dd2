// Package supabase is a minimal client for the Supabase REST (PostgREST) and
// auth (GoTrue) endpoints. It exposes only the vocabulary the registration
// service needs: from/select/insert/eq/limit on tables and password-based
// sessions, with errors carrying the backend code and message.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Client is a minimal HTTP client for a Supabase project.
type Client struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	debug      bool
}

// NewClient constructs a new Supabase client with sane defaults.
func NewClient(baseURL, anonKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		anonKey:    anonKey,
		debug:      os.Getenv("APP_ENV") == "development",
	}
}

// APIError is a structured error returned by the Supabase backend. Code is
// the PostgreSQL/PostgREST error code (e.g. 23505 duplicate key, 42P01
// missing table, 42501 permission denied).
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
	Status  int    `json:"-"`

	// Raw keeps the undecoded error body; auth endpoints use a different
	// error shape and re-decode from it.
	Raw []byte `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("supabase: %s", e.Message)
}

// From starts a query against the given table.
func (c *Client) From(table string) *Query {
	return &Query{client: c, table: table, limit: -1}
}

// CheckConnection performs a cheap read against the table to verify the
// project is reachable and the key is accepted.
func (c *Client) CheckConnection(ctx context.Context, table string) error {
	_, err := c.From(table).Select("id").Limit(0).Execute(ctx)
	return err
}

// do performs an HTTP request with the project headers applied and decodes
// error responses into *APIError.
func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, body any) ([]byte, http.Header, error) {
	var reader io.Reader
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	if c.debug {
		log.Debug().
			Str("method", method).
			Str("url", url).
			RawJSON("request", orEmptyJSON(payload)).
			Msg("[SUPABASE] Outgoing request")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	if _, ok := headers["Authorization"]; !ok {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if c.debug {
		log.Debug().
			Str("url", url).
			Int("status_code", resp.StatusCode).
			RawJSON("response", orEmptyJSON(respBody)).
			Msg("[SUPABASE] Incoming response")
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Raw: respBody}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return nil, resp.Header, apiErr
	}

	return respBody, resp.Header, nil
}

func orEmptyJSON(b []byte) []byte {
	if len(b) == 0 {
		return []byte("{}")
	}
	return b
}
