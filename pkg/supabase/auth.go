package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// User is the subset of the GoTrue user object the service reads.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// Session is an authenticated Supabase session.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// ExpiresAt returns the wall-clock expiry of the session.
func (s *Session) ExpiresAt(from time.Time) time.Time {
	return from.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// authError is the error shape GoTrue returns.
type authError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e *authError) message() string {
	for _, m := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if m != "" {
			return m
		}
	}
	return "authentication failed"
}

// SignInWithPassword exchanges email/password credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	endpoint := fmt.Sprintf("%s/auth/v1/token?grant_type=password", c.baseURL)

	body, _, err := c.do(ctx, http.MethodPost, endpoint, nil, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		// GoTrue error payloads differ from PostgREST ones; re-decode when possible.
		if apiErr, ok := err.(*APIError); ok {
			return nil, &APIError{Status: apiErr.Status, Message: gotrueMessage(apiErr)}
		}
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, &APIError{Message: "no session returned"}
	}
	return &session, nil
}

// GetUser returns the user bound to an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	endpoint := fmt.Sprintf("%s/auth/v1/user", c.baseURL)

	body, _, err := c.do(ctx, http.MethodGet, endpoint, map[string]string{
		"Authorization": "Bearer " + accessToken,
	}, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// SignOut revokes the session behind an access token. A failed revocation is
// not fatal for the caller, so the error is informational.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	endpoint := fmt.Sprintf("%s/auth/v1/logout", c.baseURL)

	_, _, err := c.do(ctx, http.MethodPost, endpoint, map[string]string{
		"Authorization": "Bearer " + accessToken,
	}, struct{}{})
	return err
}

// gotrueMessage extracts the most specific message from a GoTrue error body.
func gotrueMessage(apiErr *APIError) string {
	if len(apiErr.Raw) > 0 {
		var ae authError
		if err := json.Unmarshal(apiErr.Raw, &ae); err == nil {
			return ae.message()
		}
	}
	return apiErr.Message
}
