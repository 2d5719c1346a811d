package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Supabase authenticates against the GoTrue REST API of a Supabase
// project.
type Supabase struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewSupabase creates a GoTrue client for the given project URL.
func NewSupabase(baseURL, anonKey string) *Supabase {
	return &Supabase{
		baseURL:    baseURL,
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies the provider in status messages.
func (c *Supabase) Name() string {
	return "supabase"
}

// SignIn exchanges email and password for a session.
func (c *Supabase) SignIn(ctx context.Context, email, password string) (Session, error) {
	return c.tokenCall(ctx, "/auth/v1/token?grant_type=password", gotrueCredentials{
		Email:    email,
		Password: password,
	})
}

// SignUp creates a new account. Projects with email confirmation
// enabled return no session; that surfaces as an error asking the user
// to confirm first.
func (c *Supabase) SignUp(ctx context.Context, email, password string) (Session, error) {
	session, err := c.tokenCall(ctx, "/auth/v1/signup", gotrueCredentials{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return Session{}, err
	}
	if session.AccessToken == "" {
		return Session{}, &Error{
			Code:    "email_not_confirmed",
			Message: "Account created. Check your email to confirm it, then sign in.",
		}
	}
	return session, nil
}

// Refresh exchanges a refresh token for a fresh session.
func (c *Supabase) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	return c.tokenCall(ctx, "/auth/v1/token?grant_type=refresh_token", gotrueRefresh{
		RefreshToken: refreshToken,
	})
}

// tokenCall posts a credential payload and decodes the session.
func (c *Supabase) tokenCall(ctx context.Context, path string, payload interface{}) (Session, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Session{}, fmt.Errorf("failed to marshal auth request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body),
	)
	if err != nil {
		return Session{}, fmt.Errorf("failed to build auth request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", c.anonKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("failed to call auth API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Session{}, decodeGoTrueError(resp)
	}

	var tokenResp gotrueTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return Session{}, fmt.Errorf("failed to decode auth response: %w", err)
	}

	return Session{
		Identity:     Identity{UID: tokenResp.User.ID, Email: tokenResp.User.Email},
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
	}, nil
}

// decodeGoTrueError maps a GoTrue error payload to a friendly Error.
// The payload shape has shifted across versions, so several fields are
// tried in order.
func decodeGoTrueError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var errResp struct {
		ErrorCode        string `json:"error_code"`
		Code             string `json:"code"`
		Message          string `json:"msg"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &errResp); err != nil {
		return fmt.Errorf("auth API error %d: %s", resp.StatusCode, string(raw))
	}

	code := errResp.ErrorCode
	if code == "" {
		code = errResp.Code
	}
	if code == "" {
		code = errResp.Error
	}
	if code == "" {
		return fmt.Errorf("auth API error %d: %s", resp.StatusCode, string(raw))
	}
	return newError(code)
}

// ---- Request/Response types scoped to this package ----

type gotrueCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type gotrueRefresh struct {
	RefreshToken string `json:"refresh_token"`
}

type gotrueTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}
