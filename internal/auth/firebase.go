package auth

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
)

const (
	defaultIdentityBaseURL = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL  = "https://securetoken.googleapis.com/v1"
)

// Firebase authenticates against the Identity Toolkit REST API using a
// web API key.
type Firebase struct {
	identityURL string
	tokenURL    string
	apiKey      string
	httpClient  *http.Client
}

// NewFirebase creates an Identity Toolkit client for the given API key.
func NewFirebase(apiKey string) *Firebase {
	return &Firebase{
		identityURL: defaultIdentityBaseURL,
		tokenURL:    defaultSecureTokenURL,
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

// NewFirebaseWithBaseURLs is NewFirebase with explicit endpoints, for
// tests.
func NewFirebaseWithBaseURLs(identityURL, tokenURL, apiKey string) *Firebase {
	c := NewFirebase(apiKey)
	c.identityURL = identityURL
	c.tokenURL = tokenURL
	return c
}

// Name identifies the provider in status messages.
func (c *Firebase) Name() string {
	return "firebase"
}

// SignIn exchanges email and password for a session via
// accounts:signInWithPassword.
func (c *Firebase) SignIn(ctx context.Context, email, password string) (Session, error) {
	return c.credentialCall(ctx, "accounts:signInWithPassword", email, password)
}

// SignUp creates a new account via accounts:signUp.
func (c *Firebase) SignUp(ctx context.Context, email, password string) (Session, error) {
	return c.credentialCall(ctx, "accounts:signUp", email, password)
}

// Refresh exchanges a refresh token for a fresh session via the secure
// token endpoint.
func (c *Firebase) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	endpoint := fmt.Sprintf("%s/token?key=%s", c.tokenURL, c.apiKey)

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()),
	)
	if err != nil {
		return Session{}, fmt.Errorf("failed to build token refresh request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("failed to call token refresh API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Session{}, decodeIdentityError(resp)
	}

	var tokenResp struct {
		UserID       string `json:"user_id"`
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return Session{}, fmt.Errorf("failed to decode token refresh response: %w", err)
	}

	// The refresh response carries no email; look it up so the header
	// can show it.
	email, _ := c.lookupEmail(ctx, tokenResp.IDToken)

	return Session{
		Identity:     Identity{UID: tokenResp.UserID, Email: email},
		AccessToken:  tokenResp.IDToken,
		RefreshToken: tokenResp.RefreshToken,
	}, nil
}

// credentialCall posts email and password to the named accounts
// endpoint and decodes the resulting session.
func (c *Firebase) credentialCall(ctx context.Context, endpoint, email, password string) (Session, error) {
	body, err := json.Marshal(identityCredentialRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return Session{}, fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}

	reqURL := fmt.Sprintf("%s/%s?key=%s", c.identityURL, endpoint, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(body))
	if err != nil {
		return Session{}, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("failed to call %s API: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Session{}, decodeIdentityError(resp)
	}

	var credResp identityCredentialResponse
	if err := json.NewDecoder(resp.Body).Decode(&credResp); err != nil {
		return Session{}, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	return Session{
		Identity:     Identity{UID: credResp.LocalID, Email: credResp.Email},
		AccessToken:  credResp.IDToken,
		RefreshToken: credResp.RefreshToken,
	}, nil
}

// lookupEmail resolves the account email for an id token via
// accounts:lookup.
func (c *Firebase) lookupEmail(ctx context.Context, idToken string) (string, error) {
	body, err := json.Marshal(map[string]string{"idToken": idToken})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lookup request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/accounts:lookup?key=%s", c.identityURL, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to build lookup request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call lookup API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeIdentityError(resp)
	}

	var lookupResp struct {
		Users []struct {
			Email string `json:"email"`
		} `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lookupResp); err != nil {
		return "", fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if len(lookupResp.Users) == 0 {
		return "", nil
	}
	return lookupResp.Users[0].Email, nil
}

// decodeIdentityError maps an Identity Toolkit error payload to a
// friendly Error. Codes sometimes carry a suffix, as in
// "WEAK_PASSWORD : Password should be...", which is stripped.
func decodeIdentityError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &errResp); err != nil || errResp.Error.Message == "" {
		return fmt.Errorf("identity API error %d: %s", resp.StatusCode, string(raw))
	}

	code := errResp.Error.Message
	if idx := strings.IndexAny(code, " :"); idx > 0 {
		code = code[:idx]
	}
	return newError(code)
}

// ---- Request/Response types scoped to this package ----

type identityCredentialRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type identityCredentialResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
}
