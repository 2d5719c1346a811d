// Package auth handles email/password authentication against the
// configured cloud backend. Providers are stateless REST clients; the
// Manager owns the current session and hands out identity and tokens
// to the rest of the app.
package auth

import (
	"context"
	"errors"
	"sync"
)

// ErrNotConfigured is returned when no auth provider is configured and
// a sign in is attempted.
var ErrNotConfigured = errors.New("no authentication backend configured")

// Identity is the signed in user as the rest of the app sees it.
type Identity struct {
	UID   string
	Email string
}

// Session is an authenticated session returned by a provider.
type Session struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

// Provider is the authentication contract implemented by each cloud
// variant.
type Provider interface {
	// Name identifies the provider in status messages.
	Name() string

	// SignIn exchanges email and password for a session.
	SignIn(ctx context.Context, email, password string) (Session, error)

	// SignUp creates a new account and returns its first session.
	SignUp(ctx context.Context, email, password string) (Session, error)

	// Refresh exchanges a refresh token for a fresh session. It is used
	// to restore the session across restarts.
	Refresh(ctx context.Context, refreshToken string) (Session, error)
}

// Error is an authentication failure with a backend error code and a
// message fit for the status line.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// friendlyMessages maps backend error codes to the messages shown to
// the user. Codes from both backends share one table; unknown codes get
// a generic message.
var friendlyMessages = map[string]string{
	// Identity Toolkit codes.
	"EMAIL_NOT_FOUND":             "No account found with this email address.",
	"INVALID_PASSWORD":            "Incorrect password. Please try again.",
	"INVALID_LOGIN_CREDENTIALS":   "Incorrect email or password. Please try again.",
	"EMAIL_EXISTS":                "An account with this email already exists.",
	"WEAK_PASSWORD":               "Password should be at least 6 characters long.",
	"INVALID_EMAIL":               "Please enter a valid email address.",
	"USER_DISABLED":               "This account has been disabled.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many failed attempts. Please try again later.",

	// GoTrue codes.
	"invalid_credentials":     "Incorrect email or password. Please try again.",
	"user_already_exists":     "An account with this email already exists.",
	"weak_password":           "Password should be at least 6 characters long.",
	"validation_failed":       "Please enter a valid email address.",
	"user_banned":             "This account has been disabled.",
	"over_request_rate_limit": "Too many failed attempts. Please try again later.",
}

const genericAuthMessage = "An error occurred during authentication. Please try again."

// newError builds an Error for code, falling back to the generic
// message for codes with no friendly mapping.
func newError(code string) *Error {
	msg, ok := friendlyMessages[code]
	if !ok {
		msg = genericAuthMessage
	}
	return &Error{Code: code, Message: msg}
}

// CredentialStore persists the refresh token between runs. It matches
// the credential package's function surface.
type CredentialStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// Manager owns the current session. It is safe for concurrent use; the
// sync layer reads identity and tokens from other goroutines.
type Manager struct {
	provider   Provider
	creds      CredentialStore
	refreshKey string

	mu      sync.RWMutex
	session *Session
}

// NewManager creates a session manager over the given provider.
// provider may be nil when no cloud backend is configured; creds may be
// nil to skip session persistence.
func NewManager(provider Provider, creds CredentialStore, refreshKey string) *Manager {
	return &Manager{provider: provider, creds: creds, refreshKey: refreshKey}
}

// Configured reports whether a provider is available.
func (m *Manager) Configured() bool {
	return m.provider != nil
}

// Current returns the signed in identity, if any.
func (m *Manager) Current() (Identity, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Identity{}, false
	}
	return m.session.Identity, true
}

// Token returns the current access token, or "" when signed out. It
// satisfies the token source contract of the persistence backends.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// SignIn authenticates and adopts the resulting session.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Identity, error) {
	if m.provider == nil {
		return Identity{}, ErrNotConfigured
	}
	session, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}
	m.adopt(session)
	return session.Identity, nil
}

// SignUp creates an account and adopts its session.
func (m *Manager) SignUp(ctx context.Context, email, password string) (Identity, error) {
	if m.provider == nil {
		return Identity{}, ErrNotConfigured
	}
	session, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}
	m.adopt(session)
	return session.Identity, nil
}

// SignOut drops the session and the stored refresh token. It never
// fails; a stale keyring entry is harmless.
func (m *Manager) SignOut() {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()

	if m.creds != nil {
		_ = m.creds.Delete(m.refreshKey)
	}
}

// Restore tries to resume the previous session from the stored refresh
// token. It reports whether a session was restored; failures leave the
// manager signed out.
func (m *Manager) Restore(ctx context.Context) bool {
	if m.provider == nil || m.creds == nil {
		return false
	}
	token, err := m.creds.Get(m.refreshKey)
	if err != nil || token == "" {
		return false
	}
	session, err := m.provider.Refresh(ctx, token)
	if err != nil {
		return false
	}
	m.adopt(session)
	return true
}

// adopt installs the session and persists its refresh token.
func (m *Manager) adopt(session Session) {
	m.mu.Lock()
	m.session = &session
	m.mu.Unlock()

	if m.creds != nil && session.RefreshToken != "" {
		_ = m.creds.Set(m.refreshKey, session.RefreshToken)
	}
}
