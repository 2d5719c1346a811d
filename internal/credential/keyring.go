package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "weekplanner"

// Credential keys used by the planner.
const (
	// KeyRefreshToken holds the refresh token of the signed in user so
	// the session survives restarts.
	KeyRefreshToken = "auth_refresh_token"

	// KeyAIAPIKey holds the API key for the suggestion service.
	KeyAIAPIKey = "ai_api_key"
)

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/weekplanner/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("weekplanner-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Store exposes the keyring functions as methods so they can be passed
// where an interface-shaped dependency is expected.
type Store struct{}

// Get retrieves a credential value by key.
func (Store) Get(key string) (string, error) { return Get(key) }

// Set stores a credential value by key.
func (Store) Set(key, value string) error { return Set(key, value) }

// Delete removes a credential by key.
func (Store) Delete(key string) error { return Delete(key) }

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
