package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

var ErrInvalidState = errors.New("invalid oauth state")

// StateManager generates OAuth state nonces. Nonces are cryptographically
// random; verification compares the callback's state query parameter against
// the value parked in a short-lived cookie.
type StateManager struct{}

// NewStateManager creates a new OAuth state manager.
func NewStateManager() *StateManager {
	return &StateManager{}
}

// Generate creates a cryptographically secure random state nonce (256 bits),
// returned as a 64-character hex string.
func (sm *StateManager) Generate() (string, error) {
	randomBytes := make([]byte, 32)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(randomBytes), nil
}

// Verify checks the callback state against the parked value.
func (sm *StateManager) Verify(got, want string) error {
	if got == "" || got != want {
		return ErrInvalidState
	}
	return nil
}
