package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// Profile is the snapshot of the logged-in user's identity fetched from the
// platform right after login.
type Profile struct {
	Name       string `json:"name"`
	PictureURL string `json:"picture_url"`
}

// Session represents a logged-in user. Token is the server-side session ID
// handed to the browser; AccessToken is the platform user token used for
// Graph calls. Profile is nil between the token exchange and the profile
// fetch landing.
type Session struct {
	Token       string    `json:"token"`
	AccessToken string    `json:"access_token"`
	Profile     *Profile  `json:"profile,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Authenticated reports whether the session holds a usable platform token.
func (s *Session) Authenticated() bool {
	return s != nil && s.AccessToken != ""
}

// SessionRepository defines the interface for the persisted session store.
// It mirrors exactly two facts per session: the access token and the profile
// snapshot. Rows carry no expiry; the platform token expires on its own side.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	UpdateProfile(ctx context.Context, token string, profile *Profile) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}
