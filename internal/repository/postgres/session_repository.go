package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"mojo-insights/internal/domain"
)

type SessionRepository struct {
	db                *sql.DB
	createStmt        *sql.Stmt
	updateProfileStmt *sql.Stmt
	getByTokenStmt    *sql.Stmt
	deleteStmt        *sql.Stmt
}

// NewSessionRepository creates a new SessionRepository with prepared statements.
// Returns an error if statement preparation fails.
func NewSessionRepository(db *sql.DB) (*SessionRepository, error) {
	repo := &SessionRepository{db: db}

	var err error
	repo.createStmt, err = db.Prepare(`
		INSERT INTO sessions (token, access_token)
		VALUES ($1, $2)
		RETURNING created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare create statement: %w", err)
	}

	repo.updateProfileStmt, err = db.Prepare(`
		UPDATE sessions SET profile = $1 WHERE token = $2
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare updateProfile statement: %w", err)
	}

	repo.getByTokenStmt, err = db.Prepare(`
		SELECT token, access_token, profile, created_at
		FROM sessions
		WHERE token = $1
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare getByToken statement: %w", err)
	}

	repo.deleteStmt, err = db.Prepare(`DELETE FROM sessions WHERE token = $1`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return repo, nil
}

// Create persists a new session holding only the access token. The profile
// is written separately once its fetch succeeds; nothing is stored
// speculatively.
func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	err := r.createStmt.QueryRowContext(ctx,
		session.Token,
		session.AccessToken,
	).Scan(&session.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// UpdateProfile stores the profile snapshot for an existing session.
func (r *SessionRepository) UpdateProfile(ctx context.Context, token string, profile *domain.Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	result, err := r.updateProfileStmt.ExecContext(ctx, raw, token)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if count == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	session := &domain.Session{}
	var rawProfile []byte

	err := r.getByTokenStmt.QueryRowContext(ctx, token).Scan(
		&session.Token,
		&session.AccessToken,
		&rawProfile,
		&session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session by token: %w", err)
	}

	if len(rawProfile) > 0 {
		profile := &domain.Profile{}
		if err := json.Unmarshal(rawProfile, profile); err != nil {
			return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
		}
		session.Profile = profile
	}
	return session, nil
}

// Delete removes the session row, clearing the persisted store for that
// session entirely.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.deleteStmt.ExecContext(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
