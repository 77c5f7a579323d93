package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned when a token resolves to no live session.
var ErrSessionNotFound = errors.New("session not found")

// Session maps a bearer token to a user.
type Session struct {
	Token     string     `json:"token"`
	UserID    string     `json:"user_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CreateSession issues a fresh token for userID. A zero ttl means the
// session does not expire.
func (o *Operations) CreateSession(userID string, ttl time.Duration) (*Session, error) {
	session := &Session{
		Token:     uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}
	if ttl > 0 {
		expires := session.CreatedAt.Add(ttl)
		session.ExpiresAt = &expires
	}

	_, err := o.db.Exec(
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		session.Token, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ResolveToken returns the user id behind a bearer token. Expired sessions
// resolve as not found.
func (o *Operations) ResolveToken(token string) (string, error) {
	var userID string
	var expiresAt *time.Time
	err := o.db.QueryRow(
		"SELECT user_id, expires_at FROM sessions WHERE token = ?", token).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve token: %w", err)
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		return "", ErrSessionNotFound
	}
	return userID, nil
}

// DeleteSession revokes a token. Deleting an unknown token is not an
// error.
func (o *Operations) DeleteSession(token string) error {
	if _, err := o.db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// UpsertUserProfile writes the onboarding profile row for a user.
func (o *Operations) UpsertUserProfile(profile *UserProfile) error {
	_, err := o.db.Exec(`
		INSERT INTO user_profiles (user_id, stuck_input, friction_input, block_pattern, reasoning,
			activation_move, momentum_move, systems_move, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			stuck_input = excluded.stuck_input,
			friction_input = excluded.friction_input,
			block_pattern = excluded.block_pattern,
			reasoning = excluded.reasoning,
			activation_move = excluded.activation_move,
			momentum_move = excluded.momentum_move,
			systems_move = excluded.systems_move,
			updated_at = excluded.updated_at`,
		profile.UserID, profile.StuckInput, profile.FrictionInput, profile.BlockPattern, profile.Reasoning,
		profile.ActivationMove, profile.MomentumMove, profile.SystemsMove, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert user profile: %w", err)
	}
	return nil
}

// GetUserProfile loads the onboarding profile for a user.
func (o *Operations) GetUserProfile(userID string) (*UserProfile, error) {
	var profile UserProfile
	err := o.db.QueryRow(`
		SELECT user_id, stuck_input, friction_input, block_pattern, reasoning,
			activation_move, momentum_move, systems_move, updated_at
		FROM user_profiles WHERE user_id = ?`, userID).Scan(
		&profile.UserID, &profile.StuckInput, &profile.FrictionInput, &profile.BlockPattern,
		&profile.Reasoning, &profile.ActivationMove, &profile.MomentumMove, &profile.SystemsMove,
		&profile.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	return &profile, nil
}
