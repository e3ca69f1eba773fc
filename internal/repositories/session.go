package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

// SessionRepository persists conversation sessions in SQLite so a bot restart keeps pending input.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get returns the stored session for user, or a fresh idle session when none exists.
func (r *SessionRepository) Get(ctx context.Context, user models.UserID) (*models.Session, error) {
	query := `
		SELECT user_id, chat_id, state, current_playlist, playlists, menu_message_id
		FROM sessions
		WHERE user_id = ?
	`

	var (
		session   models.Session
		playlists string
	)
	err := r.db.QueryRowContext(ctx, query, user.String()).Scan(
		&session.UserID,
		&session.ChatID,
		&session.State,
		&session.CurrentPlaylist,
		&playlists,
		&session.MenuMessageID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.NewSession(user), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load session: %v", shared.ErrPersistence, err)
	}

	if err := json.Unmarshal([]byte(playlists), &session.Playlists); err != nil {
		return nil, fmt.Errorf("%w: failed to decode session playlists: %v", shared.ErrPersistence, err)
	}
	return &session, nil
}

// Save inserts or replaces the session row.
func (r *SessionRepository) Save(ctx context.Context, session *models.Session) error {
	if session == nil || !session.UserID.Valid() {
		return fmt.Errorf("%w: session requires a valid user id", shared.ErrInvalidInput)
	}

	names := session.Playlists
	if names == nil {
		names = []string{}
	}
	playlists, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("failed to encode session playlists: %w", err)
	}

	query := `
		INSERT INTO sessions (user_id, chat_id, state, current_playlist, playlists, menu_message_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			chat_id = excluded.chat_id,
			state = excluded.state,
			current_playlist = excluded.current_playlist,
			playlists = excluded.playlists,
			menu_message_id = excluded.menu_message_id,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		session.UserID.String(),
		session.ChatID,
		int(session.State),
		session.CurrentPlaylist,
		string(playlists),
		session.MenuMessageID,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to save session: %v", shared.ErrPersistence, err)
	}
	return nil
}

// Delete removes the session row. Deleting an unknown user is not an error.
func (r *SessionRepository) Delete(ctx context.Context, user models.UserID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, user.String()); err != nil {
		return fmt.Errorf("%w: failed to delete session: %v", shared.ErrPersistence, err)
	}
	return nil
}
