package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"formcoach/internal/domain"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS workout_sessions (
		session_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		rep_count INTEGER NOT NULL DEFAULT 0,
		last_score INTEGER NOT NULL DEFAULT 0,
		last_feedback TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		ended_at INTEGER,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_active
		ON workout_sessions(user_id) WHERE ended_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_sessions_updated ON workout_sessions(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Username,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// CreateSession inserts a new workout session row.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.WorkoutSession) error {
	query := `
	INSERT INTO workout_sessions
		(session_id, user_id, rep_count, last_score, last_feedback, started_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.UserID,
		session.RepCount, session.LastScore, session.LastFeedback,
		session.StartedAt.Unix(), session.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.WorkoutSession, error) {
	query := sessionSelect + ` WHERE session_id = ?`
	return scanSession(s.db.QueryRowContext(ctx, query, sessionID))
}

// GetActiveSession returns the user's most recent non-ended session.
func (s *SQLiteStore) GetActiveSession(ctx context.Context, userID string) (*domain.WorkoutSession, error) {
	query := sessionSelect + `
		WHERE user_id = ? AND ended_at IS NULL
		ORDER BY started_at DESC LIMIT 1`
	return scanSession(s.db.QueryRowContext(ctx, query, userID))
}

const sessionSelect = `
	SELECT session_id, user_id, rep_count, last_score, last_feedback,
	       started_at, ended_at, updated_at
	FROM workout_sessions`

func scanSession(row *sql.Row) (*domain.WorkoutSession, error) {
	var session domain.WorkoutSession
	var endedAt sql.NullInt64
	var startedAt, updatedAt int64

	err := row.Scan(
		&session.ID, &session.UserID,
		&session.RepCount, &session.LastScore, &session.LastFeedback,
		&startedAt, &endedAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	session.StartedAt = time.Unix(startedAt, 0)
	session.UpdatedAt = time.Unix(updatedAt, 0)
	if endedAt.Valid {
		t := time.Unix(endedAt.Int64, 0)
		session.EndedAt = &t
	}

	return &session, nil
}

// UpdateSessionProgress records the live rep count and last verdict. The
// write retries on SQLite lock conflicts since the frame loop and the
// reaper can contend for the same row.
func (s *SQLiteStore) UpdateSessionProgress(ctx context.Context, sessionID string, repCount, score int, feedback string) error {
	query := `
		UPDATE workout_sessions
		SET rep_count = ?, last_score = ?, last_feedback = ?, updated_at = ?
		WHERE session_id = ? AND ended_at IS NULL`

	return s.execWithRetry(ctx, "update session progress", query,
		repCount, score, feedback, time.Now().Unix(), sessionID)
}

// EndSession finalizes a session.
func (s *SQLiteStore) EndSession(ctx context.Context, sessionID string, endedAt time.Time) error {
	query := `
		UPDATE workout_sessions SET ended_at = ?, updated_at = ?
		WHERE session_id = ? AND ended_at IS NULL`

	return s.execWithRetry(ctx, "end session", query,
		endedAt.Unix(), time.Now().Unix(), sessionID)
}

// execWithRetry runs a write with exponential backoff on SQLITE_BUSY.
func (s *SQLiteStore) execWithRetry(ctx context.Context, op, query string, args ...interface{}) error {
	maxRetries := 3
	baseDelay := 50 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return nil
		}
		if !isSQLiteConflict(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		if i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("SQLite busy, retrying", "op", op, "attempt", i+1, "delay", delay)
			time.Sleep(delay)
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", op, maxRetries, err)
}

// GetIdleSessions returns active sessions without progress past the cutoff.
func (s *SQLiteStore) GetIdleSessions(ctx context.Context, idle time.Duration) ([]*domain.WorkoutSession, error) {
	threshold := time.Now().Add(-idle).Unix()
	query := sessionSelect + ` WHERE ended_at IS NULL AND updated_at < ?`

	rows, err := s.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("query idle sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close idle sessions rows", "error", closeErr)
		}
	}()

	var sessions []*domain.WorkoutSession
	for rows.Next() {
		var session domain.WorkoutSession
		var endedAt sql.NullInt64
		var startedAt, updatedAt int64

		if err := rows.Scan(
			&session.ID, &session.UserID,
			&session.RepCount, &session.LastScore, &session.LastFeedback,
			&startedAt, &endedAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan idle session row: %w", err)
		}

		session.StartedAt = time.Unix(startedAt, 0)
		session.UpdatedAt = time.Unix(updatedAt, 0)
		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate idle sessions: %w", err)
	}

	return sessions, nil
}

// DeleteEndedSessions removes ended sessions older than retention.
func (s *SQLiteStore) DeleteEndedSessions(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).Unix()
	query := `DELETE FROM workout_sessions WHERE ended_at IS NOT NULL AND ended_at < ?`
	result, err := s.db.ExecContext(ctx, query, threshold)
	if err != nil {
		return 0, fmt.Errorf("delete ended sessions: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
