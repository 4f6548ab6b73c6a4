// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"formcoach/internal/domain"
)

// Repository defines the interface for persisting user and workout session
// bookkeeping. Ended sessions are operational state, not history: the reaper
// deletes them after retention.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// CreateSession inserts a new workout session row.
	CreateSession(ctx context.Context, session *domain.WorkoutSession) error

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, sessionID string) (*domain.WorkoutSession, error)

	// GetActiveSession returns the user's most recent non-ended session.
	GetActiveSession(ctx context.Context, userID string) (*domain.WorkoutSession, error)

	// UpdateSessionProgress records the live rep count and last verdict.
	UpdateSessionProgress(ctx context.Context, sessionID string, repCount, score int, feedback string) error

	// EndSession finalizes a session.
	EndSession(ctx context.Context, sessionID string, endedAt time.Time) error

	// GetIdleSessions returns active sessions without progress for longer
	// than the idle cutoff.
	GetIdleSessions(ctx context.Context, idle time.Duration) ([]*domain.WorkoutSession, error)

	// DeleteEndedSessions removes ended sessions older than the retention
	// span and returns how many rows were deleted.
	DeleteEndedSessions(ctx context.Context, retention time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
