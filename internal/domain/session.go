package domain

import (
	"time"
)

// WorkoutSession tracks the live progress of one coaching session. Rows are
// bookkeeping for the active connection and the idle sweep; ended sessions
// are pruned, not archived.
type WorkoutSession struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	RepCount     int        `json:"rep_count"`
	LastScore    int        `json:"last_score"`
	LastFeedback string     `json:"last_feedback"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Active reports whether the session has not been finalized yet.
func (s *WorkoutSession) Active() bool {
	return s.EndedAt == nil
}

// Elapsed returns the session duration, up to now for active sessions.
func (s *WorkoutSession) Elapsed() time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// Feedback is one published window verdict: a coaching message and a
// clamped numeric form score.
type Feedback struct {
	Message string `json:"message"`
	Score   int    `json:"score"`
}
