// Package coach drives the per-frame coaching pipeline for workout sessions.
package coach

import (
	"time"

	"formcoach/internal/domain"
	"formcoach/internal/pose"
	"formcoach/internal/profile"
)

// Events describes what one processed frame produced.
type Events struct {
	RepCounted bool
	RepCount   int
	Feedback   *domain.Feedback
}

// Pipeline threads one session's frames through the rep counter and the
// form window. It is not safe for concurrent use: each session owns one
// pipeline and feeds it from its single read loop, so no locking is needed.
type Pipeline struct {
	profile profile.Profile
	reps    *pose.RepCounter
	window  *pose.FormWindow
}

// NewPipeline creates a pipeline tuned by the given profile.
func NewPipeline(p profile.Profile, now time.Time) *Pipeline {
	return &Pipeline{
		profile: p,
		reps:    pose.NewRepCounter(p.Rep),
		window:  pose.NewFormWindow(p.Window, now),
	}
}

// Process consumes one frame's skeleton. An empty skeleton, or one where
// either shoulder is below the confidence threshold, skips the frame
// entirely: no phase update, no accumulation, no flush check.
func (p *Pipeline) Process(sk domain.Skeleton, now time.Time) Events {
	ev := Events{RepCount: p.reps.Count()}

	ls, lsOK := pose.Lookup(sk, domain.JointLeftShoulder)
	rs, rsOK := pose.Lookup(sk, domain.JointRightShoulder)
	if !lsOK || !rsOK {
		return ev
	}

	if p.reps.Observe((ls.Y + rs.Y) / 2) {
		ev.RepCounted = true
	}
	ev.RepCount = p.reps.Count()

	p.window.Observe(sk)
	if stats, ok := p.window.Flush(now); ok {
		fb := p.profile.Rules.Interpret(stats)
		ev.Feedback = &fb
	}
	return ev
}

// Restart re-seeds phase tracking and drops any buffered form metrics,
// beginning a fresh set on the same connection.
func (p *Pipeline) Restart(now time.Time) {
	p.reps = pose.NewRepCounter(p.profile.Rep)
	p.window = pose.NewFormWindow(p.profile.Window, now)
}

// RepCount returns the completed reps of the current set.
func (p *Pipeline) RepCount() int {
	return p.reps.Count()
}

// Phase returns the current rep phase.
func (p *Pipeline) Phase() pose.Phase {
	return p.reps.Phase()
}
