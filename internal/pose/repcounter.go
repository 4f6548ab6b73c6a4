package pose

// Phase is the half of the rep cycle the subject is currently in.
type Phase string

const (
	// PhaseTop is the extended position, arms locked out.
	PhaseTop Phase = "top"
	// PhaseBottom is the flexed position at the bottom of the descent.
	PhaseBottom Phase = "bottom"
)

// RepThresholds tune the rep-phase state machine, in frame pixels. Down and
// Up form a hysteresis band so sensor noise cannot double-count; MinRange
// rejects shallow oscillations such as camera jitter.
type RepThresholds struct {
	Down     float64 // descent past the tracked top before the phase flips
	Up       float64 // ascent off the tracked bottom before a rep closes
	MinRange float64 // full excursion below which the motion is not a rep
}

// DefaultRepThresholds suit a subject filling most of a 480p frame.
func DefaultRepThresholds() RepThresholds {
	return RepThresholds{
		Down:     52,
		Up:       40,
		MinRange: 70,
	}
}

// RepCounter derives push-up phase and a monotonic rep count from the mean
// vertical shoulder position. Smaller y is higher in image space, so the
// tracked "top" of the motion is the minimum y observed.
type RepCounter struct {
	thresholds RepThresholds
	phase      Phase
	topY       float64
	bottomY    float64
	count      int
	seeded     bool
}

// NewRepCounter starts a counter in the top phase; the extremes seed from
// the first observed frame.
func NewRepCounter(t RepThresholds) *RepCounter {
	return &RepCounter{
		thresholds: t,
		phase:      PhaseTop,
	}
}

// Observe feeds one frame's mean shoulder height and reports whether a full
// rep completed on this frame. Exactly one call per frame with visible
// shoulders; frames without them must be skipped by the caller.
func (r *RepCounter) Observe(y float64) bool {
	if !r.seeded {
		r.topY = y
		r.bottomY = y
		r.seeded = true
	}

	switch r.phase {
	case PhaseTop:
		if y < r.topY {
			r.topY = y
		}
		if y-r.topY > r.thresholds.Down {
			r.phase = PhaseBottom
			r.bottomY = y
		}
	case PhaseBottom:
		if y > r.bottomY {
			r.bottomY = y
		}
		if r.bottomY-y > r.thresholds.Up && r.bottomY-r.topY > r.thresholds.MinRange {
			r.phase = PhaseTop
			r.topY = y
			r.count++
			return true
		}
	}
	return false
}

// Count returns the number of completed reps.
func (r *RepCounter) Count() int {
	return r.count
}

// Phase returns the current rep phase.
func (r *RepCounter) Phase() Phase {
	return r.phase
}
