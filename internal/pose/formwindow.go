package pose

import (
	"math"
	"time"

	"formcoach/internal/domain"
)

// DefaultWindow is the wall-clock span reduced into one feedback event.
const DefaultWindow = 3 * time.Second

// WindowStats are the arithmetic means of one flushed accumulation window.
type WindowStats struct {
	ElbowAngle   float64 // degrees, mean of left and right elbow
	WristOffset  float64 // px, mean horizontal shoulder-to-wrist distance
	ShoulderTilt float64 // px, vertical difference between shoulders
}

// FormWindow buffers per-frame form metrics and reduces them to means on a
// fixed wall-clock cadence. The three series always grow together: a frame
// missing any required joint contributes to none of them.
type FormWindow struct {
	window    time.Duration
	elbow     []float64
	wrist     []float64
	tilt      []float64
	flushedAt time.Time
}

// NewFormWindow creates an empty window whose clock starts at now.
func NewFormWindow(window time.Duration, now time.Time) *FormWindow {
	if window <= 0 {
		window = DefaultWindow
	}
	return &FormWindow{
		window:    window,
		flushedAt: now,
	}
}

// Observe appends this frame's metrics when both shoulders, both elbows and
// both wrists are all visible, and reports whether the frame contributed.
func (w *FormWindow) Observe(sk domain.Skeleton) bool {
	ls, lsOK := Lookup(sk, domain.JointLeftShoulder)
	rs, rsOK := Lookup(sk, domain.JointRightShoulder)
	le, leOK := Lookup(sk, domain.JointLeftElbow)
	re, reOK := Lookup(sk, domain.JointRightElbow)
	lw, lwOK := Lookup(sk, domain.JointLeftWrist)
	rw, rwOK := Lookup(sk, domain.JointRightWrist)
	if !lsOK || !rsOK || !leOK || !reOK || !lwOK || !rwOK {
		return false
	}

	leftElbow := Angle(ls, le, lw)
	rightElbow := Angle(rs, re, rw)
	w.elbow = append(w.elbow, (leftElbow+rightElbow)/2)
	w.wrist = append(w.wrist, (math.Abs(ls.X-lw.X)+math.Abs(rs.X-rw.X))/2)
	w.tilt = append(w.tilt, math.Abs(ls.Y-rs.Y))
	return true
}

// Flush reduces the window to means once the span has elapsed and at least
// one frame was buffered. The window clock restarts only when a flush
// actually happens, so a subject out of frame accrues into the next check.
func (w *FormWindow) Flush(now time.Time) (WindowStats, bool) {
	if now.Sub(w.flushedAt) < w.window || len(w.elbow) == 0 {
		return WindowStats{}, false
	}

	stats := WindowStats{
		ElbowAngle:   mean(w.elbow),
		WristOffset:  mean(w.wrist),
		ShoulderTilt: mean(w.tilt),
	}
	w.elbow = w.elbow[:0]
	w.wrist = w.wrist[:0]
	w.tilt = w.tilt[:0]
	w.flushedAt = now
	return stats, true
}

// Len returns the number of buffered frames.
func (w *FormWindow) Len() int {
	return len(w.elbow)
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
