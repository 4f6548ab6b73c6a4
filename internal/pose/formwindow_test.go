package pose

import (
	"math"
	"testing"
	"time"

	"formcoach/internal/domain"
)

// plankSkeleton builds a skeleton with all six upper-body joints visible.
func plankSkeleton(elbowY float64) domain.Skeleton {
	return domain.Skeleton{
		{Name: domain.JointLeftShoulder, X: 100, Y: 100, Score: 0.9},
		{Name: domain.JointRightShoulder, X: 200, Y: 110, Score: 0.9},
		{Name: domain.JointLeftElbow, X: 90, Y: elbowY, Score: 0.9},
		{Name: domain.JointRightElbow, X: 210, Y: elbowY, Score: 0.9},
		{Name: domain.JointLeftWrist, X: 95, Y: elbowY + 60, Score: 0.9},
		{Name: domain.JointRightWrist, X: 205, Y: elbowY + 60, Score: 0.9},
	}
}

func TestFormWindow_ObserveRequiresAllSixJoints(t *testing.T) {
	w := NewFormWindow(DefaultWindow, time.Now())

	sk := plankSkeleton(160)
	// Degrade one wrist below the confidence threshold.
	for i := range sk {
		if sk[i].Name == domain.JointRightWrist {
			sk[i].Score = 0.3
		}
	}

	if w.Observe(sk) {
		t.Error("Expected frame with missing wrist to contribute nothing")
	}
	if w.Len() != 0 {
		t.Errorf("Expected empty buffers, got %d frames", w.Len())
	}

	if !w.Observe(plankSkeleton(160)) {
		t.Error("Expected complete frame to contribute")
	}
	if w.Len() != 1 {
		t.Errorf("Expected 1 buffered frame, got %d", w.Len())
	}
}

func TestFormWindow_FlushRequiresElapsedAndNonEmpty(t *testing.T) {
	start := time.Now()
	w := NewFormWindow(3*time.Second, start)

	w.Observe(plankSkeleton(160))

	// Window not yet elapsed.
	if _, ok := w.Flush(start.Add(2 * time.Second)); ok {
		t.Error("Expected no flush before the window elapses")
	}

	// Elapsed but empty after a flush: no event, clock untouched.
	if _, ok := w.Flush(start.Add(3 * time.Second)); !ok {
		t.Fatal("Expected flush once window elapsed with data")
	}
	if _, ok := w.Flush(start.Add(7 * time.Second)); ok {
		t.Error("Expected no flush while buffers are empty")
	}

	// Data arriving later still flushes at the next check.
	w.Observe(plankSkeleton(160))
	if _, ok := w.Flush(start.Add(8 * time.Second)); !ok {
		t.Error("Expected flush once data accrued again")
	}
}

func TestFormWindow_FlushAverages(t *testing.T) {
	start := time.Now()
	w := NewFormWindow(3*time.Second, start)

	w.Observe(plankSkeleton(150))
	w.Observe(plankSkeleton(170))

	stats, ok := w.Flush(start.Add(3 * time.Second))
	if !ok {
		t.Fatal("Expected a flush")
	}

	// Wrist offset: left |100-95|=5, right |200-205|=5 on every frame.
	if math.Abs(stats.WristOffset-5) > 1e-9 {
		t.Errorf("Expected wrist offset 5, got %v", stats.WristOffset)
	}
	// Shoulder tilt: |100-110| = 10 on every frame.
	if math.Abs(stats.ShoulderTilt-10) > 1e-9 {
		t.Errorf("Expected shoulder tilt 10, got %v", stats.ShoulderTilt)
	}
	if stats.ElbowAngle <= 0 || stats.ElbowAngle > 180 {
		t.Errorf("Elbow angle %v outside (0,180]", stats.ElbowAngle)
	}

	if w.Len() != 0 {
		t.Errorf("Expected cleared buffers after flush, got %d frames", w.Len())
	}
}
