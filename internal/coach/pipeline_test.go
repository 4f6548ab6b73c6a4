package coach

import (
	"testing"
	"time"

	"formcoach/internal/domain"
	"formcoach/internal/profile"
)

// frameAt builds a full upper-body skeleton with shoulders at the given
// height. Elbow and wrist positions keep the form metrics in the "good"
// band of the default rules.
func frameAt(shoulderY float64) domain.Skeleton {
	return domain.Skeleton{
		{Name: domain.JointLeftShoulder, X: 100, Y: shoulderY, Score: 0.9},
		{Name: domain.JointRightShoulder, X: 200, Y: shoulderY, Score: 0.9},
		{Name: domain.JointLeftElbow, X: 80, Y: shoulderY + 40, Score: 0.9},
		{Name: domain.JointRightElbow, X: 220, Y: shoulderY + 40, Score: 0.9},
		{Name: domain.JointLeftWrist, X: 110, Y: shoulderY + 80, Score: 0.9},
		{Name: domain.JointRightWrist, X: 190, Y: shoulderY + 80, Score: 0.9},
	}
}

func TestPipeline_CountsRepAcrossFrames(t *testing.T) {
	start := time.Now()
	p := NewPipeline(profile.Default(), start)

	now := start
	counted := 0
	feed := func(y float64) {
		now = now.Add(33 * time.Millisecond)
		ev := p.Process(frameAt(y), now)
		if ev.RepCounted {
			counted++
		}
	}

	for y := 100.0; y <= 200; y += 10 {
		feed(y)
	}
	for y := 190.0; y >= 100; y -= 10 {
		feed(y)
	}

	if counted != 1 {
		t.Errorf("Expected exactly one rep event, got %d", counted)
	}
	if p.RepCount() != 1 {
		t.Errorf("Expected rep count 1, got %d", p.RepCount())
	}
}

func TestPipeline_SkipsFrameWithoutShoulders(t *testing.T) {
	start := time.Now()
	p := NewPipeline(profile.Default(), start)

	p.Process(frameAt(100), start.Add(33*time.Millisecond))

	// A frame with a hidden shoulder must not advance phase tracking even
	// with a large apparent drop.
	sk := frameAt(300)
	sk[0].Score = 0.1
	ev := p.Process(sk, start.Add(66*time.Millisecond))
	if ev.RepCounted {
		t.Error("Rep counted on a skipped frame")
	}

	// And an empty skeleton is a no-op too.
	ev = p.Process(nil, start.Add(99*time.Millisecond))
	if ev.RepCounted || ev.Feedback != nil {
		t.Errorf("Expected no events for empty skeleton, got %+v", ev)
	}
}

func TestPipeline_PublishesFeedbackOnWindowExpiry(t *testing.T) {
	start := time.Now()
	p := NewPipeline(profile.Default(), start)

	var fb *domain.Feedback
	for i := 0; i < 100; i++ {
		ev := p.Process(frameAt(100), start.Add(time.Duration(i)*40*time.Millisecond))
		if ev.Feedback != nil {
			fb = ev.Feedback
			break
		}
	}

	if fb == nil {
		t.Fatal("Expected feedback within 4 seconds of frames")
	}
	if fb.Score < 60 || fb.Score > 100 {
		t.Errorf("Feedback score %d out of bounds", fb.Score)
	}
	if fb.Message == "" {
		t.Error("Feedback message is empty")
	}
}

func TestPipeline_RestartResetsCount(t *testing.T) {
	start := time.Now()
	p := NewPipeline(profile.Default(), start)

	now := start
	for y := 100.0; y <= 200; y += 10 {
		now = now.Add(33 * time.Millisecond)
		p.Process(frameAt(y), now)
	}
	for y := 190.0; y >= 100; y -= 10 {
		now = now.Add(33 * time.Millisecond)
		p.Process(frameAt(y), now)
	}
	if p.RepCount() != 1 {
		t.Fatalf("Expected 1 rep before restart, got %d", p.RepCount())
	}

	p.Restart(now)
	if p.RepCount() != 0 {
		t.Errorf("Expected 0 reps after restart, got %d", p.RepCount())
	}
}
