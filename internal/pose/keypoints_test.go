package pose

import (
	"testing"

	"formcoach/internal/domain"
)

func TestLookup_ConfidenceThreshold(t *testing.T) {
	sk := domain.Skeleton{
		{Name: domain.JointLeftShoulder, X: 10, Y: 20, Score: 0.9},
		{Name: domain.JointRightShoulder, X: 30, Y: 22, Score: 0.4},
		{Name: domain.JointLeftElbow, X: 15, Y: 60, Score: 0.39},
	}

	p, ok := Lookup(sk, domain.JointLeftShoulder)
	if !ok {
		t.Fatal("Expected left shoulder to be visible")
	}
	if p.X != 10 || p.Y != 20 {
		t.Errorf("Expected (10,20), got (%v,%v)", p.X, p.Y)
	}

	// Exactly at the threshold is not enough; the comparison is strict.
	if _, ok := Lookup(sk, domain.JointRightShoulder); ok {
		t.Error("Expected score 0.4 to read as absent")
	}
	if _, ok := Lookup(sk, domain.JointLeftElbow); ok {
		t.Error("Expected score 0.39 to read as absent")
	}
	if _, ok := Lookup(sk, domain.JointLeftWrist); ok {
		t.Error("Expected missing joint to read as absent")
	}
}

func TestLookup_SkipsLowConfidenceDuplicate(t *testing.T) {
	sk := domain.Skeleton{
		{Name: domain.JointLeftWrist, X: 1, Y: 1, Score: 0.1},
		{Name: domain.JointLeftWrist, X: 7, Y: 9, Score: 0.8},
	}
	p, ok := Lookup(sk, domain.JointLeftWrist)
	if !ok {
		t.Fatal("Expected a confident duplicate to be found")
	}
	if p.X != 7 || p.Y != 9 {
		t.Errorf("Expected the confident detection, got (%v,%v)", p.X, p.Y)
	}
}

func TestVisible(t *testing.T) {
	sk := domain.Skeleton{
		{Name: domain.JointNose, Score: 0.95},
		{Name: domain.JointLeftHip, Score: 0.2},
		{Name: domain.JointRightHip, Score: 0.41},
	}
	got := Visible(sk)
	if len(got) != 2 {
		t.Fatalf("Expected 2 visible keypoints, got %d", len(got))
	}
	if got[0].Name != domain.JointNose || got[1].Name != domain.JointRightHip {
		t.Errorf("Unexpected visible set: %v", got)
	}
}
