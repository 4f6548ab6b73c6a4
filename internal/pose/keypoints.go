// Package pose implements the per-frame keypoint pipeline: joint lookup,
// angle math, rep counting, and windowed form interpretation.
package pose

import (
	"formcoach/internal/domain"
)

// MinConfidence is the acceptance threshold for detected keypoints. Joint
// lookup, form accumulation, and the overlay payload all share this single
// policy.
const MinConfidence = 0.4

// Point is a 2D position in frame pixel space.
type Point struct {
	X float64
	Y float64
}

// Lookup returns the position of the first keypoint matching the joint name
// with confidence strictly above MinConfidence. Low-confidence detections
// read as absent.
func Lookup(sk domain.Skeleton, joint string) (Point, bool) {
	for _, kp := range sk {
		if kp.Name == joint && kp.Score > MinConfidence {
			return Point{X: kp.X, Y: kp.Y}, true
		}
	}
	return Point{}, false
}

// Visible filters a skeleton down to the keypoints a renderer should draw.
func Visible(sk domain.Skeleton) domain.Skeleton {
	out := make(domain.Skeleton, 0, len(sk))
	for _, kp := range sk {
		if kp.Score > MinConfidence {
			out = append(out, kp)
		}
	}
	return out
}
