// Package domain contains core domain types for the form coach service.
package domain

// Keypoint is a named anatomical landmark detected in one video frame,
// positioned in frame pixel space with a detection confidence in [0,1].
type Keypoint struct {
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Skeleton is the set of keypoints for one detected subject in one frame.
// It is produced fresh each frame by the pose model; the pipeline only
// reads it.
type Skeleton []Keypoint

// Joint names follow the MoveNet/COCO single-person convention.
const (
	JointNose          = "nose"
	JointLeftShoulder  = "left_shoulder"
	JointRightShoulder = "right_shoulder"
	JointLeftElbow     = "left_elbow"
	JointRightElbow    = "right_elbow"
	JointLeftWrist     = "left_wrist"
	JointRightWrist    = "right_wrist"
	JointLeftHip       = "left_hip"
	JointRightHip      = "right_hip"
	JointLeftKnee      = "left_knee"
	JointRightKnee     = "right_knee"
	JointLeftAnkle     = "left_ankle"
	JointRightAnkle    = "right_ankle"
)

// Segment is one drawable limb of the overlay skeleton.
type Segment [2]string

// OverlaySegments lists the joint pairs the client overlay connects when it
// draws a skeleton returned by server-side estimation.
var OverlaySegments = []Segment{
	{JointLeftShoulder, JointRightShoulder},
	{JointLeftShoulder, JointLeftElbow},
	{JointLeftElbow, JointLeftWrist},
	{JointRightShoulder, JointRightElbow},
	{JointRightElbow, JointRightWrist},
	{JointLeftShoulder, JointLeftHip},
	{JointRightShoulder, JointRightHip},
	{JointLeftHip, JointRightHip},
	{JointLeftHip, JointLeftKnee},
	{JointLeftKnee, JointLeftAnkle},
	{JointRightHip, JointRightKnee},
	{JointRightKnee, JointRightAnkle},
}
