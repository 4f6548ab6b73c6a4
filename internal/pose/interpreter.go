package pose

import (
	"formcoach/internal/domain"
)

// Score bounds for a window verdict.
const (
	MinScore = 60
	MaxScore = 100
)

// FormMessages are the coaching message variants surfaced by the interpreter.
type FormMessages struct {
	GoodRange      string `yaml:"good_range"`
	TooDeep        string `yaml:"too_deep"`
	NotDeepEnough  string `yaml:"not_deep_enough"`
	StackWrists    string `yaml:"stack_wrists"`
	LevelShoulders string `yaml:"level_shoulders"`
}

// FormRules map window means to a verdict through ordered thresholds.
type FormRules struct {
	MinElbowAngle   float64 `yaml:"min_elbow_angle"`   // degrees; below reads as too deep
	MaxElbowAngle   float64 `yaml:"max_elbow_angle"`   // degrees; above reads as too shallow
	MaxWristOffset  float64 `yaml:"max_wrist_offset"`  // px shoulder-to-wrist horizontal drift
	MaxShoulderTilt float64 `yaml:"max_shoulder_tilt"` // px between shoulder heights

	Messages FormMessages `yaml:"messages"`
}

// DefaultFormRules returns the built-in push-up thresholds and messages.
func DefaultFormRules() FormRules {
	return FormRules{
		MinElbowAngle:   75,
		MaxElbowAngle:   150,
		MaxWristOffset:  90,
		MaxShoulderTilt: 40,
		Messages: FormMessages{
			GoodRange:      "Good depth, keep that range going.",
			TooDeep:        "You're dropping too deep, ease up a little.",
			NotDeepEnough:  "Not deep enough, lower your chest further.",
			StackWrists:    "Stack your wrists under your shoulders.",
			LevelShoulders: "Keep your shoulders level.",
		},
	}
}

// Interpret evaluates the rules in fixed order. Penalties accumulate on a
// 100-point score, clamped to [MinScore, MaxScore]; the message is whichever
// rule fired last, so shoulder tilt outranks wrist drift outranks depth.
func (r FormRules) Interpret(s WindowStats) domain.Feedback {
	score := MaxScore
	msg := r.Messages.GoodRange

	switch {
	case s.ElbowAngle < r.MinElbowAngle:
		msg = r.Messages.TooDeep
		score -= 20
	case s.ElbowAngle > r.MaxElbowAngle:
		msg = r.Messages.NotDeepEnough
		score -= 15
	}
	if s.WristOffset > r.MaxWristOffset {
		msg = r.Messages.StackWrists
		score -= 20
	}
	if s.ShoulderTilt > r.MaxShoulderTilt {
		msg = r.Messages.LevelShoulders
		score -= 15
	}

	if score < MinScore {
		score = MinScore
	}
	if score > MaxScore {
		score = MaxScore
	}
	return domain.Feedback{Message: msg, Score: score}
}
