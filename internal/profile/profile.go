// Package profile loads exercise tuning profiles. The built-in defaults suit
// a push-up filmed at typical webcam distance; a YAML file can override
// individual thresholds for other camera setups without a rebuild.
package profile

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"formcoach/internal/pose"
)

// Profile bundles the tuning for one exercise pattern.
type Profile struct {
	Name   string
	Rep    pose.RepThresholds
	Window time.Duration
	Rules  pose.FormRules
}

// Default returns the built-in push-up profile.
func Default() Profile {
	return Profile{
		Name:   "push-up",
		Rep:    pose.DefaultRepThresholds(),
		Window: pose.DefaultWindow,
		Rules:  pose.DefaultFormRules(),
	}
}

// fileProfile mirrors the YAML document. Pointer fields distinguish "unset"
// from an explicit zero so a partial file only overrides what it names.
type fileProfile struct {
	Name string `yaml:"name"`
	Rep  struct {
		DownThreshold *float64 `yaml:"down_threshold"`
		UpThreshold   *float64 `yaml:"up_threshold"`
		MinRange      *float64 `yaml:"min_range"`
	} `yaml:"rep"`
	WindowMillis *int `yaml:"window_millis"`
	Form         struct {
		MinElbowAngle   *float64 `yaml:"min_elbow_angle"`
		MaxElbowAngle   *float64 `yaml:"max_elbow_angle"`
		MaxWristOffset  *float64 `yaml:"max_wrist_offset"`
		MaxShoulderTilt *float64 `yaml:"max_shoulder_tilt"`
	} `yaml:"form"`
	Messages struct {
		GoodRange      *string `yaml:"good_range"`
		TooDeep        *string `yaml:"too_deep"`
		NotDeepEnough  *string `yaml:"not_deep_enough"`
		StackWrists    *string `yaml:"stack_wrists"`
		LevelShoulders *string `yaml:"level_shoulders"`
	} `yaml:"messages"`
}

// Load reads a YAML profile and overlays it onto the defaults. A missing
// file is not an error; the defaults are returned unchanged.
func Load(path string) (Profile, error) {
	p := Default()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}

	var f fileProfile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}

	apply(&p, &f)
	if err := p.Validate(); err != nil {
		return Profile{}, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return p, nil
}

func apply(p *Profile, f *fileProfile) {
	if f.Name != "" {
		p.Name = f.Name
	}
	setFloat(&p.Rep.Down, f.Rep.DownThreshold)
	setFloat(&p.Rep.Up, f.Rep.UpThreshold)
	setFloat(&p.Rep.MinRange, f.Rep.MinRange)
	if f.WindowMillis != nil {
		p.Window = time.Duration(*f.WindowMillis) * time.Millisecond
	}
	setFloat(&p.Rules.MinElbowAngle, f.Form.MinElbowAngle)
	setFloat(&p.Rules.MaxElbowAngle, f.Form.MaxElbowAngle)
	setFloat(&p.Rules.MaxWristOffset, f.Form.MaxWristOffset)
	setFloat(&p.Rules.MaxShoulderTilt, f.Form.MaxShoulderTilt)
	setString(&p.Rules.Messages.GoodRange, f.Messages.GoodRange)
	setString(&p.Rules.Messages.TooDeep, f.Messages.TooDeep)
	setString(&p.Rules.Messages.NotDeepEnough, f.Messages.NotDeepEnough)
	setString(&p.Rules.Messages.StackWrists, f.Messages.StackWrists)
	setString(&p.Rules.Messages.LevelShoulders, f.Messages.LevelShoulders)
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Validate checks the profile is internally consistent.
func (p Profile) Validate() error {
	if p.Rep.Down <= 0 || p.Rep.Up <= 0 || p.Rep.MinRange <= 0 {
		return fmt.Errorf("rep thresholds must be positive")
	}
	if p.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	if p.Rules.MinElbowAngle >= p.Rules.MaxElbowAngle {
		return fmt.Errorf("min_elbow_angle must be below max_elbow_angle")
	}
	if p.Rules.MaxWristOffset <= 0 || p.Rules.MaxShoulderTilt <= 0 {
		return fmt.Errorf("form offsets must be positive")
	}
	return nil
}
