package model

import (
	"fmt"
	"strconv"
)

// Voice profile keys.
const (
	VoiceDefault = "default"
	VoiceMale    = "male"
	VoiceFemale  = "female"
	VoiceRobotic = "robotic"
)

// VoiceSettings are the saved text-to-speech preferences.
type VoiceSettings struct {
	Voice string `json:"voice"`
	Speed string `json:"speed"`
}

// DefaultVoiceSettings returns the settings used when nothing was saved.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Voice: VoiceDefault, Speed: "1"}
}

// Rate parses Speed, falling back to 1 for empty, invalid or non-positive values.
func (s VoiceSettings) Rate() float64 {
	rate, err := strconv.ParseFloat(s.Speed, 64)
	if err != nil || rate <= 0 {
		return 1
	}
	return rate
}

// Profile returns the voice key, defaulting to VoiceDefault.
func (s VoiceSettings) Profile() string {
	if s.Voice == "" {
		return VoiceDefault
	}
	return s.Voice
}

// Speech rate bounds accepted by Validate.
const (
	MinSpeed = 0.1
	MaxSpeed = 10
)

// Validate rejects unknown voice profiles and out-of-range speeds.
func (s VoiceSettings) Validate() error {
	switch s.Profile() {
	case VoiceDefault, VoiceMale, VoiceFemale, VoiceRobotic:
	default:
		return fmt.Errorf("%w: unknown voice %q", ErrValidation, s.Voice)
	}
	if s.Speed == "" {
		return nil
	}
	speed, err := strconv.ParseFloat(s.Speed, 64)
	if err != nil || speed < MinSpeed || speed > MaxSpeed {
		return fmt.Errorf("%w: speed must be a number between %g and %g", ErrValidation, float64(MinSpeed), float64(MaxSpeed))
	}
	return nil
}
