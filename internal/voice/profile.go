// Package voice implements speech input and output around external speech
// engines.
package voice

import (
	"math"
	"regexp"

	"github.com/capitalize-ai/chatdesk/internal/model"
)

// Voice is a device voice offered by a synthesizer.
type Voice struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

// Params are the engine parameters of one utterance. Rate and Pitch are
// relative to 1; Volume ranges over [0, 1]. An empty VoiceID selects the
// engine's own default voice.
type Params struct {
	VoiceID string
	Rate    float64
	Pitch   float64
	Volume  float64
}

var (
	maleVoice   = regexp.MustCompile(`(?i)\b(male|david|george|fred|alex|paul)\b`)
	femaleVoice = regexp.MustCompile(`(?i)\b(female|zira|susan|victoria|anna|samantha|karen)\b`)
)

// ParamsFor maps saved settings to engine parameters. The robotic profile
// overrides pitch, rate and volume and never selects a device voice.
func ParamsFor(settings model.VoiceSettings, voices []Voice) Params {
	rate := settings.Rate()
	p := Params{Rate: rate, Pitch: 1, Volume: 1}

	switch settings.Profile() {
	case model.VoiceRobotic:
		p.Pitch = 0
		p.Rate = math.Max(0.6, rate*0.85)
		p.Volume = 1
	case model.VoiceFemale:
		p.VoiceID = pickVoice(voices, femaleVoice)
		p.Pitch = 1.15
	case model.VoiceMale:
		p.VoiceID = pickVoice(voices, maleVoice)
		p.Pitch = 2
	default:
		p.VoiceID = defaultVoice(voices)
	}
	return p
}

func pickVoice(voices []Voice, pattern *regexp.Regexp) string {
	for _, v := range voices {
		if pattern.MatchString(v.Name) {
			return v.ID
		}
	}
	if len(voices) > 0 {
		return voices[0].ID
	}
	return ""
}

func defaultVoice(voices []Voice) string {
	for _, v := range voices {
		if v.Default {
			return v.ID
		}
	}
	if len(voices) > 0 {
		return voices[0].ID
	}
	return ""
}
