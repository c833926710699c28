package voice

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// DefaultBinary is the speech engine used when none is configured.
const DefaultBinary = "espeak-ng"

const baseWordsPerMinute = 175

// ExecSynthesizer speaks through an espeak-ng compatible command line engine.
type ExecSynthesizer struct {
	binary string

	mu     sync.Mutex
	voices []Voice
	loaded bool
}

// NewExecSynthesizer creates a synthesizer running binary.
func NewExecSynthesizer(binary string) *ExecSynthesizer {
	if binary == "" {
		binary = DefaultBinary
	}
	return &ExecSynthesizer{binary: binary}
}

// Voices lists the engine's voices. Only a successful listing is cached, so
// a lookup cut short by ctx is retried by the next caller.
func (e *ExecSynthesizer) Voices(ctx context.Context) ([]Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return e.voices, nil
	}

	out, err := exec.CommandContext(ctx, e.binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	e.voices = parseVoices(out)
	e.loaded = true
	return e.voices, nil
}

// Speak runs the engine and waits for it to exit.
func (e *ExecSynthesizer) Speak(ctx context.Context, u Utterance) error {
	if strings.TrimSpace(u.Text) == "" {
		return nil
	}
	cmd := exec.CommandContext(ctx, e.binary, Args(u)...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", e.binary, err)
	}
	return nil
}

// Args builds the engine arguments for an utterance.
func Args(u Utterance) []string {
	var args []string
	switch {
	case u.Params.VoiceID != "":
		args = append(args, "-v", u.Params.VoiceID)
	case u.Lang != "":
		args = append(args, "-v", strings.ToLower(u.Lang))
	}

	wpm := int(math.Round(baseWordsPerMinute * u.Params.Rate))
	pitch := clamp(int(math.Round(u.Params.Pitch*50)), 0, 99)
	amplitude := clamp(int(math.Round(u.Params.Volume*100)), 0, 200)

	args = append(args,
		"-s", strconv.Itoa(clamp(wpm, 80, 450)),
		"-p", strconv.Itoa(pitch),
		"-a", strconv.Itoa(amplitude),
		"--", u.Text,
	)
	return args
}

// parseVoices reads the table printed by "espeak-ng --voices":
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 10)
func parseVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 5 || fields[0] == "Pty" {
			continue
		}
		name := strings.ReplaceAll(fields[3], "_", " ")
		switch {
		case strings.HasSuffix(fields[2], "/M"):
			name += " male"
		case strings.HasSuffix(fields[2], "/F"):
			name += " female"
		}
		voices = append(voices, Voice{
			ID:      fields[4],
			Name:    name,
			Default: fields[1] == "en-us",
		})
	}
	return voices
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
