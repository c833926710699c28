package voice

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/markup"
	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// TestSample is spoken by the settings "test voice" action.
const TestSample = "Hello! This is a test of the selected voice."

// TestTrigger is the trigger id used by Speaker.Test.
const TestTrigger = "settings-test"

// Utterance is one piece of text to speak.
type Utterance struct {
	Text   string
	Lang   string
	Params Params
}

// Synthesizer is a text-to-speech engine.
type Synthesizer interface {
	// Voices blocks until the engine's voice list is available.
	Voices(ctx context.Context) ([]Voice, error)
	// Speak blocks until the utterance finished or ctx is cancelled.
	Speak(ctx context.Context, u Utterance) error
}

// SettingsFunc returns the saved voice settings.
type SettingsFunc func(ctx context.Context) (model.VoiceSettings, error)

// StateFunc is told when a trigger control starts or stops playing.
type StateFunc func(trigger string, playing bool)

type playback struct {
	trigger string
	cancel  context.CancelFunc
	done    chan struct{}
}

// Speaker plays at most one utterance at a time, process-wide.
type Speaker struct {
	synth    Synthesizer
	settings SettingsFunc
	onState  StateFunc
	logger   *logger.Logger

	root   context.Context
	stop   context.CancelFunc
	mu     sync.Mutex
	active *playback
}

// NewSpeaker creates a speaker. onState may be nil.
func NewSpeaker(synth Synthesizer, settings SettingsFunc, onState StateFunc, log *logger.Logger) *Speaker {
	if onState == nil {
		onState = func(string, bool) {}
	}
	root, stop := context.WithCancel(context.Background())
	return &Speaker{
		synth:    synth,
		settings: settings,
		onState:  onState,
		logger:   log.Named("speaker"),
		root:     root,
		stop:     stop,
	}
}

// Toggle starts speaking text for trigger, or stops it when trigger is the
// one currently speaking. Any other utterance in flight is cancelled first.
// It returns whether trigger is now playing.
func (s *Speaker) Toggle(trigger, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.active.trigger == trigger {
		s.cancelLocked()
		return false
	}
	s.cancelLocked()
	s.startLocked(trigger, text, nil)
	return true
}

// Test speaks the sample sentence with unsaved settings.
func (s *Speaker) Test(settings model.VoiceSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()
	s.startLocked(TestTrigger, TestSample, &settings)
}

// Stop cancels the utterance in flight, if any.
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Playing returns the trigger currently speaking.
func (s *Speaker) Playing() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return "", false
	}
	return s.active.trigger, true
}

// Wait blocks until the utterance in flight, if any, has ended.
func (s *Speaker) Wait() {
	s.mu.Lock()
	pb := s.active
	s.mu.Unlock()
	if pb != nil {
		<-pb.done
	}
}

// Close stops playback and refuses new utterances.
func (s *Speaker) Close() {
	s.Stop()
	s.stop()
}

func (s *Speaker) cancelLocked() {
	if s.active == nil {
		return
	}
	s.active.cancel()
	s.onState(s.active.trigger, false)
	s.active = nil
}

func (s *Speaker) startLocked(trigger, text string, override *model.VoiceSettings) {
	ctx, cancel := context.WithCancel(s.root)
	pb := &playback{trigger: trigger, cancel: cancel, done: make(chan struct{})}
	s.active = pb
	s.onState(trigger, true)

	go func() {
		defer close(pb.done)
		err := s.speak(ctx, text, override)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("speech synthesis failed", zap.String("trigger", trigger), zap.Error(err))
		}

		s.mu.Lock()
		if s.active == pb {
			s.active = nil
			s.onState(trigger, false)
		}
		s.mu.Unlock()
		cancel()
	}()
}

func (s *Speaker) speak(ctx context.Context, text string, override *model.VoiceSettings) error {
	var settings model.VoiceSettings
	if override != nil {
		settings = *override
	} else {
		saved, err := s.settings(ctx)
		if err != nil {
			s.logger.Warn("using default voice settings", zap.Error(err))
			saved = model.DefaultVoiceSettings()
		}
		settings = saved
	}

	var voices []Voice
	if settings.Profile() != model.VoiceRobotic {
		var err error
		voices, err = s.synth.Voices(ctx)
		if err != nil {
			return err
		}
	}

	return s.synth.Speak(ctx, Utterance{
		Text:   markup.PlainText(text),
		Lang:   "en-US",
		Params: ParamsFor(settings, voices),
	})
}
