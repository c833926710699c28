package voice

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrBusy is returned when a recognition session is already running.
	ErrBusy = errors.New("recognizer busy")
	// ErrNotListening is returned when a transcript arrives with no session.
	ErrNotListening = errors.New("recognizer not listening")
)

// Transcript is a recognition result. Interim results carry the full
// transcript so far and replace earlier ones.
type Transcript struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// Recognizer is a speech-to-text engine. The returned channel is closed when
// recognition ends: on a final result, on Stop, or when ctx is done.
type Recognizer interface {
	Start(ctx context.Context) (<-chan Transcript, error)
	// Stop ends the running session, if any. A new session can start as
	// soon as Stop returns.
	Stop()
}

// PushRecognizer is a Recognizer fed from outside, typically by the
// browser's own speech engine posting transcripts to the API.
type PushRecognizer struct {
	mu sync.Mutex
	ch chan Transcript
}

// NewPushRecognizer creates an idle recognizer.
func NewPushRecognizer() *PushRecognizer {
	return &PushRecognizer{}
}

// Start opens a recognition session. Only one session runs at a time.
func (r *PushRecognizer) Start(ctx context.Context) (<-chan Transcript, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch != nil {
		return nil, ErrBusy
	}

	ch := make(chan Transcript, 16)
	r.ch = ch
	go func() {
		<-ctx.Done()
		r.finish(ch)
	}()
	return ch, nil
}

// Push delivers a transcript to the running session. A final transcript ends
// the session.
func (r *PushRecognizer) Push(t Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch == nil {
		return ErrNotListening
	}

	select {
	case r.ch <- t:
	default:
		// Full: drop the oldest result, a later one supersedes it.
		select {
		case <-r.ch:
		default:
		}
		r.ch <- t
	}
	if t.Final {
		close(r.ch)
		r.ch = nil
	}
	return nil
}

// Stop ends the running session and closes its channel.
func (r *PushRecognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch != nil {
		close(r.ch)
		r.ch = nil
	}
}

// Listening reports whether a session is running.
func (r *PushRecognizer) Listening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch != nil
}

func (r *PushRecognizer) finish(ch chan Transcript) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch == ch {
		close(ch)
		r.ch = nil
	}
}
