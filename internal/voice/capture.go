package voice

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// DefaultCaptureTimeout stops listening when nothing ended it sooner.
const DefaultCaptureTimeout = 8 * time.Second

// Draft is the input box that recognition results are written to.
type Draft interface {
	SetInput(text string)
	Input() string
}

// SendFunc submits the draft once capture has ended.
type SendFunc func(ctx context.Context, text string)

// Capture drives one speech capture at a time into a draft.
type Capture struct {
	recognizer Recognizer
	draft      Draft
	send       SendFunc
	timeout    time.Duration
	logger     *logger.Logger
	onState    func(listening bool)

	mu     sync.Mutex
	active *captureRun
	last   *captureRun
}

type captureRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCapture creates a capture controller. A zero timeout uses
// DefaultCaptureTimeout.
func NewCapture(rec Recognizer, draft Draft, send SendFunc, timeout time.Duration, log *logger.Logger) *Capture {
	if timeout <= 0 {
		timeout = DefaultCaptureTimeout
	}
	return &Capture{
		recognizer: rec,
		draft:      draft,
		send:       send,
		timeout:    timeout,
		logger:     log.Named("capture"),
		onState:    func(bool) {},
	}
}

// OnStateChange registers fn to be told when listening starts or stops.
func (c *Capture) OnStateChange(fn func(listening bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = fn
}

// Toggle starts listening, or stops a capture in progress. It returns
// whether the capture is now listening. However it ends, a non-empty draft
// is sent.
func (c *Capture) Toggle() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		c.recognizer.Stop()
		c.active.cancel()
		c.active = nil
		c.onState(false)
		return false, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	results, err := c.recognizer.Start(ctx)
	if err != nil {
		cancel()
		return false, err
	}

	run := &captureRun{cancel: cancel, done: make(chan struct{})}
	c.active = run
	c.last = run
	c.onState(true)
	go c.consume(run, results)
	return true, nil
}

// Listening reports whether a capture is in progress.
func (c *Capture) Listening() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}

// Wait blocks until the most recent capture has ended and sent.
func (c *Capture) Wait() {
	c.mu.Lock()
	run := c.last
	c.mu.Unlock()
	if run != nil {
		<-run.done
	}
}

func (c *Capture) consume(run *captureRun, results <-chan Transcript) {
	defer close(run.done)

	for t := range results {
		c.draft.SetInput(strings.TrimSpace(t.Text))
	}

	c.mu.Lock()
	if c.active == run {
		c.active = nil
		c.onState(false)
	}
	c.mu.Unlock()
	run.cancel()

	text := strings.TrimSpace(c.draft.Input())
	if text == "" {
		c.logger.Debug("capture ended without speech")
		return
	}
	c.logger.Debug("capture ended", zap.Int("chars", len(text)))
	c.send(context.Background(), text)
}
