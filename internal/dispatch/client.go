// Package dispatch talks to the remote chat endpoint.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/pkg/logger"
	"github.com/capitalize-ai/chatdesk/pkg/metrics"
)

// RegenerateInstruction is the message that asks the backend to redo an image.
const RegenerateInstruction = "regenerate image"

const maxResponseBytes = 32 << 20

// Config configures the dispatch client.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// Client posts user text to the chat endpoint. No request is ever retried.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *logger.Logger
}

// NewClient creates a dispatch client.
func NewClient(cfg Config, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: cfg.Endpoint,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: log.Named("dispatch"),
	}
}

// Request is the JSON body sent to the endpoint.
type Request struct {
	Message string `json:"message"`
	Prompt  string `json:"prompt,omitempty"`
}

// Chat sends user text and returns the typed reply.
func (c *Client) Chat(ctx context.Context, text string) (Reply, error) {
	return c.do(ctx, "chat", Request{Message: text})
}

// Regenerate asks the endpoint for a new image for prompt.
func (c *Client) Regenerate(ctx context.Context, prompt string) (Reply, error) {
	return c.do(ctx, "regenerate", Request{Message: RegenerateInstruction, Prompt: prompt})
}

func (c *Client) do(ctx context.Context, kind string, body Request) (reply Reply, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDispatch(kind, outcome(err), time.Since(start).Seconds())
	}()

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	correlationID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Correlation-ID", correlationID)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("chat endpoint unreachable",
			zap.String("kind", kind),
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to reach chat endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		c.logger.Warn("chat endpoint returned error status",
			zap.String("kind", kind),
			zap.String("correlation_id", correlationID),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &StatusError{Code: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	reply, err = DecodeReply(raw)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("chat endpoint replied",
		zap.String("kind", kind),
		zap.String("correlation_id", correlationID),
		zap.Duration("duration", time.Since(start)),
	)
	return reply, nil
}

func outcome(err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &statusErr):
		return "status"
	case errors.Is(err, ErrMalformedReply):
		return "malformed"
	default:
		return "network"
	}
}
