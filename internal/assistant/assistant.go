package assistant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/dispatch"
	"github.com/capitalize-ai/chatdesk/internal/llm"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// Reply texts sent when a model call fails.
const (
	MsgImageFailed = "Failed to generate image."
	MsgModelFailed = "Error calling chat model: %v"
)

// DefaultSystem is the system prompt given to the chat model.
const DefaultSystem = "You are a helpful personal assistant."

const imagesPerRequest = 1

// Reply sources, as counted in metrics.
const (
	SourceRule  = "rule"
	SourceImage = "image"
	SourceModel = "model"
)

var (
	errNoModel       = errors.New("no chat model configured")
	regeneratePhrase = regexp.MustCompile(`(?i)regenerate image`)
	generatePhrase   = regexp.MustCompile(`(?i)generate image`)
)

// Assistant answers one message at a time. Image commands come first,
// then canned rules, then the chat model.
type Assistant struct {
	rules  Rules
	chat   llm.Client
	images llm.ImageGenerator
	system string
	logger *logger.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithRules replaces DefaultRules.
func WithRules(rules []Rule) Option {
	return func(a *Assistant) { a.rules = rules }
}

// WithSystemPrompt replaces DefaultSystem.
func WithSystemPrompt(prompt string) Option {
	return func(a *Assistant) { a.system = prompt }
}

// New creates an assistant. Either client may be nil; the matching requests
// then get the failure reply.
func New(chat llm.Client, images llm.ImageGenerator, log *logger.Logger, opts ...Option) *Assistant {
	a := &Assistant{
		rules:  DefaultRules,
		chat:   chat,
		images: images,
		system: DefaultSystem,
		logger: log.Named("assistant"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reply produces the answer to req and the source that produced it.
func (a *Assistant) Reply(ctx context.Context, req dispatch.Request) (dispatch.Reply, string) {
	if prompt, ok := imagePrompt(req); ok {
		return a.generate(ctx, prompt), SourceImage
	}

	if rule, ok := a.rules.Match(req.Message); ok {
		a.logger.Debug("rule matched", zap.String("rule", rule.Name))
		return dispatch.TextReply{Content: rule.Reply}, SourceRule
	}

	return a.complete(ctx, req.Message), SourceModel
}

// imagePrompt extracts the image prompt of an image command. A regenerate
// command carries its prompt separately.
func imagePrompt(req dispatch.Request) (string, bool) {
	switch {
	case regeneratePhrase.MatchString(req.Message):
		return strings.TrimSpace(req.Prompt), true
	case generatePhrase.MatchString(req.Message):
		loc := generatePhrase.FindStringIndex(req.Message)
		prompt := req.Message[:loc[0]] + req.Message[loc[1]:]
		return strings.Trim(prompt, " :\t\n"), true
	default:
		return "", false
	}
}

func (a *Assistant) generate(ctx context.Context, prompt string) dispatch.Reply {
	if a.images == nil || prompt == "" {
		return dispatch.TextReply{Content: MsgImageFailed}
	}

	images, err := a.images.GenerateImages(ctx, prompt, imagesPerRequest)
	if err != nil || len(images) == 0 {
		a.logger.Warn("image generation failed", zap.String("prompt", prompt), zap.Error(err))
		return dispatch.TextReply{Content: MsgImageFailed}
	}

	return dispatch.MultimodalReply{
		Text:   "Here’s the image for: " + prompt,
		Images: images,
		Prompt: prompt,
	}
}

func (a *Assistant) complete(ctx context.Context, message string) dispatch.Reply {
	if a.chat == nil {
		return dispatch.TextReply{Content: fmt.Sprintf(MsgModelFailed, errNoModel)}
	}

	resp, err := a.chat.Complete(ctx, &llm.CompletionRequest{
		System:   a.system,
		Messages: []llm.ChatMessage{{Role: "user", Content: message}},
	})
	if err != nil {
		a.logger.Warn("chat model call failed", zap.String("provider", a.chat.Name()), zap.Error(err))
		return dispatch.TextReply{Content: fmt.Sprintf(MsgModelFailed, err)}
	}

	a.logger.Debug("chat model replied",
		zap.String("provider", a.chat.Name()),
		zap.String("model", resp.Model),
		zap.Int("tokens_in", resp.TokensIn),
		zap.Int("tokens_out", resp.TokensOut),
		zap.Int64("latency_ms", resp.LatencyMs),
	)
	return dispatch.TextReply{Content: resp.Content}
}
