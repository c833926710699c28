package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	defaultImageModel  = openai.CreateImageModelDallE2
)

// OpenAIClient talks to OpenAI or any endpoint speaking its API, such as Groq.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	imageModel string
}

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*openai.ClientConfig, *OpenAIClient)

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(cfg *openai.ClientConfig, _ *OpenAIClient) {
		if url != "" {
			cfg.BaseURL = url
		}
	}
}

// WithModel sets the default chat model.
func WithModel(model string) OpenAIOption {
	return func(_ *openai.ClientConfig, c *OpenAIClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithImageModel sets the image generation model.
func WithImageModel(model string) OpenAIOption {
	return func(_ *openai.ClientConfig, c *OpenAIClient) {
		if model != "" {
			c.imageModel = model
		}
	}
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	c := &OpenAIClient{model: defaultOpenAIModel, imageModel: defaultImageModel}
	for _, opt := range opts {
		opt(&cfg, c)
	}
	c.client = openai.NewClientWithConfig(cfg)

	return c, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Complete sends a completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	// Convert messages to OpenAI format
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, err
	}

	var content, stopReason string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		stopReason = string(resp.Choices[0].FinishReason)
	}

	return &CompletionResponse{
		Content:    content,
		Model:      resp.Model,
		TokensIn:   resp.Usage.PromptTokens,
		TokensOut:  resp.Usage.CompletionTokens,
		StopReason: stopReason,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// GenerateImages creates n 512x512 images and returns them as PNG data URLs.
func (c *OpenAIClient) GenerateImages(ctx context.Context, prompt string, n int) ([]string, error) {
	if n <= 0 {
		n = 1
	}

	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.imageModel,
		N:              n,
		Size:           openai.CreateImageSize512x512,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, err
	}

	images := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		switch {
		case d.B64JSON != "":
			images = append(images, "data:image/png;base64,"+d.B64JSON)
		case d.URL != "":
			images = append(images, d.URL)
		}
	}
	return images, nil
}
