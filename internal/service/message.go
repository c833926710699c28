package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/dispatch"
	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/internal/view"
)

// Bot messages for endpoint failures.
const (
	MsgNoReply     = "Sorry, no reply."
	MsgUnreachable = "Error: Could not reach backend."
)

const maxImageBytes = 32 << 20

var imageClient = &http.Client{
	Transport: otelhttp.NewTransport(http.DefaultTransport),
	Timeout:   60 * time.Second,
}

// Send appends text as a user message to the active chat and awaits the
// endpoint's reply. The reply is stored in the chat that was active when
// the send began and is rendered only if that chat is still on screen.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	ref, ok := s.current.Ref()
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("cannot send message without an active chat")
		return ErrNoActiveChat
	}

	msg := model.UserMessage(text)
	s.view.SetInput("")
	s.view.Append(msg)
	if err := s.repo.AppendMessage(ctx, ref, msg); err != nil {
		s.chatLogger(ref).Error("failed to persist user message", zap.Error(err))
	}
	s.sending++
	s.view.ShowTyping()
	s.mu.Unlock()

	reply, err := s.dispatcher.Chat(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sending--
	if s.sending == 0 {
		s.view.HideTyping()
	}

	onScreen := s.current.IsActive(ref)
	s.deliver(ctx, ref, onScreen, text, reply, err)
	return nil
}

func (s *Session) deliver(ctx context.Context, ref model.ChatRef, onScreen bool, prompt string, reply dispatch.Reply, err error) {
	log := s.chatLogger(ref)

	var statusErr *dispatch.StatusError
	switch {
	case errors.As(err, &statusErr):
		s.deliverText(ctx, ref, onScreen, fmt.Sprintf("Error: Backend returned %d", statusErr.Code))
		return
	case err != nil:
		log.Warn("chat endpoint failed", zap.Error(err))
		s.deliverText(ctx, ref, onScreen, MsgUnreachable)
		return
	}

	switch r := reply.(type) {
	case dispatch.TextReply:
		content := r.Content
		if content == "" {
			content = MsgNoReply
		}
		s.deliverText(ctx, ref, onScreen, content)

	case dispatch.MultimodalReply:
		if r.Prompt != "" {
			prompt = r.Prompt
		}
		images := make([]view.Image, len(r.Images))
		for i, url := range r.Images {
			images[i] = view.Image{URL: url, Prompt: prompt}
		}
		msg := model.BotMessage(view.MultimodalContent(r.Text, images))
		s.persist(ctx, ref, msg)
		if onScreen {
			s.view.AppendMultimodal(r.Text, images)
		}
	}
}

func (s *Session) deliverText(ctx context.Context, ref model.ChatRef, onScreen bool, content string) {
	msg := model.BotMessage(content)
	s.persist(ctx, ref, msg)
	if onScreen {
		s.view.Append(msg)
	}
}

func (s *Session) persist(ctx context.Context, ref model.ChatRef, msg model.Message) {
	if err := s.repo.AppendMessage(ctx, ref, msg); err != nil {
		s.chatLogger(ref).Error("failed to persist reply", zap.Error(err))
	}
}

// RegenerateImage asks the endpoint for a new image for the prompt of image
// index in row rowID and swaps it in place. No row is appended.
func (s *Session) RegenerateImage(ctx context.Context, rowID, index int) (view.Row, error) {
	row, ok := s.view.Row(rowID)
	if !ok || index < 0 || index >= len(row.Images) {
		return view.Row{}, fmt.Errorf("image %d of row %d: %w", index, rowID, view.ErrRowNotFound)
	}
	prompt := row.Images[index].Prompt

	reply, err := s.dispatcher.Regenerate(ctx, prompt)
	if err != nil {
		s.logger.Warn("image regeneration failed", zap.Int("row", rowID), zap.Error(err))
		return view.Row{}, fmt.Errorf("%w: %v", ErrRegenerateFailed, err)
	}
	mm, ok := reply.(dispatch.MultimodalReply)
	if !ok || len(mm.Images) == 0 {
		s.logger.Warn("regeneration returned no image", zap.Int("row", rowID))
		return view.Row{}, ErrRegenerateFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.view.SwapImage(rowID, index, mm.Images[0])
	if err != nil {
		// The row was cleared by navigation while waiting.
		return view.Row{}, err
	}
	s.syncAndLog(ctx)
	return updated, nil
}

// Image is a downloadable image.
type Image struct {
	Data        []byte
	ContentType string
	Filename    string
}

// DownloadImage resolves image index of row rowID to its bytes. data: URLs
// are decoded in place; http(s) URLs are fetched.
func (s *Session) DownloadImage(ctx context.Context, rowID, index int) (*Image, error) {
	row, ok := s.view.Row(rowID)
	if !ok || index < 0 || index >= len(row.Images) {
		return nil, fmt.Errorf("image %d of row %d: %w", index, rowID, view.ErrRowNotFound)
	}
	url := row.Images[index].URL

	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}
	return fetchImage(ctx, url)
}

func decodeDataURL(url string) (*Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data url")
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image: %w", err)
		}
		data = decoded
	} else {
		data = []byte(payload)
	}
	return &Image{Data: data, ContentType: contentType, Filename: "generated-image" + extensionFor(contentType)}, nil
}

func fetchImage(ctx context.Context, url string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	resp, err := imageClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	name := path.Base(req.URL.Path)
	if name == "" || name == "/" || name == "." {
		name = "generated-image" + extensionFor(contentType)
	}
	return &Image{Data: data, ContentType: contentType, Filename: name}, nil
}

func extensionFor(contentType string) string {
	exts, _ := mime.ExtensionsByType(contentType)
	if len(exts) == 0 {
		return ".png"
	}
	return exts[0]
}
