package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedReply is returned when the response body is not a known reply.
var ErrMalformedReply = errors.New("malformed reply")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat endpoint returned %d", e.Code)
}

// Reply is either a TextReply or a MultimodalReply.
type Reply interface {
	isReply()
}

// TextReply is rendered as-is.
type TextReply struct {
	Content string
}

// MultimodalReply carries optional text and zero or more image URLs.
type MultimodalReply struct {
	Text   string
	Images []string
	Prompt string
}

func (TextReply) isReply()       {}
func (MultimodalReply) isReply() {}

// Reply type tags on the wire.
const (
	TypeText       = "text"
	TypeMultimodal = "multimodal"
)

// Envelope is the wire format of a reply.
type Envelope struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// MultimodalContent is the wire format of a multimodal reply body.
type MultimodalContent struct {
	Text   string   `json:"text,omitempty"`
	Images []string `json:"images,omitempty"`
	Prompt string   `json:"prompt,omitempty"`
}

// DecodeReply parses a response body into its typed reply.
func DecodeReply(raw []byte) (Reply, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	switch env.Type {
	case TypeText:
		var content string
		if len(env.Content) > 0 && string(env.Content) != "null" {
			if err := json.Unmarshal(env.Content, &content); err != nil {
				return nil, fmt.Errorf("%w: text content: %v", ErrMalformedReply, err)
			}
		}
		return TextReply{Content: content}, nil

	case TypeMultimodal:
		var content MultimodalContent
		if len(env.Content) > 0 && string(env.Content) != "null" {
			if err := json.Unmarshal(env.Content, &content); err != nil {
				return nil, fmt.Errorf("%w: multimodal content: %v", ErrMalformedReply, err)
			}
		}
		return MultimodalReply{Text: content.Text, Images: content.Images, Prompt: content.Prompt}, nil

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedReply, env.Type)
	}
}

// EncodeReply renders a reply in the wire format.
func EncodeReply(r Reply) ([]byte, error) {
	switch v := r.(type) {
	case TextReply:
		return json.Marshal(struct {
			Type    string `json:"type"`
			Content string `json:"content"`
		}{TypeText, v.Content})
	case MultimodalReply:
		return json.Marshal(struct {
			Type    string            `json:"type"`
			Content MultimodalContent `json:"content"`
		}{TypeMultimodal, MultimodalContent{Text: v.Text, Images: v.Images, Prompt: v.Prompt}})
	default:
		return nil, fmt.Errorf("unsupported reply %T", r)
	}
}
