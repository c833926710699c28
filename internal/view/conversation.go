// Package view holds the rendered conversation: the rows on screen, the
// typing indicator and the draft input.
package view

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/capitalize-ai/chatdesk/internal/markup"
	"github.com/capitalize-ai/chatdesk/internal/model"
)

// ErrRowNotFound is returned when a row or image index does not exist.
var ErrRowNotFound = errors.New("row not found")

// Image is a generated image shown in a bot row.
type Image struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt"`
}

// Row is one rendered message. Rows are append-only; Clear removes them all.
type Row struct {
	ID        int        `json:"id"`
	Role      model.Role `json:"role"`
	Content   string     `json:"content"`
	HTML      string     `json:"html"`
	Text      string     `json:"text,omitempty"`
	Images    []Image    `json:"images,omitempty"`
	Transient bool       `json:"transient,omitempty"`
	Speakable bool       `json:"speakable"`
}

// Message returns the persisted form of the row.
func (r Row) Message() model.Message {
	return model.Message{Role: r.Role, Content: r.Content}
}

func (r Row) clone() Row {
	r.Images = append([]Image(nil), r.Images...)
	return r
}

// MultimodalContent composes the stored Markdown of a text-and-images reply.
// The image prompt travels as the Markdown image title.
func MultimodalContent(text string, images []Image) string {
	var parts []string
	if text != "" {
		parts = append(parts, text)
	}
	for _, img := range images {
		if img.Prompt == "" {
			parts = append(parts, fmt.Sprintf("![%s](%s)", imageAlt, img.URL))
			continue
		}
		parts = append(parts, fmt.Sprintf("![%s](%s \"%s\")", imageAlt, img.URL, titleEscaper.Replace(img.Prompt)))
	}
	return strings.Join(parts, "\n\n")
}

const imageAlt = "generated image"

var (
	imageLine      = regexp.MustCompile(`^!\[generated image\]\((\S+)(?: "((?:[^"\\]|\\.)*)")?\)$`)
	titleEscaper   = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", " ")
	titleUnescaper = strings.NewReplacer(`\\`, `\`, `\"`, `"`)
)

// ParseMultimodal splits stored content produced by MultimodalContent back
// into its text and images. ok is false when the content has no images.
func ParseMultimodal(content string) (text string, images []Image, ok bool) {
	parts := strings.Split(content, "\n\n")
	i := len(parts)
	for i > 0 && imageLine.MatchString(parts[i-1]) {
		i--
	}
	if i == len(parts) {
		return content, nil, false
	}
	for _, p := range parts[i:] {
		m := imageLine.FindStringSubmatch(p)
		images = append(images, Image{URL: m[1], Prompt: titleUnescaper.Replace(m[2])})
	}
	return strings.Join(parts[:i], "\n\n"), images, true
}

// Conversation is the rendered view of the active chat.
type Conversation struct {
	renderer *markup.Renderer

	mu     sync.RWMutex
	rows   []Row
	nextID int
	typing bool
	input  string

	subs   map[int]chan Event
	nextSu int
}

// New creates an empty conversation view.
func New(renderer *markup.Renderer) *Conversation {
	if renderer == nil {
		renderer = markup.NewRenderer()
	}
	return &Conversation{
		renderer: renderer,
		nextID:   1,
		subs:     make(map[int]chan Event),
	}
}

// Append renders a persisted message. Bot rows get a speaker control, except
// stored image replies, which get their image actions back.
func (c *Conversation) Append(msg model.Message) Row {
	if msg.Role == model.RoleBot {
		if text, images, ok := ParseMultimodal(msg.Content); ok {
			return c.AppendMultimodal(text, images)
		}
	}
	return c.append(Row{
		Role:      msg.Role,
		Content:   msg.Content,
		Speakable: msg.Role == model.RoleBot,
	})
}

// AppendTransient renders an informational bot row that is never captured.
func (c *Conversation) AppendTransient(text string) Row {
	return c.append(Row{
		Role:      model.RoleBot,
		Content:   text,
		Transient: true,
		Speakable: true,
	})
}

// AppendMultimodal renders a bot reply made of optional text and images.
// Image rows have no speaker control.
func (c *Conversation) AppendMultimodal(text string, images []Image) Row {
	return c.append(Row{
		Role:    model.RoleBot,
		Content: MultimodalContent(text, images),
		Text:    text,
		Images:  append([]Image(nil), images...),
	})
}

func (c *Conversation) append(row Row) Row {
	row.HTML = c.renderer.HTML(row.Content)

	c.mu.Lock()
	row.ID = c.nextID
	c.nextID++
	c.rows = append(c.rows, row)
	out := row.clone()
	c.publishLocked(Event{Type: EventRowAppended, Row: &out})
	c.mu.Unlock()

	return out
}

// Clear removes every row and the typing indicator.
func (c *Conversation) Clear() {
	c.mu.Lock()
	c.rows = nil
	c.typing = false
	c.publishLocked(Event{Type: EventCleared})
	c.mu.Unlock()
}

// ShowTyping displays the typing indicator.
func (c *Conversation) ShowTyping() {
	c.setTyping(true)
}

// HideTyping removes the typing indicator.
func (c *Conversation) HideTyping() {
	c.setTyping(false)
}

func (c *Conversation) setTyping(on bool) {
	c.mu.Lock()
	c.typing = on
	c.publishLocked(Event{Type: EventTyping, Typing: on})
	c.mu.Unlock()
}

// Typing reports whether the typing indicator is shown.
func (c *Conversation) Typing() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.typing
}

// Rows returns a copy of the rendered rows.
func (c *Conversation) Rows() []Row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Row, len(c.rows))
	for i, r := range c.rows {
		out[i] = r.clone()
	}
	return out
}

// Row returns the row with id.
func (c *Conversation) Row(id int) (Row, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if i := c.indexLocked(id); i >= 0 {
		return c.rows[i].clone(), true
	}
	return Row{}, false
}

// Capture reconstructs the message list from the rendered rows, skipping
// transient rows.
func (c *Conversation) Capture() []model.Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var msgs []model.Message
	for _, r := range c.rows {
		if r.Transient {
			continue
		}
		msgs = append(msgs, r.Message())
	}
	return msgs
}

// SwapImage replaces the URL of an image in place and re-renders the row.
func (c *Conversation) SwapImage(rowID, index int, url string) (Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(rowID)
	if i < 0 || index < 0 || index >= len(c.rows[i].Images) {
		return Row{}, fmt.Errorf("image %d of row %d: %w", index, rowID, ErrRowNotFound)
	}

	row := &c.rows[i]
	row.Images[index].URL = url
	row.Content = MultimodalContent(row.Text, row.Images)
	row.HTML = c.renderer.HTML(row.Content)

	out := row.clone()
	c.publishLocked(Event{Type: EventImageSwapped, Row: &out, ImageIndex: index})
	return out, nil
}

// SetInput overwrites the draft input.
func (c *Conversation) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.publishLocked(Event{Type: EventInput, Input: text})
	c.mu.Unlock()
}

// Input returns the draft input.
func (c *Conversation) Input() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.input
}

func (c *Conversation) indexLocked(id int) int {
	for i := range c.rows {
		if c.rows[i].ID == id {
			return i
		}
	}
	return -1
}
