// Package service implements the chat desk session: navigation between chats
// and projects, synchronization of the rendered view into the store, and
// message dispatch.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/dispatch"
	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/internal/store"
	"github.com/capitalize-ai/chatdesk/internal/view"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// Informational messages shown as transient rows.
const (
	MsgGreeting          = "Hello! I'm your assistant. Ask me anything."
	MsgNoMessages        = "No messages to display."
	MsgChatNotFound      = "Chat not found. Start a new conversation?"
	MsgNewChat           = "New chat started! How can I help you today?"
	MsgChatDeleted       = "Chat deleted. Start a new conversation?"
	MsgAllChatsDeleted   = "All chats deleted. Start a new conversation?"
	MsgAllProjectsDelete = "All projects deleted. Start a new conversation?"
	MsgProjectDeleted    = "Project deleted. Start a new conversation?"
	MsgChatCleared       = "Chat cleared. How can I help you?"
	MsgNothingToClear    = "No active chat to clear. Start a new conversation?"

	// MsgRegenerateFailed is the alert shown when regeneration fails.
	MsgRegenerateFailed = "Failed to Regenerate Image. Free tries may be ended."
)

var (
	// ErrNoActiveChat is returned by operations that need an active chat.
	ErrNoActiveChat = errors.New("no active chat")
	// ErrRegenerateFailed is returned when an image could not be regenerated.
	ErrRegenerateFailed = errors.New("image regeneration failed")
)

// Dispatcher sends user text to the remote chat endpoint.
type Dispatcher interface {
	Chat(ctx context.Context, text string) (dispatch.Reply, error)
	Regenerate(ctx context.Context, prompt string) (dispatch.Reply, error)
}

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source used to stamp new chats.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session owns the session context and the rendered conversation of one user.
//
// mu serializes navigation and guards current. It is never held while
// waiting on the chat endpoint.
type Session struct {
	repo       *store.Repository
	view       *view.Conversation
	dispatcher Dispatcher
	logger     *logger.Logger
	now        func() time.Time

	mu      sync.Mutex
	current model.SessionContext
	// sending counts replies still awaited; the typing indicator stays up
	// until the last one arrives.
	sending int
}

// NewSession creates a session with no active chat.
func NewSession(repo *store.Repository, conv *view.Conversation, d Dispatcher, log *logger.Logger, opts ...Option) *Session {
	s := &Session{
		repo:       repo,
		view:       conv,
		dispatcher: d,
		logger:     log.Named("session"),
		now:        time.Now,
		current:    model.EmptySession(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// View returns the rendered conversation.
func (s *Session) View() *view.Conversation {
	return s.view
}

// Context returns a copy of the session context.
func (s *Session) Context() model.SessionContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyContext(s.current)
}

// Start opens the most recent chat across all scopes, or creates a fresh
// standalone chat and greets the user when there is none.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chats, projects, err := s.repo.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	if recent, ok := model.MostRecent(model.MergedChats(chats, projects)); ok {
		found, err := s.renderRef(ctx, recent.Ref())
		if err != nil {
			return fmt.Errorf("failed to render chat: %w", err)
		}
		if found {
			s.current = model.Activate(recent.Ref())
			s.logger.Info("session started", zap.Int64("chat_id", recent.ID), zap.String("scope", string(recent.Scope)))
			return nil
		}
	}

	chat, err := s.repo.CreateChat(ctx, model.ChatRef{Scope: model.ScopeStandalone}, model.NewChat("", s.now()))
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	s.current = model.Activate(model.RefFor(chat.ID, ""))
	s.view.Clear()
	s.view.AppendTransient(MsgGreeting)
	s.logger.Info("session started with new chat", zap.Int64("chat_id", chat.ID))
	return nil
}

// Render clears the view and shows the messages of the chat addressed by ref.
// A chat that cannot be found, or has no messages, shows a placeholder row.
func (s *Session) Render(ctx context.Context, ref model.ChatRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.renderRef(ctx, ref)
	if err != nil {
		return err
	}
	if !found {
		s.renderChat(nil)
	}
	return nil
}

// renderRef shows the chat addressed by ref. The view is left untouched
// when the chat does not exist.
func (s *Session) renderRef(ctx context.Context, ref model.ChatRef) (bool, error) {
	chat, err := s.repo.GetChat(ctx, ref)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	s.renderChat(chat)
	return true, nil
}

func (s *Session) renderChat(chat *model.Chat) {
	s.view.Clear()
	if chat == nil || len(chat.Messages) == 0 {
		s.view.AppendTransient(MsgNoMessages)
		return
	}
	for _, msg := range chat.Messages {
		s.view.Append(msg)
	}
}

// reset clears the session context and shows notice.
func (s *Session) reset(notice string) {
	s.current = model.EmptySession()
	s.view.Clear()
	s.view.AppendTransient(notice)
}

func (s *Session) chatLogger(ref model.ChatRef) *logger.Logger {
	return s.logger.WithChat(ref.ID, string(ref.Scope), ref.Project)
}

func copyContext(c model.SessionContext) model.SessionContext {
	if c.ActiveChatID != nil {
		id := *c.ActiveChatID
		c.ActiveChatID = &id
	}
	if c.ActiveProjectName != nil {
		name := *c.ActiveProjectName
		c.ActiveProjectName = &name
	}
	return c
}
