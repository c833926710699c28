package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/model"
)

// OpenChat syncs the chat being left and displays the chat id, standalone
// when project is empty. A missing chat resets the context.
func (s *Session) OpenChat(ctx context.Context, id int64, project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncAndLog(ctx)

	ref := model.RefFor(id, project)
	found, err := s.renderRef(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to open chat: %w", err)
	}
	if !found {
		s.chatLogger(ref).Warn("chat not found")
		s.reset(MsgChatNotFound)
		return nil
	}

	s.current = model.Activate(ref)
	s.chatLogger(ref).Debug("chat opened")
	return nil
}

// NewChat syncs the chat being left, then creates and activates an empty
// standalone chat.
func (s *Session) NewChat(ctx context.Context) (model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncAndLog(ctx)
	s.view.Clear()

	ref := model.ChatRef{Scope: model.ScopeStandalone}
	chat, err := s.repo.CreateChat(ctx, ref, model.NewChat("", s.now()))
	if err != nil {
		return model.Chat{}, fmt.Errorf("failed to create chat: %w", err)
	}
	ref.ID = chat.ID

	s.current = model.Activate(ref)
	s.view.AppendTransient(MsgNewChat)
	s.chatLogger(ref).Info("chat created")
	return chat, nil
}

// NewProjectChat creates and activates a named chat inside project.
func (s *Session) NewProjectChat(ctx context.Context, project, name string) (model.Chat, error) {
	name = strings.TrimSpace(name)
	if err := model.ValidateChatName(name); err != nil {
		return model.Chat{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncAndLog(ctx)

	ref := model.ChatRef{Scope: model.ScopeProject, Project: project}
	chat, err := s.repo.CreateChat(ctx, ref, model.NewChat(name, s.now()))
	if err != nil {
		return model.Chat{}, fmt.Errorf("failed to create project chat: %w", err)
	}
	ref.ID = chat.ID

	s.current = model.Activate(ref)
	s.view.Clear()
	s.view.AppendTransient(fmt.Sprintf("New chat %q started in project! How can I help you today?", chat.Name))
	s.chatLogger(ref).Info("project chat created")
	return chat, nil
}

// DeleteChat removes a chat. Deleting the active chat resets the context.
func (s *Session) DeleteChat(ctx context.Context, id int64, project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := model.RefFor(id, project)
	wasActive := s.current.IsActive(ref)
	if !wasActive {
		s.syncAndLog(ctx)
	}

	if err := s.repo.DeleteChat(ctx, ref); err != nil {
		return fmt.Errorf("failed to delete chat: %w", err)
	}
	if wasActive {
		s.reset(MsgChatDeleted)
	}
	s.chatLogger(ref).Info("chat deleted", zap.Bool("was_active", wasActive))
	return nil
}

// DeleteAllChats empties the standalone list and every project's chats.
func (s *Session) DeleteAllChats(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncAndLog(ctx)
	if err := s.repo.ClearChats(ctx); err != nil {
		return fmt.Errorf("failed to delete chats: %w", err)
	}
	s.reset(MsgAllChatsDeleted)
	s.logger.Info("all chats deleted")
	return nil
}

// ClearActiveChat empties the messages of the active chat.
func (s *Session) ClearActiveChat(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.current.Ref()
	if !ok {
		s.view.Clear()
		s.view.AppendTransient(MsgNothingToClear)
		return nil
	}

	err := s.repo.UpdateChat(ctx, ref, func(c *model.Chat) {
		c.Messages = []model.Message{}
	})
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to clear chat: %w", err)
	}
	s.view.Clear()
	s.view.AppendTransient(MsgChatCleared)
	return nil
}

// Recent returns up to n chats across all scopes, newest first.
func (s *Session) Recent(ctx context.Context, n int) ([]model.TaggedChat, error) {
	chats, projects, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return model.RecentN(model.MergedChats(chats, projects), n), nil
}

// Search returns chats across all scopes whose name or messages contain term.
func (s *Session) Search(ctx context.Context, term string) ([]model.TaggedChat, error) {
	chats, projects, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return model.Search(model.MergedChats(chats, projects), term), nil
}
