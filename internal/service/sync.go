package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/pkg/metrics"
)

// CaptureVisibleMessages returns the persisted form of the rows on screen,
// skipping informational rows and the typing indicator.
func (s *Session) CaptureVisibleMessages() []model.Message {
	return s.view.Capture()
}

// SyncActiveChat writes the rows on screen into the active chat and applies
// the one-time rename. It is a no-op without an active chat, when nothing
// is on screen, or when the active chat no longer exists.
func (s *Session) SyncActiveChat(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sync(ctx)
}

func (s *Session) sync(ctx context.Context) error {
	ref, ok := s.current.Ref()
	if !ok {
		return nil
	}
	msgs := s.CaptureVisibleMessages()
	if len(msgs) == 0 {
		metrics.SyncTotal.WithLabelValues("empty").Inc()
		return nil
	}

	err := s.repo.UpdateChat(ctx, ref, func(c *model.Chat) {
		if c.ReplaceMessages(msgs) {
			s.chatLogger(ref).Debug("chat renamed", zap.String("name", c.Name))
		}
	})
	switch {
	case errors.Is(err, model.ErrNotFound):
		s.chatLogger(ref).Warn("active chat missing during sync")
		metrics.SyncTotal.WithLabelValues("missing").Inc()
		return nil
	case err != nil:
		metrics.SyncTotal.WithLabelValues("error").Inc()
		return err
	}
	metrics.SyncTotal.WithLabelValues("synced").Inc()
	return nil
}

// syncAndLog persists the active chat. Failures are only logged so the
// calling operation still completes.
func (s *Session) syncAndLog(ctx context.Context) {
	if err := s.sync(ctx); err != nil {
		s.logger.Error("failed to sync active chat", zap.Error(err))
	}
}
