package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/model"
)

// Projects lists all projects.
func (s *Session) Projects(ctx context.Context) ([]model.Project, error) {
	return s.repo.Projects(ctx)
}

// CreateProject adds an empty project. Empty and duplicate names are
// rejected with model.ErrValidation.
func (s *Session) CreateProject(ctx context.Context, name, desc string) (*model.Project, error) {
	project, err := s.repo.CreateProject(ctx, model.CreateProjectRequest{Name: name, Desc: desc})
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created", zap.String("project", project.Name))
	return project, nil
}

// OpenProject syncs the active chat and returns the project's chats,
// newest first.
func (s *Session) OpenProject(ctx context.Context, name string) ([]model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncAndLog(ctx)

	project, err := s.repo.GetProject(ctx, name)
	if err != nil {
		return nil, err
	}
	return project.ChatsNewestFirst(), nil
}

// DeleteProject removes a project and its chats. The context is reset when
// the active chat belonged to it.
func (s *Session) DeleteProject(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasActive := s.current.InProject(name)
	if !wasActive {
		s.syncAndLog(ctx)
	}

	if err := s.repo.DeleteProject(ctx, name); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if wasActive {
		s.reset(MsgProjectDeleted)
	}
	s.logger.Info("project deleted", zap.String("project", name), zap.Bool("was_active", wasActive))
	return nil
}

// DeleteAllProjects removes every project. The context is reset when the
// active chat was a project chat.
func (s *Session) DeleteAllProjects(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.syncAndLog(ctx)
	if err := s.repo.DeleteAllProjects(ctx); err != nil {
		return fmt.Errorf("failed to delete projects: %w", err)
	}
	if s.current.ActiveScope == model.ScopeProject {
		s.reset(MsgAllProjectsDelete)
	}
	s.logger.Info("all projects deleted")
	return nil
}
