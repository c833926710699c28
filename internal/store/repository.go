package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
	"github.com/capitalize-ai/chatdesk/pkg/metrics"
)

// Repository exposes keyed operations over the persisted collections.
//
// Each operation reads the whole collection, mutates it in memory and writes
// it back. Operations of one Repository are serialized; writers in other
// processes are not coordinated with.
type Repository struct {
	store  Store
	logger *logger.Logger
	mu     sync.Mutex
}

// NewRepository creates a repository over s.
func NewRepository(s Store, log *logger.Logger) *Repository {
	return &Repository{
		store:  s,
		logger: log.Named("repository"),
	}
}

// Chats returns the standalone chats.
func (r *Repository) Chats(ctx context.Context) ([]model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadChats(ctx)
}

// Projects returns all projects.
func (r *Repository) Projects(ctx context.Context) ([]model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadProjects(ctx)
}

// Snapshot returns both collections read under one lock.
func (r *Repository) Snapshot(ctx context.Context) ([]model.Chat, []model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chats, err := r.loadChats(ctx)
	if err != nil {
		return nil, nil, err
	}
	projects, err := r.loadProjects(ctx)
	if err != nil {
		return nil, nil, err
	}
	return chats, projects, nil
}

// GetChat resolves a chat inside its scope.
func (r *Repository) GetChat(ctx context.Context, ref model.ChatRef) (*model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *model.Chat
	err := r.withChatList(ctx, ref, false, func(chats *[]model.Chat) (bool, error) {
		i := model.ChatIndex(*chats, ref.ID)
		if i < 0 {
			return false, chatNotFound(ref)
		}
		c := (*chats)[i].Clone()
		found = &c
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// CreateChat appends chat to the list of ref's scope, assigning an id that is
// unique within that list. It returns the stored chat.
func (r *Repository) CreateChat(ctx context.Context, ref model.ChatRef, chat model.Chat) (model.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.withChatList(ctx, ref, true, func(chats *[]model.Chat) (bool, error) {
		chat.ID = model.UniqueID(*chats, chat.ID)
		if chat.Messages == nil {
			chat.Messages = []model.Message{}
		}
		*chats = append(*chats, chat)
		return true, nil
	})
	return chat, err
}

// UpsertChat replaces the chat with the same id in ref's scope, or appends it.
func (r *Repository) UpsertChat(ctx context.Context, ref model.ChatRef, chat model.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.withChatList(ctx, ref, true, func(chats *[]model.Chat) (bool, error) {
		if i := model.ChatIndex(*chats, chat.ID); i >= 0 {
			(*chats)[i] = chat
		} else {
			*chats = append(*chats, chat)
		}
		return true, nil
	})
}

// UpdateChat applies fn to the chat addressed by ref and persists the result.
func (r *Repository) UpdateChat(ctx context.Context, ref model.ChatRef, fn func(*model.Chat)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.withChatList(ctx, ref, true, func(chats *[]model.Chat) (bool, error) {
		i := model.ChatIndex(*chats, ref.ID)
		if i < 0 {
			return false, chatNotFound(ref)
		}
		fn(&(*chats)[i])
		return true, nil
	})
}

// AppendMessage adds msg to the end of the chat addressed by ref.
func (r *Repository) AppendMessage(ctx context.Context, ref model.ChatRef, msg model.Message) error {
	err := r.UpdateChat(ctx, ref, func(c *model.Chat) {
		c.Messages = append(c.Messages, msg)
	})
	if err == nil {
		metrics.MessagesTotal.WithLabelValues(string(msg.Role)).Inc()
	}
	return err
}

// DeleteChat removes the chat addressed by ref.
func (r *Repository) DeleteChat(ctx context.Context, ref model.ChatRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.withChatList(ctx, ref, true, func(chats *[]model.Chat) (bool, error) {
		i := model.ChatIndex(*chats, ref.ID)
		if i < 0 {
			return false, chatNotFound(ref)
		}
		*chats = append((*chats)[:i], (*chats)[i+1:]...)
		return true, nil
	})
}

// ClearChats deletes every standalone chat and empties every project's chat list.
func (r *Repository) ClearChats(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.saveJSON(ctx, KeyChats, []model.Chat{}); err != nil {
		return err
	}
	projects, err := r.loadProjects(ctx)
	if err != nil {
		return err
	}
	for i := range projects {
		projects[i].Chats = []model.Chat{}
	}
	return r.saveJSON(ctx, KeyProjects, projects)
}

// GetProject returns the project named name.
func (r *Repository) GetProject(ctx context.Context, name string) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.loadProjects(ctx)
	if err != nil {
		return nil, err
	}
	i := model.ProjectIndex(projects, name)
	if i < 0 {
		return nil, fmt.Errorf("project %q: %w", name, model.ErrNotFound)
	}
	return &projects[i], nil
}

// CreateProject validates and appends a new empty project.
func (r *Repository) CreateProject(ctx context.Context, req model.CreateProjectRequest) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req.Normalize()
	projects, err := r.loadProjects(ctx)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateProjectName(projects, req.Name); err != nil {
		return nil, err
	}

	project := model.Project{Name: req.Name, Desc: req.Desc, Chats: []model.Chat{}}
	projects = append(projects, project)
	if err := r.saveJSON(ctx, KeyProjects, projects); err != nil {
		return nil, err
	}
	return &project, nil
}

// DeleteProject removes the project named name.
func (r *Repository) DeleteProject(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.loadProjects(ctx)
	if err != nil {
		return err
	}
	i := model.ProjectIndex(projects, name)
	if i < 0 {
		return fmt.Errorf("project %q: %w", name, model.ErrNotFound)
	}
	projects = append(projects[:i], projects[i+1:]...)
	return r.saveJSON(ctx, KeyProjects, projects)
}

// DeleteAllProjects removes every project along with its chats.
func (r *Repository) DeleteAllProjects(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveJSON(ctx, KeyProjects, []model.Project{})
}

// VoiceSettings returns the saved voice settings or the defaults.
func (r *Repository) VoiceSettings(ctx context.Context) (model.VoiceSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	settings := model.DefaultVoiceSettings()
	if err := r.loadJSON(ctx, KeyVoiceSettings, &settings); err != nil {
		return model.DefaultVoiceSettings(), err
	}
	return settings, nil
}

// SaveVoiceSettings persists settings.
func (r *Repository) SaveVoiceSettings(ctx context.Context, settings model.VoiceSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveJSON(ctx, KeyVoiceSettings, settings)
}

// withChatList loads the chat list of ref's scope, runs fn on it and, when fn
// reports a change and write is set, persists the containing collection.
func (r *Repository) withChatList(ctx context.Context, ref model.ChatRef, write bool, fn func(*[]model.Chat) (bool, error)) error {
	switch ref.Scope {
	case model.ScopeStandalone:
		chats, err := r.loadChats(ctx)
		if err != nil {
			return err
		}
		changed, err := fn(&chats)
		if err != nil || !changed || !write {
			return err
		}
		return r.saveJSON(ctx, KeyChats, chats)

	case model.ScopeProject:
		projects, err := r.loadProjects(ctx)
		if err != nil {
			return err
		}
		i := model.ProjectIndex(projects, ref.Project)
		if i < 0 {
			return fmt.Errorf("project %q: %w", ref.Project, model.ErrNotFound)
		}
		changed, err := fn(&projects[i].Chats)
		if err != nil || !changed || !write {
			return err
		}
		return r.saveJSON(ctx, KeyProjects, projects)

	default:
		return fmt.Errorf("chat %d in scope %q: %w", ref.ID, ref.Scope, model.ErrNotFound)
	}
}

func (r *Repository) loadChats(ctx context.Context) ([]model.Chat, error) {
	chats := []model.Chat{}
	if err := r.loadJSON(ctx, KeyChats, &chats); err != nil {
		return nil, err
	}
	for i := range chats {
		if chats[i].Messages == nil {
			chats[i].Messages = []model.Message{}
		}
	}
	return chats, nil
}

func (r *Repository) loadProjects(ctx context.Context) ([]model.Project, error) {
	projects := []model.Project{}
	if err := r.loadJSON(ctx, KeyProjects, &projects); err != nil {
		return nil, err
	}
	for i := range projects {
		if projects[i].Chats == nil {
			projects[i].Chats = []model.Chat{}
		}
	}
	return projects, nil
}

// loadJSON decodes the value under key into v. A missing or corrupt entry
// leaves v untouched and is not an error; only backend failures are returned.
func (r *Repository) loadJSON(ctx context.Context, key string, v any) error {
	data, err := r.store.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}

	if err := decodeInto(data, v); err != nil {
		r.logger.Warn("discarding corrupt stored collection", zap.String("key", key), zap.Error(err))
		metrics.StoreCorruptTotal.WithLabelValues(key).Inc()
	}
	return nil
}

// decodeInto unmarshals into a fresh value of v's type and only copies it
// over v on success, so a half-decoded value never leaks out.
func decodeInto(data []byte, v any) error {
	switch dst := v.(type) {
	case *[]model.Chat:
		var tmp []model.Chat
		if err := json.Unmarshal(data, &tmp); err != nil {
			return err
		}
		if tmp != nil {
			*dst = tmp
		}
	case *[]model.Project:
		var tmp []model.Project
		if err := json.Unmarshal(data, &tmp); err != nil {
			return err
		}
		if tmp != nil {
			*dst = tmp
		}
	case *model.VoiceSettings:
		tmp := *dst
		if err := json.Unmarshal(data, &tmp); err != nil {
			return err
		}
		*dst = tmp
	default:
		return json.Unmarshal(data, v)
	}
	return nil
}

func (r *Repository) saveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.store.Save(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func chatNotFound(ref model.ChatRef) error {
	if ref.Scope == model.ScopeProject {
		return fmt.Errorf("chat %d in project %q: %w", ref.ID, ref.Project, model.ErrNotFound)
	}
	return fmt.Errorf("chat %d: %w", ref.ID, model.ErrNotFound)
}
