// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/chatdesk/internal/middleware"
	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/internal/service"
	"github.com/capitalize-ai/chatdesk/internal/view"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// ChatHandler handles session and chat endpoints.
type ChatHandler struct {
	session *service.Session
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(s *service.Session, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		session: s,
		logger:  log.Named("chats"),
	}
}

// SessionState is the full state needed to draw the page.
type SessionState struct {
	Context model.SessionContext `json:"context"`
	Rows    []view.Row           `json:"rows"`
	Typing  bool                 `json:"typing"`
	Input   string               `json:"input"`
}

// ChatSummary is a chat as listed in history and search results.
type ChatSummary struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	DisplayName string      `json:"displayName"`
	Timestamp   string      `json:"timestamp"`
	Scope       model.Scope `json:"scope"`
	Project     string      `json:"project,omitempty"`
}

func summarize(chats []model.TaggedChat) []ChatSummary {
	out := make([]ChatSummary, 0, len(chats))
	for _, c := range chats {
		out = append(out, ChatSummary{
			ID:          c.ID,
			Name:        c.Name,
			DisplayName: c.DisplayName(),
			Timestamp:   c.Timestamp,
			Scope:       c.Scope,
			Project:     c.Project,
		})
	}
	return out
}

func (h *ChatHandler) state() SessionState {
	conv := h.session.View()
	rows := conv.Rows()
	if rows == nil {
		rows = []view.Row{}
	}
	return SessionState{
		Context: h.session.Context(),
		Rows:    rows,
		Typing:  conv.Typing(),
		Input:   conv.Input(),
	}
}

// Session handles GET /api/session
func (h *ChatHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.state())
}

// Create handles POST /api/chats
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	chat, err := h.session.NewChat(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "create chat")
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

// DeleteAll handles DELETE /api/chats
func (h *ChatHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.session.DeleteAllChats(r.Context()); err != nil {
		writeServiceError(w, h.logger, err, "delete chats")
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

// Recent handles GET /api/chats/recent
func (h *ChatHandler) Recent(w http.ResponseWriter, r *http.Request) {
	n := model.DefaultRecentCount
	if s := r.URL.Query().Get("n"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 && parsed <= 100 {
			n = parsed
		}
	}

	chats, err := h.session.Recent(r.Context(), n)
	if err != nil {
		writeServiceError(w, h.logger, err, "list recent chats")
		return
	}
	writeJSON(w, http.StatusOK, summarize(chats))
}

// Search handles GET /api/chats/search
func (h *ChatHandler) Search(w http.ResponseWriter, r *http.Request) {
	chats, err := h.session.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, h.logger, err, "search chats")
		return
	}
	writeJSON(w, http.StatusOK, summarize(chats))
}

// OpenChatRequest is the body of POST /api/chats/open.
type OpenChatRequest struct {
	ID      int64  `json:"id"`
	Project string `json:"project,omitempty"`
}

// Open handles POST /api/chats/open
func (h *ChatHandler) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.session.OpenChat(r.Context(), req.ID, req.Project); err != nil {
		writeServiceError(w, h.logger, err, "open chat")
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

// Clear handles POST /api/chats/clear
func (h *ChatHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ClearActiveChat(r.Context()); err != nil {
		writeServiceError(w, h.logger, err, "clear chat")
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

// Delete handles DELETE /api/chats/{id}
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.ParseChatID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.DeleteChat(r.Context(), id, r.URL.Query().Get("project")); err != nil {
		writeServiceError(w, h.logger, err, "delete chat")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// detach keeps work that must finish running when the browser goes away.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
