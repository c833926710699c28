package handler

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/internal/service"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// ProjectHandler handles project endpoints.
type ProjectHandler struct {
	session *service.Session
	logger  *logger.Logger
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(s *service.Session, log *logger.Logger) *ProjectHandler {
	return &ProjectHandler{
		session: s,
		logger:  log.Named("projects"),
	}
}

// ProjectSummary is a project without its chats.
type ProjectSummary struct {
	Name      string `json:"name"`
	Desc      string `json:"desc"`
	ChatCount int    `json:"chatCount"`
}

// List handles GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.session.Projects(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "list projects")
		return
	}

	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectSummary{Name: p.Name, Desc: p.Desc, ChatCount: len(p.Chats)})
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	project, err := h.session.CreateProject(r.Context(), req.Name, req.Desc)
	if err != nil {
		writeServiceError(w, h.logger, err, "create project")
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

// DeleteAll handles DELETE /api/projects
func (h *ProjectHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.session.DeleteAllProjects(r.Context()); err != nil {
		writeServiceError(w, h.logger, err, "delete projects")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/projects/{name}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.session.DeleteProject(r.Context(), projectName(r)); err != nil {
		writeServiceError(w, h.logger, err, "delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Chats handles GET /api/projects/{name}/chats
func (h *ProjectHandler) Chats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.session.OpenProject(r.Context(), projectName(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "open project")
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// NewProjectChatRequest is the body of POST /api/projects/{name}/chats.
type NewProjectChatRequest struct {
	Name string `json:"name"`
}

// CreateChat handles POST /api/projects/{name}/chats
func (h *ProjectHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req NewProjectChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	chat, err := h.session.NewProjectChat(r.Context(), projectName(r), req.Name)
	if err != nil {
		writeServiceError(w, h.logger, err, "create project chat")
		return
	}
	writeJSON(w, http.StatusCreated, chat)
}

// projectName returns the decoded {name} parameter. chi leaves escapes in
// place when the request path carried an encoded slash.
func projectName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(name); err == nil {
			return decoded
		}
	}
	return name
}
