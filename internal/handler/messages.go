package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/chatdesk/internal/middleware"
	"github.com/capitalize-ai/chatdesk/internal/service"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// MessageHandler handles message and image endpoints.
type MessageHandler struct {
	session *service.Session
	chats   *ChatHandler
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(s *service.Session, chats *ChatHandler, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		session: s,
		chats:   chats,
		logger:  log.Named("messages"),
	}
}

// SendMessageRequest is the body of POST /api/messages.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// Send handles POST /api/messages
// The reply is awaited even if the browser disconnects.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := middleware.ValidateMessageContent(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.session.Send(detach(r.Context()), req.Text); err != nil {
		writeServiceError(w, h.logger, err, "send message")
		return
	}
	writeJSON(w, http.StatusOK, h.chats.state())
}

func imageParams(r *http.Request) (row, index int, err error) {
	if row, err = middleware.ParseIndex(chi.URLParam(r, "row")); err != nil {
		return 0, 0, err
	}
	if index, err = middleware.ParseIndex(chi.URLParam(r, "index")); err != nil {
		return 0, 0, err
	}
	return row, index, nil
}

// Regenerate handles POST /api/rows/{row}/images/{index}/regenerate
func (h *MessageHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	row, index, err := imageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.session.RegenerateImage(detach(r.Context()), row, index)
	if err != nil {
		writeServiceError(w, h.logger, err, "regenerate image")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// Download handles GET /api/rows/{row}/images/{index}
func (h *MessageHandler) Download(w http.ResponseWriter, r *http.Request) {
	row, index, err := imageParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	img, err := h.session.DownloadImage(r.Context(), row, index)
	if err != nil {
		writeServiceError(w, h.logger, err, "download image")
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", img.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(img.Data)
}
