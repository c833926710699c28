package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/internal/service"
	"github.com/capitalize-ai/chatdesk/internal/view"
	"github.com/capitalize-ai/chatdesk/internal/voice"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps domain errors to HTTP statuses. Unexpected errors
// are logged and reported without detail.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, action string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, validationMessage(err))
	case errors.Is(err, model.ErrNotFound), errors.Is(err, view.ErrRowNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoActiveChat):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRegenerateFailed):
		writeError(w, http.StatusBadGateway, service.MsgRegenerateFailed)
	case errors.Is(err, voice.ErrBusy), errors.Is(err, voice.ErrNotListening):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Error("failed to "+action, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to "+action)
	}
}

// validationMessage strips the sentinel prefix so users see only the reason.
func validationMessage(err error) string {
	msg := err.Error()
	prefix := model.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		msg = msg[i+len(prefix):]
	}
	return msg
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
