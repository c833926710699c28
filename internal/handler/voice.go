package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/capitalize-ai/chatdesk/internal/middleware"
	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/internal/service"
	"github.com/capitalize-ai/chatdesk/internal/store"
	"github.com/capitalize-ai/chatdesk/internal/voice"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

// VoiceHandler handles speech settings, playback and capture endpoints.
type VoiceHandler struct {
	repo       *store.Repository
	session    *service.Session
	speaker    *voice.Speaker
	capture    *voice.Capture
	recognizer *voice.PushRecognizer
	logger     *logger.Logger
}

// NewVoiceHandler creates a new voice handler.
func NewVoiceHandler(
	repo *store.Repository,
	s *service.Session,
	speaker *voice.Speaker,
	capture *voice.Capture,
	recognizer *voice.PushRecognizer,
	log *logger.Logger,
) *VoiceHandler {
	return &VoiceHandler{
		repo:       repo,
		session:    s,
		speaker:    speaker,
		capture:    capture,
		recognizer: recognizer,
		logger:     log.Named("voice"),
	}
}

// RowTrigger is the speaker trigger id of a rendered row.
func RowTrigger(rowID int) string {
	return "row-" + strconv.Itoa(rowID)
}

// GetSettings handles GET /api/settings/voice
func (h *VoiceHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.repo.VoiceSettings(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "load voice settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSettings handles PUT /api/settings/voice
func (h *VoiceHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	settings, ok := h.decodeSettings(w, r)
	if !ok {
		return
	}
	if err := h.repo.SaveVoiceSettings(r.Context(), settings); err != nil {
		writeServiceError(w, h.logger, err, "save voice settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Test handles POST /api/settings/voice/test
// The body carries the unsaved settings to try.
func (h *VoiceHandler) Test(w http.ResponseWriter, r *http.Request) {
	settings, ok := h.decodeSettings(w, r)
	if !ok {
		return
	}
	h.speaker.Test(settings)
	writeJSON(w, http.StatusAccepted, map[string]string{"trigger": voice.TestTrigger})
}

func (h *VoiceHandler) decodeSettings(w http.ResponseWriter, r *http.Request) (model.VoiceSettings, bool) {
	settings := model.DefaultVoiceSettings()
	if !decodeJSON(w, r, &settings) {
		return settings, false
	}
	if settings.Voice == "" {
		settings.Voice = model.VoiceDefault
	}
	if settings.Speed == "" {
		settings.Speed = "1"
	}
	if err := settings.Validate(); err != nil {
		writeServiceError(w, h.logger, err, "validate voice settings")
		return settings, false
	}
	return settings, true
}

// Speak handles POST /api/rows/{row}/speak
// Speaking the row that is already playing stops it.
func (h *VoiceHandler) Speak(w http.ResponseWriter, r *http.Request) {
	rowID, err := middleware.ParseIndex(chi.URLParam(r, "row"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	row, ok := h.session.View().Row(rowID)
	if !ok {
		writeError(w, http.StatusNotFound, "row not found")
		return
	}
	if !row.Speakable {
		writeError(w, http.StatusUnprocessableEntity, "row has no speaker control")
		return
	}

	trigger := RowTrigger(row.ID)
	playing := h.speaker.Toggle(trigger, row.HTML)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"trigger": trigger,
		"playing": playing,
	})
}

// Mic handles POST /api/mic
func (h *VoiceHandler) Mic(w http.ResponseWriter, r *http.Request) {
	listening, err := h.capture.Toggle()
	if err != nil {
		writeServiceError(w, h.logger, err, "toggle microphone")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"listening": listening})
}

// Transcript handles POST /api/mic/transcript
func (h *VoiceHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	var t voice.Transcript
	if !decodeJSON(w, r, &t) {
		return
	}

	if err := h.recognizer.Push(t); err != nil {
		writeServiceError(w, h.logger, err, "accept transcript")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
