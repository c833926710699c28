package assistant

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/dispatch"
	"github.com/capitalize-ai/chatdesk/internal/middleware"
	"github.com/capitalize-ai/chatdesk/pkg/metrics"
)

const maxRequestBytes = 1 << 20

// Chat handles POST /chat
// Failures are reported as text replies with a 200 status, like any answer.
func (a *Assistant) Chat(w http.ResponseWriter, r *http.Request) {
	var req dispatch.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid request body"}`))
		return
	}

	reply, source := a.Reply(r.Context(), req)

	data, err := dispatch.EncodeReply(reply)
	if err != nil {
		a.logger.Error("failed to encode reply", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	kind := dispatch.TypeText
	if _, ok := reply.(dispatch.MultimodalReply); ok {
		kind = dispatch.TypeMultimodal
	}
	metrics.RepliesTotal.WithLabelValues(source, kind).Inc()
	a.logger.Info("replied",
		zap.String("source", source),
		zap.String("type", kind),
		zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
