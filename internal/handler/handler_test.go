package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/chatdesk/internal/dispatch"
	"github.com/capitalize-ai/chatdesk/internal/model"
	"github.com/capitalize-ai/chatdesk/internal/service"
	"github.com/capitalize-ai/chatdesk/internal/store"
	"github.com/capitalize-ai/chatdesk/internal/view"
	"github.com/capitalize-ai/chatdesk/internal/voice"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
)

type stubDispatcher struct {
	reply    dispatch.Reply
	regenErr error
}

func (d *stubDispatcher) Chat(ctx context.Context, text string) (dispatch.Reply, error) {
	return d.reply, nil
}

func (d *stubDispatcher) Regenerate(ctx context.Context, prompt string) (dispatch.Reply, error) {
	return nil, d.regenErr
}

// silentSynth speaks until it is cancelled.
type silentSynth struct{}

func (silentSynth) Voices(context.Context) ([]voice.Voice, error) { return nil, nil }

func (silentSynth) Speak(ctx context.Context, u voice.Utterance) error {
	<-ctx.Done()
	return ctx.Err()
}

type testServer struct {
	*httptest.Server
	session *service.Session
	repo    *store.Repository
	speaker *voice.Speaker
	capture *voice.Capture
}

func newTestServer(t *testing.T, d *stubDispatcher, checks ...ReadinessCheck) *testServer {
	t.Helper()
	log := logger.NewNop()

	repo := store.NewRepository(store.NewMemoryStore(), log)
	conv := view.New(nil)
	session := service.NewSession(repo, conv, d, log)
	require.NoError(t, session.Start(context.Background()))

	speaker := voice.NewSpeaker(silentSynth{}, repo.VoiceSettings, conv.SetSpeaking, log)
	t.Cleanup(speaker.Close)

	recognizer := voice.NewPushRecognizer()
	capture := voice.NewCapture(recognizer, conv, func(ctx context.Context, text string) {
		_ = session.Send(ctx, text)
	}, time.Minute, log)

	chats := NewChatHandler(session, log)
	router := NewRouter(Handlers{
		Health:   NewHealthHandler(checks...),
		Chats:    chats,
		Messages: NewMessageHandler(session, chats, log),
		Projects: NewProjectHandler(session, log),
		Voice:    NewVoiceHandler(repo, session, speaker, capture, recognizer, log),
		Stream:   NewStreamHandler(chats, log),
	}, RouterConfig{}, log)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, session: session, repo: repo, speaker: speaker, capture: capture}
}

func (s *testServer) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{})

	resp := srv.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-Correlation-ID"))

	resp = srv.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReadyReportsFailingCheck(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{}, ReadinessCheck{
		Name:  "store",
		Check: func(context.Context) error { return errors.New("closed") },
	})

	resp := srv.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "store: closed", body["reason"])
}

func TestSessionShowsGreeting(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{})

	resp := srv.do(t, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := decode[SessionState](t, resp)
	require.Len(t, state.Rows, 1)
	assert.Equal(t, service.MsgGreeting, state.Rows[0].Content)
	_, active := state.Context.Ref()
	assert.True(t, active)
}

func TestSendMessage(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{reply: dispatch.TextReply{Content: "**hi**"}})

	resp := srv.do(t, http.MethodPost, "/api/messages", `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := decode[SessionState](t, resp)
	require.Len(t, state.Rows, 3)
	assert.Equal(t, "hello", state.Rows[1].Content)
	assert.Equal(t, "**hi**", state.Rows[2].Content)
	assert.Contains(t, state.Rows[2].HTML, "<strong>hi</strong>")
	assert.False(t, state.Typing)
}

func TestSendRejectsBlankText(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{})

	resp := srv.do(t, http.MethodPost, "/api/messages", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteChatRejectsBadID(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{})

	resp := srv.do(t, http.MethodDelete, "/api/chats/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, http.MethodDelete, "/api/chats/42", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOpenMissingChatShowsPlaceholder(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{})

	resp := srv.do(t, http.MethodPost, "/api/chats/open", `{"id":42}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	state := decode[SessionState](t, resp)
	require.Len(t, state.Rows, 1)
	assert.Equal(t, service.MsgChatNotFound, state.Rows[0].Content)
}

func TestProjectLifecycle(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{})

	resp := srv.do(t, http.MethodPost, "/api/projects", `{"name":"Work","desc":"day job"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/projects", `{"name":"Work"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "project name already exists. Please choose a different name", body["error"])

	resp = srv.do(t, http.MethodPost, "/api/projects", `{"name":"  "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/projects/Work/chats", `{"name":"Plans"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	chat := decode[model.Chat](t, resp)
	assert.Equal(t, "Plans", chat.Name)

	resp = srv.do(t, http.MethodGet, "/api/projects", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	projects := decode[[]ProjectSummary](t, resp)
	require.Len(t, projects, 1)
	assert.Equal(t, ProjectSummary{Name: "Work", Desc: "day job", ChatCount: 1}, projects[0])

	resp = srv.do(t, http.MethodGet, "/api/projects/Work/chats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]model.Chat](t, resp), 1)

	resp = srv.do(t, http.MethodDelete, "/api/projects/Work", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = srv.do(t, http.MethodGet, "/api/projects/Work/chats", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVoiceSettings(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{})

	resp := srv.do(t, http.MethodGet, "/api/settings/voice", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.DefaultVoiceSettings(), decode[model.VoiceSettings](t, resp))

	resp = srv.do(t, http.MethodPut, "/api/settings/voice", `{"voice":"male","speed":"fast"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = srv.do(t, http.MethodPut, "/api/settings/voice", `{"voice":"female","speed":"1.5"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got, err := srv.repo.VoiceSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.VoiceSettings{Voice: "female", Speed: "1.5"}, got)
}

func TestSpeakTogglesRow(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{reply: dispatch.TextReply{Content: "hi"}})
	srv.do(t, http.MethodPost, "/api/messages", `{"text":"hello"}`)

	rows := srv.session.View().Rows()
	require.Len(t, rows, 3)
	user, bot := rows[1], rows[2]

	resp := srv.do(t, http.MethodPost, "/api/rows/"+strconv.Itoa(user.ID)+"/speak", "")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/rows/"+strconv.Itoa(bot.ID)+"/speak", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, resp)["playing"])

	trigger, playing := srv.speaker.Playing()
	assert.True(t, playing)
	assert.Equal(t, RowTrigger(bot.ID), trigger)

	resp = srv.do(t, http.MethodPost, "/api/rows/"+strconv.Itoa(bot.ID)+"/speak", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decode[map[string]any](t, resp)["playing"])

	resp = srv.do(t, http.MethodPost, "/api/rows/999/speak", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMicCaptureSendsTranscript(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{reply: dispatch.TextReply{Content: "sure"}})

	resp := srv.do(t, http.MethodPost, "/api/mic/transcript", `{"text":"early"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = srv.do(t, http.MethodPost, "/api/mic", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"listening": true}, decode[map[string]bool](t, resp))

	resp = srv.do(t, http.MethodPost, "/api/mic/transcript", `{"text":"what is"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = srv.do(t, http.MethodPost, "/api/mic/transcript", `{"text":"what is go","final":true}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	srv.capture.Wait()
	assert.Equal(t, []string{service.MsgGreeting, "what is go", "sure"}, contents(srv.session.View().Rows()))
}

func TestRegenerateFailure(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{
		reply:    dispatch.MultimodalReply{Images: []string{"https://img.example/a.png"}, Prompt: "a cat"},
		regenErr: errors.New("quota"),
	})
	srv.do(t, http.MethodPost, "/api/messages", `{"text":"generate image of a cat"}`)

	rows := srv.session.View().Rows()
	require.Len(t, rows, 3)
	require.Len(t, rows[2].Images, 1)

	resp := srv.do(t, http.MethodPost, "/api/rows/"+strconv.Itoa(rows[2].ID)+"/images/0/regenerate", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, service.MsgRegenerateFailed, decode[map[string]string](t, resp)["error"])

	resp = srv.do(t, http.MethodPost, "/api/rows/"+strconv.Itoa(rows[2].ID)+"/images/5/regenerate", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamSendsSnapshotThenEvents(t *testing.T) {
	srv := newTestServer(t, &stubDispatcher{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/view/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
				events <- name
			}
		}
		close(events)
	}()

	assert.Equal(t, "snapshot", next(t, events))

	srv.session.View().SetListening(true)
	assert.Equal(t, string(view.EventListening), next(t, events))
}

func next(t *testing.T, events <-chan string) string {
	t.Helper()
	select {
	case name := <-events:
		return name
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return ""
	}
}

func contents(rows []view.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Content)
	}
	return out
}
