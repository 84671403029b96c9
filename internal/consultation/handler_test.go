package consultation_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"health-companion/internal/agent"
	"health-companion/internal/analytics"
	"health-companion/internal/consultation"
	"health-companion/internal/knowledge"
	"health-companion/internal/patient"
)

type fakeSpeech struct{}

func (fakeSpeech) Transcribe(ctx context.Context, audioData []byte) (string, error) {
	return string(audioData), nil
}

func (fakeSpeech) Synthesize(ctx context.Context, text string) ([]byte, error) {
	return []byte("wav"), nil
}

func newServer(t *testing.T, speech consultation.SpeechClient) *httptest.Server {
	logger := zaptest.NewLogger(t)
	cache, err := analytics.NewCache(analytics.NewGenerator(1), 8, logger)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	patients := patient.NewDemoStore()
	svc := consultation.NewService(
		consultation.NewMemoryRepository(),
		agent.NewCompanion(knowledge.NewDefaultStore()),
		patients,
		consultation.Options{Analytics: cache, Speech: speech, Logger: logger},
	)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		consultation.RegisterRoutes(r, consultation.NewHandler(svc, patients, logger))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(url, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func createSession(t *testing.T, srv *httptest.Server) consultation.SessionView {
	resp := postJSON(t, srv.URL+"/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var view consultation.SessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	return view
}

func TestHandlerConversationFlow(t *testing.T) {
	srv := newServer(t, nil)
	view := createSession(t, srv)
	assert.Equal(t, consultation.StateIdle, view.State)
	assert.Contains(t, view.Greeting, "Hello Jane!")
	assert.Empty(t, view.Messages)

	base := srv.URL + "/api/sessions/" + view.ID.String()

	resp := postJSON(t, base+"/messages", consultation.UtteranceRequest{Text: "I'm scared about the pain"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var composed consultation.ComposedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&composed))
	assert.Equal(t, "anxiety-support", composed.Intent)
	assert.True(t, composed.Personalized)

	resp = postJSON(t, base+"/quick-actions/robotic", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(base + "/messages")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var msgs []consultation.Message
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&msgs))
	assert.Len(t, msgs, 4)

	resp = postJSON(t, base+"/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reset consultation.SessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reset))
	assert.Empty(t, reset.Messages)
	assert.Equal(t, consultation.StateIdle, reset.State)
}

func TestHandlerErrors(t *testing.T) {
	srv := newServer(t, nil)
	view := createSession(t, srv)
	base := srv.URL + "/api/sessions/"

	resp := postJSON(t, base+"not-a-uuid/messages", consultation.UtteranceRequest{Text: "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, base+"00000000-0000-0000-0000-000000000001/messages", consultation.UtteranceRequest{Text: "hi"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, base+view.ID.String()+"/quick-actions/dance", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	bad, err := http.Post(base+view.ID.String()+"/messages", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	resp = postJSON(t, srv.URL+"/api/sessions", consultation.CreateSessionRequest{PatientID: "nobody"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/tts", consultation.TTSRequest{Text: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	report, err := http.Get(base + view.ID.String() + "/report")
	require.NoError(t, err)
	report.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, report.StatusCode)
}

func TestHandlerAnalyticsAndLookups(t *testing.T) {
	srv := newServer(t, nil)
	view := createSession(t, srv)

	resp, err := http.Get(srv.URL + "/api/sessions/" + view.ID.String() + "/analytics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ds analytics.Dataset
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ds))
	assert.Len(t, ds.Daily, 205)

	qa, err := http.Get(srv.URL + "/api/quick-actions")
	require.NoError(t, err)
	defer qa.Body.Close()
	var actions []consultation.QuickAction
	require.NoError(t, json.NewDecoder(qa.Body).Decode(&actions))
	assert.Len(t, actions, 4)

	p, err := http.Get(srv.URL + "/api/patients/jane_doe")
	require.NoError(t, err)
	defer p.Body.Close()
	var profile patient.Profile
	require.NoError(t, json.NewDecoder(p.Body).Decode(&profile))
	assert.Equal(t, 67, profile.Age)

	missing, err := http.Get(srv.URL + "/api/patients/nobody")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHandlerAudio(t *testing.T) {
	srv := newServer(t, fakeSpeech{})
	view := createSession(t, srv)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio", "q.wav")
	require.NoError(t, err)
	part.Write([]byte("how long until I can drive"))
	require.NoError(t, w.Close())

	resp, err := http.Post(srv.URL+"/api/sessions/"+view.ID.String()+"/audio", w.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Text        string                        `json:"text"`
		Response    consultation.ComposedResponse `json:"response"`
		AudioBase64 string                        `json:"audio_base64"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "how long until I can drive", out.Text)
	assert.Equal(t, "recovery-timeline", out.Response.Intent)
	assert.Equal(t, "d2F2", out.AudioBase64)
}

func readEvents(t *testing.T, resp *http.Response) []consultation.StreamEvent {
	t.Helper()
	var events []consultation.StreamEvent
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var ev consultation.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestHandlerStream(t *testing.T) {
	srv := newServer(t, nil)
	view := createSession(t, srv)
	url := srv.URL + "/api/sessions/" + view.ID.String() + "/stream"

	resp := postJSON(t, url, consultation.StreamRequest{Action: "pain"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)
	require.Len(t, events, 3)
	assert.Equal(t, "user_text", events[0].Type)
	assert.Equal(t, "I'm really worried about post-surgery pain management", events[0].Data)
	assert.Equal(t, "status", events[1].Type)
	assert.Equal(t, "Analyzing your concerns...", events[1].Data)
	assert.Equal(t, "response", events[2].Type)
	reply, ok := events[2].Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "anxiety-support", reply["intent"])

	resp = postJSON(t, url, consultation.StreamRequest{Text: "hello"})
	events = readEvents(t, resp)
	require.Len(t, events, 3)
	assert.Equal(t, "Thinking...", events[1].Data)

	resp = postJSON(t, url, consultation.StreamRequest{Action: "dance"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	msgs, err := http.Get(srv.URL + "/api/sessions/" + view.ID.String() + "/messages")
	require.NoError(t, err)
	defer msgs.Body.Close()
	var log []consultation.Message
	require.NoError(t, json.NewDecoder(msgs.Body).Decode(&log))
	assert.Len(t, log, 4)
}

func TestHandlerDeleteSession(t *testing.T) {
	srv := newServer(t, nil)
	view := createSession(t, srv)
	url := srv.URL + "/api/sessions/" + view.ID.String()

	del := func() int {
		req, err := http.NewRequest(http.MethodDelete, url, nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusNoContent, del())
	assert.Equal(t, http.StatusNotFound, del())

	resp := postJSON(t, url+"/reset", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
