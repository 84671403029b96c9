package consultation

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"health-companion/internal/patient"
)

const maxAudioUpload = 10 << 20

type Handler struct {
	svc      Service
	patients PatientStore
	logger   *zap.Logger
}

func NewHandler(svc Service, patients PatientStore, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, patients: patients, logger: logger.Named("http")}
}

type CreateSessionRequest struct {
	PatientID string `json:"patient_id"`
}

type UtteranceRequest struct {
	Text string `json:"text"`
}

// StreamRequest carries either free text or a quick action ID.
type StreamRequest struct {
	Text   string `json:"text"`
	Action string `json:"action"`
}

const defaultThinkingStatus = "Thinking..."

type TTSRequest struct {
	Text string `json:"text"`
}

// SessionView is what the chat screen renders: the log, the bound profile
// and the opening line.
type SessionView struct {
	ID       uuid.UUID       `json:"id"`
	State    State           `json:"state"`
	Profile  patient.Profile `json:"profile"`
	Greeting string          `json:"greeting"`
	Messages []Message       `json:"messages"`
}

func (h *Handler) view(s *Session) SessionView {
	return SessionView{
		ID:       s.ID,
		State:    s.State(),
		Profile:  s.Profile,
		Greeting: h.svc.Greeting(s.Profile),
		Messages: s.History(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) fail(w http.ResponseWriter, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrUnknownQuickAction),
		errors.Is(err, patient.ErrUnknownPatient):
		status = http.StatusNotFound
	case errors.Is(err, ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	http.Error(w, msg+": "+err.Error(), status)
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	// An empty body binds the default patient.
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}

	s, err := h.svc.CreateSession(r.Context(), req.PatientID)
	if err != nil {
		h.fail(w, err, "Failed to create session")
		return
	}
	writeJSON(w, http.StatusCreated, h.view(s))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, h.view(s))
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.GetSession(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Failed to load session")
		return
	}
	writeJSON(w, http.StatusOK, s.History())
}

func (h *Handler) SubmitUtterance(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req UtteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	resp, err := h.svc.SubmitUtterance(r.Context(), id, req.Text)
	if err != nil {
		h.fail(w, err, "Processing failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) RunQuickAction(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	resp, err := h.svc.RunQuickAction(r.Context(), id, chi.URLParam(r, "action"))
	if err != nil {
		h.fail(w, err, "Processing failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// StreamUtterance answers like SubmitUtterance but as server-sent events:
// the user text, a status line while the reply is composed, then the reply.
func (h *Handler) StreamUtterance(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	var req StreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	text, status := req.Text, defaultThinkingStatus
	if req.Action != "" {
		action, found := FindQuickAction(req.Action)
		if !found {
			h.fail(w, fmt.Errorf("%w: %s", ErrUnknownQuickAction, req.Action), "Processing failed")
			return
		}
		text, status = action.Utterance, action.Status
	}
	if _, err := h.svc.GetSession(r.Context(), id); err != nil {
		h.fail(w, err, "Processing failed")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	send := func(ev StreamEvent) {
		data, _ := json.Marshal(ev)
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	send(StreamEvent{Type: "user_text", Data: text})
	send(StreamEvent{Type: "status", Data: status})

	resp, err := h.svc.SubmitUtterance(r.Context(), id, text)
	if err != nil {
		h.logger.Warn("streamed reply failed", zap.String("session_id", id.String()), zap.Error(err))
		send(StreamEvent{Type: "error", Data: err.Error()})
		return
	}
	send(StreamEvent{Type: "response", Data: resp})
}

func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	s, err := h.svc.ResetSession(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Reset failed")
		return
	}
	writeJSON(w, http.StatusOK, h.view(s))
}

func (h *Handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteSession(r.Context(), id); err != nil {
		h.fail(w, err, "Delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	ds, err := h.svc.Analytics(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Analytics failed")
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	pdf, err := h.svc.ExportTranscript(r.Context(), id)
	if err != nil {
		h.fail(w, err, "Report failed")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=transcript_%s.pdf", id))
	w.Write(pdf)
}

func (h *Handler) ShareReport(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := h.svc.ShareTranscript(r.Context(), id); err != nil {
		h.fail(w, err, "Share failed")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// HandleAudio transcribes a spoken question, answers it like typed text and
// attaches the spoken reply when speech synthesis is available.
func (h *Handler) HandleAudio(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "Error retrieving audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		http.Error(w, "Failed to read audio file", http.StatusInternalServerError)
		return
	}

	text, err := h.svc.TranscribeAudio(r.Context(), buf.Bytes())
	if err != nil {
		h.fail(w, err, "Transcription failed")
		return
	}
	if text == "" {
		writeJSON(w, http.StatusOK, map[string]any{"text": "", "response": nil})
		return
	}

	resp, err := h.svc.SubmitUtterance(r.Context(), id, text)
	if err != nil {
		h.fail(w, err, "Processing failed")
		return
	}

	var audioBase64 string
	if audio, err := h.svc.SynthesizeSpeech(r.Context(), resp.Text); err == nil {
		audioBase64 = base64.StdEncoding.EncodeToString(audio)
	} else {
		h.logger.Debug("reply not voiced", zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"text":         text,
		"response":     resp,
		"audio_base64": audioBase64,
	})
}

func (h *Handler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	audio, err := h.svc.SynthesizeSpeech(r.Context(), req.Text)
	if err != nil {
		h.fail(w, err, "TTS failed")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Write(audio)
}

func (h *Handler) ListQuickActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, QuickActions())
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	p, err := h.patients.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err, "Failed to load patient")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Get("/messages", h.GetMessages)
		r.Post("/messages", h.SubmitUtterance)
		r.Post("/stream", h.StreamUtterance)
		r.Post("/quick-actions/{action}", h.RunQuickAction)
		r.Post("/reset", h.ResetSession)
		r.Get("/analytics", h.GetAnalytics)
		r.Get("/report", h.GetReport)
		r.Post("/share", h.ShareReport)
		r.Post("/audio", h.HandleAudio)
	})
	r.Get("/quick-actions", h.ListQuickActions)
	r.Get("/patients/{id}", h.GetPatient)
	r.Post("/tts", h.HandleTTS)
}
