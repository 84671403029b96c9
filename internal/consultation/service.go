package consultation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"health-companion/internal/analytics"
	"health-companion/internal/patient"
)

var (
	ErrUnknownQuickAction = errors.New("unknown quick action")
	// ErrUnavailable marks optional integrations that are not configured.
	ErrUnavailable = errors.New("feature unavailable")
)

// Responder composes the assistant reply for one utterance. It must not fail.
type Responder interface {
	Respond(utterance string, profile patient.Profile) ComposedResponse
	Greeting(profile patient.Profile) string
}

// PatientStore resolves demo profiles.
type PatientStore interface {
	Get(id string) (patient.Profile, error)
	Default() patient.Profile
}

// AnalyticsCache holds the dashboard dataset bound to a session.
type AnalyticsCache interface {
	ForSession(sessionID string) *analytics.Dataset
	Invalidate(sessionID string)
}

// ReportService renders and shares conversation transcripts.
type ReportService interface {
	Render(s Session) ([]byte, error)
	Share(ctx context.Context, s Session) error
}

// SpeechClient covers the optional voice input and output.
type SpeechClient interface {
	Transcribe(ctx context.Context, audioData []byte) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Recorder receives per-reply observations for metrics.
type Recorder interface {
	ObserveResponse(intent string, confidence float64, fallback bool)
	ObserveReset()
	ObserveSessionCreated()
}

type Service interface {
	CreateSession(ctx context.Context, patientID string) (*Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	SubmitUtterance(ctx context.Context, id uuid.UUID, text string) (*ComposedResponse, error)
	RunQuickAction(ctx context.Context, id uuid.UUID, actionID string) (*ComposedResponse, error)
	ResetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	Greeting(profile patient.Profile) string
	Analytics(ctx context.Context, id uuid.UUID) (*analytics.Dataset, error)
	ExportTranscript(ctx context.Context, id uuid.UUID) ([]byte, error)
	ShareTranscript(ctx context.Context, id uuid.UUID) error
	TranscribeAudio(ctx context.Context, audioData []byte) (string, error)
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
}

type Options struct {
	ThinkDelay time.Duration
	Analytics  AnalyticsCache
	Reports    ReportService
	Speech     SpeechClient
	Recorder   Recorder
	Logger     *zap.Logger
	Now        func() time.Time
}

type service struct {
	repo      Repository
	responder Responder
	patients  PatientStore
	opts      Options
	logger    *zap.Logger

	// One entry per stored session; entries are only created after the
	// session was found and are dropped when it disappears.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

func NewService(repo Repository, responder Responder, patients PatientStore, opts Options) Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:      repo,
		responder: responder,
		patients:  patients,
		opts:      opts,
		logger:    logger.Named("consultation"),
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *service) lockFor(id uuid.UUID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *service) dropLock(id uuid.UUID) {
	s.locksMu.Lock()
	delete(s.locks, id)
	s.locksMu.Unlock()
}

// loadLocked re-reads the session under its lock. A session that vanished in
// between releases its lock entry.
func (s *service) loadLocked(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		s.dropLock(id)
	}
	return sess, err
}

func (s *service) CreateSession(ctx context.Context, patientID string) (*Session, error) {
	profile := s.patients.Default()
	if patientID != "" {
		p, err := s.patients.Get(patientID)
		if err != nil {
			return nil, fmt.Errorf("create session for %q: %w", patientID, err)
		}
		profile = p
	}

	sess := NewSession(profile, s.opts.Now())
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if s.opts.Recorder != nil {
		s.opts.Recorder.ObserveSessionCreated()
	}
	s.logger.Info("session created",
		zap.String("session_id", sess.ID.String()),
		zap.String("patient_id", profile.ID))
	return sess, nil
}

func (s *service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) Greeting(profile patient.Profile) string {
	return s.responder.Greeting(profile)
}

// SubmitUtterance is the single entry point for free text. The think delay
// runs before the session is locked, so other sessions are not held up.
func (s *service) SubmitUtterance(ctx context.Context, id uuid.UUID, text string) (*ComposedResponse, error) {
	// Fail fast on unknown sessions before waiting.
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	if s.opts.ThinkDelay > 0 {
		time.Sleep(s.opts.ThinkDelay)
	}

	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	sess, err := s.loadLocked(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := sess.Submit(text, s.responder, s.opts.Now)
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	if s.opts.Recorder != nil {
		s.opts.Recorder.ObserveResponse(resp.Intent, resp.Confidence, resp.Fallback)
	}
	s.logger.Debug("utterance answered",
		zap.String("session_id", id.String()),
		zap.String("intent", resp.Intent),
		zap.Float64("confidence", resp.Confidence),
		zap.String("source", resp.Source),
		zap.Bool("fallback", resp.Fallback),
		zap.Int("messages", len(sess.Messages)))
	return &resp, nil
}

func (s *service) RunQuickAction(ctx context.Context, id uuid.UUID, actionID string) (*ComposedResponse, error) {
	action, ok := FindQuickAction(actionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuickAction, actionID)
	}
	return s.SubmitUtterance(ctx, id, action.Utterance)
}

func (s *service) ResetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	sess, err := s.loadLocked(ctx, id)
	if err != nil {
		return nil, err
	}

	sess.Reset(s.patients.Default(), s.opts.Now())
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if s.opts.Analytics != nil {
		s.opts.Analytics.Invalidate(id.String())
	}
	if s.opts.Recorder != nil {
		s.opts.Recorder.ObserveReset()
	}
	s.logger.Info("session reset", zap.String("session_id", id.String()))
	return sess, nil
}

func (s *service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	l := s.lockFor(id)
	l.Lock()
	err := s.repo.Delete(ctx, id)
	l.Unlock()
	s.dropLock(id)
	if err != nil {
		return err
	}

	if s.opts.Analytics != nil {
		s.opts.Analytics.Invalidate(id.String())
	}
	s.logger.Info("session deleted", zap.String("session_id", id.String()))
	return nil
}

func (s *service) Analytics(ctx context.Context, id uuid.UUID) (*analytics.Dataset, error) {
	if s.opts.Analytics == nil {
		return nil, fmt.Errorf("analytics: %w", ErrUnavailable)
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.opts.Analytics.ForSession(id.String()), nil
}

func (s *service) ExportTranscript(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if s.opts.Reports == nil {
		return nil, fmt.Errorf("reports: %w", ErrUnavailable)
	}
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.opts.Reports.Render(*sess)
}

func (s *service) ShareTranscript(ctx context.Context, id uuid.UUID) error {
	if s.opts.Reports == nil {
		return fmt.Errorf("reports: %w", ErrUnavailable)
	}
	sess, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.opts.Reports.Share(ctx, *sess)
}

func (s *service) TranscribeAudio(ctx context.Context, audioData []byte) (string, error) {
	if s.opts.Speech == nil {
		return "", fmt.Errorf("speech: %w", ErrUnavailable)
	}
	return s.opts.Speech.Transcribe(ctx, audioData)
}

func (s *service) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	if s.opts.Speech == nil {
		return nil, fmt.Errorf("speech: %w", ErrUnavailable)
	}
	return s.opts.Speech.Synthesize(ctx, text)
}
