package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/signintech/gopdf"
	"go.uber.org/zap"

	"health-companion/internal/consultation"
)

var (
	ErrCareTeamNotConfigured = fmt.Errorf("care team chat not configured: %w", consultation.ErrUnavailable)
	ErrFontUnavailable       = fmt.Errorf("no usable TTF font for transcript: %w", consultation.ErrUnavailable)
)

// DefaultFontPaths are tried in order when no font path is configured.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

const (
	fontName    = "DejaVu"
	textWidth   = 500.0
	pageBottomY = 780.0
)

type TelegramClient interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendDocument(ctx context.Context, chatID int64, fileData []byte, fileName string) error
}

type Service struct {
	tgClient   TelegramClient
	careChatID int64
	fontPaths  []string
	logger     *zap.Logger
	now        func() time.Time
}

func NewService(tg TelegramClient, careChatID int64, fontPaths []string, logger *zap.Logger) *Service {
	if len(fontPaths) == 0 {
		fontPaths = DefaultFontPaths
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tgClient:   tg,
		careChatID: careChatID,
		fontPaths:  fontPaths,
		logger:     logger.Named("report"),
		now:        time.Now,
	}
}

// Render lays the session transcript out as a PDF.
func (s *Service) Render(sess consultation.Session) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := s.loadFont(&pdf); err != nil {
		return nil, err
	}

	w := &writer{pdf: &pdf}
	p := sess.Profile

	w.line(18, "Pre-Surgery Support Session Transcript")
	w.gap(12)
	w.line(11, fmt.Sprintf("Generated: %s", s.now().Format("2006-01-02 15:04")))
	w.line(11, fmt.Sprintf("Session: %s", sess.ID))
	w.line(11, fmt.Sprintf("Patient: %s, %d", p.Name, p.Age))
	w.line(11, fmt.Sprintf("Procedure: %s", p.Procedure))
	if !p.SurgeryDate.IsZero() {
		w.line(11, fmt.Sprintf("Surgery: %s with %s", p.SurgeryDate.Format("January 2, 2006"), p.Surgeon))
	}
	w.line(11, fmt.Sprintf("Anxiety level: %s", p.AnxietyLevel))
	w.gap(12)

	w.line(14, "Conversation")
	w.gap(4)
	if len(sess.Messages) == 0 {
		w.line(11, "No messages exchanged.")
	}
	for _, m := range sess.Messages {
		header := fmt.Sprintf("[%s] %s", m.Timestamp.Format("15:04:05"), speaker(m.Role))
		if m.Confidence != nil {
			header += fmt.Sprintf(" (confidence %.1f%%)", *m.Confidence*100)
		}
		w.line(10, header)
		w.wrapped(10, m.Content)
		w.gap(6)
	}

	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Share posts a summary to the care team chat and attaches the PDF when a
// font is available. A missing font only drops the attachment.
func (s *Service) Share(ctx context.Context, sess consultation.Session) error {
	if s.tgClient == nil || s.careChatID == 0 {
		return ErrCareTeamNotConfigured
	}

	if err := s.tgClient.SendMessage(ctx, s.careChatID, Summary(sess)); err != nil {
		return fmt.Errorf("failed to send transcript summary: %w", err)
	}

	pdf, err := s.Render(sess)
	if err != nil {
		if errors.Is(err, ErrFontUnavailable) {
			s.logger.Warn("transcript PDF skipped", zap.Error(err))
			return nil
		}
		return err
	}

	fileName := fmt.Sprintf("transcript_%s.pdf", sess.ID)
	if err := s.tgClient.SendDocument(ctx, s.careChatID, pdf, fileName); err != nil {
		return fmt.Errorf("failed to send transcript PDF: %w", err)
	}
	s.logger.Info("transcript shared with care team",
		zap.String("session_id", sess.ID.String()),
		zap.Int("messages", len(sess.Messages)))
	return nil
}

// Summary is the plain-text digest sent ahead of the PDF.
func Summary(sess consultation.Session) string {
	p := sess.Profile
	var b strings.Builder
	fmt.Fprintf(&b, "Pre-surgery support transcript\n")
	fmt.Fprintf(&b, "Patient: %s (%d), %s\n", p.Name, p.Age, p.Procedure)
	fmt.Fprintf(&b, "Anxiety level: %s\n", p.AnxietyLevel)

	var questions int
	var total float64
	var answered int
	var last string
	for _, m := range sess.Messages {
		switch m.Role {
		case consultation.RoleUser:
			questions++
			last = m.Content
		case consultation.RoleAssistant:
			if m.Confidence != nil {
				total += *m.Confidence
				answered++
			}
		}
	}
	fmt.Fprintf(&b, "Patient questions: %d\n", questions)
	if answered > 0 {
		fmt.Fprintf(&b, "Average answer confidence: %.1f%%\n", total/float64(answered)*100)
	}
	if last != "" {
		fmt.Fprintf(&b, "Latest question: %q\n", last)
	}
	return b.String()
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range s.fontPaths {
		err := pdf.AddTTFFont(fontName, path)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	s.logger.Warn("failed to load transcript font", zap.Strings("paths", s.fontPaths), zap.Error(lastErr))
	return fmt.Errorf("%w (last error: %v)", ErrFontUnavailable, lastErr)
}

func speaker(r consultation.Role) string {
	if r == consultation.RoleUser {
		return "Patient"
	}
	return "Companion"
}

// writer keeps the first layout error and turns later calls into no-ops.
type writer struct {
	pdf *gopdf.GoPdf
	err error
}

func (w *writer) line(size int, text string) {
	if w.err != nil {
		return
	}
	if w.err = w.pdf.SetFont(fontName, "", size); w.err != nil {
		return
	}
	w.breakPage()
	if w.err = w.pdf.Cell(nil, text); w.err != nil {
		return
	}
	w.pdf.Br(float64(size) + 4)
}

func (w *writer) wrapped(size int, text string) {
	if w.err != nil {
		return
	}
	if w.err = w.pdf.SetFont(fontName, "", size); w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(text, textWidth)
	if err != nil {
		w.err = err
		return
	}
	for _, l := range lines {
		w.line(size, l)
	}
}

func (w *writer) gap(h float64) {
	if w.err == nil {
		w.pdf.Br(h)
	}
}

func (w *writer) breakPage() {
	if w.pdf.GetY() > pageBottomY {
		w.pdf.AddPage()
	}
}
