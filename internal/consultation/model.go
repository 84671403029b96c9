package consultation

import (
	"time"

	"github.com/google/uuid"

	"health-companion/internal/patient"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type State string

const (
	StateIdle   State = "idle"
	StateActive State = "active"
)

type Message struct {
	Role         Role      `json:"role"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
	Confidence   *float64  `json:"confidence,omitempty"`
	Personalized *bool     `json:"personalized,omitempty"`
}

// ComposedResponse is one personalized assistant reply.
type ComposedResponse struct {
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	Source       string  `json:"source"`
	Personalized bool    `json:"personalized"`
	Intent       string  `json:"intent"`
	Fallback     bool    `json:"fallback"`
}

// Session is one demo conversation: the append-only log and the patient it
// is personalized for.
type Session struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Profile   patient.Profile `json:"profile" db:"profile"`
	Messages  []Message       `json:"messages" db:"messages"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

func NewSession(profile patient.Profile, now time.Time) *Session {
	return &Session{
		ID:        uuid.New(),
		Profile:   profile.Clone(),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) State() State {
	if len(s.Messages) == 0 {
		return StateIdle
	}
	return StateActive
}

// Submit appends the user's utterance and the composed reply as one step.
func (s *Session) Submit(text string, r Responder, now func() time.Time) ComposedResponse {
	userAt := now()
	resp := r.Respond(text, s.Profile)
	replyAt := now()

	confidence := resp.Confidence
	personalized := resp.Personalized
	s.Messages = append(s.Messages,
		Message{Role: RoleUser, Content: text, Timestamp: userAt},
		Message{
			Role:         RoleAssistant,
			Content:      resp.Text,
			Timestamp:    replyAt,
			Confidence:   &confidence,
			Personalized: &personalized,
		},
	)
	s.UpdatedAt = replyAt
	return resp
}

// Reset drops the whole conversation and rebinds the default profile.
func (s *Session) Reset(defaultProfile patient.Profile, now time.Time) {
	s.Messages = []Message{}
	s.Profile = defaultProfile.Clone()
	s.UpdatedAt = now
}

// History returns a copy of the log for read-only callers.
func (s *Session) History() []Message {
	return append([]Message(nil), s.Messages...)
}

// StreamEvent is one server-sent event of a streamed reply.
type StreamEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// QuickAction is a preset utterance offered as a one-tap prompt.
type QuickAction struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Utterance string `json:"utterance"`
	Status    string `json:"status"`
}

var quickActions = []QuickAction{
	{ID: "pain", Label: "Pain Management Concerns", Utterance: "I'm really worried about post-surgery pain management", Status: "Analyzing your concerns..."},
	{ID: "recovery", Label: "Recovery Timeline", Utterance: "What should I realistically expect for my recovery timeline?", Status: "Personalizing timeline..."},
	{ID: "robotic", Label: "Robotic Surgery Info", Utterance: "Tell me about the robotic-assisted procedure I'm having", Status: "Accessing procedure database..."},
	{ID: "peer", Label: "Connect with Peer", Utterance: "Can you connect me with someone who's had this surgery?", Status: "Finding peer matches..."},
}

func QuickActions() []QuickAction {
	return append([]QuickAction(nil), quickActions...)
}

func FindQuickAction(id string) (QuickAction, bool) {
	for _, a := range quickActions {
		if a.ID == id {
			return a, true
		}
	}
	return QuickAction{}, false
}
