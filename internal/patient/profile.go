package patient

import (
	"errors"
	"strings"
	"time"
)

var ErrUnknownPatient = errors.New("unknown patient")

type AnxietyLevel string

const (
	AnxietyLow      AnxietyLevel = "Low"
	AnxietyModerate AnxietyLevel = "Moderate"
	AnxietyHigh     AnxietyLevel = "High"
)

// DefaultID is the profile every new or reset session binds to.
const DefaultID = "jane_doe"

type Profile struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Age               int          `json:"age"`
	Procedure         string       `json:"procedure"`
	SurgeryDate       time.Time    `json:"surgery_date"`
	Surgeon           string       `json:"surgeon"`
	AnxietyLevel      AnxietyLevel `json:"anxiety_level"`
	SupportSystem     string       `json:"support_system"`
	Comorbidities     []string     `json:"comorbidities"`
	PreviousSurgeries []string     `json:"previous_surgeries"`
	Insurance         string       `json:"insurance"`
}

// FirstName is the first whitespace-separated token of the full name.
func (p Profile) FirstName() string {
	fields := strings.Fields(p.Name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// SurgeonLastName strips credentials after the first comma and returns the last
// remaining token, so "Dr. Sarah Chen, MD" becomes "Chen".
func (p Profile) SurgeonLastName() string {
	name := p.Surgeon
	if i := strings.Index(name, ","); i >= 0 {
		name = name[:i]
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// Clone returns a copy that shares no slices with p.
func (p Profile) Clone() Profile {
	c := p
	c.Comorbidities = append([]string(nil), p.Comorbidities...)
	c.PreviousSurgeries = append([]string(nil), p.PreviousSurgeries...)
	return c
}

// Store is the read-only set of demo patients.
type Store struct {
	profiles  map[string]Profile
	order     []string
	defaultID string
}

func NewStore(profiles ...Profile) *Store {
	s := &Store{profiles: make(map[string]Profile, len(profiles)), defaultID: DefaultID}
	for _, p := range profiles {
		if _, dup := s.profiles[p.ID]; !dup {
			s.order = append(s.order, p.ID)
		}
		s.profiles[p.ID] = p.Clone()
	}
	return s
}

// NewDemoStore holds the single demo patient.
func NewDemoStore() *Store {
	return NewStore(JaneDoe())
}

func (s *Store) Get(id string) (Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, ErrUnknownPatient
	}
	return p.Clone(), nil
}

// SetDefault changes which profile new and reset sessions bind to. Call it
// during startup only.
func (s *Store) SetDefault(id string) error {
	if _, ok := s.profiles[id]; !ok {
		return ErrUnknownPatient
	}
	s.defaultID = id
	return nil
}

// Default returns the default profile, or the first registered one when the
// store was built without it.
func (s *Store) Default() Profile {
	if p, err := s.Get(s.defaultID); err == nil {
		return p
	}
	if len(s.order) > 0 {
		return s.profiles[s.order[0]].Clone()
	}
	return Profile{}
}

func (s *Store) IDs() []string {
	return append([]string(nil), s.order...)
}

func JaneDoe() Profile {
	return Profile{
		ID:                DefaultID,
		Name:              "Jane Doe",
		Age:               67,
		Procedure:         "Right Total Knee Replacement",
		SurgeryDate:       time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC),
		Surgeon:           "Dr. Sarah Chen, MD",
		AnxietyLevel:      AnxietyModerate,
		SupportSystem:     "Strong Support System",
		Comorbidities:     []string{"Hypertension", "Type 2 Diabetes"},
		PreviousSurgeries: []string{"Appendectomy (1998)"},
		Insurance:         "Medicare + Supplement",
	}
}
