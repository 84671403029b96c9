// Package knowledge holds the static care-content entries and the keyword
// search that picks one of them for an utterance.
package knowledge

// Entry is a citable chunk of care content. Entries are never mutated after
// the store is built.
type Entry struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	Keywords       []string `json:"keywords"`
	BaseConfidence float64  `json:"base_confidence"`
	Source         string   `json:"source"`
}

// Store is an ordered list of entries. Order decides ties during search.
type Store struct {
	entries []Entry
}

func NewStore(entries ...Entry) *Store {
	s := &Store{entries: make([]Entry, len(entries))}
	for i, e := range entries {
		e.Keywords = append([]string(nil), e.Keywords...)
		s.entries[i] = e
	}
	return s
}

// Entries returns a copy of the entries in store order.
func (s *Store) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		e.Keywords = append([]string(nil), e.Keywords...)
		out[i] = e
	}
	return out
}

func (s *Store) Len() int { return len(s.entries) }

// NewDefaultStore returns the knee-replacement content used by the demo.
func NewDefaultStore() *Store {
	return NewStore(
		Entry{
			ID:             "pain_management",
			Content:        "Advanced pain management protocols show 94% of patients achieve satisfactory pain control within 48 hours post-surgery. Our multimodal approach includes: regional nerve blocks (reducing opioid need by 60%), controlled-release medications, cryotherapy, and early mobilization. Studies indicate patients using our AI-guided pain tracking report 23% better outcomes.",
			Keywords:       []string{"pain", "hurt", "ache", "discomfort", "medication", "opioid"},
			BaseConfidence: 0.95,
			Source:         "Mayo Clinic Orthopedic Outcomes Database 2024",
		},
		Entry{
			ID:             "recovery_timeline",
			Content:        "Evidence-based recovery milestones: Days 1-3: Wound healing focus, assisted mobility (walker/crutches). Week 1-2: 90° knee flexion target, discharge planning. Weeks 3-6: Physical therapy intensification, 120° flexion goal. Months 2-3: Return to driving, work (desk jobs). Months 3-6: Full activity clearance. Our AI monitoring shows patients following guided protocols recover 18% faster.",
			Keywords:       []string{"recovery", "timeline", "healing", "when", "how long", "weeks", "months"},
			BaseConfidence: 0.92,
			Source:         "American Academy of Orthopedic Surgeons Clinical Guidelines",
		},
		Entry{
			ID:             "procedure_details",
			Content:        "Total knee arthroplasty involves precision removal of damaged cartilage/bone, followed by implantation of titanium-cobalt femoral and tibial components with medical-grade polyethylene spacer. Modern robotic-assisted techniques (used in 78% of our cases) improve alignment accuracy by 40% and reduce recovery time by 2-3 weeks.",
			Keywords:       []string{"procedure", "surgery", "operation", "what happens", "how", "robotic"},
			BaseConfidence: 0.98,
			Source:         "Johns Hopkins Robotic Surgery Center",
		},
		Entry{
			ID:             "preparation",
			Content:        "Optimized pre-surgical preparation reduces complications by 35%: Medical clearance completion, medication adjustment (stop blood thinners 7 days prior), home environment setup (shower chair, raised toilet seat), caregiver coordination, pre-hab exercises (quadriceps strengthening), and nutritional optimization (protein >1.2g/kg daily).",
			Keywords:       []string{"prepare", "preparation", "before", "ready", "pre-op", "prehab"},
			BaseConfidence: 0.94,
			Source:         "Enhanced Recovery After Surgery (ERAS) Protocols",
		},
		Entry{
			ID:             "anxiety_support",
			Content:        "Clinical data shows 89% of patients experience pre-surgical anxiety. Our integrated support reduces anxiety scores by 42%: peer mentorship connections, VR-guided meditation sessions, surgeon video consultations, and 24/7 AI companion access. Patients report feeling 'significantly more prepared and confident' in 96% of cases.",
			Keywords:       []string{"nervous", "scared", "anxious", "worried", "fear", "stress"},
			BaseConfidence: 0.91,
			Source:         "Patient Experience Research Institute",
		},
	)
}
