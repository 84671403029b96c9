package knowledge

import (
	"strings"

	"health-companion/internal/patient"
)

const (
	// ComorbidityBoost is added to every candidate when the utterance names
	// one of the patient's conditions. It does not scale with the match count.
	ComorbidityBoost = 0.05

	FallbackContent    = "I understand your concern. Let me provide you with specific, evidence-based information."
	FallbackConfidence = 0.7
	FallbackSource     = "Health Companion General Knowledge Base"

	keywordWeight = 2
)

type MatchResult struct {
	EntryID        string  `json:"entry_id,omitempty"`
	Content        string  `json:"content"`
	Confidence     float64 `json:"confidence"`
	Source         string  `json:"source"`
	RelevanceScore int     `json:"relevance_score"`
	Fallback       bool    `json:"fallback"`
}

// Fallback is returned when no entry shares a keyword with the utterance.
func Fallback() MatchResult {
	return MatchResult{
		Content:        FallbackContent,
		Confidence:     FallbackConfidence,
		Source:         FallbackSource,
		RelevanceScore: 1,
		Fallback:       true,
	}
}

// Candidates scores every entry against the utterance and returns the ones
// with at least one keyword hit, in store order. A nil profile disables the
// comorbidity boost.
func (s *Store) Candidates(utterance string, profile *patient.Profile) []MatchResult {
	query := strings.ToLower(utterance)
	boost := 0.0
	if mentionsComorbidity(query, profile) {
		boost = ComorbidityBoost
	}

	var out []MatchResult
	for _, e := range s.entries {
		hits := 0
		for _, kw := range e.Keywords {
			if strings.Contains(query, kw) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		out = append(out, MatchResult{
			EntryID:        e.ID,
			Content:        e.Content,
			Confidence:     min(e.BaseConfidence+boost, 1.0),
			Source:         e.Source,
			RelevanceScore: keywordWeight * hits,
		})
	}
	return out
}

// Search returns the most confident candidate, the earliest one on ties, or
// the fallback when nothing matched.
func (s *Store) Search(utterance string, profile *patient.Profile) MatchResult {
	candidates := s.Candidates(utterance, profile)
	if len(candidates) == 0 {
		return Fallback()
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best
}

func mentionsComorbidity(query string, profile *patient.Profile) bool {
	if profile == nil {
		return false
	}
	for _, cond := range profile.Comorbidities {
		cond = strings.ToLower(strings.TrimSpace(cond))
		if cond != "" && strings.Contains(query, cond) {
			return true
		}
	}
	return false
}
