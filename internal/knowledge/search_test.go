package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-companion/internal/patient"
)

func candidateIDs(results []MatchResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.EntryID)
	}
	return ids
}

func TestDefaultStoreOrder(t *testing.T) {
	var ids []string
	for _, e := range NewDefaultStore().Entries() {
		ids = append(ids, e.ID)
		assert.GreaterOrEqual(t, e.BaseConfidence, 0.0)
		assert.LessOrEqual(t, e.BaseConfidence, 1.0)
	}
	assert.Equal(t, []string{"pain_management", "recovery_timeline", "procedure_details", "preparation", "anxiety_support"}, ids)
}

func TestSearchFallback(t *testing.T) {
	store := NewDefaultStore()
	jane := patient.JaneDoe()

	for _, q := range []string{"", "   ", "hello there", "xyz"} {
		got := store.Search(q, &jane)
		assert.Equal(t, Fallback(), got, "query %q", q)
		assert.Equal(t, 0.7, got.Confidence)
		assert.Equal(t, 1, got.RelevanceScore)
		assert.Empty(t, store.Candidates(q, &jane))
	}
}

func TestSearchWorriedAboutPain(t *testing.T) {
	store := NewDefaultStore()
	jane := patient.JaneDoe()
	q := "I'm really worried about post-surgery pain management"

	candidates := store.Candidates(q, &jane)
	assert.Equal(t, []string{"pain_management", "procedure_details", "anxiety_support"}, candidateIDs(candidates))
	assert.InDelta(t, 0.95, candidates[0].Confidence, 1e-9)
	assert.InDelta(t, 0.91, candidates[2].Confidence, 1e-9)

	// "post-surgery" also hits the procedure entry, which outranks both.
	got := store.Search(q, &jane)
	assert.Equal(t, "procedure_details", got.EntryID)
	assert.Equal(t, "Johns Hopkins Robotic Surgery Center", got.Source)
	assert.False(t, got.Fallback)
}

func TestSearchRelevanceCountsKeywords(t *testing.T) {
	store := NewDefaultStore()
	candidates := store.Candidates("The pain and the ache need medication", nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, "pain_management", candidates[0].EntryID)
	assert.Equal(t, 6, candidates[0].RelevanceScore)
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	got := NewDefaultStore().Search("I feel NERVOUS", nil)
	assert.Equal(t, "anxiety_support", got.EntryID)
}

func TestComorbidityBoost(t *testing.T) {
	store := NewDefaultStore()
	jane := patient.JaneDoe()
	q := "I'm nervous because of my hypertension and I want to prepare"

	plain := store.Candidates(q, nil)
	boosted := store.Candidates(q, &jane)
	require.Len(t, boosted, len(plain))
	require.NotEmpty(t, plain)
	for i := range plain {
		assert.Equal(t, plain[i].EntryID, boosted[i].EntryID)
		assert.InDelta(t, plain[i].Confidence+ComorbidityBoost, boosted[i].Confidence, 1e-9)
		assert.Equal(t, plain[i].RelevanceScore, boosted[i].RelevanceScore)
	}

	// preparation 0.94+0.05 beats anxiety 0.91+0.05
	assert.Equal(t, "preparation", store.Search(q, &jane).EntryID)
}

func TestComorbidityBoostIsFlatAndCapped(t *testing.T) {
	store := NewDefaultStore()
	jane := patient.JaneDoe()

	one := store.Search("surgery with hypertension", &jane)
	two := store.Search("surgery with hypertension and type 2 diabetes", &jane)
	assert.InDelta(t, 1.0, one.Confidence, 1e-9)
	assert.InDelta(t, one.Confidence, two.Confidence, 1e-9)
	assert.LessOrEqual(t, two.Confidence, 1.0)
}

func TestComorbidityWithoutKeywordStillFallsBack(t *testing.T) {
	jane := patient.JaneDoe()
	got := NewDefaultStore().Search("my hypertension", &jane)
	assert.True(t, got.Fallback)
	assert.Equal(t, FallbackConfidence, got.Confidence)
}

func TestEmptyComorbidityNeverBoosts(t *testing.T) {
	p := patient.JaneDoe()
	p.Comorbidities = []string{"", "  "}
	got := NewDefaultStore().Search("pain", &p)
	assert.InDelta(t, 0.95, got.Confidence, 1e-9)
}

func TestTiesKeepStoreOrder(t *testing.T) {
	store := NewStore(
		Entry{ID: "first", Keywords: []string{"knee"}, BaseConfidence: 0.8, Source: "a"},
		Entry{ID: "second", Keywords: []string{"knee", "brace"}, BaseConfidence: 0.8, Source: "b"},
		Entry{ID: "never", Keywords: []string{"hip"}, BaseConfidence: 0.99, Source: "c"},
	)
	got := store.Search("knee brace", nil)
	assert.Equal(t, "first", got.EntryID)
	assert.Equal(t, 2, got.RelevanceScore)

	for i := 0; i < 20; i++ {
		assert.Equal(t, "first", store.Search("knee brace", nil).EntryID)
	}
}

func TestStoreCopiesKeywords(t *testing.T) {
	kws := []string{"knee"}
	store := NewStore(Entry{ID: "a", Keywords: kws, BaseConfidence: 0.5})
	kws[0] = "hip"
	assert.Equal(t, "a", store.Search("knee", nil).EntryID)

	entries := store.Entries()
	entries[0].Keywords[0] = "elbow"
	assert.Equal(t, "a", store.Search("knee", nil).EntryID)
	assert.Equal(t, 1, store.Len())
}
