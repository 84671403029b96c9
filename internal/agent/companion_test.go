package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"health-companion/internal/knowledge"
	"health-companion/internal/patient"
)

func newCompanion() *Companion {
	return NewCompanion(knowledge.NewDefaultStore())
}

func TestClassifyPriority(t *testing.T) {
	cases := map[string]Intent{
		"I'm scared about the pain":                    IntentAnxietySupport,
		"Does it hurt? When can I walk?":               IntentPainConcern,
		"How long is the recovery after surgery":       IntentRecoveryTimeline,
		"Tell me about the operation":                  IntentProcedureInfo,
		"Can you connect me with someone?":             IntentGeneral,
		"":                                             IntentGeneral,
		"FEAR":                                         IntentAnxietySupport,
		"Tell me about the robotic-assisted procedure": IntentProcedureInfo,
	}
	for text, want := range cases {
		assert.Equal(t, want, Classify(text), "utterance %q", text)
	}
}

func TestRespondWorriedAboutPain(t *testing.T) {
	c := newCompanion()
	jane := patient.JaneDoe()
	q := "I'm really worried about post-surgery pain management"

	resp := c.Respond(q, jane)
	match := knowledge.NewDefaultStore().Search(q, &jane)

	assert.Equal(t, string(IntentAnxietySupport), resp.Intent)
	assert.True(t, resp.Personalized)
	assert.Equal(t, match.Confidence, resp.Confidence)
	assert.Equal(t, match.Source, resp.Source)
	assert.Contains(t, resp.Text, match.Content)
	assert.Contains(t, resp.Text, "Hi Jane,")
	assert.Contains(t, resp.Text, "August 15, 2025")
	assert.Contains(t, resp.Text, "a strong support system")
	assert.Contains(t, resp.Text, "Dr. Chen")
}

func TestRespondEmptyUtterance(t *testing.T) {
	resp := newCompanion().Respond("", patient.JaneDoe())

	assert.Equal(t, string(IntentGeneral), resp.Intent)
	assert.True(t, resp.Fallback)
	assert.Equal(t, knowledge.FallbackConfidence, resp.Confidence)
	assert.Equal(t, knowledge.FallbackSource, resp.Source)
	assert.Contains(t, resp.Text, knowledge.FallbackContent)
	assert.Contains(t, resp.Text, "right total knee replacement")
}

func TestRespondTemplates(t *testing.T) {
	c := newCompanion()
	jane := patient.JaneDoe()

	pain := c.Respond("my knee will hurt", jane)
	assert.Equal(t, string(IntentPainConcern), pain.Intent)
	assert.Contains(t, pain.Text, "Hypertension, Type 2 Diabetes")

	recovery := c.Respond("what is the recovery timeline", jane)
	assert.Equal(t, string(IntentRecoveryTimeline), recovery.Intent)
	assert.Contains(t, recovery.Text, "(67)")
	assert.Contains(t, recovery.Text, "strong support system")

	proc := c.Respond("walk me through the operation", jane)
	assert.Equal(t, string(IntentProcedureInfo), proc.Intent)
	assert.Contains(t, proc.Text, "Appendectomy (1998)")
	assert.Contains(t, proc.Text, "Dr. Chen specializes")
}

// The template follows the classifier even when search picked another topic.
func TestTemplateAndKnowledgeMayDisagree(t *testing.T) {
	resp := newCompanion().Respond("How should I prepare?", patient.JaneDoe())
	assert.Equal(t, string(IntentGeneral), resp.Intent)
	assert.Equal(t, "Johns Hopkins Robotic Surgery Center", resp.Source)
}

func TestRespondHandlesSparseProfile(t *testing.T) {
	p := patient.Profile{}
	c := newCompanion()

	for _, q := range []string{"scared", "pain", "recovery", "surgery", "hello", ""} {
		resp := c.Respond(q, p)
		assert.NotEmpty(t, resp.Text)
		assert.GreaterOrEqual(t, resp.Confidence, 0.0)
		assert.LessOrEqual(t, resp.Confidence, 1.0)
	}
	assert.Contains(t, c.Respond("surgery", p).Text, "first surgery")
	assert.Contains(t, c.Respond("pain", p).Text, "your surgeon")
}

func TestGreeting(t *testing.T) {
	g := newCompanion().Greeting(patient.JaneDoe())
	assert.Contains(t, g, "Hello Jane!")
	assert.Contains(t, g, "Dr. Chen on August 15, 2025")
	assert.Contains(t, g, "excellent hands - Dr. Chen has a 98.7% patient satisfaction rate.")

	sparse := newCompanion().Greeting(patient.Profile{})
	assert.Contains(t, sparse, "Hello there!")
	assert.Contains(t, sparse, "your surgeon has a 98.7% patient satisfaction rate")
}
