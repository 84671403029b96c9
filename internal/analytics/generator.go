// Package analytics produces the synthetic engagement figures shown on the
// admin dashboard. None of it is derived from real conversations.
package analytics

import (
	"math/rand/v2"
	"sync"
	"time"
)

type DailyMetrics struct {
	Date                time.Time `json:"date"`
	Conversations       int       `json:"daily_conversations"`
	AvgSessionMinutes   float64   `json:"avg_session_duration"`
	PatientSatisfaction float64   `json:"patient_satisfaction"`
	AnxietyReduction    float64   `json:"anxiety_reduction"`
}

type Headline struct {
	ActivePatients      int     `json:"active_patients"`
	Conversations       int     `json:"conversations"`
	AnxietyReductionPct float64 `json:"anxiety_reduction_pct"`
	ResponseTimeSeconds float64 `json:"response_time_seconds"`
	UptimePct           float64 `json:"uptime_pct"`
}

type Outcome struct {
	Name        string `json:"outcome"`
	Improvement int    `json:"improvement"`
	Baseline    int    `json:"baseline"`
}

type Dataset struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Daily       []DailyMetrics `json:"daily"`
	Headline    Headline       `json:"headline"`
	Outcomes    []Outcome      `json:"outcomes"`
}

var (
	SeriesStart = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	SeriesEnd   = time.Date(2025, time.July, 24, 0, 0, 0, 0, time.UTC)
)

// Generator draws a fresh dataset on every call. A fixed seed makes the
// series reproducible.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewGenerator(seed uint64) *Generator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now: time.Now,
	}
}

func (g *Generator) Generate() *Dataset {
	g.mu.Lock()
	defer g.mu.Unlock()

	var daily []DailyMetrics
	for d := SeriesStart; !d.After(SeriesEnd); d = d.AddDate(0, 0, 1) {
		daily = append(daily, DailyMetrics{
			Date:                d,
			Conversations:       45 + g.rng.IntN(41),
			AvgSessionMinutes:   g.uniform(8.5, 15.2),
			PatientSatisfaction: g.uniform(4.6, 4.9),
			AnxietyReduction:    g.uniform(35, 55),
		})
	}

	return &Dataset{
		GeneratedAt: g.now(),
		Daily:       daily,
		Headline: Headline{
			ActivePatients:      2847,
			Conversations:       18392,
			AnxietyReductionPct: 47.3,
			ResponseTimeSeconds: 0.8,
			UptimePct:           99.9,
		},
		Outcomes: []Outcome{
			{Name: "Reduced Readmissions", Improvement: 23, Baseline: 100},
			{Name: "Faster Recovery", Improvement: 18, Baseline: 100},
			{Name: "Higher Satisfaction", Improvement: 31, Baseline: 100},
			{Name: "Lower Anxiety", Improvement: 47, Baseline: 100},
			{Name: "Better Compliance", Improvement: 29, Baseline: 100},
		},
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}
