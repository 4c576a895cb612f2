package kpi

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixora/kpiboard/internal/domain"
)

func TestScore_Formula(t *testing.T) {
	tests := []struct {
		name string
		in   domain.HandlerMetric
		want float64
	}{
		{
			name: "nothing measured",
			// frt=100 art=100 fcr=0 sla=0 vol=0 backlog=100
			// 25 + 20 + 0 + 0 + 0 + 10
			in:   domain.HandlerMetric{},
			want: 55,
		},
		{
			name: "perfect handler",
			in:   domain.HandlerMetric{FRT: 30, ART: 60, FCR: 100, SLA: 100, Volume: 150},
			want: 100,
		},
		{
			name: "slow first response decays proportionally",
			// frt 240 -> 50; art 2880 -> 50
			// 12.5 + 10 + 16 + 13.5 + 5 + 10
			in:   domain.HandlerMetric{FRT: 240, ART: 2880, FCR: 80, SLA: 90, Volume: 50},
			want: 67,
		},
		{
			name: "backlog saturates at ten",
			// 25 + 20 + 20 + 15 + 10 + 0
			in:   domain.HandlerMetric{FRT: 1, ART: 1, FCR: 100, SLA: 100, Volume: 100, Backlog: 12},
			want: 90,
		},
		{
			name: "partial backlog",
			// backlog 4 -> 60 -> 6
			in:   domain.HandlerMetric{FRT: 120, ART: 1440, FCR: 100, SLA: 100, Volume: 100, Backlog: 4},
			want: 96,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Score(tc.in), 1e-9)
		})
	}
}

func TestScore_Bounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		m := domain.HandlerMetric{
			FRT:     rng.Float64() * 10000,
			ART:     rng.Float64() * 100000,
			FCR:     rng.Float64() * 100,
			SLA:     rng.Float64() * 100,
			Volume:  rng.Intn(500),
			Backlog: rng.Intn(50),
		}
		s := Score(m)
		if s < 0 || s > 100 {
			t.Fatalf("score %v out of range for %+v", s, m)
		}
	}

	extremes := []domain.HandlerMetric{
		{FRT: math.SmallestNonzeroFloat64, ART: math.SmallestNonzeroFloat64, FCR: 100, SLA: 100, Volume: math.MaxInt32},
		{FRT: math.MaxFloat64, ART: math.MaxFloat64, Backlog: math.MaxInt32},
		{FRT: math.Inf(1), ART: math.Inf(1)},
	}
	for _, m := range extremes {
		s := Score(m)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0)
	}
}

func TestNormalize_Factors(t *testing.T) {
	f := DefaultScoring().Normalize(domain.HandlerMetric{FRT: 480, ART: 720, FCR: 120, SLA: -5, Volume: 25, Backlog: 3})

	assert.InDelta(t, 25.0, f.FRT, 1e-9)
	assert.Equal(t, 100.0, f.ART)
	assert.Equal(t, 100.0, f.FCR)
	assert.Equal(t, 0.0, f.SLA)
	assert.InDelta(t, 25.0, f.Volume, 1e-9)
	assert.InDelta(t, 70.0, f.Backlog, 1e-9)
}

func TestScoring_Validate(t *testing.T) {
	assert.NoError(t, DefaultScoring().Validate())

	tests := []struct {
		name   string
		mutate func(*Scoring)
	}{
		{"zero frt target", func(s *Scoring) { s.FRTTargetMinutes = 0 }},
		{"negative backlog saturation", func(s *Scoring) { s.BacklogSaturation = -1 }},
		{"weights over one", func(s *Scoring) { s.Weights.FRT = 0.5 }},
		{"negative weight", func(s *Scoring) { s.Weights.FRT = -0.05; s.Weights.ART = 0.50 }},
		{"thresholds out of order", func(s *Scoring) { s.Thresholds.B = 80 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := DefaultScoring()
			tc.mutate(&s)
			err := s.Validate()
			assert.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidScoring))
		})
	}
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultScoring().Weights.Sum(), 1e-12)
}
