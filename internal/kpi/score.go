package kpi

import (
	"fmt"
	"math"

	"github.com/fixora/kpiboard/internal/domain"
)

// Default scoring targets. These are tuning values, not derived from any
// labelled outcome.
const (
	DefaultFRTTargetMinutes  = 120.0
	DefaultARTTargetMinutes  = 1440.0
	DefaultSLATargetHours    = 24.0
	DefaultVolumeSaturation  = 100.0
	DefaultBacklogSaturation = 10.0
)

// Default composite weights. They must sum to 1.0.
const (
	DefaultWeightFRT     = 0.25
	DefaultWeightART     = 0.20
	DefaultWeightFCR     = 0.20
	DefaultWeightSLA     = 0.15
	DefaultWeightVolume  = 0.10
	DefaultWeightBacklog = 0.10
)

// Default rank thresholds, lower bound inclusive.
const (
	DefaultThresholdA = 75.0
	DefaultThresholdB = 60.0
	DefaultThresholdC = 45.0
)

const weightTolerance = 1e-6

// Weights are the composite score weights per metric
type Weights struct {
	FRT     float64 `yaml:"frt"`
	ART     float64 `yaml:"art"`
	FCR     float64 `yaml:"fcr"`
	SLA     float64 `yaml:"sla"`
	Volume  float64 `yaml:"vol"`
	Backlog float64 `yaml:"backlog"`
}

// Sum returns the total weight
func (w Weights) Sum() float64 {
	return w.FRT + w.ART + w.FCR + w.SLA + w.Volume + w.Backlog
}

// Thresholds are the minimum scores for ranks A, B and C
type Thresholds struct {
	A float64 `yaml:"a"`
	B float64 `yaml:"b"`
	C float64 `yaml:"c"`
}

// Scoring configures normalisation, weighting and ranking
type Scoring struct {
	FRTTargetMinutes  float64    `yaml:"frt_target_minutes"`
	ARTTargetMinutes  float64    `yaml:"art_target_minutes"`
	SLATargetHours    float64    `yaml:"sla_target_hours"`
	VolumeSaturation  float64    `yaml:"volume_saturation"`
	BacklogSaturation float64    `yaml:"backlog_saturation"`
	Weights           Weights    `yaml:"weights"`
	Thresholds        Thresholds `yaml:"thresholds"`
}

// DefaultScoring returns the stock scoring model
func DefaultScoring() Scoring {
	return Scoring{
		FRTTargetMinutes:  DefaultFRTTargetMinutes,
		ARTTargetMinutes:  DefaultARTTargetMinutes,
		SLATargetHours:    DefaultSLATargetHours,
		VolumeSaturation:  DefaultVolumeSaturation,
		BacklogSaturation: DefaultBacklogSaturation,
		Weights: Weights{
			FRT:     DefaultWeightFRT,
			ART:     DefaultWeightART,
			FCR:     DefaultWeightFCR,
			SLA:     DefaultWeightSLA,
			Volume:  DefaultWeightVolume,
			Backlog: DefaultWeightBacklog,
		},
		Thresholds: Thresholds{
			A: DefaultThresholdA,
			B: DefaultThresholdB,
			C: DefaultThresholdC,
		},
	}
}

// Validate rejects configurations that would break score boundedness or
// the rank partition.
func (s Scoring) Validate() error {
	targets := map[string]float64{
		"frt target":         s.FRTTargetMinutes,
		"art target":         s.ARTTargetMinutes,
		"sla target":         s.SLATargetHours,
		"volume saturation":  s.VolumeSaturation,
		"backlog saturation": s.BacklogSaturation,
	}
	for name, v := range targets {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be positive, got %v", domain.ErrInvalidScoring, name, v)
		}
	}

	w := s.Weights
	for _, v := range []float64{w.FRT, w.ART, w.FCR, w.SLA, w.Volume, w.Backlog} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: weights must be non-negative", domain.ErrInvalidScoring)
		}
	}
	if math.Abs(w.Sum()-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %.4f, want 1.0", domain.ErrInvalidScoring, w.Sum())
	}

	t := s.Thresholds
	if !(t.A > t.B && t.B > t.C) {
		return fmt.Errorf("%w: thresholds must descend A > B > C", domain.ErrInvalidScoring)
	}
	return nil
}

// Factors are the per-metric normalised values (each 0-100) behind a score
type Factors struct {
	FRT     float64 `json:"frt"`
	ART     float64 `json:"art"`
	FCR     float64 `json:"fcr"`
	SLA     float64 `json:"sla"`
	Volume  float64 `json:"vol"`
	Backlog float64 `json:"backlog"`
}

// Normalize maps each raw metric onto 0-100, higher is better.
//
//	frt, art:  0 or less -> 100, else target/value*100
//	fcr, sla:  already percentages
//	vol:       vol/saturation*100
//	backlog:   0 -> 100, else 100 - backlog/saturation*100
//
// Every factor is clamped to [0, 100].
func (s Scoring) Normalize(m domain.HandlerMetric) Factors {
	f := Factors{
		FRT:     100,
		ART:     100,
		FCR:     clamp(m.FCR),
		SLA:     clamp(m.SLA),
		Volume:  clamp(float64(m.Volume) / s.VolumeSaturation * 100),
		Backlog: 100,
	}
	if m.FRT > 0 {
		f.FRT = clamp(s.FRTTargetMinutes / m.FRT * 100)
	}
	if m.ART > 0 {
		f.ART = clamp(s.ARTTargetMinutes / m.ART * 100)
	}
	if m.Backlog != 0 {
		f.Backlog = clamp(100 - float64(m.Backlog)/s.BacklogSaturation*100)
	}
	return f
}

// Score returns the weighted composite of the normalised metrics, 0-100
func (s Scoring) Score(m domain.HandlerMetric) float64 {
	f := s.Normalize(m)
	w := s.Weights
	return clamp(f.FRT*w.FRT +
		f.ART*w.ART +
		f.FCR*w.FCR +
		f.SLA*w.SLA +
		f.Volume*w.Volume +
		f.Backlog*w.Backlog)
}

// Score scores m with the default model
func Score(m domain.HandlerMetric) float64 {
	return DefaultScoring().Score(m)
}

// clamp restricts v to [0, 100]; NaN maps to 0
func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
