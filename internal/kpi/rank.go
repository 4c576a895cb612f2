package kpi

import "github.com/fixora/kpiboard/internal/domain"

// Rank grades a composite score. Each band includes its lower bound.
func (s Scoring) Rank(score float64) domain.Rank {
	switch {
	case score >= s.Thresholds.A:
		return domain.RankA
	case score >= s.Thresholds.B:
		return domain.RankB
	case score >= s.Thresholds.C:
		return domain.RankC
	default:
		return domain.RankD
	}
}

// Rank grades score with the default thresholds: A >= 75, B >= 60, C >= 45
func Rank(score float64) domain.Rank {
	return DefaultScoring().Rank(score)
}
