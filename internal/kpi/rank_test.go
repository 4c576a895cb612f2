package kpi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixora/kpiboard/internal/domain"
)

func TestRank_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  domain.Rank
	}{
		{100, domain.RankA},
		{75, domain.RankA},
		{74.9, domain.RankB},
		{60, domain.RankB},
		{59.999, domain.RankC},
		{45, domain.RankC},
		{44.9, domain.RankD},
		{0, domain.RankD},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, Rank(tc.score), "score %v", tc.score)
	}
}

func TestRank_CustomThresholds(t *testing.T) {
	s := DefaultScoring()
	s.Thresholds = Thresholds{A: 60, B: 50, C: 40}

	assert.Equal(t, domain.RankA, s.Rank(60))
	assert.Equal(t, domain.RankB, s.Rank(55))
	assert.Equal(t, domain.RankC, s.Rank(40))
	assert.Equal(t, domain.RankD, s.Rank(39.9))
}
