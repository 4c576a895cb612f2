package kpi

import (
	"math"

	"github.com/fixora/kpiboard/internal/domain"
)

// MaxHandlingHours bounds a usable precomputed duration. Longer or
// non-finite values count as absent, which keeps minute sums finite.
const MaxHandlingHours = 24 * 365 * 100

// calculator reduces one handler's records to raw metrics
type calculator struct {
	classifier *BacklogClassifier
	slaHours   float64
}

// ComputeMetrics reduces one handler's records to FRT, ART, FCR, SLA,
// volume and backlog using the default SLA target. Score and Rank are left
// zero; Engine fills them in.
func ComputeMetrics(group []domain.Record) domain.HandlerMetric {
	c := calculator{slaHours: DefaultSLATargetHours}
	return c.compute(group)
}

// compute accumulates FRT and ART only over records whose precomputed hours
// are positive. FCR and SLA use the whole group as denominator.
func (c calculator) compute(group []domain.Record) domain.HandlerMetric {
	m := domain.HandlerMetric{
		Handler: domain.UnknownHandler,
		Volume:  len(group),
	}
	if len(group) == 0 {
		return m
	}
	m.Handler = group[0].HandlerIdentity()

	var (
		frtSum, artSum     float64
		frtCount, artCount int
		fcrCount, slaCount int
	)
	for _, rec := range group {
		if c.classifier.IsBacklog(rec) {
			m.Backlog++
		}

		if h := positiveHours(rec.FirstResponseDuration); h > 0 {
			frtSum += h * 60
			frtCount++
		}

		resolution := positiveHours(rec.ResolutionDuration)
		if resolution > 0 {
			artSum += resolution * 60
			artCount++
			if resolution <= c.slaHours {
				slaCount++
			}
		}

		if !rec.HasSecondStep() {
			fcrCount++
		}
	}

	if frtCount > 0 {
		m.FRT = frtSum / float64(frtCount)
	}
	if artCount > 0 {
		m.ART = artSum / float64(artCount)
	}
	vol := float64(m.Volume)
	m.FCR = float64(fcrCount) / vol * 100
	m.SLA = float64(slaCount) / vol * 100
	return m
}

// positiveHours returns the duration's hours, or 0 when absent, not
// positive, or beyond MaxHandlingHours
func positiveHours(d *domain.HandlingDuration) float64 {
	if d == nil || !(d.Hours > 0) || math.IsInf(d.Hours, 0) || d.Hours > MaxHandlingHours {
		return 0
	}
	return d.Hours
}
