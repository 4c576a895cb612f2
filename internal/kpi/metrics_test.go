package kpi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fixora/kpiboard/internal/domain"
)

func closedRecord(id, handler string) domain.Record {
	return domain.Record{
		ID:        id,
		Handler:   handler,
		OpenTime:  day(2024, 1, 1, 8),
		CloseTime: ptr(day(2024, 1, 1, 9)),
		Status:    "Closed",
	}
}

func TestComputeMetrics_FCR(t *testing.T) {
	a := closedRecord("1", "Alice")
	b := closedRecord("2", "Alice")
	b.SecondStep = "step2"

	m := ComputeMetrics([]domain.Record{a, b})

	assert.Equal(t, "Alice", m.Handler)
	assert.Equal(t, 2, m.Volume)
	assert.InDelta(t, 50.0, m.FCR, 0.1)
}

func TestComputeMetrics_SLA(t *testing.T) {
	group := make([]domain.Record, 0, 3)
	for i, h := range []float64{0.5, 12, 24} {
		r := closedRecord(string(rune('a'+i)), "Bob")
		r.ResolutionDuration = domain.Hours(h)
		group = append(group, r)
	}

	m := ComputeMetrics(group)
	assert.Equal(t, 100.0, m.SLA)

	late := closedRecord("d", "Bob")
	late.ResolutionDuration = domain.Hours(24.01)
	missing := closedRecord("e", "Bob")

	m = ComputeMetrics(append(group, late, missing))
	assert.InDelta(t, 60.0, m.SLA, 1e-9, "denominator is the whole group")
}

func TestComputeMetrics_AveragesSkipNonPositive(t *testing.T) {
	r1 := closedRecord("1", "Carol")
	r1.FirstResponseDuration = domain.Hours(0.5)
	r1.ResolutionDuration = domain.Hours(2)
	r2 := closedRecord("2", "Carol")
	r2.FirstResponseDuration = domain.Hours(1.5)
	r2.ResolutionDuration = domain.Hours(0)
	r3 := closedRecord("3", "Carol")
	r3.FirstResponseDuration = domain.Hours(-3)
	r4 := closedRecord("4", "Carol")

	m := ComputeMetrics([]domain.Record{r1, r2, r3, r4})

	assert.InDelta(t, 60.0, m.FRT, 1e-9)
	assert.InDelta(t, 120.0, m.ART, 1e-9)
	assert.Equal(t, 4, m.Volume)
}

func TestComputeMetrics_NoDurations(t *testing.T) {
	m := ComputeMetrics([]domain.Record{closedRecord("1", "Dan")})

	assert.Zero(t, m.FRT)
	assert.Zero(t, m.ART)
	assert.Zero(t, m.SLA)
	assert.Equal(t, 100.0, m.FCR)
}

func TestComputeMetrics_Backlog(t *testing.T) {
	open := domain.Record{ID: "1", Handler: "Eve", OpenTime: day(2024, 1, 3, 8), Status: "Open Ticket"}
	rolled := domain.Record{ID: "2", Handler: "Eve", OpenTime: day(2024, 1, 30, 8), CloseTime: ptr(day(2024, 2, 2, 8))}
	done := closedRecord("3", "Eve")

	m := ComputeMetrics([]domain.Record{open, rolled, done})

	assert.Equal(t, 3, m.Volume, "volume includes backlog")
	assert.Equal(t, 2, m.Backlog)
}

func TestComputeMetrics_EmptyGroup(t *testing.T) {
	m := ComputeMetrics(nil)

	assert.Equal(t, domain.UnknownHandler, m.Handler)
	assert.Zero(t, m.Volume)
	assert.Zero(t, m.FCR)
	assert.Zero(t, m.SLA)
	assert.Zero(t, m.FRT)
	assert.Zero(t, m.ART)
}

func TestComputeMetrics_UsesConfiguredSLA(t *testing.T) {
	r := closedRecord("1", "Fay")
	r.ResolutionDuration = domain.Hours(6)

	c := calculator{slaHours: 4}
	assert.Zero(t, c.compute([]domain.Record{r}).SLA)

	c.slaHours = 8
	assert.Equal(t, 100.0, c.compute([]domain.Record{r}).SLA)
}

func TestComputeMetrics_OutOfRangeDurationsAreAbsent(t *testing.T) {
	ok := closedRecord("1", "Gus")
	ok.FirstResponseDuration = domain.Hours(1)
	ok.ResolutionDuration = domain.Hours(2)

	huge := closedRecord("2", "Gus")
	huge.FirstResponseDuration = domain.Hours(math.MaxFloat64)
	huge.ResolutionDuration = domain.Hours(1e308)

	inf := closedRecord("3", "Gus")
	inf.ResolutionDuration = domain.Hours(math.Inf(1))
	nan := closedRecord("4", "Gus")
	nan.ResolutionDuration = domain.Hours(math.NaN())

	m := ComputeMetrics([]domain.Record{ok, huge, inf, nan})

	assert.InDelta(t, 60.0, m.FRT, 1e-9)
	assert.InDelta(t, 120.0, m.ART, 1e-9)
	assert.InDelta(t, 25.0, m.SLA, 1e-9)
	assert.False(t, math.IsInf(NewEngine().scoring.Score(m), 0))
}

func TestComputeMetrics_MaxHandlingHoursIsUsable(t *testing.T) {
	r := closedRecord("1", "Hal")
	r.ResolutionDuration = domain.Hours(MaxHandlingHours)

	m := ComputeMetrics([]domain.Record{r, r})
	assert.InDelta(t, MaxHandlingHours*60.0, m.ART, 1e-3)
}
