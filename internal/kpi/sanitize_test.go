package kpi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixora/kpiboard/internal/domain"
)

func fixtureRecords() []domain.RawRecord {
	return []domain.RawRecord{
		{ID: "1", OpenTime: *domain.Text("2024-01-01T08:00:00Z"), CloseTime: domain.Text("2024-01-01T09:00:00Z"), HandlingCloseTime: domain.Text("2024-01-01T08:10:00Z"), Handler: "Alice"},
		{ID: "2", OpenTime: *domain.Text("2024-01-01T10:00:00Z"), CloseTime: domain.Text("2024-01-01T12:00:00Z"), HandlingCloseTime: domain.Text("2024-01-01T10:20:00Z"), Handler: "Alice", SecondStep: "step2"},
		{ID: "3", OpenTime: *domain.Text("2024-01-02T08:00:00Z"), CloseTime: domain.Text("2024-01-02T09:00:00Z"), HandlingCloseTime: domain.Text("2024-01-02T08:05:00Z"), Handler: "Bob"},
		{ID: "4", OpenTime: *domain.Text("invalid"), CloseTime: domain.Text("2024-01-02T09:00:00Z"), Handler: "Bob"},
		{ID: "5", OpenTime: *domain.Text("2024-01-03T08:00:00Z"), CloseTime: domain.Text("2024-01-03T07:00:00Z"), Handler: "Bob"},
		{ID: "6", OpenTime: *domain.Text("2024-01-03T08:00:00Z"), Handler: "Bob"},
	}
}

func ids(records []domain.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestSanitize_DropsInvalidAndInverted(t *testing.T) {
	clean := Sanitize(fixtureRecords())

	assert.Equal(t, []string{"1", "2", "3", "6"}, ids(clean))
}

func TestSanitize_CastsDates(t *testing.T) {
	clean := Sanitize(fixtureRecords())
	require.Len(t, clean, 4)

	first := clean[0]
	assert.True(t, first.OpenTime.Equal(time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)))
	require.NotNil(t, first.CloseTime)
	assert.True(t, first.CloseTime.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	require.NotNil(t, first.HandlingCloseTime)
	assert.Nil(t, first.SecondHandlingCloseTime)

	assert.Nil(t, clean[3].CloseTime, "open ticket keeps an absent close time")
}

func TestSanitize_Rules(t *testing.T) {
	open := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		rec  domain.RawRecord
		keep bool
	}{
		{"native open time", domain.RawRecord{OpenTime: *domain.At(open)}, true},
		{"empty open time", domain.RawRecord{}, false},
		{"blank open text", domain.RawRecord{OpenTime: *domain.Text("   ")}, false},
		{"spreadsheet layout", domain.RawRecord{OpenTime: *domain.Text("10/03/2024 09:00")}, true},
		{"close equal to open", domain.RawRecord{OpenTime: *domain.At(open), CloseTime: domain.At(open)}, true},
		{"empty close text is absent", domain.RawRecord{OpenTime: *domain.At(open), CloseTime: domain.Text("")}, true},
		{"malformed handling close", domain.RawRecord{OpenTime: *domain.At(open), HandlingCloseTime: domain.Text("yesterday")}, false},
		{"handling close before open", domain.RawRecord{OpenTime: *domain.At(open), HandlingCloseTime: domain.At(open.Add(-time.Minute))}, false},
		{"second handling close before open", domain.RawRecord{OpenTime: *domain.At(open), SecondHandlingCloseTime: domain.At(open.Add(-time.Hour))}, false},
		{"second handling close after open", domain.RawRecord{OpenTime: *domain.At(open), SecondHandlingCloseTime: domain.Text("2024-03-10 10:00:00")}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize([]domain.RawRecord{tc.rec})
			assert.Equal(t, tc.keep, len(got) == 1)
		})
	}
}

func TestSanitize_NeverGrowsAndDoesNotMutate(t *testing.T) {
	raw := fixtureRecords()
	raw[0].ResolutionDuration = domain.Hours(1)
	before := fixtureRecords()
	before[0].ResolutionDuration = domain.Hours(1)

	clean := Sanitize(raw)
	assert.LessOrEqual(t, len(clean), len(raw))

	clean[0].ResolutionDuration.Hours = 99
	assert.Equal(t, before, raw)
}

func TestSanitize_Empty(t *testing.T) {
	assert.Empty(t, Sanitize(nil))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2024-01-31T23:30:00+07:00", true, time.Date(2024, 1, 31, 16, 30, 0, 0, time.UTC)},
		{"2024-01-31 23:30:00", true, time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)},
		{"2024-01-31", true, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"31/01/2024 23:30:00", true, time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)},
		{"", false, time.Time{}},
		{"not a date", false, time.Time{}},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParseTimestamp(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.True(t, got.Equal(tc.want), "got %s", got)
			}
		})
	}
}
