package kpi

import (
	"strings"
	"time"

	"github.com/fixora/kpiboard/internal/domain"
)

// timestampLayouts are tried in order. Layouts without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// ParseTimestamp parses the timestamp formats produced by the spreadsheet
// importer and the record store.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// present reports whether an optional timestamp carries any value at all.
// Empty text counts as absent, not as malformed.
func present(rt *domain.RawTime) bool {
	return rt != nil && (!rt.Value.IsZero() || strings.TrimSpace(rt.Text) != "")
}

func resolve(rt domain.RawTime) (time.Time, bool) {
	if !rt.Value.IsZero() {
		return rt.Value, true
	}
	return ParseTimestamp(rt.Text)
}

// resolveClose parses an optional close-type timestamp. ok is false when
// the value is present but malformed or earlier than open.
func resolveClose(rt *domain.RawTime, open time.Time) (*time.Time, bool) {
	if !present(rt) {
		return nil, true
	}
	t, ok := resolve(*rt)
	if !ok || t.Before(open) {
		return nil, false
	}
	return &t, true
}

// Sanitize validates raw records and casts their timestamps to instants.
// Records with an invalid open time, a malformed close-type time, or a
// close-type time before the open time are dropped. The input is not
// modified and the output never holds more records than the input.
func Sanitize(records []domain.RawRecord) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for _, raw := range records {
		if rec, ok := sanitizeOne(raw); ok {
			out = append(out, rec)
		}
	}
	return out
}

func sanitizeOne(raw domain.RawRecord) (domain.Record, bool) {
	open, ok := resolve(raw.OpenTime)
	if !ok {
		return domain.Record{}, false
	}
	closeTime, ok := resolveClose(raw.CloseTime, open)
	if !ok {
		return domain.Record{}, false
	}
	handlingClose, ok := resolveClose(raw.HandlingCloseTime, open)
	if !ok {
		return domain.Record{}, false
	}
	secondClose, ok := resolveClose(raw.SecondHandlingCloseTime, open)
	if !ok {
		return domain.Record{}, false
	}

	return domain.Record{
		ID:                      raw.ID,
		OpenTime:                open,
		CloseTime:               closeTime,
		HandlingCloseTime:       handlingClose,
		SecondHandlingCloseTime: secondClose,
		SecondStep:              raw.SecondStep,
		Handler:                 raw.Handler,
		Status:                  raw.Status,
		ResolutionDuration:      copyDuration(raw.ResolutionDuration),
		FirstResponseDuration:   copyDuration(raw.FirstResponseDuration),
	}, true
}

func copyDuration(d *domain.HandlingDuration) *domain.HandlingDuration {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
