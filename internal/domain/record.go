package domain

import (
	"strings"
	"time"
)

// UnknownHandler is the bucket for records without a handler identity
const UnknownHandler = "Unknown"

// HandlerKind selects which collection a workload view is computed over
type HandlerKind string

const (
	HandlerKindAgent            HandlerKind = "agent"
	HandlerKindTechnicalSupport HandlerKind = "technical-support"
)

// ParseHandlerKind validates a kind coming from a URL or flag
func ParseHandlerKind(s string) (HandlerKind, error) {
	switch HandlerKind(strings.ToLower(strings.TrimSpace(s))) {
	case HandlerKindAgent:
		return HandlerKindAgent, nil
	case HandlerKindTechnicalSupport:
		return HandlerKindTechnicalSupport, nil
	default:
		return "", ErrInvalidHandlerKind
	}
}

// RawTime is a timestamp as it arrived from an importer: either an
// already parsed instant or free text that still has to be parsed.
// The zero value means "no usable value".
type RawTime struct {
	Value time.Time
	Text  string
}

// At wraps a native instant
func At(t time.Time) *RawTime {
	return &RawTime{Value: t}
}

// Text wraps an unparsed timestamp string
func Text(s string) *RawTime {
	return &RawTime{Text: s}
}

// HandlingDuration is a duration precomputed upstream, in hours.
type HandlingDuration struct {
	Hours     float64 `json:"raw_hours"`
	Formatted string  `json:"formatted,omitempty"`
}

// Hours wraps an hours value as a present duration
func Hours(h float64) *HandlingDuration {
	return &HandlingDuration{Hours: h}
}

// RawRecord is one ticket or incident as supplied by the importer or the
// record store, before validation. Optional fields are pointers so that
// "absent" and "present with zero value" stay distinct.
type RawRecord struct {
	ID                      string
	OpenTime                RawTime
	CloseTime               *RawTime
	HandlingCloseTime       *RawTime
	SecondHandlingCloseTime *RawTime
	SecondStep              string
	Handler                 string
	Status                  string
	ResolutionDuration      *HandlingDuration
	FirstResponseDuration   *HandlingDuration
}

// Record is a sanitized RawRecord: every present timestamp is a valid
// instant and no close-type timestamp precedes OpenTime.
type Record struct {
	ID                      string
	OpenTime                time.Time
	CloseTime               *time.Time
	HandlingCloseTime       *time.Time
	SecondHandlingCloseTime *time.Time
	SecondStep              string
	Handler                 string
	Status                  string
	ResolutionDuration      *HandlingDuration
	FirstResponseDuration   *HandlingDuration
}

// HandlerIdentity returns the grouping key of the record
func (r Record) HandlerIdentity() string {
	if h := strings.TrimSpace(r.Handler); h != "" {
		return h
	}
	return UnknownHandler
}

// HasSecondStep reports whether a second handling step was recorded
func (r Record) HasSecondStep() bool {
	return strings.TrimSpace(r.SecondStep) != ""
}

// RecordFilter narrows the records loaded from a store
type RecordFilter struct {
	Kind HandlerKind `json:"kind"`
	From *time.Time  `json:"from,omitempty"`
	To   *time.Time  `json:"to,omitempty"`
}

// Validate checks the filter before it reaches a repository
func (f RecordFilter) Validate() error {
	if _, err := ParseHandlerKind(string(f.Kind)); err != nil {
		return err
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return ErrInvalidDateRange
	}
	return nil
}

// NormalizeStatus folds the spreadsheet status spellings onto "Open" and
// "Closed". Other labels are returned trimmed.
func NormalizeStatus(status string) string {
	s := strings.TrimSpace(status)
	switch strings.ToLower(s) {
	case "close ticket", "closed":
		return "Closed"
	case "open ticket", "open":
		return "Open"
	}
	return s
}
