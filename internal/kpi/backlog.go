package kpi

import (
	"strings"

	"github.com/fixora/kpiboard/internal/domain"
)

// BacklogReason names the rule that decided a classification
type BacklogReason string

const (
	ReasonOpenStatus     BacklogReason = "open_status"
	ReasonNoCloseTime    BacklogReason = "no_close_time"
	ReasonUnparseable    BacklogReason = "unparseable_timestamp"
	ReasonMonthRollover  BacklogReason = "month_rollover"
	ReasonClosedInPeriod BacklogReason = "closed_in_period"
)

// BacklogObserver receives every classification decision. Engine may call
// it from several goroutines at once.
type BacklogObserver interface {
	ObserveBacklog(rec domain.Record, backlog bool, reason BacklogReason)
}

// BacklogClassifier decides whether a sanitized record counts as backlog
type BacklogClassifier struct {
	observer BacklogObserver
}

// NewBacklogClassifier returns a classifier reporting to observer, which
// may be nil.
func NewBacklogClassifier(observer BacklogObserver) *BacklogClassifier {
	return &BacklogClassifier{observer: observer}
}

// IsBacklog classifies rec and notifies the observer
func (c *BacklogClassifier) IsBacklog(rec domain.Record) bool {
	backlog, reason := ClassifyBacklog(rec)
	if c != nil && c.observer != nil {
		c.observer.ObserveBacklog(rec, backlog, reason)
	}
	return backlog
}

// IsBacklog classifies rec without observation
func IsBacklog(rec domain.Record) bool {
	backlog, _ := ClassifyBacklog(rec)
	return backlog
}

// ClassifyBacklog applies the backlog rules in priority order; the first
// match wins:
//
//  1. status "open ticket" or "open" (trimmed, any case)
//  2. no close time
//  3. open or close time unusable
//  4. close month later than open month
//
// Anything else is closed within its reporting period. Months are compared
// in the open time's location.
func ClassifyBacklog(rec domain.Record) (bool, BacklogReason) {
	switch strings.ToLower(strings.TrimSpace(rec.Status)) {
	case "open ticket", "open":
		return true, ReasonOpenStatus
	}

	if rec.CloseTime == nil {
		return true, ReasonNoCloseTime
	}
	if rec.OpenTime.IsZero() || rec.CloseTime.IsZero() {
		return true, ReasonUnparseable
	}

	open := rec.OpenTime
	closed := rec.CloseTime.In(open.Location())
	if closed.Year() > open.Year() ||
		(closed.Year() == open.Year() && closed.Month() > open.Month()) {
		return true, ReasonMonthRollover
	}

	return false, ReasonClosedInPeriod
}
