package logger

import (
	"context"

	"github.com/fixora/kpiboard/internal/domain"
	"github.com/fixora/kpiboard/internal/kpi"
)

// BacklogDecisionLogger writes every backlog classification at debug level
type BacklogDecisionLogger struct {
	logger Logger
}

// NewBacklogDecisionLogger adapts l to kpi.BacklogObserver
func NewBacklogDecisionLogger(l Logger) *BacklogDecisionLogger {
	return &BacklogDecisionLogger{logger: l.WithFields(map[string]interface{}{"component": "backlog_classifier"})}
}

// ObserveBacklog implements kpi.BacklogObserver
func (b *BacklogDecisionLogger) ObserveBacklog(rec domain.Record, backlog bool, reason kpi.BacklogReason) {
	fields := map[string]interface{}{
		"record_id": rec.ID,
		"handler":   rec.HandlerIdentity(),
		"status":    rec.Status,
		"open_time": rec.OpenTime,
		"backlog":   backlog,
		"reason":    string(reason),
	}
	if rec.CloseTime != nil {
		fields["close_time"] = *rec.CloseTime
	}
	b.logger.Debug(context.Background(), "backlog decision", fields)
}

var _ kpi.BacklogObserver = (*BacklogDecisionLogger)(nil)
