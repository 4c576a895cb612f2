package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/fixora/kpiboard/internal/domain"
	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/kpi"
	"github.com/fixora/kpiboard/internal/ports"
)

// Summary aggregates a report's inputs and outcomes
type Summary struct {
	Records    int                 `json:"records"`
	Accepted   int                 `json:"accepted"`
	Dropped    int                 `json:"dropped"`
	Handlers   int                 `json:"handlers"`
	Backlog    int                 `json:"backlog"`
	RankCounts map[domain.Rank]int `json:"rank_counts"`
}

// Report is the scored workload of one handler kind
type Report struct {
	Kind        domain.HandlerKind     `json:"kind"`
	GeneratedAt time.Time              `json:"generated_at"`
	Handlers    []domain.HandlerMetric `json:"handlers"`
	Summary     Summary                `json:"summary"`
}

// WorkloadUseCase scores handler workloads from submitted or stored records
type WorkloadUseCase struct {
	repo     ports.RecordRepository
	logger   logger.Logger
	observer kpi.BacklogObserver
	workers  int
	engine   atomic.Pointer[kpi.Engine]
	now      func() time.Time
}

// WorkloadOption configures a WorkloadUseCase
type WorkloadOption func(*WorkloadUseCase)

// WithBacklogObserver traces every backlog decision
func WithBacklogObserver(o kpi.BacklogObserver) WorkloadOption {
	return func(uc *WorkloadUseCase) { uc.observer = o }
}

// WithWorkers sets the per-handler fan-out of the engine
func WithWorkers(n int) WorkloadOption {
	return func(uc *WorkloadUseCase) { uc.workers = n }
}

// WithClock overrides the report timestamp source
func WithClock(now func() time.Time) WorkloadOption {
	return func(uc *WorkloadUseCase) { uc.now = now }
}

// NewWorkloadUseCase creates a new workload use case. repo may be nil when
// only submitted records are scored.
func NewWorkloadUseCase(repo ports.RecordRepository, log logger.Logger, scoring kpi.Scoring, opts ...WorkloadOption) (*WorkloadUseCase, error) {
	uc := &WorkloadUseCase{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}

	if err := uc.SetScoring(scoring); err != nil {
		return nil, err
	}
	return uc, nil
}

// SetScoring swaps the scoring model used by later requests. Requests
// already running keep the model they started with.
func (uc *WorkloadUseCase) SetScoring(scoring kpi.Scoring) error {
	if err := scoring.Validate(); err != nil {
		return err
	}

	engineOpts := []kpi.Option{kpi.WithScoring(scoring), kpi.WithWorkers(uc.workers)}
	if uc.observer != nil {
		engineOpts = append(engineOpts, kpi.WithBacklogObserver(uc.observer))
	}
	uc.engine.Store(kpi.NewEngine(engineOpts...))
	return nil
}

// Scoring returns the active scoring model
func (uc *WorkloadUseCase) Scoring() kpi.Scoring {
	return uc.engine.Load().Scoring()
}

// ScoreRecords runs the engine over records submitted by a client
func (uc *WorkloadUseCase) ScoreRecords(ctx context.Context, kind domain.HandlerKind, records []domain.RawRecord) (*Report, error) {
	if _, err := domain.ParseHandlerKind(string(kind)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := uc.now()
	eval := uc.engine.Load().Evaluate(records)
	report := buildReport(kind, start, len(records), eval)

	logger.LogPerformance(ctx, uc.logger, "score_workload", time.Since(start), map[string]interface{}{
		"kind":     string(kind),
		"records":  report.Summary.Records,
		"accepted": report.Summary.Accepted,
		"handlers": report.Summary.Handlers,
	})

	if report.Summary.Dropped > 0 {
		uc.logger.Warn(ctx, "Records dropped during sanitizing", map[string]interface{}{
			"kind":    string(kind),
			"dropped": report.Summary.Dropped,
		})
	}

	return report, nil
}

// LoadReport scores the stored records matching filter
func (uc *WorkloadUseCase) LoadReport(ctx context.Context, filter domain.RecordFilter) (*Report, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if uc.repo == nil {
		return nil, fmt.Errorf("no record repository configured")
	}

	records, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s records: %w", filter.Kind, err)
	}

	return uc.ScoreRecords(ctx, filter.Kind, records)
}

func buildReport(kind domain.HandlerKind, at time.Time, total int, eval kpi.Evaluation) *Report {
	handlers := make([]domain.HandlerMetric, 0, len(eval.Metrics))
	summary := Summary{
		Records:    total,
		Accepted:   eval.Accepted,
		Dropped:    total - eval.Accepted,
		Handlers:   len(eval.Metrics),
		RankCounts: make(map[domain.Rank]int, len(domain.Ranks)),
	}
	for _, r := range domain.Ranks {
		summary.RankCounts[r] = 0
	}

	for _, m := range eval.Metrics {
		handlers = append(handlers, m)
		summary.Backlog += m.Backlog
		summary.RankCounts[m.Rank]++
	}

	sort.Slice(handlers, func(i, j int) bool {
		if handlers[i].Score != handlers[j].Score {
			return handlers[i].Score > handlers[j].Score
		}
		return handlers[i].Handler < handlers[j].Handler
	})

	return &Report{
		Kind:        kind,
		GeneratedAt: at,
		Handlers:    handlers,
		Summary:     summary,
	}
}
