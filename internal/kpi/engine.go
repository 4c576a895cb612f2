package kpi

import (
	"golang.org/x/sync/errgroup"

	"github.com/fixora/kpiboard/internal/domain"
)

// Engine runs the full pipeline with a fixed configuration.
// It keeps no state between calls.
type Engine struct {
	scoring    Scoring
	classifier *BacklogClassifier
	workers    int
}

// Option configures an Engine
type Option func(*Engine)

// WithScoring replaces the default scoring model. Callers validate it first.
func WithScoring(s Scoring) Option {
	return func(e *Engine) { e.scoring = s }
}

// WithBacklogObserver reports every backlog decision to o
func WithBacklogObserver(o BacklogObserver) Option {
	return func(e *Engine) { e.classifier = NewBacklogClassifier(o) }
}

// WithWorkers fans handler groups out over up to n goroutines.
// n <= 1 keeps everything on the calling goroutine.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// NewEngine returns an Engine with the default scoring model
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		scoring:    DefaultScoring(),
		classifier: NewBacklogClassifier(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Scoring returns the engine's scoring model
func (e *Engine) Scoring() Scoring {
	return e.scoring
}

// Evaluation is the pipeline output plus how many records survived sanitizing
type Evaluation struct {
	Metrics  map[string]domain.HandlerMetric
	Accepted int
}

// Evaluate sanitizes, groups, measures, scores and ranks records
func (e *Engine) Evaluate(records []domain.RawRecord) Evaluation {
	clean := Sanitize(records)
	return Evaluation{
		Metrics:  e.ComputeGroups(GroupByHandler(clean)),
		Accepted: len(clean),
	}
}

// ComputeAll returns one scored, ranked metric per handler
func (e *Engine) ComputeAll(records []domain.RawRecord) map[string]domain.HandlerMetric {
	return e.Evaluate(records).Metrics
}

// ComputeGroups measures, scores and ranks already grouped records.
// Groups are independent, so with workers > 1 they are processed in
// parallel and merged by key.
func (e *Engine) ComputeGroups(groups map[string][]domain.Record) map[string]domain.HandlerMetric {
	out := make(map[string]domain.HandlerMetric, len(groups))
	if len(groups) == 0 {
		return out
	}

	if e.workers <= 1 {
		for handler, group := range groups {
			out[handler] = e.evaluateGroup(handler, group)
		}
		return out
	}

	handlers := make([]string, 0, len(groups))
	for handler := range groups {
		handlers = append(handlers, handler)
	}
	results := make([]domain.HandlerMetric, len(handlers))

	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, handler := range handlers {
		g.Go(func() error {
			results[i] = e.evaluateGroup(handler, groups[handler])
			return nil
		})
	}
	_ = g.Wait() // workers never fail

	for i, handler := range handlers {
		out[handler] = results[i]
	}
	return out
}

func (e *Engine) evaluateGroup(handler string, group []domain.Record) domain.HandlerMetric {
	c := calculator{classifier: e.classifier, slaHours: e.scoring.SLATargetHours}
	m := c.compute(group)
	m.Handler = handler
	m.Score = e.scoring.Score(m)
	m.Rank = e.scoring.Rank(m.Score)
	return m
}

// ComputeAllMetrics runs the pipeline with the default configuration
func ComputeAllMetrics(records []domain.RawRecord) map[string]domain.HandlerMetric {
	return NewEngine().ComputeAll(records)
}
