// Package kpi derives per-handler workload KPIs from raw ticket and
// incident records.
//
// The pipeline is a chain of pure functions:
//
//	Sanitize -> GroupByHandler -> ComputeMetrics -> Scoring.Score -> Scoring.Rank
//
// sanitize.go drops records with unparseable or inverted timestamps.
// backlog.go decides whether a record is unresolved or rolled over into a
// later month; an optional BacklogObserver sees every decision.
// metrics.go reduces one handler's records to FRT, ART, FCR, SLA, volume
// and backlog. score.go normalises those onto 0-100 and combines them with
// the configured weights; rank.go grades the composite A-D.
//
// engine.go wires the stages together. Engine holds configuration only, so
// one Engine may be shared by concurrent callers.
package kpi
