package kpi

import "github.com/fixora/kpiboard/internal/domain"

// GroupByHandler partitions records by handler identity. Records without a
// handler land in domain.UnknownHandler. Each bucket keeps input order.
func GroupByHandler(records []domain.Record) map[string][]domain.Record {
	groups := make(map[string][]domain.Record)
	for _, rec := range records {
		key := rec.HandlerIdentity()
		groups[key] = append(groups[key], rec)
	}
	return groups
}
