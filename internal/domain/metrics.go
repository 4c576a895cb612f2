package domain

import (
	"fmt"
	"math"
)

// Rank is the ordinal grade assigned to a handler's composite score
type Rank string

const (
	RankA Rank = "A"
	RankB Rank = "B"
	RankC Rank = "C"
	RankD Rank = "D"
)

// Ranks lists every grade from best to worst
var Ranks = []Rank{RankA, RankB, RankC, RankD}

// HandlerMetric holds the workload KPIs of one handler
type HandlerMetric struct {
	Handler string  `json:"handler"`
	FRT     float64 `json:"frt"`     // mean first response, minutes
	ART     float64 `json:"art"`     // mean resolution, minutes
	FCR     float64 `json:"fcr"`     // percent
	SLA     float64 `json:"sla"`     // percent
	Volume  int     `json:"vol"`
	Backlog int     `json:"backlog"`
	Score   float64 `json:"score"`
	Rank    Rank    `json:"rank"`
}

// FormatMinutes renders minutes as "Hh Mm"
func FormatMinutes(minutes float64) string {
	if minutes <= 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return "0h 0m"
	}
	total := int64(math.Round(minutes))
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}

// Metric errors
var (
	ErrInvalidHandlerKind = NewDomainError("invalid handler kind")
	ErrInvalidDateRange   = NewDomainError("invalid date range")
	ErrInvalidScoring     = NewDomainError("invalid scoring configuration")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}
