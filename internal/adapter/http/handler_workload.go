package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fixora/kpiboard/internal/domain"
	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/infra/response"
	"github.com/fixora/kpiboard/internal/usecase"
	"github.com/fixora/kpiboard/pkg/apperror"
)

const dateLayout = "2006-01-02"

// WorkloadUseCase defines the behavior the handler depends on
type WorkloadUseCase interface {
	ScoreRecords(ctx context.Context, kind domain.HandlerKind, records []domain.RawRecord) (*usecase.Report, error)
	LoadReport(ctx context.Context, filter domain.RecordFilter) (*usecase.Report, error)
}

// HandlerMetricDTO is a handler metric with display-ready durations
type HandlerMetricDTO struct {
	domain.HandlerMetric
	FRTDisplay string `json:"frt_display"`
	ARTDisplay string `json:"art_display"`
}

// ReportDTO is the JSON shape of a workload report
type ReportDTO struct {
	Kind        domain.HandlerKind `json:"kind"`
	GeneratedAt time.Time          `json:"generated_at"`
	Handlers    []HandlerMetricDTO `json:"handlers"`
	Summary     usecase.Summary    `json:"summary"`
}

// NewReportDTO converts a report for the API
func NewReportDTO(r *usecase.Report) ReportDTO {
	handlers := make([]HandlerMetricDTO, 0, len(r.Handlers))
	for _, m := range r.Handlers {
		handlers = append(handlers, HandlerMetricDTO{
			HandlerMetric: m,
			FRTDisplay:    domain.FormatMinutes(m.FRT),
			ARTDisplay:    domain.FormatMinutes(m.ART),
		})
	}
	return ReportDTO{
		Kind:        r.Kind,
		GeneratedAt: r.GeneratedAt,
		Handlers:    handlers,
		Summary:     r.Summary,
	}
}

// WorkloadHandler handles HTTP requests for workload scoring
type WorkloadHandler struct {
	workloadUseCase WorkloadUseCase
	logger          logger.Logger
	maxBodyBytes    int64
}

// NewWorkloadHandler creates a new workload handler
func NewWorkloadHandler(workloadUseCase WorkloadUseCase, log logger.Logger, maxBodyBytes int64) *WorkloadHandler {
	return &WorkloadHandler{
		workloadUseCase: workloadUseCase,
		logger:          log,
		maxBodyBytes:    maxBodyBytes,
	}
}

// RegisterRoutes registers workload routes on the /api/v1 router. OPTIONS
// is matched so preflight requests reach the CORS middleware.
func (h *WorkloadHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/workload/{kind}/score", h.ScoreRecords).Methods("POST", "OPTIONS")
	router.HandleFunc("/workload/{kind}", h.GetReport).Methods("GET", "OPTIONS")
}

// ScoreRecords scores the records in the request body
func (h *WorkloadHandler) ScoreRecords(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseHandlerKind(mux.Vars(r)["kind"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if h.maxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}

	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.ErrorWithCode(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return
		}
		h.writeError(w, r, apperror.NewBadRequest("Invalid request body"))
		return
	}

	records, err := toRawRecords(req.Records)
	if err != nil {
		h.writeError(w, r, apperror.NewBadRequest(err.Error()))
		return
	}

	report, err := h.workloadUseCase.ScoreRecords(r.Context(), kind, records)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Workload scored", NewReportDTO(report))
}

// GetReport scores the stored records of a kind, optionally within a date range
func (h *WorkloadHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseHandlerKind(mux.Vars(r)["kind"])
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	filter := domain.RecordFilter{Kind: kind}
	query := r.URL.Query()

	if v := query.Get("from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			h.writeError(w, r, apperror.NewBadRequest(fmt.Sprintf("from must be %s", dateLayout)))
			return
		}
		filter.From = &from
	}

	if v := query.Get("to"); v != "" {
		day, err := time.Parse(dateLayout, v)
		if err != nil {
			h.writeError(w, r, apperror.NewBadRequest(fmt.Sprintf("to must be %s", dateLayout)))
			return
		}
		// inclusive of the whole day
		to := day.Add(24*time.Hour - time.Nanosecond)
		filter.To = &to
	}

	if err := filter.Validate(); err != nil {
		h.writeError(w, r, err)
		return
	}

	report, err := h.workloadUseCase.LoadReport(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Success(w, http.StatusOK, "Workload report", NewReportDTO(report))
}

func (h *WorkloadHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.MapError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "Workload request failed", err, map[string]interface{}{
			"path":   r.URL.Path,
			"method": r.Method,
		})
	}
	response.ErrorWithCode(w, appErr.Status, appErr.Code, appErr.Message)
}
