package usecase

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fixora/kpiboard/internal/domain"
	"github.com/fixora/kpiboard/internal/infra/logger"
	"github.com/fixora/kpiboard/internal/kpi"
)

// MockRecordRepository is a mock implementation of RecordRepository
type MockRecordRepository struct {
	mock.Mock
}

func (m *MockRecordRepository) List(ctx context.Context, filter domain.RecordFilter) ([]domain.RawRecord, error) {
	args := m.Called(ctx, filter)
	records, _ := args.Get(0).([]domain.RawRecord)
	return records, args.Error(1)
}

var fixedNow = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func newTestUseCase(t *testing.T, repo *MockRecordRepository, opts ...WorkloadOption) *WorkloadUseCase {
	t.Helper()
	log := logger.NewStructuredLogger(logger.LoggerConfig{Level: "error", Format: "json", Output: io.Discard})
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))

	var uc *WorkloadUseCase
	var err error
	if repo == nil {
		uc, err = NewWorkloadUseCase(nil, log, kpi.DefaultScoring(), opts...)
	} else {
		uc, err = NewWorkloadUseCase(repo, log, kpi.DefaultScoring(), opts...)
	}
	require.NoError(t, err)
	return uc
}

func at(day, hour int) *domain.RawTime {
	return domain.At(time.Date(2024, 1, day, hour, 0, 0, 0, time.UTC))
}

func sampleRecords() []domain.RawRecord {
	return []domain.RawRecord{
		{ID: "1", OpenTime: *at(2, 8), CloseTime: at(2, 10), Handler: "Alice", Status: "Closed",
			ResolutionDuration: domain.Hours(2), FirstResponseDuration: domain.Hours(0.5)},
		{ID: "2", OpenTime: *at(3, 8), CloseTime: at(3, 9), Handler: "Alice", Status: "Closed",
			ResolutionDuration: domain.Hours(1), FirstResponseDuration: domain.Hours(0.25)},
		{ID: "3", OpenTime: *at(4, 8), Handler: "Bob", Status: "Open"},
		{ID: "4", OpenTime: *at(5, 8), CloseTime: at(4, 8), Handler: "Bob"}, // closes before open
	}
}

func TestWorkloadUseCase_ScoreRecords(t *testing.T) {
	uc := newTestUseCase(t, nil)

	report, err := uc.ScoreRecords(context.Background(), domain.HandlerKindAgent, sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, domain.HandlerKindAgent, report.Kind)
	assert.Equal(t, fixedNow, report.GeneratedAt)
	require.Len(t, report.Handlers, 2)
	assert.Equal(t, "Alice", report.Handlers[0].Handler)
	assert.Equal(t, "Bob", report.Handlers[1].Handler)
	assert.GreaterOrEqual(t, report.Handlers[0].Score, report.Handlers[1].Score)

	assert.Equal(t, Summary{
		Records:  4,
		Accepted: 3,
		Dropped:  1,
		Handlers: 2,
		Backlog:  1,
		RankCounts: map[domain.Rank]int{
			domain.RankA: 1,
			domain.RankB: 1,
			domain.RankC: 0,
			domain.RankD: 0,
		},
	}, report.Summary)
	assert.Equal(t, domain.RankA, report.Handlers[0].Rank)
	assert.Equal(t, domain.RankB, report.Handlers[1].Rank)
}

func TestWorkloadUseCase_ScoreRecords_Empty(t *testing.T) {
	uc := newTestUseCase(t, nil)

	report, err := uc.ScoreRecords(context.Background(), domain.HandlerKindTechnicalSupport, nil)
	require.NoError(t, err)

	assert.Empty(t, report.Handlers)
	assert.NotNil(t, report.Handlers)
	assert.Equal(t, 0, report.Summary.Records)
	assert.Len(t, report.Summary.RankCounts, len(domain.Ranks))
}

func TestWorkloadUseCase_ScoreRecords_TieBreaksByHandler(t *testing.T) {
	uc := newTestUseCase(t, nil)

	records := []domain.RawRecord{
		{ID: "1", OpenTime: *at(2, 8), Handler: "Zed", Status: "Open"},
		{ID: "2", OpenTime: *at(2, 8), Handler: "Amy", Status: "Open"},
	}
	report, err := uc.ScoreRecords(context.Background(), domain.HandlerKindAgent, records)
	require.NoError(t, err)

	require.Len(t, report.Handlers, 2)
	assert.Equal(t, report.Handlers[0].Score, report.Handlers[1].Score)
	assert.Equal(t, "Amy", report.Handlers[0].Handler)
}

func TestWorkloadUseCase_ScoreRecords_InvalidKind(t *testing.T) {
	uc := newTestUseCase(t, nil)

	_, err := uc.ScoreRecords(context.Background(), "nope", sampleRecords())
	assert.ErrorIs(t, err, domain.ErrInvalidHandlerKind)
}

func TestWorkloadUseCase_ScoreRecords_CancelledContext(t *testing.T) {
	uc := newTestUseCase(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.ScoreRecords(ctx, domain.HandlerKindAgent, sampleRecords())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkloadUseCase_LoadReport(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	filter := domain.RecordFilter{Kind: domain.HandlerKindAgent, From: &from, To: &to}

	repo := new(MockRecordRepository)
	repo.On("List", mock.Anything, filter).Return(sampleRecords(), nil)

	uc := newTestUseCase(t, repo)
	report, err := uc.LoadReport(context.Background(), filter)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Summary.Records)
	assert.Len(t, report.Handlers, 2)
	repo.AssertExpectations(t)
}

func TestWorkloadUseCase_LoadReport_RepositoryError(t *testing.T) {
	filter := domain.RecordFilter{Kind: domain.HandlerKindTechnicalSupport}
	dbErr := errors.New("connection refused")

	repo := new(MockRecordRepository)
	repo.On("List", mock.Anything, filter).Return(nil, dbErr)

	uc := newTestUseCase(t, repo)
	_, err := uc.LoadReport(context.Background(), filter)

	assert.ErrorIs(t, err, dbErr)
	repo.AssertExpectations(t)
}

func TestWorkloadUseCase_LoadReport_InvalidRange(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	repo := new(MockRecordRepository)
	uc := newTestUseCase(t, repo)

	_, err := uc.LoadReport(context.Background(), domain.RecordFilter{Kind: domain.HandlerKindAgent, From: &from, To: &to})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
	repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestWorkloadUseCase_SetScoring(t *testing.T) {
	uc := newTestUseCase(t, nil)

	bad := kpi.DefaultScoring()
	bad.Weights.FRT = 0.9
	assert.ErrorIs(t, uc.SetScoring(bad), domain.ErrInvalidScoring)
	assert.Equal(t, kpi.DefaultScoring(), uc.Scoring())

	strict := kpi.DefaultScoring()
	strict.SLATargetHours = 1.5
	require.NoError(t, uc.SetScoring(strict))
	assert.Equal(t, 1.5, uc.Scoring().SLATargetHours)

	report, err := uc.ScoreRecords(context.Background(), domain.HandlerKindAgent, sampleRecords())
	require.NoError(t, err)
	// Alice resolved in 2h and 1h; only the second meets a 1.5h SLA.
	assert.Equal(t, 50.0, report.Handlers[0].SLA)
}

func TestNewWorkloadUseCase_RejectsInvalidScoring(t *testing.T) {
	log := logger.NewStructuredLogger(logger.LoggerConfig{Output: io.Discard})
	bad := kpi.DefaultScoring()
	bad.Thresholds.A = 10

	_, err := NewWorkloadUseCase(nil, log, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidScoring)
}
