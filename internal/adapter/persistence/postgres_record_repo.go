package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fixora/kpiboard/internal/domain"
	"github.com/fixora/kpiboard/internal/ports"
)

const ticketColumns = `id, open_time, close_time, close_handling, close_handling1, handling2,
	open_by, status, handling_duration_raw_hours, handling_duration1_raw_hours`

const incidentColumns = `id, start_time, end_time, ts, status, net_duration_min`

// PostgresRecordRepository implements RecordRepository over the tickets
// and incidents tables
type PostgresRecordRepository struct {
	db *sql.DB
}

// NewPostgresRecordRepository creates a new PostgreSQL record repository
func NewPostgresRecordRepository(db *sql.DB) ports.RecordRepository {
	return &PostgresRecordRepository{db: db}
}

// List retrieves the records of one handler kind
func (r *PostgresRecordRepository) List(ctx context.Context, filter domain.RecordFilter) ([]domain.RawRecord, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	switch filter.Kind {
	case domain.HandlerKindTechnicalSupport:
		return r.listIncidents(ctx, filter)
	default:
		return r.listTickets(ctx, filter)
	}
}

func (r *PostgresRecordRepository) listTickets(ctx context.Context, filter domain.RecordFilter) ([]domain.RawRecord, error) {
	query, args := buildListQuery("tickets", ticketColumns, "open_time", filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var records []domain.RawRecord
	for rows.Next() {
		var (
			rec                             domain.RawRecord
			openTime                        sql.NullTime
			closeTime, closeHandling        sql.NullTime
			closeHandling1                  sql.NullTime
			handling2, openBy, status       sql.NullString
			resolutionHours, firstRespHours sql.NullFloat64
		)

		err := rows.Scan(
			&rec.ID,
			&openTime,
			&closeTime,
			&closeHandling,
			&closeHandling1,
			&handling2,
			&openBy,
			&status,
			&resolutionHours,
			&firstRespHours,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}

		if openTime.Valid {
			rec.OpenTime = domain.RawTime{Value: openTime.Time}
		}
		rec.CloseTime = nullTime(closeTime)
		rec.HandlingCloseTime = nullTime(closeHandling)
		rec.SecondHandlingCloseTime = nullTime(closeHandling1)
		rec.SecondStep = handling2.String
		rec.Handler = openBy.String
		rec.Status = domain.NormalizeStatus(status.String)
		rec.ResolutionDuration = nullHours(resolutionHours, 1)
		rec.FirstResponseDuration = nullHours(firstRespHours, 1)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tickets: %w", err)
	}

	return records, nil
}

// listIncidents maps incidents onto records: the incident window becomes
// open/close, the technical-support person the handler, and the net
// duration the resolution time. Incidents carry no first-response data.
func (r *PostgresRecordRepository) listIncidents(ctx context.Context, filter domain.RecordFilter) ([]domain.RawRecord, error) {
	query, args := buildListQuery("incidents", incidentColumns, "start_time", filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	var records []domain.RawRecord
	for rows.Next() {
		var (
			rec                domain.RawRecord
			startTime, endTime sql.NullTime
			ts, status         sql.NullString
			netMinutes         sql.NullFloat64
		)

		if err := rows.Scan(&rec.ID, &startTime, &endTime, &ts, &status, &netMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}

		if startTime.Valid {
			rec.OpenTime = domain.RawTime{Value: startTime.Time}
		}
		rec.CloseTime = nullTime(endTime)
		rec.Handler = ts.String
		rec.Status = domain.NormalizeStatus(status.String)
		rec.ResolutionDuration = nullHours(netMinutes, 1.0/60)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incidents: %w", err)
	}

	return records, nil
}

func buildListQuery(table, columns, openColumn string, filter domain.RecordFilter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1", columns, table)

	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", openColumn, argIndex))
		args = append(args, *filter.From)
		argIndex++
	}

	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", openColumn, argIndex))
		args = append(args, *filter.To)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY %s ASC, id ASC", openColumn)
	return query, args
}

func nullTime(t sql.NullTime) *domain.RawTime {
	if !t.Valid {
		return nil
	}
	return domain.At(t.Time)
}

func nullHours(v sql.NullFloat64, scale float64) *domain.HandlingDuration {
	if !v.Valid {
		return nil
	}
	return domain.Hours(v.Float64 * scale)
}
