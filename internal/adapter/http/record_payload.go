package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fixora/kpiboard/internal/domain"
)

// Keys accepted for each record field, in lookup order. Spreadsheet
// headers, camelCase and snake_case exports all reach the API.
var (
	idKeys             = []string{"id", "ID", "No Case", "noCase", "no_case"}
	openTimeKeys       = []string{"OPEN TIME", "openTime", "open_time", "WaktuOpen"}
	closeTimeKeys      = []string{"CLOSE TIME", "closeTime", "close_time", "WaktuCloseTicket"}
	handlingCloseKeys  = []string{"CLOSE PENANGANAN", "closeHandling", "close_handling"}
	secondHandlingKeys = []string{"CLOSE PENANGANAN 1", "closeHandling1", "close_handling1"}
	secondStepKeys     = []string{"PENANGANAN 2", "Penanganan2", "handling2", "CLOSE PENANGANAN 2", "closeHandling2"}
	handlerKeys        = []string{"OPEN BY", "openBy", "open_by", "OpenBy", "ts"}
	statusKeys         = []string{"status", "STATUS"}
)

const (
	resolutionNestedKey    = "handlingDuration"
	firstResponseNestedKey = "handlingDuration1"
	resolutionFlatKey      = "handling_duration_raw_hours"
	firstResponseFlatKey   = "handling_duration1_raw_hours"
)

// excelEpoch is day 0 of the spreadsheet serial date system
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// maxExcelSerial is 9999-12-31, the last date a spreadsheet can hold
const maxExcelSerial = 2958465

// recordPayload is one record as submitted by a client. Unknown keys are
// ignored.
type recordPayload map[string]json.RawMessage

// ScoreRequest is the body of a scoring request
type ScoreRequest struct {
	Records []recordPayload `json:"records"`
}

// DecodeRecords parses a JSON array of records using the field aliases
func DecodeRecords(data []byte) ([]domain.RawRecord, error) {
	var payloads []recordPayload
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("invalid records array: %w", err)
	}
	return toRawRecords(payloads)
}

func toRawRecords(payloads []recordPayload) ([]domain.RawRecord, error) {
	records := make([]domain.RawRecord, 0, len(payloads))
	for i, p := range payloads {
		rec, err := p.toRawRecord()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p recordPayload) toRawRecord() (domain.RawRecord, error) {
	var rec domain.RawRecord
	var err error

	if rec.ID, err = p.text(idKeys); err != nil {
		return rec, err
	}
	open, err := p.timestamp(openTimeKeys)
	if err != nil {
		return rec, err
	}
	if open != nil {
		rec.OpenTime = *open
	}
	if rec.CloseTime, err = p.timestamp(closeTimeKeys); err != nil {
		return rec, err
	}
	if rec.HandlingCloseTime, err = p.timestamp(handlingCloseKeys); err != nil {
		return rec, err
	}
	if rec.SecondHandlingCloseTime, err = p.timestamp(secondHandlingKeys); err != nil {
		return rec, err
	}
	if rec.SecondStep, err = p.text(secondStepKeys); err != nil {
		return rec, err
	}
	if rec.Handler, err = p.text(handlerKeys); err != nil {
		return rec, err
	}
	status, err := p.text(statusKeys)
	if err != nil {
		return rec, err
	}
	rec.Status = domain.NormalizeStatus(status)

	if rec.ResolutionDuration, err = p.duration(resolutionNestedKey, resolutionFlatKey); err != nil {
		return rec, err
	}
	if rec.FirstResponseDuration, err = p.duration(firstResponseNestedKey, firstResponseFlatKey); err != nil {
		return rec, err
	}
	return rec, nil
}

// lookup returns the first non-null value among keys
func (p recordPayload) lookup(keys []string) (json.RawMessage, string, bool) {
	for _, k := range keys {
		if v, ok := p[k]; ok && !isNull(v) {
			return v, k, true
		}
	}
	return nil, "", false
}

// text reads a string or number as text
func (p recordPayload) text(keys []string) (string, error) {
	raw, key, ok := p.lookup(keys)
	if !ok {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b), nil
	}
	return "", fmt.Errorf("field %q must be a string", key)
}

// timestamp reads a timestamp. Strings are kept as text for the sanitizer to
// parse; numbers are Excel serial dates.
func (p recordPayload) timestamp(keys []string) (*domain.RawTime, error) {
	raw, key, ok := p.lookup(keys)
	if !ok {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return domain.Text(s), nil
	}
	var serial float64
	if err := json.Unmarshal(raw, &serial); err == nil {
		if serial < 0 || serial >= maxExcelSerial+1 {
			return nil, fmt.Errorf("field %q: Excel serial date %v out of range", key, serial)
		}
		return domain.At(excelSerialToTime(serial)), nil
	}
	return nil, fmt.Errorf("field %q must be a timestamp string or Excel serial date", key)
}

// duration reads {"rawHours": n} under nested, or a bare number under flat
func (p recordPayload) duration(nested, flat string) (*domain.HandlingDuration, error) {
	if raw, ok := p[nested]; ok && !isNull(raw) {
		var d struct {
			RawHours  *float64 `json:"rawHours"`
			Formatted string   `json:"formatted"`
		}
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, fmt.Errorf("field %q must be an object with rawHours", nested)
		}
		if d.RawHours == nil {
			return nil, nil
		}
		return &domain.HandlingDuration{Hours: *d.RawHours, Formatted: d.Formatted}, nil
	}

	raw, ok := p[flat]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var hours float64
	if err := json.Unmarshal(raw, &hours); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return nil, fmt.Errorf("field %q must be a number", flat)
		}
		if hours, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return nil, fmt.Errorf("field %q must be a number", flat)
		}
		if math.IsNaN(hours) || math.IsInf(hours, 0) {
			return nil, fmt.Errorf("field %q must be a finite number", flat)
		}
	}
	return domain.Hours(hours), nil
}

// excelSerialToTime splits whole days from the time of day, since the full
// range does not fit in a time.Duration
func excelSerialToTime(serial float64) time.Time {
	days := math.Floor(serial)
	ms := math.Round((serial - days) * 24 * float64(time.Hour/time.Millisecond))
	return excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
