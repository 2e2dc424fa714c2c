package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/leelesemann-sys/vergabe-radar/internal/importer"
)

// Day statuses.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
	StatusError  = "error"
)

// DayReport records the outcome of one publication day.
type DayReport struct {
	RunID        uuid.UUID                 `json:"run_id"`
	Day          time.Time                 `json:"day"`
	Status       string                    `json:"status"`
	Error        string                    `json:"error,omitempty"`
	Fetched      int                       `json:"fetched"`
	Import       map[string]importer.Stats `json:"import,omitempty"`
	Denormalized int                       `json:"denormalized"`
	Geocoded     int                       `json:"geocoded"`
	Embedded     int                       `json:"embedded"`
	Indexed      int                       `json:"indexed"`
	IndexFailed  int                       `json:"index_failed"`
	Elapsed      time.Duration             `json:"elapsed"`
}

// RangeReport aggregates the per-day reports of one range run.
type RangeReport struct {
	Days   []DayReport `json:"days"`
	OK     int         `json:"ok"`
	NoData int         `json:"no_data"`
	Errors int         `json:"errors"`
}

func (r *RangeReport) add(day DayReport) {
	r.Days = append(r.Days, day)
	switch day.Status {
	case StatusOK:
		r.OK++
	case StatusNoData:
		r.NoData++
	default:
		r.Errors++
	}
}
