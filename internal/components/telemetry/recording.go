package telemetry

import (
	"strings"
	"sync"
)

type Level int

const (
	LEVEL_DEBUG Level = iota
	LEVEL_WARNING
	LEVEL_BROKEN
	LEVEL_COUNT
)

type Report struct {
	Level  Level
	Id     string
	Params []any
	Count  int64
}

// RecordingAPI is an API that keeps every report in memory so tests can
// assert on what a component reported.
type RecordingAPI struct {
	mutex   sync.Mutex
	reports []Report
}

func NewRecordingAPI() *RecordingAPI {
	return &RecordingAPI{}
}

func (r *RecordingAPI) push(report Report) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, report)
}

func (r *RecordingAPI) ReportBroken(id string, params ...any) {
	r.push(Report{Level: LEVEL_BROKEN, Id: id, Params: params})
}

func (r *RecordingAPI) ReportWarning(id string, params ...any) {
	r.push(Report{Level: LEVEL_WARNING, Id: id, Params: params})
}

func (r *RecordingAPI) ReportDebug(msg string, params ...any) {
	r.push(Report{Level: LEVEL_DEBUG, Id: msg, Params: params})
}

func (r *RecordingAPI) ReportCount(id string, count int64) {
	r.push(Report{Level: LEVEL_COUNT, Id: id, Count: count})
}

// Reports returns the reports of the given level whose id ends with `suffix`.
func (r *RecordingAPI) Reports(level Level, suffix string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, report := range r.reports {
		if report.Level == level && strings.HasSuffix(report.Id, suffix) {
			out = append(out, report)
		}
	}
	return out
}
