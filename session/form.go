package session

import (
	"sync"

	"github.com/pierredavidbelanger/logscope/api"
)

// Field names a filter input. The values match the query parameter names.
type Field string

const (
	FieldSearch           Field = "search"
	FieldLevel            Field = "level"
	FieldResourceID       Field = "resourceId"
	FieldTraceID          Field = "traceId"
	FieldSpanID           Field = "spanId"
	FieldCommit           Field = "commit"
	FieldParentResourceID Field = "parentResourceId"
	FieldStartTime        Field = "startTime"
	FieldEndTime          Field = "endTime"
	FieldRegex            Field = "regex"
	FieldMessage          Field = "message"
)

// Fields lists every filter input in display order.
var Fields = []Field{
	FieldSearch,
	FieldLevel,
	FieldResourceID,
	FieldTraceID,
	FieldSpanID,
	FieldCommit,
	FieldParentResourceID,
	FieldStartTime,
	FieldEndTime,
	FieldRegex,
	FieldMessage,
}

// Form holds the raw values of the filter inputs as the user typed them.
type Form struct {
	mu     sync.Mutex
	values map[Field]string
}

func NewForm() *Form {
	return &Form{values: make(map[Field]string)}
}

func (f *Form) Set(field Field, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[field] = value
}

func (f *Form) Get(field Field) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[field]
}

// Clear empties every input.
func (f *Form) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = make(map[Field]string)
}

// Criteria reads the current input values.
func (f *Form) Criteria() api.FilterCriteria {
	f.mu.Lock()
	defer f.mu.Unlock()
	return api.FilterCriteria{
		Search:           f.values[FieldSearch],
		Level:            f.values[FieldLevel],
		ResourceID:       f.values[FieldResourceID],
		TraceID:          f.values[FieldTraceID],
		SpanID:           f.values[FieldSpanID],
		Commit:           f.values[FieldCommit],
		ParentResourceID: f.values[FieldParentResourceID],
		StartTime:        f.values[FieldStartTime],
		EndTime:          f.values[FieldEndTime],
		Regex:            f.values[FieldRegex],
		Message:          f.values[FieldMessage],
	}
}
