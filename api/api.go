package api

import (
	"time"
)

type FilterCriteria struct {
	Search           string
	Level            string
	ResourceID       string
	TraceID          string
	SpanID           string
	Commit           string
	ParentResourceID string
	StartTime        string
	EndTime          string
	Regex            string
	Message          string
}

type LogsResponse struct {
	Logs  []*LogRecord `json:"logs"`
	Count int          `json:"count"`
}

type LogQuery struct {
	Search           string    `form:"search"`
	Level            string    `form:"level"`
	ResourceID       string    `form:"resourceId"`
	TraceID          string    `form:"traceId"`
	SpanID           string    `form:"spanId"`
	Commit           string    `form:"commit"`
	ParentResourceID string    `form:"parentResourceId"`
	StartTime        time.Time `form:"startTime" time_format:"2006-01-02T15:04:05Z07:00"`
	EndTime          time.Time `form:"endTime" time_format:"2006-01-02T15:04:05Z07:00"`
	Regex            string    `form:"regex"`
	Message          string    `form:"message"`
	Page             int       `form:"page"`
	Limit            int       `form:"limit"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type InsertRequest struct {
	Record  *LogRecord
	Records []*LogRecord
}

type InsertResponse struct {
	Accepted int    `json:"accepted"`
	Error    string `json:"error,omitempty"`
}
