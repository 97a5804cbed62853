// Package query maps search filter criteria and a page cursor to the
// parameters of a GET /logs request.
package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pierredavidbelanger/logscope/api"
)

// PageSize is the fixed number of records requested per page.
const PageSize = 10

// InstantFormat is how start and end times are sent to the server.
const InstantFormat = "2006-01-02T15:04:05.000Z"

var inputLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Build returns the query parameters for the given criteria and 1-based page.
// Text values are trimmed and omitted when empty. Start and end times are
// read in loc (time.Local when nil) and sent as UTC instants.
func Build(c api.FilterCriteria, page, limit int, loc *time.Location) (url.Values, error) {
	params := url.Values{}

	text := []struct {
		name  string
		value string
	}{
		{"search", c.Search},
		{"level", c.Level},
		{"resourceId", c.ResourceID},
		{"traceId", c.TraceID},
		{"spanId", c.SpanID},
		{"commit", c.Commit},
		{"parentResourceId", c.ParentResourceID},
		{"regex", c.Regex},
		{"message", c.Message},
	}
	for _, f := range text {
		if v := strings.TrimSpace(f.value); v != "" {
			params.Set(f.name, v)
		}
	}

	if err := setInstant(params, "startTime", c.StartTime, loc); err != nil {
		return nil, err
	}
	if err := setInstant(params, "endTime", c.EndTime, loc); err != nil {
		return nil, err
	}

	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	return params, nil
}

// Encode returns the canonical query string for params. Keys are sorted, so
// equal inputs always encode to identical strings.
func Encode(params url.Values) string {
	return params.Encode()
}

func setInstant(params url.Values, name, value string, loc *time.Location) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	t, err := ParseInstant(value, loc)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	params.Set(name, t.UTC().Format(InstantFormat))
	return nil
}

// ParseInstant parses a date-time input. Values carrying their own offset
// (RFC 3339) keep it; the others are interpreted in loc.
func ParseInstant(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date-time %q", value)
}
