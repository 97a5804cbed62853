package api

import (
	"encoding/json"
	"time"
)

// LogRecord is one log entry as stored and returned by the /logs endpoint.
// Fields that are not part of the fixed set are kept in Extra so that the
// full record can be shown as received.
type LogRecord struct {
	Level      string
	Timestamp  time.Time
	Message    string
	ResourceID string
	TraceID    string
	SpanID     string
	Commit     string
	Extra      map[string]json.RawMessage
}

var recordKeys = map[string]bool{
	"level":      true,
	"timestamp":  true,
	"message":    true,
	"resourceId": true,
	"traceId":    true,
	"spanId":     true,
	"commit":     true,
}

func (r *LogRecord) stringField(key string) *string {
	switch key {
	case "level":
		return &r.Level
	case "message":
		return &r.Message
	case "resourceId":
		return &r.ResourceID
	case "traceId":
		return &r.TraceID
	case "spanId":
		return &r.SpanID
	case "commit":
		return &r.Commit
	}
	return nil
}

// MarshalJSON writes the fixed fields that are set, plus every extra field.
func (r *LogRecord) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(recordKeys)+len(r.Extra))
	for k, v := range r.Extra {
		m[k] = v
	}
	for k := range recordKeys {
		if dst := r.stringField(k); dst != nil && *dst != "" {
			m[k] = *dst
		}
	}
	if !r.Timestamp.IsZero() {
		m["timestamp"] = r.Timestamp
	}
	return json.Marshal(m)
}

// UnmarshalJSON fills the fixed fields it can decode. A fixed field of the
// wrong type, such as an unparsable timestamp, is kept verbatim in Extra.
func (r *LogRecord) UnmarshalJSON(data []byte) error {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*r = LogRecord{}
	for k, v := range all {
		if r.setField(k, v) {
			continue
		}
		if r.Extra == nil {
			r.Extra = make(map[string]json.RawMessage)
		}
		r.Extra[k] = v
	}
	return nil
}

func (r *LogRecord) setField(key string, raw json.RawMessage) bool {
	if !recordKeys[key] {
		return false
	}
	if string(raw) == "null" {
		return true
	}
	if key == "timestamp" {
		return json.Unmarshal(raw, &r.Timestamp) == nil
	}
	return json.Unmarshal(raw, r.stringField(key)) == nil
}

// Metadata returns the string values of the record's "metadata" object, if any.
func (r *LogRecord) Metadata() map[string]string {
	raw, ok := r.Extra["metadata"]
	if !ok {
		return nil
	}
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	md := make(map[string]string, len(generic))
	for k, v := range generic {
		if s, ok := v.(string); ok {
			md[k] = s
		}
	}
	return md
}

// ParsedLevel returns the closed-set level of the record.
func (r *LogRecord) ParsedLevel() Level {
	return ParseLevel(r.Level)
}
