package log

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Record is one captured log call. Error values are stored as their message.
type Record struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// sink is shared by a TestLogger and every logger derived from it with With.
type sink struct {
	mu      sync.Mutex
	records []Record
}

// TestLogger keeps records in memory so tests can assert on what an
// objective reported.
//
//	logger := log.NewTestLogger(log.LevelDebug)
//	ctx.Logger = logger
//	...
//	assert.True(t, logger.ContainsField(log.ObjectiveKey, "reg:gamma"))
type TestLogger struct {
	sink   *sink
	level  Level
	fields map[string]any
}

// NewTestLogger returns a TestLogger that drops records below level.
func NewTestLogger(level Level) *TestLogger {
	return &TestLogger{sink: &sink{}, level: level, fields: map[string]any{}}
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.record(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.record(LevelWarn, msg, fields) }

// Error accepts an optional leading error, stored under ErrAttrKey.
func (t *TestLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttrKey, err}, fields[1:]...)
		}
	}
	t.record(LevelError, msg, fields)
}

func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]any, len(t.fields)+len(fields)/2)
	for k, v := range t.fields {
		merged[k] = v
	}
	setFields(merged, fields)
	return &TestLogger{sink: t.sink, level: t.level, fields: merged}
}

func (t *TestLogger) Enabled(_ context.Context, level Level) bool {
	return level >= t.level
}

func (t *TestLogger) record(level Level, msg string, fields []any) {
	if level < t.level {
		return
	}
	r := Record{Level: level, Message: msg, Fields: make(map[string]any, len(t.fields)+len(fields)/2)}
	for k, v := range t.fields {
		r.Fields[k] = v
	}
	setFields(r.Fields, fields)

	t.sink.mu.Lock()
	t.sink.records = append(t.sink.records, r)
	t.sink.mu.Unlock()
}

func setFields(dst map[string]any, fields []any) {
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		if err, ok := fields[i+1].(error); ok {
			dst[key] = err.Error()
			continue
		}
		dst[key] = fields[i+1]
	}
}

// Records returns a copy of everything captured so far.
func (t *TestLogger) Records() []Record {
	t.sink.mu.Lock()
	defer t.sink.mu.Unlock()
	return append([]Record(nil), t.sink.records...)
}

// ContainsMessage reports whether any record's message contains message.
func (t *TestLogger) ContainsMessage(message string) bool {
	for _, r := range t.Records() {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsField reports whether any record has key set to value.
func (t *TestLogger) ContainsField(key string, value any) bool {
	for _, r := range t.Records() {
		if v, ok := r.Fields[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops all captured records, including those of derived loggers.
func (t *TestLogger) Clear() {
	t.sink.mu.Lock()
	t.sink.records = nil
	t.sink.mu.Unlock()
}
