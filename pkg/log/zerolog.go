package log

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	logger zerolog.Logger
	level  Level
}

// NewZerologLogger writes JSON records at or above level to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{logger: zl, level: level}
}

// NewNopLogger returns a Logger that discards every record.
func NewNopLogger() Logger {
	return &ZerologLogger{logger: zerolog.Nop(), level: LevelError + 1}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	case level <= LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.Disabled
	}
}

// Debug implements Logger.Debug.
func (z *ZerologLogger) Debug(msg string, fields ...any) {
	emit(z.logger.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (z *ZerologLogger) Info(msg string, fields ...any) {
	emit(z.logger.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (z *ZerologLogger) Warn(msg string, fields ...any) {
	emit(z.logger.Warn(), msg, fields)
}

// Error implements Logger.Error. A leading error field is attached with its
// stack trace and, when it carries one, its structured detail.
func (z *ZerologLogger) Error(msg string, fields ...any) {
	ev := z.logger.Error()
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.AnErr(ErrAttrKey, err)
			if st := extractStacktrace(err); st != "" {
				ev = ev.Str(StacktraceAttrKey, st)
			}
			var detail zerolog.LogObjectMarshaler
			if errors.As(err, &detail) {
				ev = ev.Object("error.detail", detail)
			}
			fields = fields[1:]
		}
	}
	emit(ev, msg, fields)
}

// With implements Logger.With.
func (z *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{
		logger: z.logger.With().Fields(pairs(fields)).Logger(),
		level:  z.level,
	}
}

// Enabled implements Logger.Enabled.
func (z *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return level >= z.level
}

func emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	if len(fields) > 0 {
		ev = ev.Fields(pairs(fields))
	}
	ev.Msg(msg)
}

// pairs drops a trailing key without a value; zerolog expects an even list.
func pairs(fields []any) []any {
	if len(fields)%2 == 1 {
		return fields[:len(fields)-1]
	}
	return fields
}

func extractStacktrace(err error) string {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}
