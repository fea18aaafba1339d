package bench

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// zerologHandler routes slog records from the store into the harness's zerolog logger.
type zerologHandler struct {
	log   zerolog.Logger
	// attrs carry their group prefix already
	attrs []slog.Attr
	group string
}

// NewSlogLogger returns a *slog.Logger suitable for treapx.Options.Logger that writes to log.
func NewSlogLogger(log zerolog.Logger) *slog.Logger {
	return slog.New(&zerologHandler{log: log})
}

func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level >= slog.LevelError:
		return zerolog.ErrorLevel
	case level >= slog.LevelWarn:
		return zerolog.WarnLevel
	case level >= slog.LevelInfo:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}

func (h *zerologHandler) Enabled(_ context.Context, level slog.Level) bool {
	lvl := zerologLevel(level)
	return lvl >= h.log.GetLevel() && lvl >= zerolog.GlobalLevel()
}

func (h *zerologHandler) Handle(_ context.Context, record slog.Record) error {
	event := h.log.WithLevel(zerologLevel(record.Level))
	for _, attr := range h.attrs {
		addAttr(event, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		addAttr(event, h.qualify(attr))
		return true
	})
	event.Msg(record.Message)
	return nil
}

func (h *zerologHandler) qualify(attr slog.Attr) slog.Attr {
	if h.group != "" {
		attr.Key = h.group + "." + attr.Key
	}
	return attr
}

func addAttr(event *zerolog.Event, attr slog.Attr) {
	key := attr.Key
	value := attr.Value.Resolve()
	switch value.Kind() {
	case slog.KindInt64:
		event.Int64(key, value.Int64())
	case slog.KindUint64:
		event.Uint64(key, value.Uint64())
	case slog.KindBool:
		event.Bool(key, value.Bool())
	case slog.KindString:
		event.Str(key, value.String())
	case slog.KindDuration:
		event.Dur(key, value.Duration())
	default:
		event.Interface(key, value.Any())
	}
}

func (h *zerologHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, attr := range attrs {
		next.attrs = append(next.attrs, h.qualify(attr))
	}
	return &next
}

func (h *zerologHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group != "" {
		name = next.group + "." + name
	}
	next.group = name
	return &next
}

var _ slog.Handler = &zerologHandler{}
