package logging

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
)

// jsonTimeLayout matches the console handler so both sinks sort the same way.
const jsonTimeLayout = consoleTimeLayout

// newJSONHandler emits one object per line with short keys (ts, level, msg,
// src) and durations in milliseconds.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	})
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			if attr.Value.Kind() == slog.KindTime {
				return slog.String("ts", attr.Value.Time().UTC().Format(jsonTimeLayout))
			}
			attr.Key = "ts"
			return attr
		case slog.LevelKey:
			return slog.String("level", strings.ToLower(attr.Value.String()))
		case slog.MessageKey:
			attr.Key = "msg"
			return attr
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				return slog.String("src", filepath.Base(src.File)+":"+strconv.Itoa(src.Line))
			}
			return attr
		}
	}
	if attr.Value.Kind() == slog.KindDuration {
		return slog.Int64(attr.Key+"_ms", attr.Value.Duration().Milliseconds())
	}
	return attr
}
