package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleTimeLayout keeps millisecond precision so probe timings line up.
const consoleTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// consoleHandler renders one human-readable line per record:
//
//	<time> <LEVEL> <component> [<file> <selector>]: <message> key=value...
//
// component, file and selector are lifted out of the attribute list into the
// line prefix; everything else is printed as key=value.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     *slog.LevelVar
	addSource bool
	preset    []field
	groups    []string
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	fields := make([]field, 0, len(h.preset)+record.NumAttrs())
	fields = append(fields, h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.groups, attr)
		return true
	})
	subject, fields := extractSubject(fields)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.Grow(96 + 24*len(fields))
	b.WriteString(ts.UTC().Format(consoleTimeLayout))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	subject.writeTo(&b)

	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)

	if h.addSource {
		if src := record.Source(); src != nil {
			b.WriteString(" [")
			b.WriteString(filepath.Base(src.File))
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(src.Line))
			b.WriteByte(']')
		}
	}
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(formatValue(f.value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.derive()
	for _, attr := range attrs {
		next.preset = appendField(next.preset, next.groups, attr)
	}
	return next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.derive()
	next.groups = append(next.groups, name)
	return next
}

func (h *consoleHandler) derive() *consoleHandler {
	return &consoleHandler{
		mu:        h.mu,
		out:       h.out,
		level:     h.level,
		addSource: h.addSource,
		preset:    append([]field(nil), h.preset...),
		groups:    append([]string(nil), h.groups...),
	}
}

// lineSubject is the prefix identifying who logged and about which file.
type lineSubject struct {
	component string
	file      string
	selector  string
}

func (s lineSubject) writeTo(b *strings.Builder) {
	b.WriteByte(' ')
	if s.component != "" {
		b.WriteString(s.component)
	}
	var target []string
	if s.file != "" {
		target = append(target, filepath.Base(s.file))
	}
	if s.selector != "" {
		target = append(target, s.selector)
	}
	if len(target) > 0 {
		if s.component != "" {
			b.WriteByte(' ')
		}
		b.WriteByte('[')
		b.WriteString(strings.Join(target, " "))
		b.WriteByte(']')
	}
	if s.component != "" || len(target) > 0 {
		b.WriteString(": ")
	}
}

// extractSubject removes the prefix fields, keeping the first value of each.
// A file identity that is a full path also stays in the key=value list.
func extractSubject(fields []field) (lineSubject, []field) {
	var subject lineSubject
	rest := fields[:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			if subject.component == "" {
				subject.component = attrString(f.value)
			}
			continue
		case FieldSelector:
			if subject.selector == "" {
				subject.selector = attrString(f.value)
			}
			continue
		case FieldFile:
			if subject.file == "" {
				subject.file = attrString(f.value)
				if filepath.Base(subject.file) == subject.file {
					continue
				}
			} else {
				continue
			}
		}
		rest = append(rest, f)
	}
	return subject, rest
}

func appendField(dst []field, groups []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(append([]string(nil), groups...), attr.Key)
		}
		for _, child := range value.Group() {
			dst = appendField(dst, inner, child)
		}
		return dst
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(append([]string(nil), groups...), key), ".")
		key = strings.TrimSuffix(key, ".")
	}
	return append(dst, field{key: key, value: value})
}
