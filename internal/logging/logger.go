package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"wspsr/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	Development bool
	// Color forces ANSI level colors on console output. When false, colors are
	// enabled only if every output is a terminal.
	Color bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	writer, tty, err := openWriters(paths)
	if err != nil {
		return nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	var handler slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "json":
		handler = newJSONHandler(writer, levelVar, addSource)
	case "console", "":
		handler = newConsoleHandler(writer, levelVar, addSource, opts.Color || tty)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	return slog.New(handler), nil
}

// NewFromConfig creates a logger writing to stdout and, when a log directory
// is configured, to wspsr.log inside it.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}
	paths := []string{"stdout"}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		paths = append(paths, filepath.Join(dir, "wspsr.log"))
	}
	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: paths,
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openWriters resolves output targets. The boolean reports whether every
// target is an interactive terminal.
func openWriters(paths []string) (io.Writer, bool, error) {
	seen := map[string]struct{}{}
	var writers []io.Writer
	tty := true
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			writers = append(writers, os.Stdout)
			tty = tty && isatty.IsTerminal(os.Stdout.Fd())
		case "stderr":
			writers = append(writers, os.Stderr)
			tty = tty && isatty.IsTerminal(os.Stderr.Fd())
		default:
			if dir := filepath.Dir(trimmed); dir != "" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, false, fmt.Errorf("ensure log dir %s: %w", dir, err)
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, false, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			writers = append(writers, file)
			tty = false
		}
	}
	switch len(writers) {
	case 0:
		return os.Stdout, isatty.IsTerminal(os.Stdout.Fd()), nil
	case 1:
		return writers[0], tty, nil
	default:
		return io.MultiWriter(writers...), tty, nil
	}
}

func newJSONHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
				}
			case slog.LevelKey:
				attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
			}
			return attr
		},
	})
}

// consoleHandler renders "ts LEVEL component: message key=value ..." lines.
type consoleHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     slog.Leveler
	attrs     []slog.Attr
	groups    []string
	addSource bool
	color     bool
}

func newConsoleHandler(w io.Writer, lvl slog.Leveler, addSource, color bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		flattenAttr(&kvs, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})

	var component string
	rest := kvs[:0]
	for _, item := range kvs {
		if item.key == FieldComponent && component == "" {
			component = formatValue(item.value)
			continue
		}
		rest = append(rest, item)
	}

	var buf bytes.Buffer
	buf.WriteString(timestamp.UTC().Format(time.RFC3339))
	buf.WriteByte(' ')
	buf.WriteString(h.levelLabel(record.Level))
	buf.WriteByte(' ')
	if component != "" {
		buf.WriteString(component)
		buf.WriteString(": ")
	}
	if msg := strings.TrimSpace(record.Message); msg != "" {
		buf.WriteString(msg)
	} else {
		buf.WriteString("(no message)")
	}
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			buf.WriteString(" [")
			buf.WriteString(filepath.Base(src.File))
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(src.Line))
			buf.WriteByte(']')
		}
	}
	for _, item := range rest {
		buf.WriteByte(' ')
		buf.WriteString(item.key)
		buf.WriteByte('=')
		buf.WriteString(quoteIfNeeded(formatValue(item.value)))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiGray   = "\x1b[90m"
)

func (h *consoleHandler) levelLabel(level slog.Level) string {
	var label, color string
	switch {
	case level >= slog.LevelError:
		label, color = "ERROR", ansiRed
	case level >= slog.LevelWarn:
		label, color = "WARN", ansiYellow
	case level >= slog.LevelInfo:
		label, color = "INFO", ansiBlue
	default:
		label, color = "DEBUG", ansiGray
	}
	if !h.color {
		return label
	}
	return color + label + ansiReset
}

type kv struct {
	key   string
	value slog.Value
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string(nil), prefix...), attr.Key)
		}
		for _, member := range attr.Value.Group() {
			flattenAttr(dst, next, member)
		}
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string(nil), prefix...), key), ".")
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
