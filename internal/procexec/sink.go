package procexec

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// BannerText is the one-line header written before a command runs.
func BannerText(cmd Command) string {
	return ">> " + cmd.String()
}

// WriterSink writes the banner and every line to w verbatim.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink wraps w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Banner(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, BannerText(cmd))
}

func (s *WriterSink) Line(line Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, line.Text)
}

// LogSink logs banners at info and output lines at debug.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Banner(cmd Command) {
	if s.Logger != nil {
		s.Logger.Info("running command", "command", BannerText(cmd))
	}
}

func (s LogSink) Line(line Line) {
	if s.Logger != nil {
		s.Logger.Debug(line.Text, "stream", string(line.Stream))
	}
}

// MultiSink fans out to every non-nil sink in order.
type MultiSink []Sink

func (m MultiSink) Banner(cmd Command) {
	for _, sink := range m {
		if sink != nil {
			sink.Banner(cmd)
		}
	}
}

func (m MultiSink) Line(line Line) {
	for _, sink := range m {
		if sink != nil {
			sink.Line(line)
		}
	}
}
