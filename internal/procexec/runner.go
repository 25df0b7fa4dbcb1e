package procexec

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"wspsr/internal/services"
)

// Stream names the pipe a line arrived on.
type Stream string

const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

const maxLineBytes = 1 << 20

// Line is one line of subprocess output.
type Line struct {
	Stream Stream
	Text   string
	Time   time.Time
}

// Command describes a process to start.
type Command struct {
	Program string
	Args    []string
	Dir     string
	Env     []string
}

// String renders the command the way the banner shows it.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Program
	}
	return c.Program + " " + strings.Join(c.Args, " ")
}

// Sink receives a command banner and its output lines.
type Sink interface {
	Banner(cmd Command)
	Line(line Line)
}

// Runner executes commands. Implementations return the exit code; a process
// that could not be started reports -1 with an error.
type Runner interface {
	Run(ctx context.Context, cmd Command, sink Sink) (int, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts cmd, forwards its output to sink (which may be nil), and waits
// for it. A non-zero exit is reported through the exit code, not the error.
func (ExecRunner) Run(ctx context.Context, cmd Command, sink Sink) (int, error) {
	if sink == nil {
		sink = discard{}
	}
	sink.Banner(cmd)

	proc := exec.CommandContext(ctx, cmd.Program, cmd.Args...) //nolint:gosec
	proc.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		proc.Env = cmd.Env
	}
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return -1, services.Wrap(services.ErrExternalTool, "", cmd.Program, "stdout pipe", err)
	}
	stderr, err := proc.StderrPipe()
	if err != nil {
		return -1, services.Wrap(services.ErrExternalTool, "", cmd.Program, "stderr pipe", err)
	}
	if err := proc.Start(); err != nil {
		return -1, services.Wrap(services.ErrExternalTool, "", cmd.Program, "start", err)
	}

	lines := make(chan Line, 64)
	var readers sync.WaitGroup
	readers.Add(2)
	go pump(stdout, Stdout, lines, &readers)
	go pump(stderr, Stderr, lines, &readers)
	go func() {
		readers.Wait()
		close(lines)
	}()
	for line := range lines {
		sink.Line(line)
	}

	err = proc.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ctx.Err() != nil {
			return exitErr.ExitCode(), fmt.Errorf("%s: %w", cmd.Program, ctx.Err())
		}
		return exitErr.ExitCode(), nil
	}
	return -1, services.Wrap(services.ErrExternalTool, "", cmd.Program, "wait", err)
}

func pump(r io.Reader, stream Stream, out chan<- Line, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	scanner.Split(scanLines)
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), " \t")
		if text == "" {
			continue
		}
		out <- Line{Stream: stream, Text: text, Time: time.Now()}
	}
	// Keep draining so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

// scanLines splits on \n, \r\n, and bare \r so progress bars that redraw a
// line surface as separate lines.
func scanLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		advance := i + 1
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			advance++
		} else if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// Might be the first half of \r\n.
			return 0, nil, nil
		}
		return advance, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type discard struct{}

func (discard) Banner(Command) {}
func (discard) Line(Line)      {}
