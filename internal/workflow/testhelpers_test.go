package workflow_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"wspsr/internal/config"
	"wspsr/internal/procexec"
	"wspsr/internal/queue"
	"wspsr/internal/testsupport"
	"wspsr/internal/workflow"
)

// fakeRunner records commands and answers with scripted exit codes keyed by
// program name. The whisperx stand-in writes a transcript next to its input.
type fakeRunner struct {
	mu       sync.Mutex
	commands []procexec.Command
	exits    map[string]int
	block    chan struct{}
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{exits: map[string]int{}}
}

func (r *fakeRunner) Run(ctx context.Context, cmd procexec.Command, sink procexec.Sink) (int, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	code := r.exits[filepath.Base(cmd.Program)]
	block := r.block
	r.mu.Unlock()

	if sink != nil {
		sink.Banner(cmd)
		sink.Line(procexec.Line{Stream: procexec.Stdout, Text: "fake output", Time: time.Now()})
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return -1, ctx.Err()
		}
	}
	if code != 0 {
		return code, nil
	}

	last := cmd.Args[len(cmd.Args)-1]
	switch filepath.Base(cmd.Program) {
	case "bsdtar":
		member := filepath.Join(cmd.Dir, filepath.FromSlash(last))
		if err := os.MkdirAll(filepath.Dir(member), 0o755); err != nil {
			return -1, err
		}
		if err := os.WriteFile(member, []byte("member"), 0o644); err != nil {
			return -1, err
		}
	case "ffmpeg":
		if err := os.WriteFile(filepath.Join(cmd.Dir, last), []byte("oga"), 0o644); err != nil {
			return -1, err
		}
	case "whisperx":
		base := last[:len(last)-len(filepath.Ext(last))]
		if err := os.WriteFile(filepath.Join(cmd.Dir, base+".txt"), []byte("hei"), 0o644); err != nil {
			return -1, err
		}
	}
	return 0, nil
}

func (r *fakeRunner) programs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.commands))
	for _, cmd := range r.commands {
		names = append(names, filepath.Base(cmd.Program))
	}
	return names
}

func (r *fakeRunner) command(program string) (procexec.Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cmd := range r.commands {
		if filepath.Base(cmd.Program) == program {
			return cmd, true
		}
	}
	return procexec.Command{}, false
}

func (r *fakeRunner) argsOf(program string) [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]string
	for _, cmd := range r.commands {
		if filepath.Base(cmd.Program) == program {
			out = append(out, cmd.Args)
		}
	}
	return out
}

// statusRecorder collects published status changes.
type statusRecorder struct {
	mu     sync.Mutex
	events []workflow.StatusEvent
}

func (s *statusRecorder) StatusChanged(ev workflow.StatusEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *statusRecorder) statuses(key string) []queue.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []queue.Status
	for _, ev := range s.events {
		if ev.Key == key {
			out = append(out, ev.Status)
		}
	}
	return out
}

type harness struct {
	cfg     *config.Config
	store   *queue.Store
	runner  *fakeRunner
	events  *statusRecorder
	manager *workflow.Manager
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	if err := store.SetDefaults(context.Background(), workflow.DefaultOptions(cfg)); err != nil {
		t.Fatalf("SetDefaults: %v", err)
	}
	h := &harness{
		cfg:    cfg,
		store:  store,
		runner: newFakeRunner(),
		events: &statusRecorder{},
	}
	h.manager = workflow.NewManager(cfg, store, nil,
		workflow.WithRunner(h.runner),
		workflow.WithStatusSink(h.events),
	)
	return h
}

// mediaFile creates a source file inside the watched directory.
func (h *harness) mediaFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(h.cfg.Paths.WatchDir, name)
	testsupport.WriteFile(t, path, []byte("audio"))
	return path
}

func (h *harness) status(t *testing.T, key string) queue.Status {
	t.Helper()
	resolved, err := h.manager.Resolve(context.Background(), key)
	if err != nil {
		t.Fatalf("Resolve(%s): %v", key, err)
	}
	return queue.EffectiveStatus(resolved)
}

func (h *harness) waitForStatus(t *testing.T, key string, want queue.Status) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if h.status(t, key) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("task %s never reached %s (now %s)", key, want, h.status(t, key))
}

func scratchEntries(t *testing.T, cfg *config.Config) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(cfg.Paths.ScratchDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("read scratch: %v", err)
	}
	return entries
}
