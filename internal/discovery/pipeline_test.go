package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"wspsr/internal/media"
	"wspsr/internal/services"
	"wspsr/internal/testsupport"
)

func newTestPipeline(dir string) *Pipeline {
	return New(Options{
		Watcher: WatcherOptions{
			Dir:          dir,
			PollInterval: 20 * time.Millisecond,
			RescanRate:   100,
		},
		Inspector:      testInspector(),
		QueueSize:      8,
		ReceiveTimeout: 20 * time.Millisecond,
		WorkerGrace:    100 * time.Millisecond,
	})
}

func collect(ctx context.Context, p *Pipeline, want int) []media.Observation {
	var got []media.Observation
	for obs := range p.Observations(ctx) {
		got = append(got, obs)
		if len(got) == want {
			break
		}
	}
	return got
}

func TestPipelineObservesMediaFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	testsupport.WriteFile(t, path, []byte("ID3"))

	p := newTestPipeline(dir)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := collect(ctx, p, 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 observation, got %d", len(got))
	}
	if got[0].Key() != path || got[0].IsArchiveMember() {
		t.Fatalf("unexpected observation %+v", got[0])
	}
	if p.Running() {
		t.Fatal("pipeline still running after iteration ended")
	}
}

func TestPipelineObservesArchiveMembersAndSkipsOtherFiles(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "notes.txt"), []byte("hello"))
	testsupport.WriteFile(t, filepath.Join(dir, "bundle.zip"), []byte("PK"))

	p := newTestPipeline(dir)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := collect(ctx, p, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(got))
	}
	for _, obs := range got {
		if !obs.IsArchiveMember() {
			t.Fatalf("expected only archive members, got %+v", obs)
		}
	}
}

func TestPipelineCancellationStopsPromptly(t *testing.T) {
	dir := t.TempDir()
	p := newTestPipeline(dir)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan int, 1)
	go func() {
		count := 0
		for range p.Observations(ctx) {
			count++
		}
		done <- count
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case count := <-done:
		if count != 0 {
			t.Fatalf("expected no observations, got %d", count)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("observation sequence did not end after cancellation")
	}
	select {
	case <-p.watcherDone:
	default:
		t.Fatal("watcher still running")
	}
	select {
	case <-p.workerDone:
	default:
		t.Fatal("worker still running")
	}
	if err := p.Err(); err != nil {
		t.Fatalf("unexpected error after cancellation: %v", err)
	}
}

func TestPipelineEndsWhenDirectoryVanishes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mnt")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := newTestPipeline(dir)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range p.Observations(ctx) {
		}
	}()

	time.Sleep(50 * time.Millisecond)
	if err := os.Remove(dir); err != nil {
		t.Fatalf("remove: %v", err)
	}

	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("sequence did not end after directory vanished")
	}
	if !errors.Is(p.Err(), services.ErrProcessLifecycle) {
		t.Fatalf("expected lifecycle error, got %v", p.Err())
	}
}

func TestPipelineIsNotRestartable(t *testing.T) {
	p := newTestPipeline(t.TempDir())
	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p.Stop()
	p.Stop()
	if err := p.Start(ctx); !errors.Is(err, services.ErrProcessLifecycle) {
		t.Fatalf("expected restart to fail, got %v", err)
	}
	count := 0
	for range p.Observations(ctx) {
		count++
	}
	if count != 0 {
		t.Fatalf("stopped pipeline yielded %d observations", count)
	}
}

func TestStopBeforeStart(t *testing.T) {
	p := newTestPipeline(t.TempDir())
	p.Stop()
	if p.Running() {
		t.Fatal("pipeline reports running")
	}
}
