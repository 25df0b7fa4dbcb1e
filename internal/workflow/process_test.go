package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"wspsr/internal/queue"
	"wspsr/internal/services"
	"wspsr/internal/testsupport"
)

func TestProcessPlainTrackCompletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	source := h.mediaFile(t, "song.mp3")
	track := testsupport.PlainTrack(source, 0)
	testsupport.AddTrack(t, h.store, track)

	if err := h.manager.ProcessTrack(ctx, track.Key); err != nil {
		t.Fatalf("ProcessTrack: %v", err)
	}

	if got := h.status(t, track.Key); got != queue.StatusCompleted {
		t.Fatalf("status = %s", got)
	}
	if got := h.runner.programs(); !slices.Equal(got, []string{"ffmpeg", "whisperx"}) {
		t.Fatalf("commands = %v", got)
	}
	want := []queue.Status{queue.StatusLoading, queue.StatusTranscribing, queue.StatusReturning, queue.StatusCompleted}
	if got := h.events.statuses(track.Key); !slices.Equal(got, want) {
		t.Fatalf("status events = %v, want %v", got, want)
	}

	ffmpegCmd, _ := h.runner.command("ffmpeg")
	if ffmpegCmd.Args[len(ffmpegCmd.Args)-1] != "song.mp3.oga" {
		t.Fatalf("unexpected intermediate name in %v", ffmpegCmd.Args)
	}
	whisper, _ := h.runner.command("whisperx")
	if !slices.Contains(whisper.Args, "--diarize") {
		t.Fatalf("default models select diarization, args %v", whisper.Args)
	}
	if whisper.Dir != ffmpegCmd.Dir || whisper.Dir == "" {
		t.Fatalf("commands did not share a scratch dir: %q vs %q", whisper.Dir, ffmpegCmd.Dir)
	}

	out := source + ".output"
	if _, err := os.Stat(filepath.Join(out, "song.mp3.txt")); err != nil {
		t.Fatalf("transcript not exported: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "song.mp3.oga")); !os.IsNotExist(err) {
		t.Fatalf("intermediate must not be exported, stat err %v", err)
	}
	if entries := scratchEntries(t, h.cfg); len(entries) != 0 {
		t.Fatalf("scratch not cleaned: %v", entries)
	}

	task, err := h.store.Task(ctx, track.Key)
	if err != nil {
		t.Fatalf("Task: %v", err)
	}
	if task.RunID == "" || task.LogPath == "" {
		t.Fatalf("run not recorded: %+v", task)
	}
	logData, err := os.ReadFile(task.LogPath)
	if err != nil {
		t.Fatalf("read task log: %v", err)
	}
	if !strings.Contains(string(logData), ">> ffmpeg") || !strings.Contains(string(logData), "fake output") {
		t.Fatalf("task log missing command output:\n%s", logData)
	}
}

func TestProcessEncryptedTrackFailsWithoutCommands(t *testing.T) {
	h := newHarness(t)
	archive := h.mediaFile(t, "b.zip")
	track := testsupport.MemberTrack(archive, "clip.wav", true)
	testsupport.AddTrack(t, h.store, track)

	if err := h.manager.ProcessTrack(context.Background(), track.Key); err != nil {
		t.Fatalf("ProcessTrack: %v", err)
	}
	if got := h.status(t, track.Key); got != queue.StatusFailed {
		t.Fatalf("status = %s", got)
	}
	if got := h.runner.programs(); len(got) != 0 {
		t.Fatalf("expected no commands, got %v", got)
	}
	if got := h.events.statuses(track.Key); !slices.Equal(got, []queue.Status{queue.StatusFailed}) {
		t.Fatalf("status events = %v", got)
	}
}

func TestProcessUnpackFailureStopsPipeline(t *testing.T) {
	h := newHarness(t)
	h.runner.exits["bsdtar"] = 1
	archive := h.mediaFile(t, "b.zip")
	track := testsupport.MemberTrack(archive, "clip.wav", false)
	testsupport.AddTrack(t, h.store, track)

	if err := h.manager.ProcessTrack(context.Background(), track.Key); err != nil {
		t.Fatalf("ProcessTrack: %v", err)
	}
	if got := h.status(t, track.Key); got != queue.StatusFailed {
		t.Fatalf("status = %s", got)
	}
	if got := h.runner.programs(); !slices.Equal(got, []string{"bsdtar"}) {
		t.Fatalf("expected only the unpack command, got %v", got)
	}
	if got := h.events.statuses(track.Key); !slices.Equal(got, []queue.Status{queue.StatusUnpacking, queue.StatusFailed}) {
		t.Fatalf("status events = %v", got)
	}
	task, _ := h.store.Task(context.Background(), track.Key)
	if !strings.Contains(task.ErrorMessage, "code 1") {
		t.Fatalf("error message = %q", task.ErrorMessage)
	}
}

func TestProcessArchiveMemberUsesExtractedFile(t *testing.T) {
	h := newHarness(t)
	archive := h.mediaFile(t, "b.zip")
	track := testsupport.MemberTrack(archive, "disc/clip.wav", false)
	testsupport.AddTrack(t, h.store, track)

	if err := h.manager.ProcessTrack(context.Background(), track.Key); err != nil {
		t.Fatalf("ProcessTrack: %v", err)
	}
	if got := h.status(t, track.Key); got != queue.StatusCompleted {
		t.Fatalf("status = %s", got)
	}
	unpack, _ := h.runner.command("bsdtar")
	if !slices.Equal(unpack.Args, []string{"-x", "-k", "-f", archive, "disc/clip.wav"}) {
		t.Fatalf("bsdtar args = %v", unpack.Args)
	}
	load, _ := h.runner.command("ffmpeg")
	wantInput := filepath.Join(load.Dir, "disc", "clip.wav")
	if !slices.Contains(load.Args, wantInput) {
		t.Fatalf("ffmpeg input should be %s, args %v", wantInput, load.Args)
	}
	if _, err := os.Stat(filepath.Join(archive+".output", "clip.wav.txt")); err != nil {
		t.Fatalf("transcript not exported: %v", err)
	}
}

func TestProcessRejectsUnsafeMemberPath(t *testing.T) {
	h := newHarness(t)
	archive := h.mediaFile(t, "b.zip")
	track := testsupport.MemberTrack(archive, "../escape.wav", false)
	testsupport.AddTrack(t, h.store, track)

	if err := h.manager.ProcessTrack(context.Background(), track.Key); err != nil {
		t.Fatalf("ProcessTrack: %v", err)
	}
	if got := h.status(t, track.Key); got != queue.StatusFailed {
		t.Fatalf("status = %s", got)
	}
	if got := h.runner.programs(); len(got) != 0 {
		t.Fatalf("expected no commands, got %v", got)
	}
}

func TestTranscribeFailurePolicy(t *testing.T) {
	tests := []struct {
		name     string
		failFast bool
		want     queue.Status
	}{
		{"fail fast", true, queue.StatusFailed},
		{"tolerant", false, queue.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.cfg.Workflow.FailOnTranscribeError = tt.failFast
			h.runner.exits["whisperx"] = 2
			source := h.mediaFile(t, "talk.mp3")
			track := testsupport.PlainTrack(source, 0)
			testsupport.AddTrack(t, h.store, track)

			if err := h.manager.ProcessTrack(context.Background(), track.Key); err != nil {
				t.Fatalf("ProcessTrack: %v", err)
			}
			if got := h.status(t, track.Key); got != tt.want {
				t.Fatalf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProcessSkipsTaskWithoutModels(t *testing.T) {
	h := newHarness(t, testsupport.WithDefaultModels())
	source := h.mediaFile(t, "song.mp3")
	track := testsupport.PlainTrack(source, 0)
	testsupport.AddTrack(t, h.store, track)

	if got := h.status(t, track.Key); got != queue.StatusSkipped {
		t.Fatalf("status = %s", got)
	}
	if err := h.manager.ProcessTrack(context.Background(), track.Key); err != nil {
		t.Fatalf("ProcessTrack: %v", err)
	}
	if got := h.runner.programs(); len(got) != 0 {
		t.Fatalf("skipped task ran commands %v", got)
	}
	if err := h.manager.Start(context.Background(), track.Key); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected Start to reject skipped task, got %v", err)
	}
}

func TestTranscribeUsesTaskOverrides(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	source := h.mediaFile(t, "meeting.mp3")
	track := testsupport.PlainTrack(source, 0)
	testsupport.AddTrack(t, h.store, track)

	minSpeakers, maxSpeakers, prompt := 2, 3, "Møtereferat"
	if err := h.manager.SetOptions(ctx, track.Key, queue.Options{
		Models:      []string{"nb-large", "diarize"},
		MinSpeakers: &minSpeakers,
		MaxSpeakers: &maxSpeakers,
		Prompt:      &prompt,
	}); err != nil {
		t.Fatalf("SetOptions: %v", err)
	}
	if err := h.manager.ProcessTrack(ctx, track.Key); err != nil {
		t.Fatalf("ProcessTrack: %v", err)
	}
	whisper, ok := h.runner.command("whisperx")
	if !ok {
		t.Fatal("whisperx not run")
	}
	joined := strings.Join(whisper.Args, " ")
	for _, want := range []string{
		"--model NbAiLab/nb-whisper-large",
		"--diarize --min_speakers 2 --max_speakers 3",
		"--initial_prompt Møtereferat",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args %q missing %q", joined, want)
		}
	}
}
