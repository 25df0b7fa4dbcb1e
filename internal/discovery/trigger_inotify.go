package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"

	"wspsr/internal/logging"
)

const (
	inotifyMask = unix.IN_CREATE | unix.IN_CLOSE_WRITE | unix.IN_MOVED_TO | unix.IN_MOVED_FROM |
		unix.IN_DELETE | unix.IN_DELETE_SELF | unix.IN_MOVE_SELF | unix.IN_UNMOUNT
	inotifyPollMillis = 200
)

// inotifyTrigger wakes the watcher on any inotify event for the watched
// directory itself. Subdirectories are left to the poll ticker.
type inotifyTrigger struct {
	dir    string
	logger *slog.Logger

	mu   sync.Mutex
	quit chan struct{}
	done chan struct{}
}

// NewInotifyTrigger returns a trigger backed by Linux inotify.
func NewInotifyTrigger(dir string, logger *slog.Logger) Trigger {
	return &inotifyTrigger{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "inotify"),
	}
}

func (t *inotifyTrigger) Name() string { return "inotify" }

func (t *inotifyTrigger) Start(ctx context.Context, wake func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quit != nil {
		return nil
	}

	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return fmt.Errorf("inotify init: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, t.dir, inotifyMask); err != nil {
		_ = unix.Close(fd)
		return fmt.Errorf("inotify watch %s: %w", t.dir, err)
	}

	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(ctx, fd, wake, t.quit, t.done)
	return nil
}

func (t *inotifyTrigger) Stop() {
	t.mu.Lock()
	quit, done := t.quit, t.done
	t.quit, t.done = nil, nil
	t.mu.Unlock()
	if quit == nil {
		return
	}
	close(quit)
	<-done
}

// loop polls fd with a short timeout so quit is noticed promptly, and owns
// fd until it returns.
func (t *inotifyTrigger) loop(ctx context.Context, fd int, wake func(), quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer unix.Close(fd)

	buf := make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		select {
		case <-quit:
			return
		case <-ctx.Done():
			return
		default:
		}

		n, err := unix.Poll(fds, inotifyPollMillis)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			logging.WarnWithContext(t.logger, "inotify poll failed; trigger stopped", "inotify_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "new files are picked up on the next poll tick"),
			)
			return
		}
		if n == 0 {
			continue
		}

		events := 0
		for {
			read, err := unix.Read(fd, buf)
			if err != nil || read <= 0 {
				break
			}
			events += read / unix.SizeofInotifyEvent
		}
		if events > 0 {
			wake()
		}
	}
}
