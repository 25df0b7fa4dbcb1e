package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"wspsr/internal/logging"
	"wspsr/internal/media"
	"wspsr/internal/metrics"
	"wspsr/internal/services"
)

// stopSentinel queued on the path channel ends the worker once every path
// ahead of it has been inspected.
const stopSentinel = ""

// worker drains the path queue through the inspector until it takes
// stopSentinel. Cancelling its context aborts the path in progress, killing
// a running probe.
type worker struct {
	inspector *Inspector
	in        <-chan string
	out       chan<- media.Observation
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func (w *worker) run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = services.Wrap(services.ErrProcessLifecycle, "discovery", "worker", "inspection worker crashed", fmt.Errorf("panic: %v", r))
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-w.in:
			if path == stopSentinel {
				return nil
			}
			if !w.handle(ctx, path) {
				return nil
			}
		}
	}
}

// handle inspects one path and forwards its observations. It reports false
// when the context ended while forwarding.
func (w *worker) handle(ctx context.Context, path string) bool {
	observations, err := w.inspector.Inspect(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.reportFailure(path, err)
		return true
	}
	for _, obs := range observations {
		select {
		case w.out <- obs:
			kind := "file"
			if obs.IsArchiveMember() {
				kind = "member"
			}
			w.metrics.Observation(kind)
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (w *worker) reportFailure(path string, err error) {
	reason := "other"
	if marker := services.Marker(err); marker != nil {
		reason = failureReason(marker)
	}
	w.metrics.InspectFailure(reason)

	if errors.Is(err, services.ErrNotFound) {
		w.logger.Debug("path vanished during inspection",
			logging.String("path", path),
			logging.Error(err),
		)
		return
	}
	logging.WarnWithContext(w.logger, "inspection failed; path skipped", "inspect_failed",
		logging.String("path", path),
		logging.String("reason", reason),
		logging.Error(err),
		logging.String(logging.FieldImpact, "no tracks registered for this path"),
	)
}

func failureReason(marker error) string {
	switch marker {
	case services.ErrNotFound:
		return "not_found"
	case services.ErrArchiveIntegrity:
		return "archive_integrity"
	case services.ErrUnsupportedFormat:
		return "unsupported_format"
	case services.ErrEncrypted:
		return "encrypted"
	case services.ErrExternalTool:
		return "external_tool"
	default:
		return "other"
	}
}
