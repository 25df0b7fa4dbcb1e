package workflow

import (
	"context"
	"log/slog"
	"time"

	"wspsr/internal/logging"
	"wspsr/internal/queue"
)

// StatusEvent reports one task status change.
type StatusEvent struct {
	Key     string
	Status  queue.Status
	Message string
	Time    time.Time
}

// StatusSink receives status changes. Implementations must not block.
type StatusSink interface {
	StatusChanged(StatusEvent)
}

// StatusFunc adapts a function to StatusSink.
type StatusFunc func(StatusEvent)

func (f StatusFunc) StatusChanged(ev StatusEvent) { f(ev) }

type nopSink struct{}

func (nopSink) StatusChanged(StatusEvent) {}

func (m *Manager) publish(ev StatusEvent) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	m.sink.StatusChanged(ev)
}

// transition persists a status change and announces it. Writes survive
// cancellation of ctx so a shutdown still records where the task stopped.
func (m *Manager) transition(ctx context.Context, logger *slog.Logger, key string, status queue.Status, message string) error {
	task, err := m.store.SetStatus(context.WithoutCancel(ctx), key, status, message)
	if err != nil {
		logger.Error("failed to persist status change",
			logging.String("status", string(status)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "status_persist_failed"),
		)
		return err
	}
	m.metrics.Transition(string(status))

	attrs := []logging.Attr{
		logging.String("status", string(status)),
		logging.String("label", status.Label()),
		logging.String(logging.FieldEventType, "status_changed"),
	}
	if message != "" {
		attrs = append(attrs, logging.String("message", message))
	}
	if status == queue.StatusFailed {
		logger.Warn("task status changed", logging.Args(attrs...)...)
	} else {
		logger.Info("task status changed", logging.Args(attrs...)...)
	}
	m.publish(StatusEvent{Key: key, Status: status, Message: message, Time: task.UpdatedAt})
	return nil
}
