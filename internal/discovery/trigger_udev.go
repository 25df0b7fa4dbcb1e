package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"wspsr/internal/logging"
)

// udevTrigger wakes the watcher when a block device appears, changes, or
// goes away, and once more after a settle delay because the mount under the
// watched directory lands some time after the device event.
type udevTrigger struct {
	logger *slog.Logger
	settle time.Duration

	mu          sync.Mutex
	conn        *netlink.UEventConn
	quit        chan struct{}
	done        chan struct{}
	settleTimer *time.Timer
}

// NewUdevTrigger returns a trigger listening to kernel uevents over netlink.
func NewUdevTrigger(logger *slog.Logger, settle time.Duration) Trigger {
	return &udevTrigger{
		logger: logging.NewComponentLogger(logger, "udev"),
		settle: settle,
	}
}

func (t *udevTrigger) Name() string { return "udev" }

// Start connects to the udev netlink socket. A connection failure is logged
// and not returned; discovery keeps working on the poll ticker.
func (t *udevTrigger) Start(ctx context.Context, wake func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quit != nil {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		t.logger.Warn("failed to connect to netlink socket; removable media detection will rely on polling",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the process may open NETLINK_KOBJECT_UEVENT sockets"),
			logging.String(logging.FieldImpact, "new media is noticed on the next poll tick"),
		)
		return nil
	}

	t.conn = conn
	t.quit = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(ctx, conn, wake, t.quit, t.done)

	t.logger.Info("udev trigger started",
		logging.String(logging.FieldEventType, "udev_trigger_started"),
	)
	return nil
}

func (t *udevTrigger) Stop() {
	t.mu.Lock()
	quit, done, conn := t.quit, t.done, t.conn
	t.quit, t.done, t.conn = nil, nil, nil
	if t.settleTimer != nil {
		t.settleTimer.Stop()
		t.settleTimer = nil
	}
	t.mu.Unlock()

	if quit == nil {
		return
	}
	close(quit)
	<-done
	_ = conn.Close()
}

func (t *udevTrigger) loop(ctx context.Context, conn *netlink.UEventConn, wake func(), quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	events := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(events, errs, blockDeviceMatcher())
	defer close(monitorQuit)

	for {
		select {
		case <-ctx.Done():
			return
		case <-quit:
			return
		case uevent := <-events:
			t.logger.Debug("block device event",
				logging.String("action", string(uevent.Action)),
				logging.String("device", uevent.Env["DEVNAME"]),
			)
			wake()
			t.scheduleSettled(wake)
		case err := <-errs:
			t.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "removable media detection may be delayed"),
			)
		}
	}
}

func (t *udevTrigger) scheduleSettled(wake func()) {
	if t.settle <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quit == nil {
		return
	}
	if t.settleTimer != nil {
		t.settleTimer.Stop()
	}
	t.settleTimer = time.AfterFunc(t.settle, wake)
}

// blockDeviceMatcher matches SUBSYSTEM=block with ACTION=add|change|remove.
func blockDeviceMatcher() netlink.Matcher {
	action := "add|change|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "block",
		},
	})
	return rules
}
