// Package blink1 implements the Notifier port on a blink(1) USB HID device.
package blink1

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	b1 "github.com/hink/go-blink1"

	"github.com/ericfisherdev/prbeacon/internal/domain/model"
	"github.com/ericfisherdev/prbeacon/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Notifier = (*Notifier)(nil)

// device is the slice of the blink(1) driver the notifier relies on.
// *b1.Device satisfies it; tests substitute a fake.
type device interface {
	SetState(state b1.State) error
	Close()
}

// openDevice opens the first attached blink(1). Swapped in tests to avoid
// touching real USB hardware.
var openDevice = func() (device, error) {
	return b1.OpenNextDevice()
}

// Notifier plays flash patterns on a single blink(1) device. The device
// cannot play two patterns at once, so all access is serialized behind a
// mutex. A missing device is tolerated: each Notify call retries the
// connection before giving up.
type Notifier struct {
	mu  sync.Mutex
	dev device // nil while disconnected
}

// NewNotifier attempts to open the first blink(1) device. A missing device is
// not fatal; the notifier starts disconnected and reconnects lazily.
func NewNotifier() *Notifier {
	n := &Notifier{}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.connect(); err != nil {
		slog.Warn("blink(1) not available, notifications will be skipped until it appears", "error", err)
	}
	return n
}

// connect opens the device. Callers must hold n.mu.
func (n *Notifier) connect() error {
	dev, err := openDevice()
	if err != nil {
		return fmt.Errorf("opening blink(1): %w: %v", model.ErrDevice, err)
	}
	n.dev = dev
	slog.Info("blink(1) connected")
	return nil
}

// Notify plays the pattern for the event's kind. The call blocks for the
// pattern's total duration. On a device write failure the device is dropped
// and the next call reconnects; the notification itself is not retried.
func (n *Notifier) Notify(ctx context.Context, event model.Event) error {
	pattern, ok := model.PatternFor(event.Kind)
	if !ok {
		return fmt.Errorf("no pattern for event kind %q", event.Kind)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.dev == nil {
		if err := n.connect(); err != nil {
			return err
		}
	}

	if err := n.play(ctx, pattern); err != nil {
		n.dev.Close()
		n.dev = nil
		return err
	}
	return nil
}

// play runs the pattern as alternating color and dark states. SetState blocks
// for the state's duration, so each call plays one full step. Cancellation is
// observed between repeats, never mid-write.
func (n *Notifier) play(ctx context.Context, p model.Pattern) error {
	for i := 0; i < p.Repeat; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		on := b1.State{Red: p.Red, Green: p.Green, Blue: p.Blue, Duration: p.On}
		if err := n.dev.SetState(on); err != nil {
			return fmt.Errorf("writing blink(1) state: %w: %v", model.ErrDevice, err)
		}

		off := b1.State{Duration: p.Off}
		if err := n.dev.SetState(off); err != nil {
			return fmt.Errorf("writing blink(1) state: %w: %v", model.ErrDevice, err)
		}
	}
	return nil
}

// SelfTest plays a short red, green, blue sequence to verify connectivity.
func (n *Notifier) SelfTest(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.dev == nil {
		if err := n.connect(); err != nil {
			return err
		}
	}

	states := []b1.State{
		{Red: 0xFF, Duration: 500 * time.Millisecond},
		{Green: 0xFF, Duration: 500 * time.Millisecond},
		{Blue: 0xFF, Duration: 500 * time.Millisecond},
		{},
	}
	for _, state := range states {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.dev.SetState(state); err != nil {
			return fmt.Errorf("writing blink(1) state: %w: %v", model.ErrDevice, err)
		}
	}
	return nil
}

// Close turns the light off and releases the device.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.dev == nil {
		return
	}
	if err := n.dev.SetState(b1.State{}); err != nil {
		slog.Warn("failed to turn blink(1) off", "error", err)
	}
	n.dev.Close()
	n.dev = nil
}
