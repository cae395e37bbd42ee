package driven

import (
	"context"

	"github.com/ericfisherdev/prbeacon/internal/domain/model"
)

// Notifier plays the physical notification for an event. Implementations
// serialize device access: the device cannot play two patterns at once, and
// Notify blocks for the pattern's full duration. An error matching
// model.ErrDevice means the notification was dropped; the event is not
// presented again.
type Notifier interface {
	Notify(ctx context.Context, event model.Event) error
}
