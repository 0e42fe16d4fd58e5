package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Dispatcher fans a notification out to every channel. It never retries.
type Dispatcher struct {
	channels []Channel
	log      zerolog.Logger
	now      func() time.Time
}

func NewDispatcher(log zerolog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		log:      log,
		now:      time.Now,
	}
}

// Channels returns the names of the configured channels.
func (d *Dispatcher) Channels() []string {
	names := make([]string, 0, len(d.channels))
	for _, ch := range d.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Dispatch delivers n to every channel. A notification without recipients is
// skipped and reported as delivered. Channel failures are joined and wrapped
// in domain.ErrDispatchFailed.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	if len(n.Recipients) == 0 {
		d.log.Debug().
			Str("item_id", n.ItemID).
			Str("kind", string(n.Kind)).
			Msg("no recipients, notification skipped")
		return nil
	}

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now().UTC()
	}

	var errs []error
	for _, ch := range d.channels {
		if err := ch.Send(ctx, n); err != nil {
			d.log.Error().Err(err).
				Str("channel", ch.Name()).
				Str("notification_id", n.ID).
				Str("item_id", n.ItemID).
				Str("kind", string(n.Kind)).
				Msg("notification delivery failed")
			errs = append(errs, fmt.Errorf("%w: %s: %w", domain.ErrDispatchFailed, ch.Name(), err))
		}
	}

	return errors.Join(errs...)
}
