package output

import (
	"context"
	"errors"

	"github.com/rbright/uplink/internal/state"
)

// Fanout delivers each snapshot to every sink, in order, and joins failures.
type Fanout []Sink

// Publish calls every sink even when an earlier one fails.
func (f Fanout) Publish(ctx context.Context, snap state.Snapshot) error {
	var errs []error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		if err := sink.Publish(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
