package notify

import (
	"context"
	"errors"
)

// Multi fans an alert out to several notifiers. Every notifier is tried;
// failures are joined.
type Multi []Notifier

// SendDeal sends alert to every notifier in m.
func (m Multi) SendDeal(ctx context.Context, alert *DealAlert) error {
	var errs []error
	for _, n := range m {
		if err := n.SendDeal(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
