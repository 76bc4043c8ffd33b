package kds

import (
	"context"
	"errors"
)

// MultiPublisher publishes to every publisher and reports all failures together.
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, channel, event string, data interface{}) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, channel, event, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
