package usecase

import (
	"context"
	"errors"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
)

// SignalFanout publishes each event to every configured publisher. One
// failing publisher does not stop the others.
type SignalFanout []domrepo.SignalPublisher

func (f SignalFanout) PublishSignal(ctx context.Context, event models.SignalEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.PublishSignal(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
