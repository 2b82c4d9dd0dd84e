package store

import (
	"context"
	"errors"

	"github.com/mohit83k/honeypot/internal/model"
)

// Store persists finalized session records.
type Store interface {
	Save(ctx context.Context, record model.SessionRecord) error
}

// Multi saves every record to each of its stores in order. A failing store
// does not stop the others; all failures are returned together.
type Multi []Store

func (m Multi) Save(ctx context.Context, record model.SessionRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
