package service

import (
	"context"
	"errors"
	"time"

	"spazatrack/internal/apperr"

	"gorm.io/gorm"
)

// Options carries the runtime knobs shared by every service.
type Options struct {
	// Now is the clock used for sale dates, journal timestamps and last_login.
	Now func() time.Time
	// Location decides which calendar day a sale belongs to.
	Location *time.Location
	// OpTimeout bounds each store operation. Zero disables the bound.
	OpTimeout time.Duration
}

func (o Options) normalized() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	return o
}

// bound derives the per-operation context.
func (o Options) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.OpTimeout)
}

var domainErrors = []error{
	apperr.ErrDuplicateUsername,
	apperr.ErrDuplicateEmail,
	apperr.ErrInvalidCredentials,
	apperr.ErrInvalidToken,
	apperr.ErrExpiredToken,
	apperr.ErrForbidden,
	apperr.ErrNotFound,
	apperr.ErrInsufficientStock,
	apperr.ErrStorageFailure,
}

// translate maps a store error onto the apperr taxonomy. Errors that already
// belong to it pass through untouched.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.ErrNotFound
	}
	if apperr.IsValidation(err) {
		return err
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	return apperr.Storage(op, err)
}
