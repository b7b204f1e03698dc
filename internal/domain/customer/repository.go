package customer

import (
	"context"
	"fmt"

	"loan-engine/internal/pkg/apperrors"
)

var (
	ErrNotFound = fmt.Errorf("%w: customer not found", apperrors.ErrNotFound)

	ErrPhoneExists = fmt.Errorf("%w: phone number already registered", apperrors.ErrAlreadyExists)
)

type CustomerRepository interface {
	Save(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	ExistsByPhone(ctx context.Context, phoneNumber int64) (bool, error)

	// Upsert inserts or overwrites the customer keyed by its ID and reports whether a row was created.
	Upsert(ctx context.Context, customer *Customer) (bool, error)

	SyncIDSequence(ctx context.Context) error
}
