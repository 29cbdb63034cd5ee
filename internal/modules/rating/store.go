// README: Rating persistence contract.
package rating

import (
	"context"

	"campuspool/internal/apperr"
	"campuspool/internal/types"
)

var (
	ErrNotRider   = apperr.New(apperr.KindAuthorization, "only the rider of a ride can rate it")
	ErrNotRatable = apperr.New(apperr.KindInvalidState, "only accepted rides can be rated")
	ErrDuplicate  = apperr.New(apperr.KindDuplicateRequest, "ride has already been rated")
)

type Store interface {
	// Create fails with ErrDuplicate when the request already has a rating.
	Create(ctx context.Context, r *Rating) error
	// ListForDriver returns the driver's ratings, newest first.
	ListForDriver(ctx context.Context, driverID types.ID) ([]*Rating, error)
}
