// README: Route persistence contract; implemented by PgStore and the in-memory store.
package route

import (
	"context"
	"time"

	"campuspool/internal/apperr"
	"campuspool/internal/types"
)

var (
	ErrNotFound    = apperr.New(apperr.KindNotFound, "route not found")
	ErrNotOwner    = apperr.New(apperr.KindAuthorization, "route belongs to another driver")
	ErrActiveRoute = apperr.New(apperr.KindConflict, "driver already has an active route")
	ErrCapacity    = apperr.New(apperr.KindCapacity, "no seats available on route")
)

type Store interface {
	// Create fails with ErrActiveRoute when the driver already has an active route.
	Create(ctx context.Context, r *Route) error
	Get(ctx context.Context, id types.ID) (*Route, error)
	ListActive(ctx context.Context) ([]*Route, error)
	// ListByDriver returns every route of the driver, newest first.
	ListByDriver(ctx context.Context, driverID types.ID) ([]*Route, error)
	// Deactivate marks the route inactive and rejects its pending requests in one atomic unit.
	// changed is false when the route was already inactive.
	Deactivate(ctx context.Context, id types.ID, at time.Time) (cancelled []CancelledRequest, changed bool, err error)
	// DecrementSeats returns ErrNotFound for unknown or inactive routes and ErrCapacity when count exceeds the seats left.
	DecrementSeats(ctx context.Context, id types.ID, count int) (*Route, error)
}
