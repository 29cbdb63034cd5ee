// README: Ride request persistence contract; every mutation re-validates state atomically.
package request

import (
	"context"
	"time"

	"campuspool/internal/apperr"
	"campuspool/internal/modules/route"
	"campuspool/internal/types"
)

var (
	ErrNotFound      = apperr.New(apperr.KindNotFound, "ride request not found")
	ErrUnknownPickup = apperr.New(apperr.KindNotFound, "pickup point not found on route")
	ErrNotOwner      = apperr.New(apperr.KindAuthorization, "ride request belongs to another driver's route")
	ErrInvalidState  = apperr.New(apperr.KindInvalidState, "ride request is no longer pending")
	ErrDuplicate     = apperr.New(apperr.KindDuplicateRequest, "rider already has a pending or accepted request on this route")
	ErrOwnRoute      = apperr.New(apperr.KindValidation, "drivers cannot request a seat on their own route")
	ErrCapacity      = route.ErrCapacity
)

type Store interface {
	// Create re-checks inside one atomic unit that the route is active (route.ErrNotFound),
	// that the rider holds no pending or accepted request on it (ErrDuplicate) and that seats
	// remain (ErrCapacity).
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, id types.ID) (*Request, error)
	// ListPendingByDriver returns pending requests on the driver's routes, oldest first.
	ListPendingByDriver(ctx context.Context, driverID types.ID) ([]*Request, error)
	// ListByRider returns all of the rider's requests, newest first.
	ListByRider(ctx context.Context, riderID types.ID) ([]*Request, error)
	// Accept takes one seat, draws one ride credit from the rider's usable subscription if any
	// (recorded in SubscriptionID) and marks the request accepted. When no seat is left the
	// request is committed as rejected with ReasonCapacityExhausted and returned with ErrCapacity.
	Accept(ctx context.Context, id types.ID, at time.Time) (*Request, error)
	Reject(ctx context.Context, id types.ID, reason Reason, at time.Time) (*Request, error)
}
