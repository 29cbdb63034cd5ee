// README: Ride request aggregate and its one-way status machine.
package request

import (
	"time"

	"campuspool/internal/types"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonDriverRejected    Reason = "driver_rejected"
	ReasonCapacityExhausted Reason = "capacity_exhausted"
	ReasonRouteCancelled    Reason = "route_cancelled"
)

type Request struct {
	ID             types.ID        `json:"id"`
	RiderID        types.ID        `json:"rider_id"`
	RiderName      string          `json:"rider_name"`
	DriverID       types.ID        `json:"driver_id"`
	DriverName     string          `json:"driver_name"`
	RouteID        types.ID        `json:"route_id"`
	PickupPointID  types.ID        `json:"pickup_point_id"`
	PickupLocation string          `json:"pickup_location"`
	PickupTime     types.TimeOfDay `json:"pickup_time"`
	Status         Status          `json:"status"`
	Reason         Reason          `json:"reason,omitempty"`
	SubscriptionID types.ID        `json:"subscription_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	DecidedAt      *time.Time      `json:"decided_at,omitempty"`
}

func (r *Request) Clone() *Request {
	c := *r
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}

// AllowedTransitions is the request state flow as code; accepted and rejected are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusPending: {StatusAccepted, StatusRejected},
}

func CanTransition(from, to Status) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
