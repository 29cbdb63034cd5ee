// README: "Leaving now" broadcast: a route snapshot with a fixed expiry.
package broadcast

import (
	"time"

	"campuspool/internal/modules/route"
	"campuspool/internal/types"
)

type Broadcast struct {
	ID             types.ID        `json:"id"`
	RouteID        types.ID        `json:"route_id"`
	DriverID       types.ID        `json:"driver_id"`
	DriverName     string          `json:"driver_name"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	DepartureTime  types.TimeOfDay `json:"departure_time"`
	AvailableSeats int             `json:"available_seats"`
	Vehicle        *route.Vehicle  `json:"vehicle,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

// ActiveAt reports whether the broadcast is still visible at now; it expires at ExpiresAt exactly.
func (b *Broadcast) ActiveAt(now time.Time) bool {
	return now.Before(b.ExpiresAt)
}

func (b *Broadcast) Clone() *Broadcast {
	c := *b
	if b.Vehicle != nil {
		v := *b.Vehicle
		c.Vehicle = &v
	}
	return &c
}

func snapshot(r *route.Route, now time.Time, ttl time.Duration) *Broadcast {
	b := &Broadcast{
		ID:             types.NewID(),
		RouteID:        r.ID,
		DriverID:       r.DriverID,
		DriverName:     r.DriverName,
		Origin:         r.Origin,
		Destination:    r.Destination,
		DepartureTime:  r.DepartureTime,
		AvailableSeats: r.AvailableSeats,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
	if r.Vehicle != nil {
		v := *r.Vehicle
		b.Vehicle = &v
	}
	return b
}
