// README: Driver route aggregate with its ordered pickup points.
package route

import (
	"strings"
	"time"

	"campuspool/internal/types"
)

type Direction string

const (
	ToCollege   Direction = "to_college"
	FromCollege Direction = "from_college"
)

func (d Direction) Valid() bool {
	return d == ToCollege || d == FromCollege
}

type Vehicle struct {
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
	Color string `json:"color,omitempty"`
	Plate string `json:"plate,omitempty"`
}

type PickupPoint struct {
	ID            types.ID        `json:"id"`
	Name          string          `json:"name"`
	Landmark      string          `json:"landmark,omitempty"`
	EstimatedTime types.TimeOfDay `json:"estimatedTime"`
}

type Route struct {
	ID             types.ID        `json:"id"`
	DriverID       types.ID        `json:"driver_id"`
	DriverName     string          `json:"driver_name"`
	Origin         string          `json:"origin"`
	Destination    string          `json:"destination"`
	DepartureTime  types.TimeOfDay `json:"departure_time"`
	Direction      Direction       `json:"direction"`
	AvailableSeats int             `json:"available_seats"`
	TotalSeats     int             `json:"total_seats"`
	PricePerSeat   types.Money     `json:"price_per_seat"`
	Amenities      []string        `json:"amenities"`
	Vehicle        *Vehicle        `json:"vehicle,omitempty"`
	PickupPoints   []PickupPoint   `json:"pickup_points"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (r *Route) PickupPoint(id types.ID) (PickupPoint, bool) {
	for _, p := range r.PickupPoints {
		if p.ID == id {
			return p, true
		}
	}
	return PickupPoint{}, false
}

// Clone returns a deep copy so callers never share slices with a store.
func (r *Route) Clone() *Route {
	c := *r
	c.Amenities = append([]string(nil), r.Amenities...)
	c.PickupPoints = append([]PickupPoint(nil), r.PickupPoints...)
	if r.Vehicle != nil {
		v := *r.Vehicle
		c.Vehicle = &v
	}
	return &c
}

// CancelledRequest identifies a pending ride request rejected when its route was deactivated.
type CancelledRequest struct {
	ID      types.ID
	RiderID types.ID
}

// Less orders routes by departure time, then creation time, then id.
func Less(a, b *Route) bool {
	if a.DepartureTime != b.DepartureTime {
		return a.DepartureTime < b.DepartureTime
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// NormalizeAmenities trims, drops blanks and removes case-insensitive duplicates, keeping first-seen order.
func NormalizeAmenities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, a := range in {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		k := strings.ToLower(a)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}
