// README: Ride rating model and driver score aggregation.
package rating

import (
	"math"
	"time"

	"campuspool/internal/types"
)

const (
	MinScore = 1
	MaxScore = 10
)

type Rating struct {
	ID         types.ID  `json:"id"`
	RequestID  types.ID  `json:"request_id"`
	RiderID    types.ID  `json:"rider_id"`
	DriverID   types.ID  `json:"driver_id"`
	Smoothness int       `json:"smoothness"`
	Comfort    int       `json:"comfort"`
	Amenities  []string  `json:"amenities"`
	CreatedAt  time.Time `json:"created_at"`
}

type Score struct {
	DriverID types.ID `json:"driver_id"`
	Average  float64  `json:"average"`
	Count    int      `json:"count"`
}

// ComputeScore averages (smoothness+comfort)/2 over all ratings and halves it onto a
// five-star scale, rounded to one decimal.
func ComputeScore(driverID types.ID, ratings []*Rating) Score {
	s := Score{DriverID: driverID, Count: len(ratings)}
	if len(ratings) == 0 {
		return s
	}
	var sum float64
	for _, r := range ratings {
		sum += float64(r.Smoothness+r.Comfort) / 2
	}
	s.Average = math.Round(sum/float64(len(ratings))/2*10) / 10
	return s
}
