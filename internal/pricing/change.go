// Package pricing holds the pure price-change arithmetic shared by the
// material update operation, request approval, and import paths.
package pricing

import "math"

// Direction classifies a price movement.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionNew  Direction = "new"
)

// Change is the outcome of comparing an old and a new price.
type Change struct {
	Percent   float64
	Direction Direction
}

// Compute returns the signed percentage change from oldPrice to newPrice.
// A nil or zero old price is the defined degenerate case: percent is zero
// and the movement classifies as "new" (first recorded price), never an
// error and never NaN/Inf.
func Compute(oldPrice *float64, newPrice float64) Change {
	if oldPrice == nil || *oldPrice == 0 {
		return Change{Percent: 0, Direction: DirectionNew}
	}
	percent := (newPrice - *oldPrice) / *oldPrice * 100
	direction := DirectionDown
	if percent > 0 {
		direction = DirectionUp
	}
	return Change{Percent: percent, Direction: direction}
}

// Round2 rounds to two decimal places for presentation and persistence of
// money values. Internal percent arithmetic stays at full float precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
