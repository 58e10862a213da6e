package pricing

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestComputeMatchesFormula(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		oldPrice := rng.Float64()*9999 + 0.01
		newPrice := rng.Float64() * 10000

		change := Compute(ptr(oldPrice), newPrice)
		expected := (newPrice - oldPrice) / oldPrice * 100
		require.InDelta(t, expected, change.Percent, 1e-9)
		require.False(t, math.IsNaN(change.Percent))
		require.False(t, math.IsInf(change.Percent, 0))
	}
}

func TestComputeScenario(t *testing.T) {
	change := Compute(ptr(100.00), 125.50)
	require.InDelta(t, 25.5, change.Percent, 1e-9)
	require.Equal(t, DirectionUp, change.Direction)
}

func TestComputeDirectionDown(t *testing.T) {
	change := Compute(ptr(80), 60)
	require.InDelta(t, -25, change.Percent, 1e-9)
	require.Equal(t, DirectionDown, change.Direction)
}

func TestComputeDegenerateOldPrice(t *testing.T) {
	change := Compute(nil, 42.10)
	require.Zero(t, change.Percent)
	require.Equal(t, DirectionNew, change.Direction)

	change = Compute(ptr(0), 42.10)
	require.Zero(t, change.Percent)
	require.Equal(t, DirectionNew, change.Direction)
}

func TestComputeDeterministic(t *testing.T) {
	first := Compute(ptr(33.33), 44.44)
	second := Compute(ptr(33.33), 44.44)
	require.Equal(t, first, second)
}

func TestRound2(t *testing.T) {
	require.Equal(t, 25.5, Round2(25.499999999))
	require.Equal(t, -3.33, Round2(-3.3349))
	require.Equal(t, 0.0, Round2(0.0049))
}
