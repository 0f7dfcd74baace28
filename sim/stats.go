package sim

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LegStats summarises how many ticks each completed leg took.
type LegStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func summariseLegs(ticks []float64) LegStats {
	if len(ticks) == 0 {
		return LegStats{}
	}
	out := LegStats{
		Count: len(ticks),
		Min:   floats.Min(ticks),
		Max:   floats.Max(ticks),
	}
	out.Mean, out.StdDev = stat.MeanStdDev(ticks, nil)
	// A single sample has no spread; gonum reports NaN for it.
	if math.IsNaN(out.StdDev) {
		out.StdDev = 0
	}
	return out
}

// LegTicks returns the tick count of every completed leg in order.
func (s *Simulation) LegTicks() []int {
	out := make([]int, len(s.legTicks))
	for i, v := range s.legTicks {
		out[i] = int(v)
	}
	return out
}
