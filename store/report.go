package store

// LegSummary aggregates the rows of one snake chasing one goal.
type LegSummary struct {
	SnakeID   string
	Goal      int
	PathClass string
	Ticks     int
	Fallbacks int
	NoSafe    int
	Crossings int
	Ate       bool
	Collided  bool
	Cause     string
}

// SummariseLegs groups rows by run, snake and goal in first-seen order.
// Rows are expected in turn order, as TrajectoryWriter stores them.
func SummariseLegs(rows []TickRow) []LegSummary {
	type key struct {
		run   string
		snake string
		goal  int32
	}
	index := make(map[key]int)
	var out []LegSummary

	for _, r := range rows {
		k := key{r.RunID, r.SnakeID, r.Goal}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, LegSummary{SnakeID: r.SnakeID, Goal: int(r.Goal), PathClass: r.PathClass})
		}
		leg := &out[i]
		leg.Ticks++
		if r.Fallback {
			leg.Fallbacks++
		}
		if r.NoSafe {
			leg.NoSafe++
		}
		if r.Crossed {
			leg.Crossings++
		}
		if r.AteGoal {
			leg.Ate = true
		}
		if r.Collided {
			leg.Collided = true
			leg.Cause = r.Cause
		}
	}
	return out
}
