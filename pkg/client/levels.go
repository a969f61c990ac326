package client

import (
	"math"
)

// Per-level engine tuning, indexed by level-1. Nine entries accommodate
// both 0- and 1-based callers; servers send levels 1..8.
var (
	lvlSkill     = []int64{-4, 0, 3, 6, 10, 14, 16, 18, 20}
	lvlMoveTimes = []int64{50, 50, 100, 150, 200, 300, 400, 500, 1000}
	lvlDepths    = []int64{1, 1, 1, 2, 3, 5, 8, 13, 22}
	lvlNodes     = []int64{1, 10, 0, 0, 0, 0, 0, 0, 0}
)

// moveTimeMillis scales the per-level move time by the thread count:
// more threads search faster, but with diminishing returns.
func moveTimeMillis(lvl, threads int) int64 {
	t := float64(threads)
	return int64(math.Round(float64(lvlMoveTimes[lvl-1]) / (t * math.Pow(0.9, t-1))))
}
