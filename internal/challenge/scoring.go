package challenge

import (
	"math"
	"time"
)

const (
	// ReferenceHold is the hold duration at which a pose awards exactly its base points.
	ReferenceHold = 5 * time.Second
	// EscalationFactor multiplies every pose's difficulty when a level is cleared.
	EscalationFactor = 1.2
)

// Points returns the reward for completing a pose:
// round(base × multiplier × target/ReferenceHold).
func Points(base int, multiplier float64, target time.Duration) int {
	return int(math.Round(float64(base) * multiplier * (target.Seconds() / ReferenceHold.Seconds())))
}

// LevelMultiplier returns the factor applied to base difficulties at level.
func LevelMultiplier(level int) float64 {
	if level <= 1 {
		return 1
	}
	return math.Pow(EscalationFactor, float64(level-1))
}
