package rotation

import (
	"math"
	"time"
)

// dayOf truncates t to midnight in its own location.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole calendar days from 'from' to 'to'.
func daysBetween(from, to time.Time) int {
	from = dayOf(from.In(to.Location()))
	to = dayOf(to)
	return int(math.Round(to.Sub(from).Hours() / 24))
}

func validQuantity(q float64) bool {
	return !math.IsNaN(q) && !math.IsInf(q, 0) && q >= 0
}

func isInf(v float64) bool {
	return math.IsInf(v, 1)
}
