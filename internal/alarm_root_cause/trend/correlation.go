package trend

import (
	"errors"
	"math"
)

// Window is the look-back window in milliseconds used when matching a signal
// edge to an alarm start.
const Window = 1000

// ErrNoAlarms is returned when a correlation is requested without an alarm list.
var ErrNoAlarms = errors.New("no alarm dates for alert")

type edgeMatcher func(e Edges, at int) bool

// CountBeforeOrSame counts the alarms at whose start the trend was true: the last
// true sample at or before the start is not followed by a false sample at or
// before the start.
func CountBeforeOrSame(t *BinaryTrend, alarms []Alarm) (int, error) {
	return count(t, alarms, func(e Edges, at int) bool {
		r, ok := lastIn(e.Rising, math.MinInt, at)
		if !ok {
			return false
		}
		return staysUntil(e.Falling, r, at)
	})
}

// CountOverlapping is CountBeforeOrSame restricted to true samples that rose
// within Window before the alarm start.
func CountOverlapping(t *BinaryTrend, alarms []Alarm) (int, error) {
	return count(t, alarms, func(e Edges, at int) bool {
		r, ok := lastIn(e.Rising, at-Window, at)
		if !ok {
			return false
		}
		return staysUntil(e.Falling, r, at)
	})
}

// CountNegatedOverlapping counts the alarms that start while the trend is false
// after falling within Window before the start.
func CountNegatedOverlapping(t *BinaryTrend, alarms []Alarm) (int, error) {
	return count(t, alarms, negatedOverlap)
}

func negatedOverlap(e Edges, at int) bool {
	f, ok := lastIn(e.Falling, at-Window, at)
	if !ok {
		return false
	}
	return staysUntil(e.Rising, f, at)
}

// count applies match to every alarm. A trend that never was true matches
// nothing and a trend that never was false matches every alarm.
func count(t *BinaryTrend, alarms []Alarm, match edgeMatcher) (int, error) {
	if t == nil {
		return 0, nil
	}
	if alarms == nil {
		return 0, ErrNoAlarms
	}
	e := EdgesOf(t)
	if len(e.Rising) == 0 {
		return 0, nil
	}
	if len(e.Falling) == 0 {
		return len(alarms), nil
	}
	n := 0
	for _, a := range alarms {
		if match(e, a.MillisOfDay()) {
			n++
		}
	}
	return n, nil
}

// lastIn returns the last millis in [from, to].
func lastIn(millis []int, from, to int) (int, bool) {
	found, last := false, 0
	for _, m := range millis {
		if m >= from && m <= to {
			found, last = true, m
		}
	}
	return last, found
}

// staysUntil reports whether the first opposite edge after start is missing or
// later than at.
func staysUntil(opposite []int, start, at int) bool {
	for _, m := range opposite {
		if m > start {
			return m > at
		}
	}
	return true
}

// NegatedMismatches counts the acceptable samples of primary that have no
// acceptable sample of negated at the same millisecond carrying the complement.
func NegatedMismatches(primary, negated *BinaryTrend) int {
	if primary == nil {
		return 0
	}
	var other Series
	if negated != nil {
		other = negated.Samples.Acceptable()
	}
	n := 0
	for _, s := range primary.Samples.Acceptable() {
		complemented := false
		for _, o := range other {
			if o.Millis == s.Millis && o.Value+s.Value == 1 {
				complemented = true
				break
			}
		}
		if !complemented {
			n++
		}
	}
	return n
}

// ComplementaryRisingCount returns the rising count of primary when negated is
// its exact complement, otherwise zero.
func ComplementaryRisingCount(primary, negated *BinaryTrend) int {
	if primary == nil || negated == nil {
		return 0
	}
	if NegatedMismatches(primary, negated) != 0 {
		return 0
	}
	return primary.RisingCount
}
