package reasoner

import (
	"fmt"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/gate"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
)

// DuplicateTest selects how an archived signal is matched against root alarms
// when looking for duplicates.
type DuplicateTest int

const (
	// NegatedOverlap matches signals that fell shortly before each alarm. Used
	// below inverting roots.
	NegatedOverlap DuplicateTest = iota
	// Overlap matches signals that rose shortly before each alarm.
	Overlap
)

func (d DuplicateTest) String() string {
	switch d {
	case NegatedOverlap:
		return "negated-overlap"
	case Overlap:
		return "overlap"
	}
	return fmt.Sprintf("DuplicateTest(%d)", int(d))
}

func (d DuplicateTest) count(t *trend.BinaryTrend, alarms []trend.Alarm) (int, error) {
	if d == Overlap {
		return trend.CountOverlapping(t, alarms)
	}
	return trend.CountNegatedOverlapping(t, alarms)
}

// duplicateFilter finds archived alarmed signals that carry the same information
// as the root. Blocks with a negated output are duplicates when both outputs are
// archived and exact complements of each other.
func (r *Reasoner) duplicateFilter(v *Visit, current *graph.Port, depth int) (Reason, bool, error) {
	m := r.net.ModuleOf(current)

	if gate.IsNegatable(m.TypeID) {
		negatedID, ok := gate.NegatedPortID(current.ID())
		if !ok {
			return Reason{}, false, nil
		}
		negated, ok := m.Port(negatedID)
		if !ok || !negated.ArchivedAlarm() || !current.ArchivedAlarm() {
			return Reason{}, false, nil
		}
		n := trend.ComplementaryRisingCount(r.trends[current.Key], r.trends[negated.Key])
		if n == 0 {
			return Reason{}, false, nil
		}
		return r.duplicate(v, current, current, depth, n), true, nil
	}

	if current.ArchivedAlarm() {
		n, err := r.duplicates.count(r.trends[current.Key], v.Alarms)
		if err != nil || n == 0 {
			return Reason{}, false, err
		}
		return r.duplicate(v, current, current, depth, n), true, nil
	}

	proxy, ok := r.archivedProxy(v, current)
	if !ok {
		return Reason{}, false, nil
	}
	n, err := r.duplicates.count(r.trends[proxy.Key], v.Alarms)
	if err != nil || n == 0 {
		return Reason{}, false, err
	}
	return r.duplicate(v, current, proxy, depth, n), true, nil
}

func (r *Reasoner) duplicate(v *Visit, source, proxy *graph.Port, depth, occurrences int) Reason {
	return newReason(BaseDuplicate, source.Key, proxy.Key, v.Root.Key, depth-1, gate.True, occurrences).
		withCode(CodeCausal)
}
