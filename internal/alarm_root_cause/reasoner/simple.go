package reasoner

import (
	"strconv"
	"strings"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/gate"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
)

// simpleFilter ends a branch at the first port whose signal, or the signal of an
// archived proxy, can be compared with the root alarms. Pass-through modules
// directly below the root are skipped even when archived.
func (r *Reasoner) simpleFilter(v *Visit, current *graph.Port, depth int) (Reason, bool, error) {
	inter := gate.IsInter(r.net.ModuleOf(current).TypeID)

	var reason Reason
	if current.Archived {
		if inter && depth == 1 {
			return Reason{}, false, nil
		}
		reason = newReason(BaseReason, current.Key, current.Key, v.Root.Key, depth-1, gate.False, 0)
	} else {
		proxy, ok := r.archivedProxy(v, current)
		switch {
		case !ok && inter:
			return Reason{}, false, nil
		case ok:
			reason = newReason(BaseReason, current.Key, proxy.Key, v.Root.Key, depth-1, gate.False, 0)
		default:
			reason = newReason(BaseReason, current.Key, current.Key, v.Root.Key, depth-1, gate.Unknown, 0)
		}
	}

	reason, err := r.attributes(v, reason)
	if err != nil {
		return Reason{}, false, err
	}
	reason, err = r.propagate(v, reason)
	if err != nil {
		return Reason{}, false, err
	}
	return reason, true, nil
}

// attributes sets the value and occurrence count of a fresh reason. Constant
// blocks report their parameter; other sources are compared with the root alarms
// through their archived port.
func (r *Reasoner) attributes(v *Visit, reason Reason) (Reason, error) {
	source := r.mustPort(reason.Source)
	m := r.net.ModuleOf(source)

	if gate.IsConst(m.TypeID) {
		constant := constantOf(m)
		switch m.TypeID {
		case gate.TypeBSig:
			return reason.withValue(gate.FromBool(strings.EqualFold(strings.TrimSpace(constant), "true"))), nil
		case gate.TypeT2000PKon1:
			n, err := strconv.Atoi(strings.TrimSpace(constant))
			if err != nil {
				r.log.Warnf("attributes", "module %d has constant %q that is not a number", m.ID, constant)
				return reason.withValue(gate.Unknown), nil
			}
			return reason.withValue(gate.TriState(n)), nil
		}
		return reason, nil
	}

	proxy := r.mustPort(reason.Proxy)
	if !proxy.Archived {
		return reason.withOccurrences(len(v.Alarms)), nil
	}
	n, err := trend.CountBeforeOrSame(r.trends[proxy.Key], v.Alarms)
	if err != nil {
		return Reason{}, err
	}
	if n > 0 {
		return reason.withOccurrences(n).withValue(gate.True), nil
	}
	return reason.withOccurrences(len(v.Alarms)), nil
}

// constantOf returns the parameter of the constant input of a constant block.
func constantOf(m *graph.Module) string {
	for _, in := range m.Inputs() {
		if gate.ConstCatalog.Accepts(m.TypeID, in.ID()) {
			return in.Parameter
		}
	}
	return ""
}

// propagate recomputes the output of the gate next to the source, tracks the
// expected polarity from the root back to the source and derives the code.
func (r *Reasoner) propagate(v *Visit, reason Reason) (Reason, error) {
	source := r.mustPort(reason.Source)
	sourceModule := r.net.ModuleOf(source)
	path := r.path(v, source)

	if len(path) == 0 {
		return reason.withCode(r.codeWithoutPath(v, reason, sourceModule)), nil
	}

	adjacent := path[0]
	var passErr error
	output := gate.AdjacentOutput(gate.KindOf(adjacent.TypeID), reason.Value, func() gate.TriState {
		out, err := r.passOn(v, reason, sourceModule, adjacent)
		if err != nil {
			passErr = err
		}
		return out
	})
	if passErr != nil {
		return Reason{}, passErr
	}

	relevant := relevantValue(r.net.ModuleOf(v.Root), sourceModule, path)
	return reason.withCode(r.codeWithPath(v, reason, sourceModule, adjacent, relevant, output)), nil
}

// passOn recomputes the output of adjacent from the state of its other inputs at
// the alarm starts, with the value carried from the source added.
func (r *Reasoner) passOn(v *Visit, reason Reason, sourceModule, adjacent *graph.Module) (gate.TriState, error) {
	var inputs []gate.TriState
	for _, in := range adjacent.Inputs() {
		upstream, ok := r.net.ConnectedOutPort(in)
		if !ok || upstream.AfiID() == sourceModule.ID {
			continue
		}
		archived := upstream
		if !upstream.Archived {
			proxy, found := r.archivedProxy(v, upstream)
			if !found {
				inputs = append(inputs, gate.Unknown)
				continue
			}
			archived = proxy
		}
		n, err := trend.CountBeforeOrSame(r.trends[archived.Key], v.Alarms)
		if err != nil {
			return gate.Unknown, err
		}
		inputs = append(inputs, gate.FromBool(n > 0))
	}
	inputs = append(inputs, reason.Value)

	kind := gate.KindOf(adjacent.TypeID)
	threshold := 0
	if kind == gate.KindBSel {
		n, ok := bselThreshold(adjacent)
		if !ok {
			r.log.Warnf("pass_on", "module %d has no numeric threshold on port %d, output unknown", adjacent.ID, gate.BSelConstPort)
			return gate.Unknown, nil
		}
		threshold = n
	}
	return gate.Combine(kind, inputs, reason.Value, threshold), nil
}

// bselThreshold reads the constant threshold port of a BSEL block.
func bselThreshold(m *graph.Module) (int, bool) {
	p, ok := m.Port(gate.BSelConstPort)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(p.Parameter))
	if err != nil {
		return 0, false
	}
	return n, true
}

// relevantValue walks from the module below the root down to the source and
// returns the source value that would raise the root alarm. The value starts at
// 1 when the root and its nearest path module agree on inversion and flips at
// every inverting module on the way.
func relevantValue(root, source *graph.Module, path []*graph.Module) gate.TriState {
	chain := append([]*graph.Module{source}, path...)

	target := chain[len(chain)-1]
	relevant := gate.False
	if gate.IsNotFamily(root.TypeID) == gate.IsNotFamily(target.TypeID) {
		relevant = gate.True
	}
	for i := len(chain) - 2; i >= 0; i-- {
		if gate.IsNotFamily(chain[i].TypeID) {
			relevant = gate.Invert(relevant)
		}
	}
	return relevant
}

func (r *Reasoner) codeWithoutPath(v *Visit, reason Reason, sourceModule *graph.Module) Code {
	switch {
	case !gate.IsInter(sourceModule.TypeID) && reason.Value == gate.Unknown:
		return CodeIndeterminate
	case !gate.IsNotFamily(r.net.ModuleOf(v.Root).TypeID):
		return Code(reason.Value)
	case reason.Value == gate.True:
		return CodeCorrelated
	}
	return CodeCausal
}

func (r *Reasoner) codeWithPath(v *Visit, reason Reason, sourceModule, adjacent *graph.Module, relevant, output gate.TriState) Code {
	rootModule := r.net.ModuleOf(v.Root)
	inverting := gate.IsNotFamily(adjacent.TypeID)

	matches := relevant == output &&
		signalRelevant(rootModule, relevant, reason.Value) &&
		((relevant == reason.Value && !inverting) || (relevant != reason.Value && inverting))

	if !gate.IsInter(sourceModule.TypeID) {
		switch {
		case reason.Value == gate.Unknown:
			return CodeIndeterminate
		case matches:
			return CodeCausal
		}
		return CodeCorrelated
	}

	if matches && r.mustPort(reason.Proxy).Archived {
		return CodeCausal
	}
	return CodeCorrelated
}

// signalRelevant is always true below an inverting root; otherwise the source
// must be expected true or observed true.
func signalRelevant(root *graph.Module, relevant, value gate.TriState) bool {
	if gate.IsNotFamily(root.TypeID) {
		return true
	}
	return int(relevant)+int(value) > 0
}
