package reasoner

import (
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/gate"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
)

// functionalOr reports whether m behaves like an OR: an OR block, or an AND block
// with a single wired input.
func functionalOr(m *graph.Module) bool {
	if gate.IsOrType(m.TypeID) {
		return true
	}
	if !gate.IsAndType(m.TypeID) {
		return false
	}
	wired := 0
	for _, in := range m.Inputs() {
		if in.Connected() {
			wired++
		}
	}
	return wired == 1
}

// proxyModule reports whether the output of m repeats its input signal closely
// enough to stand in for it.
func proxyModule(m *graph.Module) bool {
	return functionalOr(m) || m.TypeID == gate.TypeBin || gate.IsBDMZ(m.TypeID)
}

// outputOf returns the unified output of m, falling back to the BDMZ output.
func outputOf(m *graph.Module) (*graph.Port, bool) {
	if p, ok := m.Port(gate.UnifiedOutPort); ok {
		return p, true
	}
	return m.Port(gate.BDMZOutPort)
}

// archivedProxy looks downstream of current for a proxy module whose output is
// archived and alarm enabled. Pass-through modules already reached by the search
// are skipped.
func (r *Reasoner) archivedProxy(v *Visit, current *graph.Port) (*graph.Port, bool) {
	for _, connected := range r.net.ConnectedPorts(current) {
		m := r.net.ModuleOf(connected)
		if m == nil || r.visitedModule(v, m) || !proxyModule(m) {
			continue
		}
		out, ok := outputOf(m)
		if ok && out.ArchivedAlarm() {
			return out, true
		}
	}
	return nil, false
}

func (r *Reasoner) visitedModule(v *Visit, m *graph.Module) bool {
	if !gate.IsInter(m.TypeID) {
		return false
	}
	out, ok := outputOf(m)
	return ok && v.Visited(out)
}
