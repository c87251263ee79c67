package reasoner

import (
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/gate"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
)

// MaxDepth bounds the number of levels explored upstream of a root.
const MaxDepth = 8

// Visit is the state of one upstream search from a root port.
type Visit struct {
	Root   *graph.Port
	Alarms []trend.Alarm
	// parents maps every visited port to the port it was reached from. The root
	// maps to nil.
	parents map[graph.PortKey]*graph.Port
	maxSeen int
}

func newVisit(root *graph.Port, alarms []trend.Alarm) *Visit {
	return &Visit{
		Root:    root,
		Alarms:  alarms,
		parents: map[graph.PortKey]*graph.Port{root.Key: nil},
	}
}

// Visited reports whether p was reached by the search.
func (v *Visit) Visited(p *graph.Port) bool {
	_, ok := v.parents[p.Key]
	return ok
}

// Parent returns the port p was reached from.
func (v *Visit) Parent(p *graph.Port) (*graph.Port, bool) {
	parent, ok := v.parents[p.Key]
	return parent, ok && parent != nil
}

// Len returns the number of visited ports, root included.
func (v *Visit) Len() int { return len(v.parents) }

// Depth returns the deepest level that was processed.
func (v *Visit) Depth() int { return v.maxSeen }

// filter inspects a visited port at the given depth and returns a reason when the
// port ends its branch.
type filter func(v *Visit, current *graph.Port, depth int) (Reason, bool, error)

// search walks upstream from the root of v level by level. Ports accepted by f
// end their branch. Other ports of pass-through modules are expanded through
// their allowed inputs. A nil queue entry separates levels.
func (r *Reasoner) search(v *Visit, f filter) ([]Reason, error) {
	var reasons []Reason

	queue := []*graph.Port{v.Root, nil}
	depth := 0

	for len(queue) > 1 {
		node := queue[0]
		queue = queue[1:]

		if node == nil {
			depth++
			queue = append(queue, nil)
		} else {
			if depth > v.maxSeen {
				v.maxSeen = depth
			}
			found := false
			if node.Key != v.Root.Key {
				reason, ok, err := f(v, node, depth)
				if err != nil {
					return nil, err
				}
				if ok {
					reasons = append(reasons, reason)
					found = true
				}
			}
			if !found {
				queue = r.expand(v, node, queue)
			}
		}

		if depth >= MaxDepth {
			break
		}
	}

	r.log.Infof("search", "for alert module %d, %d modules have been visited", v.Root.AfiID(), v.Len())
	return reasons, nil
}

func (r *Reasoner) expand(v *Visit, node *graph.Port, queue []*graph.Port) []*graph.Port {
	m := r.net.ModuleOf(node)
	if m == nil || !gate.IsInter(m.TypeID) {
		return queue
	}
	for _, in := range m.Inputs() {
		if !gate.InterCatalog.Accepts(m.TypeID, in.ID()) {
			continue
		}
		next, ok := r.net.ConnectedOutPort(in)
		if !ok || v.Visited(next) {
			continue
		}
		v.parents[next.Key] = node
		queue = append(queue, next)
	}
	return queue
}

// path returns the modules between source and the root, the one adjacent to the
// source first. Both endpoints are excluded.
func (r *Reasoner) path(v *Visit, source *graph.Port) []*graph.Module {
	var path []*graph.Module
	cur := source
	for {
		parent, ok := v.Parent(cur)
		if !ok || parent.Key == v.Root.Key {
			break
		}
		path = append(path, r.net.ModuleOf(parent))
		cur = parent
	}
	return path
}
