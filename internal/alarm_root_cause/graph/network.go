package graph

import (
	"sort"

	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

// Connection is a wire recorded by the engineering tool, from an output port to an
// input port.
type Connection struct {
	Out PortKey
	In  PortKey
}

// Network is a partial view of a plant. Modules and ports are loaded on demand
// while the connection index always covers the whole plant.
type Network struct {
	modules     map[int]*Module
	ports       map[PortKey]*Port
	connections map[PortKey][]Connection

	log *logging.Logger
}

// NewNetwork indexes connections by their input side and loads the given modules
// and ports.
func NewNetwork(modules []*Module, connections []Connection, ports []*Port) (*Network, error) {
	n := &Network{
		modules:     make(map[int]*Module),
		ports:       make(map[PortKey]*Port),
		connections: make(map[PortKey][]Connection),
		log:         logging.New("graph"),
	}
	for _, c := range connections {
		n.connections[c.In] = append(n.connections[c.In], c)
	}
	if err := n.ExtendWith(modules, ports); err != nil {
		return nil, err
	}
	return n, nil
}

// ExtendWith merges modules and ports into the network, then resolves adjacency
// for every input port against the connection index. Ports whose module is not
// loaded are dropped. Existing adjacency is never removed, so repeated calls with
// the same data leave the network unchanged.
func (n *Network) ExtendWith(modules []*Module, ports []*Port) error {
	for _, m := range modules {
		if _, ok := n.modules[m.ID]; !ok {
			n.modules[m.ID] = m
		}
	}

	for _, p := range ports {
		if _, ok := n.ports[p.Key]; ok {
			continue
		}
		m, ok := n.modules[p.Key.AfiID]
		if !ok {
			n.log.Warnf("extend", "port %s has no loaded module, skipped", p.Key)
			continue
		}
		if err := m.AddPort(p); err != nil {
			return err
		}
		n.ports[p.Key] = p
	}

	for key, p := range n.ports {
		if p.Direction != DirectionIn {
			continue
		}
		for _, c := range n.connections[key] {
			out, ok := n.ports[c.Out]
			if !ok {
				p.MarkConnected()
				continue
			}
			n.Connect(p, out)
		}
	}
	return nil
}

// Connect links a and b symmetrically. Ports of the same direction are never linked.
func (n *Network) Connect(a, b *Port) {
	if a.Direction == b.Direction {
		n.log.Warnf("connect", "ports %s and %s share direction %s, ignored", a.Key, b.Key, a.Direction)
		return
	}
	a.link(b.Key)
	b.link(a.Key)
}

func (n *Network) Module(id int) (*Module, bool) {
	m, ok := n.modules[id]
	return m, ok
}

func (n *Network) Port(key PortKey) (*Port, bool) {
	p, ok := n.ports[key]
	return p, ok
}

// ModuleOf returns the module owning p.
func (n *Network) ModuleOf(p *Port) *Module {
	return n.modules[p.Key.AfiID]
}

// Modules returns all loaded modules ordered by id.
func (n *Network) Modules() []*Module {
	out := make([]*Module, 0, len(n.modules))
	for _, m := range n.modules {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ports returns all loaded ports ordered by key.
func (n *Network) Ports() []*Port {
	out := make([]*Port, 0, len(n.ports))
	for _, p := range n.ports {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.less(out[j].Key) })
	return out
}

// Size returns the number of loaded modules and ports.
func (n *Network) Size() (modules, ports int) {
	return len(n.modules), len(n.ports)
}

// ConnectedPorts returns the materialized neighbours of p in key order.
func (n *Network) ConnectedPorts(p *Port) []*Port {
	keys := p.AdjacentKeys()
	out := make([]*Port, 0, len(keys))
	for _, k := range keys {
		if q, ok := n.ports[k]; ok {
			out = append(out, q)
		}
	}
	return out
}

// ConnectedOutPort returns the first connected output port of p, if any.
func (n *Network) ConnectedOutPort(p *Port) (*Port, bool) {
	for _, q := range n.ConnectedPorts(p) {
		if q.Direction == DirectionOut {
			return q, true
		}
	}
	return nil, false
}

// Dangling reports whether p is wired to an output port that was never loaded.
func (n *Network) Dangling(p *Port) bool {
	_, ok := n.ConnectedOutPort(p)
	return p.Connected() && !ok
}

// DanglingInputs returns every input port whose upstream output is not loaded.
func (n *Network) DanglingInputs() []*Port {
	var out []*Port
	for _, p := range n.Ports() {
		if p.Direction == DirectionIn && n.Dangling(p) {
			out = append(out, p)
		}
	}
	return out
}

// FilteredPorts returns the output ports of modules accepted by modulePred that
// are also accepted by the port predicate built for their module.
func (n *Network) FilteredPorts(modulePred func(*Module) bool, portPred func(*Module) func(*Port) bool) []*Port {
	var out []*Port
	for _, m := range n.Modules() {
		if !modulePred(m) {
			continue
		}
		accept := portPred(m)
		for _, p := range m.Outputs() {
			if accept(p) {
				out = append(out, p)
			}
		}
	}
	return out
}

// MissingPortKeys returns the output-side keys of connections recorded against the
// given input ports that are not loaded yet.
func (n *Network) MissingPortKeys(inputs []*Port) []PortKey {
	seen := make(map[PortKey]struct{})
	var out []PortKey
	for _, p := range inputs {
		for _, c := range n.connections[p.Key] {
			if _, loaded := n.ports[c.Out]; loaded {
				continue
			}
			if _, dup := seen[c.Out]; dup {
				continue
			}
			seen[c.Out] = struct{}{}
			out = append(out, c.Out)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].less(out[j]) })
	return out
}
