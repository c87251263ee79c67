package graph

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDirection = errors.New("port has no valid direction")
	ErrDuplicatePort    = errors.New("port already attached to module")
	ErrForeignPort      = errors.New("port belongs to another module")
)

// Module is a typed function block (gate, timer, flip-flop, constant, ...).
type Module struct {
	ID     int
	NodeID int
	TypeID int
	Symbol string
	Name   string

	ports   map[int]*Port
	inputs  []int
	outputs []int
}

func NewModule(id, nodeID, typeID int, symbol, name string) *Module {
	return &Module{
		ID:     id,
		NodeID: nodeID,
		TypeID: typeID,
		Symbol: symbol,
		Name:   name,
		ports:  make(map[int]*Port),
	}
}

// AddPort attaches p to the module. A port without a valid direction is a
// programming error in the loader.
func (m *Module) AddPort(p *Port) error {
	if p == nil || !p.Direction.Valid() {
		return fmt.Errorf("module %d: %w", m.ID, ErrInvalidDirection)
	}
	if p.Key.AfiID != m.ID {
		return fmt.Errorf("module %d, port %s: %w", m.ID, p.Key, ErrForeignPort)
	}
	if _, ok := m.ports[p.Key.PortID]; ok {
		return fmt.Errorf("module %d, port %d: %w", m.ID, p.Key.PortID, ErrDuplicatePort)
	}
	if m.ports == nil {
		m.ports = make(map[int]*Port)
	}
	m.ports[p.Key.PortID] = p
	if p.Direction == DirectionIn {
		m.inputs = append(m.inputs, p.Key.PortID)
	} else {
		m.outputs = append(m.outputs, p.Key.PortID)
	}
	return nil
}

func (m *Module) Port(id int) (*Port, bool) {
	p, ok := m.ports[id]
	return p, ok
}

// Inputs returns the input ports in the order they were added.
func (m *Module) Inputs() []*Port {
	return m.collect(m.inputs)
}

// Outputs returns the output ports in the order they were added.
func (m *Module) Outputs() []*Port {
	return m.collect(m.outputs)
}

func (m *Module) collect(ids []int) []*Port {
	out := make([]*Port, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.ports[id])
	}
	return out
}

func (m *Module) String() string {
	return fmt.Sprintf("Module{%d %s type=%d}", m.ID, m.Symbol, m.TypeID)
}
