package graph

import (
	"fmt"
	"sort"
)

// Direction of a port as recorded in the engineering export ("I" or "O").
type Direction string

const (
	DirectionIn  Direction = "I"
	DirectionOut Direction = "O"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// PortKey identifies a port by its module (afi) id and its port id within the module.
type PortKey struct {
	AfiID  int
	PortID int
}

func (k PortKey) String() string {
	return fmt.Sprintf("%d/%d", k.AfiID, k.PortID)
}

func (k PortKey) less(o PortKey) bool {
	if k.AfiID != o.AfiID {
		return k.AfiID < o.AfiID
	}
	return k.PortID < o.PortID
}

// Port is a single module terminal. Adjacency is held as a set of keys into the
// owning Network, never as pointers to other ports.
type Port struct {
	Key          PortKey
	Name         string
	UniqueName   string
	Parameter    string
	Direction    Direction
	Archived     bool
	Alarm        bool
	Active       bool
	AlarmTypeID  int
	Abbreviation string
	Min          float64
	Max          float64
	EngUnit      string

	connected bool
	adjacent  map[PortKey]struct{}
}

// AfiID returns the id of the module owning this port.
func (p *Port) AfiID() int { return p.Key.AfiID }

// ID returns the port id within its module.
func (p *Port) ID() int { return p.Key.PortID }

// ArchivedAlarm reports whether the port is both archived and alarm enabled.
func (p *Port) ArchivedAlarm() bool {
	return p.Archived && p.Alarm
}

// Connected is true when the engineering data records at least one connection for
// this port, even if the opposite endpoint was never loaded.
func (p *Port) Connected() bool { return p.connected }

// MarkConnected flags the port as connected without materializing a neighbour.
func (p *Port) MarkConnected() { p.connected = true }

// AdjacentKeys returns the keys of the connected ports in key order.
func (p *Port) AdjacentKeys() []PortKey {
	keys := make([]PortKey, 0, len(p.adjacent))
	for k := range p.adjacent {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

func (p *Port) link(k PortKey) {
	if p.adjacent == nil {
		p.adjacent = make(map[PortKey]struct{})
	}
	p.adjacent[k] = struct{}{}
	p.connected = true
}

func (p *Port) String() string {
	return fmt.Sprintf("Port{%s %s %s}", p.Key, p.Name, p.Direction)
}
