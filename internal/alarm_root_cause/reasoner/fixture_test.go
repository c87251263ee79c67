package reasoner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
	"github.com/stretchr/testify/require"
)

var testDay = time.Date(2017, 11, 27, 0, 0, 0, 0, time.UTC)

// plant builds small networks for reasoner tests.
type plant struct {
	modules []*graph.Module
	ports   []*graph.Port
	conns   []graph.Connection
	trends  map[graph.PortKey]*trend.BinaryTrend
}

func newPlant() *plant {
	return &plant{trends: map[graph.PortKey]*trend.BinaryTrend{}}
}

func (p *plant) module(id, typeID int, symbol string) {
	p.modules = append(p.modules, graph.NewModule(id, 0, typeID, symbol, symbol))
}

func (p *plant) in(afi, id int) *graph.Port {
	port := &graph.Port{Key: graph.PortKey{AfiID: afi, PortID: id}, Direction: graph.DirectionIn, Name: fmt.Sprintf("IN%d", id)}
	p.ports = append(p.ports, port)
	return port
}

func (p *plant) out(afi, id int, name string, archived, alarm bool) *graph.Port {
	port := &graph.Port{
		Key:        graph.PortKey{AfiID: afi, PortID: id},
		Direction:  graph.DirectionOut,
		Name:       name,
		UniqueName: fmt.Sprintf("M%d||1||%s", afi, name),
		Archived:   archived,
		Alarm:      alarm,
	}
	p.ports = append(p.ports, port)
	return port
}

func (p *plant) wire(out, in *graph.Port) {
	p.conns = append(p.conns, graph.Connection{Out: out.Key, In: in.Key})
}

// trend records millis/value pairs of good quality for port.
func (p *plant) trend(port *graph.Port, pairs ...int) {
	var s trend.Series
	for i := 0; i+1 < len(pairs); i += 2 {
		s = append(s, trend.Sample{Millis: pairs[i], Quality: 192, Value: float64(pairs[i+1])})
	}
	t := trend.NewBinaryTrend(port.UniqueName, s)
	t.Port = port.Key
	p.trends[port.Key] = t
}

func (p *plant) network(t *testing.T) *graph.Network {
	n, err := graph.NewNetwork(p.modules, p.conns, p.ports)
	require.NoError(t, err)
	return n
}

func (p *plant) analyze(t *testing.T, root *graph.Port, alarms []trend.Alarm, dup DuplicateTest) []RootResult {
	r := New(Input{
		Network: p.network(t),
		Trends:  p.trends,
		Alarms:  map[graph.PortKey][]trend.Alarm{root.Key: alarms},
	}, dup)
	res, err := r.Analyze(context.Background())
	require.NoError(t, err)
	return res
}

// alarm builds an alarm from start, duration and time to next in milliseconds.
func alarm(start, duration, next int) trend.Alarm {
	return trend.Alarm{
		Time:       testDay.Add(time.Duration(start) * time.Millisecond),
		Quality:    192,
		Duration:   int64(duration),
		TimeToNext: int64(next),
	}
}
