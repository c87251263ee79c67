package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/domain"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/gate"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/ingest/loader"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/ingest/parser"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/records"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
	"github.com/SickoOrange/SimpleAndReason/internal/metrics"
	"github.com/SickoOrange/SimpleAndReason/internal/storage/postgres"
)

type memStore map[string]string

func (m memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, loader.ErrObjectNotFound)
	}
	return io.NopCloser(strings.NewReader(s)), nil
}

func portRow(afi, id int, io, name, unique string, archived bool) string {
	cells := make([]string, 26)
	cells[parser.PortAfiColumn] = fmt.Sprint(afi)
	cells[parser.PortIDColumn] = fmt.Sprint(id)
	cells[parser.PortNameColumn] = name
	cells[parser.PortIOColumn] = io
	if archived {
		cells[parser.PortArchiveColumn] = "X"
		cells[parser.PortAlarmColumn] = "X"
	}
	cells[parser.PortUniqueNameColumn] = unique
	return strings.Join(cells, ";") + "\n"
}

// notBehindTimer is a NOT gate fed by an on-delay timer that never switched on.
func notBehindTimer() memStore {
	return memStore{
		"eng/Afi.csv": "afiid;nodeid;afitypeid;symbol;name\n" +
			"1;0;103;NOT;inv\n" +
			"2;0;112;TON;ton\n",
		"eng/Ports.csv": "header\n" +
			portRow(1, 10, "I", "IN", "", false) +
			portRow(1, 1000, "O", "Q", "P||inv||Q", true) +
			portRow(2, 10, "I", "IN", "", false) +
			portRow(2, 1000, "O", "Q", "P||ton||Q", true),
		"eng/Connections.csv": "afi1;port1;a;b;afi2;port2\n" +
			"2;1000;;;1;10\n",
		"eng/AlarmType.csv": "id;abbrev\n1;HH\n",
		"arc/Alarm.csv": "Client;Time;Quality;TagName;AlarmType;Suppressed;Auto;Disp;Duration;TimeToNext\n" +
			"P;2017.11.27 00:00:05.000;192;P||inv||Q;1;0;0;0;1500;2500\n" +
			"P;2017.11.27 00:00:01.000;192;P||inv||Q;1;0;0;0;500;4000\n",
		"arc/BinaryTrend.csv": "client;tag;alarm;active;trends\n" +
			"P;P||inv||Q;X;X;0,192,0|1000,192,1\n" +
			"P;P||ton||Q;X;X;0,192,0\n",
	}
}

type fakeWriter struct {
	tables  []string
	written map[string][]records.Record
	err     error
}

func (w *fakeWriter) Table(ppid, useCase string) string {
	return postgres.TableName("dls", ppid, useCase)
}

func (w *fakeWriter) EnsureTable(_ context.Context, table string) error {
	w.tables = append(w.tables, table)
	return nil
}

func (w *fakeWriter) WriteRecords(_ context.Context, ppid, useCase string, recs []records.Record) (postgres.WriteStats, error) {
	if w.err != nil {
		return postgres.WriteStats{}, w.err
	}
	if w.written == nil {
		w.written = map[string][]records.Record{}
	}
	w.written[w.Table(ppid, useCase)] = recs
	return postgres.WriteStats{Written: len(recs)}, nil
}

func testParams() domain.Params {
	return domain.Params{
		PPID:  "P1",
		Dates: []string{"2017-11-27"},
		Paths: loader.Paths{Engineering: "eng", Archive: "arc/"},
	}
}

func newAnalyzer(store memStore, w *fakeWriter) (*Analyzer, *metrics.Registry) {
	m := metrics.NewRegistry()
	stores := func(string) loader.ObjectStore { return store }
	return NewAnalyzer(stores, nil, w, m), m
}

func TestAnalyzer_Run(t *testing.T) {
	w := &fakeWriter{}
	a, m := newAnalyzer(notBehindTimer(), w)

	res, err := a.Run(context.Background(), testParams(), domain.UseCaseAlarmNot)
	require.NoError(t, err)
	assert.Equal(t, &domain.Result{Success: true, Processed: []int{1}}, res)
	assert.Equal(t, []string{"dls_p1_alarmnot"}, w.tables)

	recs := w.written["dls_p1_alarmnot"]
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "P||inv||Q", rec.TagnameAlert)
	assert.Equal(t, "2017-11-27", rec.Date)
	assert.Equal(t, 1, rec.AfiIDAlert)

	require.Len(t, rec.Items, 1)
	item := rec.Items[0]
	assert.Equal(t, "P||ton||Q", item.Tagname)
	assert.Equal(t, "TON", item.Module)
	assert.Equal(t, 2, item.Reasons)
	require.NotNil(t, item.Code)
	assert.Equal(t, 1, *item.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("alarmnot", metrics.OutcomeSucceeded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsWritten.WithLabelValues("alarmnot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReasonsTotal.WithLabelValues("alarmnot", "AOReason", "causal")))
}

func TestAnalyzer_RunWithoutRoots(t *testing.T) {
	w := &fakeWriter{}
	a, _ := newAnalyzer(notBehindTimer(), w)

	res, err := a.Run(context.Background(), testParams(), domain.UseCaseAlarmAnd)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, res.Processed)
	assert.Empty(t, w.written["dls_p1_alarmand"])
}

func TestAnalyzer_RunErrors(t *testing.T) {
	t.Run("invalid params", func(t *testing.T) {
		a, m := newAnalyzer(notBehindTimer(), &fakeWriter{})
		params := testParams()
		params.Dates = nil

		_, err := a.Run(context.Background(), params, domain.UseCaseAlarmNot)
		assert.ErrorIs(t, err, domain.ErrInvalidParams)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("alarmnot", metrics.OutcomeFailed)))
	})

	t.Run("unknown use case", func(t *testing.T) {
		a, _ := newAnalyzer(notBehindTimer(), &fakeWriter{})
		_, err := a.Run(context.Background(), testParams(), domain.UseCase("alarmxor"))
		assert.ErrorIs(t, err, domain.ErrUnknownUseCase)
	})

	t.Run("missing export", func(t *testing.T) {
		store := notBehindTimer()
		delete(store, "arc/Alarm.csv")
		a, _ := newAnalyzer(store, &fakeWriter{})
		_, err := a.Run(context.Background(), testParams(), domain.UseCaseAlarmNot)
		assert.ErrorIs(t, err, loader.ErrObjectNotFound)
	})

	t.Run("write failure", func(t *testing.T) {
		boom := errors.New("connection refused")
		a, _ := newAnalyzer(notBehindTimer(), &fakeWriter{err: boom})
		_, err := a.Run(context.Background(), testParams(), domain.UseCaseAlarmNot)
		assert.ErrorIs(t, err, boom)
	})
}

// bdmzPlant wires a T2000P NOT into BDMZ 5 and leaves BDMZ 6 unfed.
func bdmzPlant(t *testing.T) *graph.Network {
	t.Helper()
	modules := []*graph.Module{
		graph.NewModule(4, 0, gate.TypeT2000PNot, "NOT", "not"),
		graph.NewModule(5, 0, gate.TypeBDMZ1, "BDMZ", "fed"),
		graph.NewModule(6, 0, gate.TypeBDMZ1, "BDMZ", "unfed"),
	}
	ports := []*graph.Port{
		{Key: graph.PortKey{AfiID: 4, PortID: gate.UnifiedOutPort}, Direction: graph.DirectionOut, UniqueName: "P||not||Q"},
		{Key: graph.PortKey{AfiID: 5, PortID: gate.BDMZInPort}, Direction: graph.DirectionIn},
		{Key: graph.PortKey{AfiID: 5, PortID: gate.BDMZOutPort}, Direction: graph.DirectionOut, UniqueName: "P||fed||Q"},
		{Key: graph.PortKey{AfiID: 6, PortID: gate.BDMZInPort}, Direction: graph.DirectionIn},
		{Key: graph.PortKey{AfiID: 6, PortID: gate.BDMZOutPort}, Direction: graph.DirectionOut, UniqueName: "P||unfed||Q"},
	}
	conns := []graph.Connection{{
		Out: graph.PortKey{AfiID: 4, PortID: gate.UnifiedOutPort},
		In:  graph.PortKey{AfiID: 5, PortID: gate.BDMZInPort},
	}}
	net, err := graph.NewNetwork(modules, conns, ports)
	require.NoError(t, err)
	return net
}

func TestDelegatePort(t *testing.T) {
	net := bdmzPlant(t)
	port := func(afi, id int) *graph.Port {
		p, ok := net.Port(graph.PortKey{AfiID: afi, PortID: id})
		require.True(t, ok)
		return p
	}
	notOut := port(4, gate.UnifiedOutPort)

	d, ok := DelegatePort(net, port(5, gate.BDMZOutPort), gate.TypeT2000PNot)
	require.True(t, ok)
	assert.Equal(t, notOut.Key, d.Key)

	_, ok = DelegatePort(net, port(5, gate.BDMZOutPort), gate.TypeT2000PAnd)
	assert.False(t, ok, "delegate of another gate type")

	_, ok = DelegatePort(net, port(6, gate.BDMZOutPort), gate.TypeT2000PNot)
	assert.False(t, ok, "BDMZ without a feeding gate")

	d, ok = DelegatePort(net, notOut, gate.TypeT2000PNot)
	require.True(t, ok)
	assert.Same(t, notOut, d)
}

func TestDelegateAlarms(t *testing.T) {
	net := bdmzPlant(t)
	fed := graph.PortKey{AfiID: 5, PortID: gate.BDMZOutPort}
	unfed := graph.PortKey{AfiID: 6, PortID: gate.BDMZOutPort}
	notOut := graph.PortKey{AfiID: 4, PortID: gate.UnifiedOutPort}

	alarms := map[graph.PortKey][]trend.Alarm{
		fed:   {{Port: fed, Tagname: "P||fed||Q"}},
		unfed: {{Port: unfed}, {Port: unfed}},
	}
	out, dropped := delegateAlarms(net, alarms, gate.TypeT2000PNot)

	assert.Equal(t, 2, dropped)
	require.Len(t, out, 1)
	require.Len(t, out[notOut], 1)
	assert.Equal(t, notOut, out[notOut][0].Port)
	assert.Equal(t, "P||fed||Q", out[notOut][0].Tagname)
}

func TestRootPorts(t *testing.T) {
	net := bdmzPlant(t)

	keys := func(ports []*graph.Port) []graph.PortKey {
		var out []graph.PortKey
		for _, p := range ports {
			out = append(out, p.Key)
		}
		return out
	}
	assert.ElementsMatch(t, []graph.PortKey{
		{AfiID: 4, PortID: gate.UnifiedOutPort},
		{AfiID: 5, PortID: gate.BDMZOutPort},
		{AfiID: 6, PortID: gate.BDMZOutPort},
	}, keys(RootPorts(net, gate.AlarmNotOutCatalog)))
	assert.ElementsMatch(t, []graph.PortKey{
		{AfiID: 5, PortID: gate.BDMZOutPort},
		{AfiID: 6, PortID: gate.BDMZOutPort},
	}, keys(RootPorts(net, gate.AlarmAndOutCatalog)))
}
