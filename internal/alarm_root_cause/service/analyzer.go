// Package service runs alarm reason analyses end to end: load the plant day,
// search reasons, shape records and store them.
package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/domain"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/gate"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/ingest/loader"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/reasoner"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/records"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
	"github.com/SickoOrange/SimpleAndReason/internal/metrics"
	"github.com/SickoOrange/SimpleAndReason/internal/storage/postgres"
)

// StoreFunc returns the object store reading bucket. An empty bucket selects
// the configured default.
type StoreFunc func(bucket string) loader.ObjectStore

// RecordWriter persists shaped records.
type RecordWriter interface {
	Table(ppid, useCase string) string
	EnsureTable(ctx context.Context, table string) error
	WriteRecords(ctx context.Context, ppid, useCase string, recs []records.Record) (postgres.WriteStats, error)
}

type useCaseConfig struct {
	roots gate.Catalog
	// delegateType is the gate a BDMZ alarm is attributed to.
	delegateType int
	duplicates   reasoner.DuplicateTest
}

var useCaseConfigs = map[domain.UseCase]useCaseConfig{
	domain.UseCaseAlarmNot: {roots: gate.AlarmNotOutCatalog, delegateType: gate.TypeT2000PNot, duplicates: reasoner.NegatedOverlap},
	domain.UseCaseAlarmAnd: {roots: gate.AlarmAndOutCatalog, delegateType: gate.TypeT2000PAnd, duplicates: reasoner.Overlap},
	domain.UseCaseAlarmOr:  {roots: gate.AlarmOrOutCatalog, delegateType: gate.TypeT2000POr, duplicates: reasoner.Overlap},
}

// Analyzer runs one use case over one plant day.
type Analyzer struct {
	stores  StoreFunc
	cache   *loader.Cache
	writer  RecordWriter
	metrics *metrics.Registry
}

// NewAnalyzer creates an Analyzer. cache may be nil.
func NewAnalyzer(stores StoreFunc, cache *loader.Cache, writer RecordWriter, m *metrics.Registry) *Analyzer {
	return &Analyzer{stores: stores, cache: cache, writer: writer, metrics: m}
}

// Run loads the network and archive selected by params, analyzes every alarmed
// gate of useCase and upserts one record per alarmed port.
func (a *Analyzer) Run(ctx context.Context, params domain.Params, useCase domain.UseCase) (res *domain.Result, err error) {
	start := time.Now()
	defer func() { a.metrics.RecordRun(string(useCase), err, time.Since(start)) }()

	if err := params.Validate(); err != nil {
		return nil, err
	}
	uc, ok := useCaseConfigs[useCase]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownUseCase, useCase)
	}
	logger := logging.FromContext(ctx, "analyzer")
	logger.Infof("run", "ppid=%s date=%s use_case=%s", params.PPID, params.Date(), useCase)

	var opts []loader.Option
	if a.cache != nil {
		opts = append(opts, loader.WithCache(a.cache, params.Bucket))
	}
	l := loader.New(a.stores(params.Bucket), params.Paths, opts...).WithContext(ctx)

	stage := time.Now()
	net, roots, archive, err := a.load(ctx, l, uc)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordStage(string(useCase), "load", time.Since(stage))

	alarms, dropped := delegateAlarms(net, archive.Alarms, uc.delegateType)
	if dropped > 0 {
		logger.Warnf("delegate", "dropped %d alarms of gates without a delegate", dropped)
		a.metrics.RecordDroppedAlarms(string(useCase), dropped)
	}
	logger.Infof("load", "%d roots, %d alarmed, %d trends", len(roots), len(alarms), len(archive.Trends))

	stage = time.Now()
	results, err := reasoner.New(reasoner.Input{
		Network: net,
		Trends:  archive.Trends,
		Alarms:  alarms,
	}, uc.duplicates).Analyze(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	for _, r := range results {
		for _, reason := range r.Reasons {
			a.metrics.RecordReason(string(useCase), string(reason.Base), int(reason.Code))
		}
	}
	a.metrics.RecordStage(string(useCase), "analyze", time.Since(stage))

	recs, err := records.Shaper{Date: params.Date(), AlarmTypes: archive.AlarmTypes}.Build(net, results)
	if err != nil {
		return nil, fmt.Errorf("shape records: %w", err)
	}

	stage = time.Now()
	if err := a.writer.EnsureTable(ctx, a.writer.Table(params.PPID, string(useCase))); err != nil {
		return nil, err
	}
	stats, err := a.writer.WriteRecords(ctx, params.PPID, string(useCase), recs)
	a.metrics.RecordWrite(string(useCase), stats.Written, stats.Retried)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordStage(string(useCase), "write", time.Since(stage))

	logger.Infof("run", "wrote %d records for %d alarmed ports", stats.Written, len(results))
	return &domain.Result{Success: true, Processed: []int{stats.Written}}, nil
}

func (a *Analyzer) load(ctx context.Context, l *loader.Loader, uc useCaseConfig) (*graph.Network, []*graph.Port, *loader.Archive, error) {
	net, err := l.LoadNetwork(ctx, gate.ModuleCatalog, gate.ModuleCatalog)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load network: %w", err)
	}
	if dangling := net.DanglingInputs(); len(dangling) > 0 {
		if err := l.ExtendNetwork(ctx, net, dangling); err != nil {
			return nil, nil, nil, fmt.Errorf("extend network: %w", err)
		}
	}

	roots := RootPorts(net, uc.roots)
	outputs := net.FilteredPorts(func(*graph.Module) bool { return true }, func(*graph.Module) func(*graph.Port) bool {
		return func(p *graph.Port) bool { return p.Direction == graph.DirectionOut }
	})

	archive, err := l.LoadArchive(ctx, roots, outputs)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load archive: %w", err)
	}
	return net, roots, archive, nil
}

// RootPorts returns the output ports of the gates named by catalog.
func RootPorts(net *graph.Network, catalog gate.Catalog) []*graph.Port {
	return net.FilteredPorts(
		func(m *graph.Module) bool { return catalog.HasType(m.TypeID) },
		func(m *graph.Module) func(*graph.Port) bool {
			return func(p *graph.Port) bool {
				return p.Direction == graph.DirectionOut && catalog.Accepts(m.TypeID, p.ID())
			}
		},
	)
}

// DelegatePort returns the port whose gate is analyzed in place of p. A BDMZ
// output is attributed to the gate of delegateType feeding its input; any
// other port stands for itself.
func DelegatePort(net *graph.Network, p *graph.Port, delegateType int) (*graph.Port, bool) {
	m := net.ModuleOf(p)
	if m == nil || !gate.IsBDMZ(m.TypeID) {
		return p, true
	}
	in, ok := m.Port(gate.BDMZInPort)
	if !ok {
		return nil, false
	}
	up, ok := net.ConnectedOutPort(in)
	if !ok {
		return nil, false
	}
	if dm := net.ModuleOf(up); dm == nil || dm.TypeID != delegateType {
		return nil, false
	}
	return up, true
}

// delegateAlarms moves alarms of BDMZ outputs onto their delegates and reports
// how many alarms had none.
func delegateAlarms(net *graph.Network, alarms map[graph.PortKey][]trend.Alarm, delegateType int) (map[graph.PortKey][]trend.Alarm, int) {
	out := make(map[graph.PortKey][]trend.Alarm, len(alarms))
	dropped := 0
	for key, list := range alarms {
		p, ok := net.Port(key)
		if !ok {
			dropped += len(list)
			continue
		}
		d, ok := DelegatePort(net, p, delegateType)
		if !ok {
			dropped += len(list)
			continue
		}
		for _, al := range list {
			al.Port = d.Key
			out[d.Key] = append(out[d.Key], al)
		}
	}
	for key := range out {
		list := out[key]
		sort.SliceStable(list, func(i, j int) bool { return list[i].Time.Before(list[j].Time) })
	}
	return out, dropped
}
