// Package loader builds networks, trends and alarms of one plant and day from the
// exported CSV objects.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/gate"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/ingest/parser"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

// Object names below the engineering and archive prefixes.
const (
	AfiCSV         = "Afi.csv"
	PortsCSV       = "Ports.csv"
	ConnectionsCSV = "Connections.csv"
	AlarmTypeCSV   = "AlarmType.csv"
	AlarmCSV       = "Alarm.csv"
	BinaryTrendCSV = "BinaryTrend.csv"
)

// Paths are the key prefixes of the engineering and archive exports.
type Paths struct {
	Archive     string `json:"archive" validate:"required"`
	Engineering string `json:"engineering" validate:"required"`
}

func (p Paths) EngineeringKey(file string) string {
	return strings.TrimSuffix(p.Engineering, "/") + "/" + file
}

func (p Paths) ArchiveKey(file string) string {
	return strings.TrimSuffix(p.Archive, "/") + "/" + file
}

// Cache keeps raw engineering exports between runs. Engineering data of a plant
// rarely changes, while every use case of a day reads it again.
type Cache = lru.Cache[string, []byte]

func NewCache(size int) (*Cache, error) {
	return lru.New[string, []byte](size)
}

// Loader reads one plant export. It is not safe for concurrent Load* calls
// except through LoadArchive.
type Loader struct {
	store     ObjectStore
	paths     Paths
	cache     *Cache
	namespace string
	log       *logging.Logger
}

type Option func(*Loader)

// WithCache caches engineering objects under namespace, usually the bucket.
func WithCache(c *Cache, namespace string) Option {
	return func(l *Loader) {
		l.cache = c
		l.namespace = namespace
	}
}

func New(store ObjectStore, paths Paths, opts ...Option) *Loader {
	l := &Loader{store: store, paths: paths, log: logging.New("loader")}
	for _, o := range opts {
		o(l)
	}
	return l
}

// WithContext returns a loader logging with the run id of ctx.
func (l *Loader) WithContext(ctx context.Context) *Loader {
	c := *l
	c.log = logging.FromContext(ctx, "loader")
	return &c
}

func (l *Loader) open(ctx context.Context, key string, cached bool) (io.ReadCloser, error) {
	if !cached || l.cache == nil {
		return l.store.Open(ctx, key)
	}
	ck := l.namespace + "|" + key
	if b, ok := l.cache.Get(ck); ok {
		return io.NopCloser(bytes.NewReader(b)), nil
	}
	rc, err := l.store.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	l.cache.Add(ck, b)
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (l *Loader) each(ctx context.Context, key string, cached bool, filter parser.LineFilter, fn func(parser.Row) error) error {
	rc, err := l.open(ctx, key, cached)
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := parser.Each(rc, filter, fn); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func (l *Loader) connections(ctx context.Context) ([]graph.Connection, error) {
	var out []graph.Connection
	err := l.each(ctx, l.paths.EngineeringKey(ConnectionsCSV), true, nil, func(r parser.Row) error {
		out = append(out, parser.ParseConnection(r))
		return nil
	})
	return out, err
}

func (l *Loader) modules(ctx context.Context, filter parser.LineFilter) (map[int]*graph.Module, error) {
	out := make(map[int]*graph.Module)
	err := l.each(ctx, l.paths.EngineeringKey(AfiCSV), true, filter, func(r parser.Row) error {
		m := parser.ParseModule(r)
		out[m.ID] = m
		return nil
	})
	return out, err
}

func (l *Loader) ports(ctx context.Context, filter parser.LineFilter) ([]*graph.Port, error) {
	var out []*graph.Port
	err := l.each(ctx, l.paths.EngineeringKey(PortsCSV), true, filter, func(r parser.Row) error {
		p, err := parser.ParsePort(r)
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// LoadNetwork loads the modules whose type is in catalog with the ports the
// catalog names. For ports accepted by extensionPoints the module on the other
// side of each connection is loaded too, with just the connected port.
func (l *Loader) LoadNetwork(ctx context.Context, catalog, extensionPoints gate.Catalog) (*graph.Network, error) {
	l.log.Infof("load_network", "loading plant network from %s", l.paths.Engineering)

	conns, err := l.connections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load connections: %w", err)
	}

	extra := make(map[graph.PortKey]struct{})
	if len(extensionPoints) > 0 {
		known, err := l.modules(ctx, func(r parser.Row) bool {
			return catalog.HasType(parser.ModuleTypeID(r))
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load modules: %w", err)
		}
		accepted := func(k graph.PortKey) bool {
			m, ok := known[k.AfiID]
			return ok && extensionPoints.Accepts(m.TypeID, k.PortID)
		}
		for _, c := range conns {
			switch {
			case accepted(c.In):
				extra[c.Out] = struct{}{}
			case accepted(c.Out):
				extra[c.In] = struct{}{}
			}
		}
	}
	l.log.Infof("load_network", "found %d additional port keys to load", len(extra))

	extraModules := make(map[int]struct{}, len(extra))
	for k := range extra {
		extraModules[k.AfiID] = struct{}{}
	}

	modules, err := l.modules(ctx, func(r parser.Row) bool {
		if catalog.HasType(parser.ModuleTypeID(r)) {
			return true
		}
		_, ok := extraModules[parser.ModuleID(r)]
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}
	l.log.Infof("load_network", "loaded modules: %d", len(modules))

	ports, err := l.ports(ctx, func(r parser.Row) bool {
		k := parser.PortKeyOf(r)
		m, ok := modules[k.AfiID]
		if !ok {
			return false
		}
		if catalog.Accepts(m.TypeID, k.PortID) {
			return true
		}
		_, ok = extra[k]
		return ok
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load ports: %w", err)
	}

	return graph.NewNetwork(sortedModules(modules), conns, ports)
}

// ExtendNetwork loads the modules feeding the given dangling input ports, each
// with only the output ports needed to close the connections.
func (l *Loader) ExtendNetwork(ctx context.Context, net *graph.Network, dangling []*graph.Port) error {
	keys := net.MissingPortKeys(dangling)
	if len(keys) == 0 {
		return nil
	}
	wanted := make(map[graph.PortKey]struct{}, len(keys))
	ids := make(map[int]struct{})
	for _, k := range keys {
		wanted[k] = struct{}{}
		ids[k.AfiID] = struct{}{}
	}

	modules, err := l.modules(ctx, func(r parser.Row) bool {
		_, ok := ids[parser.ModuleID(r)]
		return ok
	})
	if err != nil {
		return fmt.Errorf("failed to load modules: %w", err)
	}
	ports, err := l.ports(ctx, func(r parser.Row) bool {
		_, ok := wanted[parser.PortKeyOf(r)]
		return ok
	})
	if err != nil {
		return fmt.Errorf("failed to load ports: %w", err)
	}
	l.log.Infof("extend_network", "extending network by %d modules and %d ports", len(modules), len(ports))
	return net.ExtendWith(sortedModules(modules), ports)
}

// LoadBinaryTrends loads the trends of ports. When several ports share a tag
// name, each of them gets its own copy of the trend.
func (l *Loader) LoadBinaryTrends(ctx context.Context, ports []*graph.Port) (map[graph.PortKey]*trend.BinaryTrend, error) {
	byName := make(map[string][]*graph.Port)
	for _, p := range ports {
		if p.UniqueName == "" {
			continue
		}
		byName[p.UniqueName] = append(byName[p.UniqueName], p)
	}

	out := make(map[graph.PortKey]*trend.BinaryTrend)
	err := l.each(ctx, l.paths.ArchiveKey(BinaryTrendCSV), false, func(r parser.Row) bool {
		_, ok := byName[parser.TrendTagname(r)]
		return ok
	}, func(r parser.Row) error {
		t, err := parser.ParseBinaryTrend(r)
		if err != nil {
			return err
		}
		owners := byName[t.UniqueName]
		if len(owners) == 1 {
			t.Port = owners[0].Key
			out[t.Port] = t
			return nil
		}
		for _, p := range owners {
			out[p.Key] = t.CopyFor(p.Key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load binary trends: %w", err)
	}
	l.log.Infof("load_trends", "read and indexed trends: %d", len(out))
	return out, nil
}

// LoadAlarms loads the alarms raised on ports, ordered by start time.
func (l *Loader) LoadAlarms(ctx context.Context, ports []*graph.Port) (map[graph.PortKey][]trend.Alarm, error) {
	byName := make(map[string]*graph.Port, len(ports))
	for _, p := range ports {
		if p.UniqueName == "" {
			continue
		}
		if prev, ok := byName[p.UniqueName]; ok {
			l.log.Warnf("load_alarms", "ports %s and %s share tag %q, alarms go to the first", prev.Key, p.Key, p.UniqueName)
			continue
		}
		byName[p.UniqueName] = p
	}

	out := make(map[graph.PortKey][]trend.Alarm)
	err := l.each(ctx, l.paths.ArchiveKey(AlarmCSV), false, func(r parser.Row) bool {
		_, ok := byName[parser.AlarmTagname(r)]
		return ok
	}, func(r parser.Row) error {
		a, err := parser.ParseAlarm(r)
		if err != nil {
			return err
		}
		a.Port = byName[a.Tagname].Key
		out[a.Port] = append(out[a.Port], a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load alarms: %w", err)
	}
	for _, alarms := range out {
		sort.SliceStable(alarms, func(i, j int) bool { return alarms[i].Time.Before(alarms[j].Time) })
	}
	return out, nil
}

// LoadAlarmTypes returns the abbreviations of all alarm types by id.
func (l *Loader) LoadAlarmTypes(ctx context.Context) (map[int]string, error) {
	out := make(map[int]string)
	err := l.each(ctx, l.paths.EngineeringKey(AlarmTypeCSV), true, nil, func(r parser.Row) error {
		id, abbrev := parser.ParseAlarmType(r)
		out[id] = abbrev
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load alarm types: %w", err)
	}
	return out, nil
}

// Archive is the day data needed next to a network.
type Archive struct {
	Trends     map[graph.PortKey]*trend.BinaryTrend
	Alarms     map[graph.PortKey][]trend.Alarm
	AlarmTypes map[int]string
}

// LoadArchive fetches alarms of alarmed, trends of trended and the alarm types
// concurrently.
func (l *Loader) LoadArchive(ctx context.Context, alarmed, trended []*graph.Port) (*Archive, error) {
	var a Archive
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a.Alarms, err = l.LoadAlarms(gctx, alarmed)
		return err
	})
	g.Go(func() error {
		var err error
		a.Trends, err = l.LoadBinaryTrends(gctx, trended)
		return err
	})
	g.Go(func() error {
		var err error
		a.AlarmTypes, err = l.LoadAlarmTypes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &a, nil
}

func sortedModules(m map[int]*graph.Module) []*graph.Module {
	out := make([]*graph.Module, 0, len(m))
	for _, mod := range m {
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
