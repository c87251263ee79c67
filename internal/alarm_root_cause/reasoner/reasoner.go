// Package reasoner searches the wiring upstream of alarmed gate outputs for the
// signals that explain their alarms.
package reasoner

import (
	"context"
	"fmt"
	"sort"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
	"github.com/SickoOrange/SimpleAndReason/internal/logging"
)

// Input is the read-only data of one plant and day.
type Input struct {
	Network *graph.Network
	Trends  map[graph.PortKey]*trend.BinaryTrend
	// Alarms holds the alarms of every root port to analyze.
	Alarms map[graph.PortKey][]trend.Alarm
}

// RootResult holds everything found for one alarmed port.
type RootResult struct {
	Root      *graph.Port
	Alarms    []trend.Alarm
	Histogram Histogram
	Reasons   []Reason
}

// Reasoner analyzes all roots of an Input.
type Reasoner struct {
	net        *graph.Network
	trends     map[graph.PortKey]*trend.BinaryTrend
	alarms     map[graph.PortKey][]trend.Alarm
	duplicates DuplicateTest
	log        *logging.Logger
}

func New(in Input, duplicates DuplicateTest) *Reasoner {
	trends := in.Trends
	if trends == nil {
		trends = map[graph.PortKey]*trend.BinaryTrend{}
	}
	return &Reasoner{
		net:        in.Network,
		trends:     trends,
		alarms:     in.Alarms,
		duplicates: duplicates,
		log:        logging.New("reasoner"),
	}
}

// Analyze runs the causality search and the duplicate search for every root in
// key order. Reasons classified as merely correlated are dropped.
func (r *Reasoner) Analyze(ctx context.Context) ([]RootResult, error) {
	r.log = logging.FromContext(ctx, "reasoner")

	roots := make([]graph.PortKey, 0, len(r.alarms))
	for k := range r.alarms {
		roots = append(roots, k)
	}
	sort.Slice(roots, func(i, j int) bool {
		if roots[i].AfiID != roots[j].AfiID {
			return roots[i].AfiID < roots[j].AfiID
		}
		return roots[i].PortID < roots[j].PortID
	})

	results := make([]RootResult, 0, len(roots))
	for _, key := range roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		root, ok := r.net.Port(key)
		if !ok {
			r.log.Warnf("analyze", "alarmed port %s is not part of the network, skipped", key)
			continue
		}
		res, err := r.AnalyzeRoot(root, r.alarms[key])
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// AnalyzeRoot explains the alarms of a single root port.
func (r *Reasoner) AnalyzeRoot(root *graph.Port, alarms []trend.Alarm) (RootResult, error) {
	res := RootResult{Root: root, Alarms: alarms, Histogram: NewHistogram(alarms)}

	simple, err := r.search(newVisit(root, alarms), r.simpleFilter)
	if err != nil {
		return res, fmt.Errorf("for alert %s: %w", root.UniqueName, err)
	}
	for _, reason := range simple {
		if reason.Code != CodeCorrelated {
			res.Reasons = append(res.Reasons, reason)
		}
	}

	dupl, err := r.search(newVisit(root, alarms), r.duplicateFilter)
	if err != nil {
		return res, fmt.Errorf("for alert %s: %w", root.UniqueName, err)
	}
	res.Reasons = append(res.Reasons, dupl...)
	return res, nil
}

func (r *Reasoner) mustPort(key graph.PortKey) *graph.Port {
	p, ok := r.net.Port(key)
	if !ok {
		panic(fmt.Sprintf("reasoner: port %s missing from network", key))
	}
	return p
}
