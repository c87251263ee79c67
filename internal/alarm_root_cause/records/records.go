// Package records turns reasoner results into the items stored per alarmed port
// and day.
package records

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/reasoner"
)

// Item describes one reason of an alarmed port.
type Item struct {
	Tagname   string `json:"tagname"`
	Base      string `json:"base"`
	Module    string `json:"module"`
	AlarmType string `json:"alarmtype"`
	Port      string `json:"port"`
	State     int    `json:"state"`
	Inter     int    `json:"inter"`
	Reasons   int    `json:"reasons"`
	Code      *int   `json:"code,omitempty"`
}

// Record is everything stored for one alarmed port on one day. Its key is
// (TagnameAlert, Date).
type Record struct {
	TagnameAlert string `json:"tagnamealert"`
	Date         string `json:"date"`
	AfiIDAlert   int    `json:"afiidalert"`
	DelayExtend  string `json:"DelayExtend"`
	Items        []Item `json:"-"`
}

type recordJSON struct {
	TagnameAlert string          `json:"tagnamealert"`
	Date         string          `json:"date"`
	AfiIDAlert   int             `json:"afiidalert"`
	DelayExtend  string          `json:"DelayExtend"`
	Reasons      json.RawMessage `json:"SimDuplAOReason"`
}

// ReasonsJSON encodes the items. A record without reasons stores a single empty
// object so the alarmed port still shows up with its histogram.
func (r Record) ReasonsJSON() (json.RawMessage, error) {
	if len(r.Items) == 0 {
		return json.RawMessage(`[{}]`), nil
	}
	b, err := json.Marshal(r.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reasons: %w", err)
	}
	return b, nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	reasons, err := r.ReasonsJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordJSON{
		TagnameAlert: r.TagnameAlert,
		Date:         r.Date,
		AfiIDAlert:   r.AfiIDAlert,
		DelayExtend:  r.DelayExtend,
		Reasons:      reasons,
	})
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.TagnameAlert, r.Date, r.AfiIDAlert, r.DelayExtend = raw.TagnameAlert, raw.Date, raw.AfiIDAlert, raw.DelayExtend
	return r.SetReasons(raw.Reasons)
}

// SetReasons replaces the items with the stored reasons array, skipping the
// empty placeholder.
func (r *Record) SetReasons(raw []byte) error {
	r.Items = nil
	var items []Item
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return fmt.Errorf("failed to unmarshal reasons: %w", err)
		}
	}
	for _, it := range items {
		if it != (Item{}) {
			r.Items = append(r.Items, it)
		}
	}
	return nil
}

// Shaper builds records for one day.
type Shaper struct {
	Date       string
	AlarmTypes map[int]string
}

type correlation struct {
	tagname     string
	date        string
	afiID       int
	delayExtend string
}

// Build creates one record per alarmed port, keeping the order of results.
// Results sharing tag name, module and histogram are merged.
func (s Shaper) Build(net *graph.Network, results []reasoner.RootResult) ([]Record, error) {
	index := make(map[correlation]int)
	var out []Record

	for _, res := range results {
		histogram, err := json.Marshal(res.Histogram)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal histogram: %w", err)
		}
		key := correlation{
			tagname:     res.Root.UniqueName,
			date:        s.Date,
			afiID:       res.Root.AfiID(),
			delayExtend: string(histogram),
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, Record{
				TagnameAlert: key.tagname,
				Date:         key.date,
				AfiIDAlert:   key.afiID,
				DelayExtend:  key.delayExtend,
			})
		}
		for _, reason := range res.Reasons {
			item, err := s.item(net, reason)
			if err != nil {
				return nil, err
			}
			out[i].Items = append(out[i].Items, item)
		}
	}
	return out, nil
}

func (s Shaper) item(net *graph.Network, reason reasoner.Reason) (Item, error) {
	source, ok := net.Port(reason.Source)
	if !ok {
		return Item{}, fmt.Errorf("reason source %s is not part of the network", reason.Source)
	}
	it := Item{
		Tagname:   source.UniqueName,
		Base:      string(reason.Base),
		AlarmType: s.abbreviation(source.AlarmTypeID),
		Port:      source.Name,
		State:     int(reason.Value),
		Inter:     reason.InterDepth,
		Reasons:   reason.Occurrences,
	}
	if m := net.ModuleOf(source); m != nil {
		it.Module = m.Symbol
	}
	if reason.Base == reasoner.BaseReason {
		code := int(reason.Code)
		it.Code = &code
	}
	return it, nil
}

func (s Shaper) abbreviation(alarmType int) string {
	if a, ok := s.AlarmTypes[alarmType]; ok {
		return a
	}
	return strconv.Itoa(alarmType)
}
