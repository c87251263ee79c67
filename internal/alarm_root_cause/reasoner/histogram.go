package reasoner

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
)

// HistogramThresholds are the bucket limits in seconds.
var HistogramThresholds = []int{1, 2, 3, 5, 10, 20, 30, 60}

// Histogram counts how many alarms of a root lasted longer (delay) and were
// followed later (extend) than each threshold.
type Histogram struct {
	Count  int
	Delay  map[int]int
	Extend map[int]int
}

// NewHistogram buckets the durations and times to next of alarms.
func NewHistogram(alarms []trend.Alarm) Histogram {
	h := Histogram{
		Count:  len(alarms),
		Delay:  make(map[int]int, len(HistogramThresholds)),
		Extend: make(map[int]int, len(HistogramThresholds)),
	}
	for _, n := range HistogramThresholds {
		limit := int64(n) * 1000
		delay, extend := 0, 0
		for _, a := range alarms {
			if a.Duration > limit {
				delay++
			}
			if a.TimeToNext > limit {
				extend++
			}
		}
		h.Delay[n], h.Extend[n] = delay, extend
	}
	return h
}

// MarshalJSON writes the flat delayN/extendN/count object stored with results.
func (h Histogram) MarshalJSON() ([]byte, error) {
	m := make(map[string]int, 2*len(HistogramThresholds)+1)
	for _, n := range HistogramThresholds {
		m["delay"+strconv.Itoa(n)] = h.Delay[n]
		m["extend"+strconv.Itoa(n)] = h.Extend[n]
	}
	m["count"] = h.Count
	return json.Marshal(m)
}

func (h *Histogram) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("failed to unmarshal histogram: %w", err)
	}
	h.Count = m["count"]
	h.Delay = make(map[int]int, len(HistogramThresholds))
	h.Extend = make(map[int]int, len(HistogramThresholds))
	for _, n := range HistogramThresholds {
		h.Delay[n] = m["delay"+strconv.Itoa(n)]
		h.Extend[n] = m["extend"+strconv.Itoa(n)]
	}
	return nil
}
