package trend

import "github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"

// AcceptableQuality is the lowest sample quality treated as trustworthy.
const AcceptableQuality = 64

// Sample is one archived value at a millisecond of the day.
type Sample struct {
	Millis  int
	Quality int
	Value   float64
}

// Series is a chronologically ordered list of samples.
type Series []Sample

// Acceptable returns the samples whose quality is at least AcceptableQuality.
func (s Series) Acceptable() Series {
	out := make(Series, 0, len(s))
	for _, smp := range s {
		if smp.Quality >= AcceptableQuality {
			out = append(out, smp)
		}
	}
	return out
}

// BinaryTrend is the archived history of one binary port for a day.
type BinaryTrend struct {
	Port       graph.PortKey
	UniqueName string
	Client     string
	Alarm      bool
	Active     bool
	Samples    Series

	Count        int
	RisingCount  int
	FallingCount int
	TotalCount   int
}

// NewBinaryTrend builds a trend and computes its sample counters. Samples at
// millisecond zero carry the state inherited from the previous day and are not
// counted.
func NewBinaryTrend(uniqueName string, samples Series) *BinaryTrend {
	t := &BinaryTrend{UniqueName: uniqueName}
	t.SetSamples(samples)
	return t
}

func (t *BinaryTrend) SetSamples(samples Series) {
	t.Samples = samples
	t.Count, t.RisingCount, t.TotalCount = 0, 0, 0
	for _, s := range samples {
		if s.Millis <= 0 {
			continue
		}
		if s.Quality >= AcceptableQuality {
			t.Count++
			if s.Value == 1 {
				t.RisingCount++
			}
		}
		t.TotalCount++
	}
	t.FallingCount = t.Count - t.RisingCount
}

// CopyFor returns a copy of t assigned to another port sharing the same tag.
func (t *BinaryTrend) CopyFor(key graph.PortKey) *BinaryTrend {
	c := *t
	c.Port = key
	c.Samples = append(Series(nil), t.Samples...)
	return &c
}

// Edges splits the acceptable samples of t into the millis of its true samples
// and of its false samples.
type Edges struct {
	Rising  []int
	Falling []int
}

func EdgesOf(t *BinaryTrend) Edges {
	var e Edges
	for _, s := range t.Samples.Acceptable() {
		switch int(s.Value) {
		case 1:
			e.Rising = append(e.Rising, s.Millis)
		case 0:
			e.Falling = append(e.Falling, s.Millis)
		}
	}
	return e
}
