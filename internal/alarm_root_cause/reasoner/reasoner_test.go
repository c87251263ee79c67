package reasoner

import (
	"bytes"
	"log"
	"testing"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/gate"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeAlarms() []trend.Alarm {
	return []trend.Alarm{alarm(1500, 500, 2000), alarm(4000, 500, 1000), alarm(5500, 500, 2000)}
}

func TestAnalyze_NotGateWithoutUpstream(t *testing.T) {
	p := newPlant()
	p.module(10001, gate.TypeNot, "NOT")
	p.in(10001, 10)
	root := p.out(10001, 1000, "OUT", true, true)

	alarms := []trend.Alarm{alarm(1500, 500, 2000), alarm(3700, 2100, 2000), alarm(9300, 6000, 2000)}
	res := p.analyze(t, root, alarms, NegatedOverlap)

	require.Len(t, res, 1)
	assert.Empty(t, res[0].Reasons)

	h := res[0].Histogram
	assert.Equal(t, 3, h.Count)
	assert.Equal(t, map[int]int{1: 2, 2: 2, 3: 1, 5: 1, 10: 0, 20: 0, 30: 0, 60: 0}, h.Delay)
	assert.Equal(t, map[int]int{1: 3, 2: 0, 3: 0, 5: 0, 10: 0, 20: 0, 30: 0, 60: 0}, h.Extend)
}

func TestAnalyze_ComplementaryMonitorOutputs(t *testing.T) {
	p := newPlant()
	p.module(10001, gate.TypeNot, "NOT")
	notIn := p.in(10001, 10)
	root := p.out(10001, 1000, "OUT", true, true)

	p.module(10002, gate.TypeMonit, "MONIT")
	p.in(10002, 10)
	q := p.out(10002, 1000, "Q", true, true)
	q.AlarmTypeID = 1
	qn := p.out(10002, 1010, "QN", true, true)
	p.wire(q, notIn)

	p.trend(qn, 0, 0, 1500, 1, 2000, 0, 4000, 1, 4500, 0, 5500, 1, 6000, 0)
	p.trend(q, 0, 1, 1500, 0, 2000, 1, 4000, 0, 4500, 1, 5500, 0, 6000, 1)

	res := p.analyze(t, root, threeAlarms(), NegatedOverlap)
	require.Len(t, res, 1)
	require.Len(t, res[0].Reasons, 2)

	simple := res[0].Reasons[0]
	assert.Equal(t, BaseReason, simple.Base)
	assert.Equal(t, q.Key, simple.Source)
	assert.Equal(t, gate.False, simple.Value)
	assert.Equal(t, 3, simple.Occurrences)
	assert.Equal(t, 0, simple.InterDepth)
	assert.Equal(t, CodeCausal, simple.Code)

	dupl := res[0].Reasons[1]
	assert.Equal(t, BaseDuplicate, dupl.Base)
	assert.Equal(t, q.Key, dupl.Source)
	assert.Equal(t, gate.True, dupl.Value)
	assert.Equal(t, 3, dupl.Occurrences)
	assert.Equal(t, 0, dupl.InterDepth)

	assert.Equal(t, 3, res[0].Histogram.Count)
	assert.Equal(t, 2, res[0].Histogram.Extend[1])
	assert.Zero(t, res[0].Histogram.Delay[1])
}

func TestAnalyze_OrGateFedByUnarchivedSources(t *testing.T) {
	p := newPlant()
	p.module(10001, gate.TypeNot, "NOT")
	notIn := p.in(10001, 10)
	root := p.out(10001, 1000, "OUT", true, true)

	p.module(10002, gate.TypeOr, "OR")
	orIn10 := p.in(10002, 10)
	orIn20 := p.in(10002, 20)
	p.in(10002, 30)
	or := p.out(10002, 1000, "OUT", true, true)
	p.wire(or, notIn)

	p.module(10003, gate.TypeRSFF, "RS_FF")
	ff := p.out(10003, 1000, "Q", false, false)
	p.wire(ff, orIn10)

	p.module(10004, 404, "SLC")
	slc := p.out(10004, 1040, "ON", false, false)
	p.wire(slc, orIn20)

	p.trend(or, 0, 1, 1500, 0, 2000, 1, 4000, 0, 4500, 0, 5500, 0, 6000, 0)
	p.trend(ff, 0, 0)
	p.trend(slc, 0, 0)

	res := p.analyze(t, root, threeAlarms(), NegatedOverlap)
	require.Len(t, res, 1)
	reasons := res[0].Reasons
	require.Len(t, reasons, 3)

	for i, src := range []graph.PortKey{ff.Key, slc.Key} {
		r := reasons[i]
		assert.Equal(t, BaseReason, r.Base)
		assert.Equal(t, src, r.Source)
		assert.Equal(t, gate.Unknown, r.Value)
		assert.Equal(t, 1, r.InterDepth)
		assert.Equal(t, 3, r.Occurrences)
		assert.Equal(t, CodeIndeterminate, r.Code)
	}

	dupl := reasons[2]
	assert.Equal(t, BaseDuplicate, dupl.Base)
	assert.Equal(t, or.Key, dupl.Source)
	assert.Equal(t, gate.True, dupl.Value)
	assert.Equal(t, 0, dupl.InterDepth)
	assert.Equal(t, 3, dupl.Occurrences)
	assert.Equal(t, CodeCausal, dupl.Code)
}

func TestAnalyze_CausalSourceBehindOr(t *testing.T) {
	p := newPlant()
	p.module(1, gate.TypeNot, "NOT")
	notIn := p.in(1, 10)
	root := p.out(1, 1000, "OUT", true, true)

	p.module(2, gate.TypeOr, "OR")
	orIn := p.in(2, 10)
	p.in(2, 20)
	or := p.out(2, 1000, "OUT", false, false)
	p.wire(or, notIn)

	p.module(3, gate.TypeTOn, "T_ON")
	p.in(3, 10)
	src := p.out(3, 1000, "OUT", true, true)
	p.wire(src, orIn)
	// false at every alarm start
	p.trend(src, 0, 1, 1000, 0, 9000, 1)

	// no alarm starts within a second of the falling edge, so no duplicate
	res := p.analyze(t, root, []trend.Alarm{alarm(2500, 0, 0), alarm(3000, 0, 0), alarm(5000, 0, 0)}, NegatedOverlap)
	require.Len(t, res, 1)
	require.Len(t, res[0].Reasons, 1)

	r := res[0].Reasons[0]
	assert.Equal(t, src.Key, r.Source)
	assert.Equal(t, gate.False, r.Value)
	assert.Equal(t, 3, r.Occurrences)
	assert.Equal(t, 1, r.InterDepth)
	assert.Equal(t, CodeCausal, r.Code)
}

func TestAnalyze_AndRootWithTimerAndConstant(t *testing.T) {
	p := newPlant()
	p.module(1, gate.TypeAnd, "AND")
	in10 := p.in(1, 10)
	in20 := p.in(1, 20)
	root := p.out(1, 1000, "OUT", true, true)

	p.module(2, gate.TypeTOn, "T_ON")
	p.in(2, 10)
	timer := p.out(2, 1000, "OUT", true, true)
	p.wire(timer, in10)
	p.trend(timer, 0, 0, 1000, 1, 9000, 0)

	p.module(3, gate.TypeBSig, "BSIG")
	constant := p.in(3, 10)
	constant.Parameter = "TRUE"
	bsig := p.out(3, 1000, "OUT", false, false)
	p.wire(bsig, in20)

	res := p.analyze(t, root, []trend.Alarm{alarm(1500, 0, 0), alarm(3000, 0, 0), alarm(5000, 0, 0)}, Overlap)
	require.Len(t, res, 1)
	reasons := res[0].Reasons
	require.Len(t, reasons, 3)

	assert.Equal(t, timer.Key, reasons[0].Source)
	assert.Equal(t, gate.True, reasons[0].Value)
	assert.Equal(t, 3, reasons[0].Occurrences)
	assert.Equal(t, CodeCausal, reasons[0].Code)

	assert.Equal(t, bsig.Key, reasons[1].Source)
	assert.Equal(t, gate.True, reasons[1].Value)
	assert.Equal(t, CodeCausal, reasons[1].Code)

	// only the alarm at 1500 starts within a second of the rising edge
	assert.Equal(t, BaseDuplicate, reasons[2].Base)
	assert.Equal(t, timer.Key, reasons[2].Source)
	assert.Equal(t, 1, reasons[2].Occurrences)
}

func TestAnalyze_MissingAlarmsIsFatal(t *testing.T) {
	p := newPlant()
	p.module(1, gate.TypeNot, "NOT")
	notIn := p.in(1, 10)
	root := p.out(1, 1000, "OUT", true, true)
	p.module(2, gate.TypeTOn, "T_ON")
	src := p.out(2, 1000, "OUT", true, true)
	p.wire(src, notIn)
	p.trend(src, 0, 1, 1000, 0)

	r := New(Input{Network: p.network(t), Trends: p.trends}, NegatedOverlap)
	_, err := r.AnalyzeRoot(root, nil)
	assert.ErrorIs(t, err, trend.ErrNoAlarms)
}

func TestRelevantValue(t *testing.T) {
	not := graph.NewModule(1, 0, gate.TypeNot, "NOT", "")
	or := graph.NewModule(2, 0, gate.TypeOr, "OR", "")
	nand := graph.NewModule(3, 0, gate.TypeNand, "NAND", "")
	src := graph.NewModule(4, 0, gate.TypeTOn, "T_ON", "")

	assert.Equal(t, gate.False, relevantValue(not, src, []*graph.Module{or}))
	assert.Equal(t, gate.True, relevantValue(or, src, []*graph.Module{or}))
	assert.Equal(t, gate.True, relevantValue(not, src, []*graph.Module{nand, or}))
	assert.Equal(t, gate.True, relevantValue(not, nand, []*graph.Module{or}))
}

// chain builds NOT <- BIN <- BIN ... with the last BIN fed by the first one.
func chain(t *testing.T, length int) (*Reasoner, *graph.Port, int) {
	p := newPlant()
	p.module(1, gate.TypeNot, "NOT")
	prevIn := p.in(1, 10)
	root := p.out(1, 1000, "OUT", true, true)

	var first *graph.Port
	for i := 0; i < length; i++ {
		id := 100 + i
		p.module(id, gate.TypeBin, "BIN")
		out := p.out(id, 1000, "OUT", false, false)
		if first == nil {
			first = out
		}
		p.wire(out, prevIn)
		prevIn = p.in(id, 10)
	}
	if first != nil {
		p.wire(first, prevIn)
	}

	r := New(Input{Network: p.network(t), Trends: p.trends}, NegatedOverlap)
	return r, root, len(p.ports)
}

func TestSearch_Bounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	never := func(*Visit, *graph.Port, int) (Reason, bool, error) { return Reason{}, false, nil }

	properties.Property("search visits each port once and stops at the depth bound", prop.ForAll(
		func(length int) bool {
			r, root, size := chain(t, length)
			v := newVisit(root, threeAlarms())
			if _, err := r.search(v, never); err != nil {
				return false
			}
			return v.Len() <= size && v.Depth() <= MaxDepth && v.Len() <= MaxDepth+1
		},
		gen.IntRange(0, 30),
	))

	properties.TestingRun(t)
}

func TestSearch_PathOrder(t *testing.T) {
	r, root, _ := chain(t, 3)
	v := newVisit(root, threeAlarms())
	_, err := r.search(v, func(*Visit, *graph.Port, int) (Reason, bool, error) { return Reason{}, false, nil })
	require.NoError(t, err)

	deepest, ok := r.net.Port(graph.PortKey{AfiID: 102, PortID: 1000})
	require.True(t, ok)
	path := r.path(v, deepest)
	require.Len(t, path, 2)
	assert.Equal(t, 101, path[0].ID)
	assert.Equal(t, 100, path[1].ID)
}

func TestPassOn_BSelThreshold(t *testing.T) {
	build := func(threshold string) (*Reasoner, *Visit, Reason, *graph.Module, *graph.Module) {
		p := newPlant()
		p.module(1, gate.TypeNot, "NOT")
		notIn := p.in(1, 10)
		root := p.out(1, 1000, "OUT", true, true)

		p.module(2, gate.TypeBSel, "BSEL")
		bselIn := p.in(2, 10)
		p.in(2, gate.BSelConstPort).Parameter = threshold
		bsel := p.out(2, 1000, "OUT", false, false)
		p.wire(bsel, notIn)

		p.module(3, gate.TypeTOn, "T_ON")
		src := p.out(3, 1000, "OUT", true, true)
		p.wire(src, bselIn)

		net := p.network(t)
		r := New(Input{Network: net}, NegatedOverlap)
		v := newVisit(root, threeAlarms())
		reason := newReason(BaseReason, src.Key, src.Key, root.Key, 1, gate.True, 3)
		srcModule, _ := net.Module(3)
		bselModule, _ := net.Module(2)
		return r, v, reason, srcModule, bselModule
	}

	t.Run("numeric threshold", func(t *testing.T) {
		r, v, reason, src, bsel := build(" 1 ")
		out, err := r.passOn(v, reason, src, bsel)
		require.NoError(t, err)
		assert.Equal(t, gate.True, out)
	})

	t.Run("malformed threshold is unknown and logged", func(t *testing.T) {
		var buf bytes.Buffer
		prev := log.Writer()
		log.SetOutput(&buf)
		t.Cleanup(func() { log.SetOutput(prev) })

		r, v, reason, src, bsel := build("sixteen")
		out, err := r.passOn(v, reason, src, bsel)
		require.NoError(t, err)
		assert.Equal(t, gate.Unknown, out)
		assert.Contains(t, buf.String(), "module 2 has no numeric threshold on port 170")
	})
}
