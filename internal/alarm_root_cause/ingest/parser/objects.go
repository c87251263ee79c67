package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/trend"
)

// Afi.csv
const (
	ModuleIDColumn     = 0
	ModuleNodeColumn   = 1
	ModuleTypeColumn   = 2
	ModuleSymbolColumn = 3
	ModuleNameColumn   = 4
)

// Ports.csv
const (
	PortAfiColumn        = 0
	PortIDColumn         = 1
	PortNameColumn       = 2
	PortIOColumn         = 7
	PortParameterColumn  = 8
	PortArchiveColumn    = 9
	PortAlarmColumn      = 10
	PortAlarmTypeColumn  = 11
	PortAbbrevColumn     = 12
	PortActiveColumn     = 15
	PortMinColumn        = 17
	PortMaxColumn        = 18
	PortEngUnitColumn    = 20
	PortUniqueNameColumn = 25
)

// Connections.csv
const (
	ConnectionAfi1Column  = 0
	ConnectionPort1Column = 1
	ConnectionAfi2Column  = 4
	ConnectionPort2Column = 5
)

// Alarm.csv
const (
	AlarmTimeColumn           = 1
	AlarmQualityColumn        = 2
	AlarmTagnameColumn        = 3
	AlarmTypeColumn           = 4
	AlarmSuppressedColumn     = 5
	AlarmAutoSuppressedColumn = 6
	AlarmDispSuppressedColumn = 7
	AlarmDurationColumn       = 8
	AlarmTimeToNextColumn     = 9
)

// AlarmType.csv
const (
	AlarmTypeIDColumn     = 0
	AlarmTypeAbbrevColumn = 1
)

// BinaryTrend.csv
const (
	TrendClientColumn  = 0
	TrendTagnameColumn = 1
	TrendAlarmColumn   = 2
	TrendActiveColumn  = 3
	TrendSamplesColumn = 4
)

// AlarmTimeLayout is the timestamp format of Alarm.csv.
const AlarmTimeLayout = "2006.01.02 15:04:05.000"

func ModuleID(r Row) int     { return r.Int(ModuleIDColumn) }
func ModuleTypeID(r Row) int { return r.Int(ModuleTypeColumn) }

func ParseModule(r Row) *graph.Module {
	return graph.NewModule(
		r.Int(ModuleIDColumn),
		r.Int(ModuleNodeColumn),
		r.Int(ModuleTypeColumn),
		r.Field(ModuleSymbolColumn),
		r.Field(ModuleNameColumn),
	)
}

func PortKeyOf(r Row) graph.PortKey {
	return graph.PortKey{AfiID: r.Int(PortAfiColumn), PortID: r.Int(PortIDColumn)}
}

// ParsePort converts a Ports.csv row. Rows with an unknown direction are
// rejected.
func ParsePort(r Row) (*graph.Port, error) {
	dir := graph.Direction(r.Field(PortIOColumn))
	if !dir.Valid() {
		return nil, fmt.Errorf("cannot convert %q to a port direction", r.Field(PortIOColumn))
	}
	return &graph.Port{
		Key:          PortKeyOf(r),
		Name:         r.Field(PortNameColumn),
		UniqueName:   r.Field(PortUniqueNameColumn),
		Parameter:    r.Field(PortParameterColumn),
		Direction:    dir,
		Archived:     r.Flag(PortArchiveColumn),
		Alarm:        r.Flag(PortAlarmColumn),
		Active:       r.Flag(PortActiveColumn),
		AlarmTypeID:  r.Int(PortAlarmTypeColumn),
		Abbreviation: r.Field(PortAbbrevColumn),
		Min:          r.Float(PortMinColumn),
		Max:          r.Float(PortMaxColumn),
		EngUnit:      r.Field(PortEngUnitColumn),
	}, nil
}

// ParseConnection converts a Connections.csv row. The first endpoint is the
// output side.
func ParseConnection(r Row) graph.Connection {
	return graph.Connection{
		Out: graph.PortKey{AfiID: r.Int(ConnectionAfi1Column), PortID: r.Int(ConnectionPort1Column)},
		In:  graph.PortKey{AfiID: r.Int(ConnectionAfi2Column), PortID: r.Int(ConnectionPort2Column)},
	}
}

func AlarmTagname(r Row) string { return r.Field(AlarmTagnameColumn) }

// ParseAlarm converts an Alarm.csv row. Timestamps carry no zone and are read
// as UTC.
func ParseAlarm(r Row) (trend.Alarm, error) {
	at, err := time.Parse(AlarmTimeLayout, r.Field(AlarmTimeColumn))
	if err != nil {
		return trend.Alarm{}, fmt.Errorf("couldn't convert %q to a time according to %s", r.Field(AlarmTimeColumn), AlarmTimeLayout)
	}
	return trend.Alarm{
		Tagname:        AlarmTagname(r),
		Time:           at,
		Quality:        r.Int(AlarmQualityColumn),
		AlarmTypeID:    r.Int(AlarmTypeColumn),
		Suppressed:     r.Field(AlarmSuppressedColumn),
		AutoSuppressed: r.Field(AlarmAutoSuppressedColumn),
		DispSuppressed: r.Field(AlarmDispSuppressedColumn),
		Duration:       r.Int64(AlarmDurationColumn),
		TimeToNext:     r.Int64(AlarmTimeToNextColumn),
	}, nil
}

func ParseAlarmType(r Row) (int, string) {
	return r.Int(AlarmTypeIDColumn), r.Field(AlarmTypeAbbrevColumn)
}

func TrendTagname(r Row) string { return r.Field(TrendTagnameColumn) }

// ParseBinaryTrend converts a BinaryTrend.csv row. The port key is left for the
// caller to assign.
func ParseBinaryTrend(r Row) (*trend.BinaryTrend, error) {
	samples, err := ParseSamples(r.Field(TrendSamplesColumn))
	if err != nil {
		return nil, err
	}
	t := trend.NewBinaryTrend(TrendTagname(r), samples)
	t.Client = r.Field(TrendClientColumn)
	t.Alarm = r.Flag(TrendAlarmColumn)
	t.Active = r.Flag(TrendActiveColumn)
	return t, nil
}

// ParseSamples reads "millis,quality,value|millis,quality,value|..." and skips
// empty entries.
func ParseSamples(s string) (trend.Series, error) {
	var out trend.Series
	for _, part := range strings.Split(s, "|") {
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) < 3 {
			return nil, fmt.Errorf("cannot convert %q to a trend sample", part)
		}
		millis, err1 := strconv.Atoi(fields[0])
		quality, err2 := strconv.Atoi(fields[1])
		value, err3 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("cannot convert %q to a trend sample", part)
		}
		out = append(out, trend.Sample{Millis: millis, Quality: quality, Value: value})
	}
	return out, nil
}
