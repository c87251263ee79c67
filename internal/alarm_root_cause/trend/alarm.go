package trend

import (
	"time"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
)

// Alarm is one alarm occurrence raised on a port.
type Alarm struct {
	Port           graph.PortKey
	Tagname        string
	Time           time.Time
	Quality        int
	AlarmTypeID    int
	Suppressed     string
	AutoSuppressed string
	DispSuppressed string
	// Duration and TimeToNext are in milliseconds.
	Duration   int64
	TimeToNext int64
}

// MillisOfDay returns the alarm start as milliseconds since midnight, the unit
// used by trend samples.
func (a Alarm) MillisOfDay() int {
	h, m, s := a.Time.Clock()
	return ((h*60+m)*60+s)*1000 + a.Time.Nanosecond()/int(time.Millisecond)
}
