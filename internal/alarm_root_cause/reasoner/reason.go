package reasoner

import (
	"fmt"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/gate"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/graph"
)

// Base tells how a reason was found.
type Base string

const (
	// BaseReason marks a source found by the causality search.
	BaseReason Base = "AOReason"
	// BaseDuplicate marks an archived signal that duplicates the alarmed one.
	BaseDuplicate Base = "Dupl"
)

// Code classifies how well a source explains the alarms of its root.
type Code int

const (
	CodeUnset         Code = -1
	CodeCorrelated    Code = 0
	CodeCausal        Code = 1
	CodeIndeterminate Code = 2
)

// Reason links a source port to an alarmed root port. Values are never mutated;
// every classification step returns a new Reason.
type Reason struct {
	Source graph.PortKey
	// Proxy is the archived port whose history stands in for Source. It equals
	// Source when the source is archived itself or no proxy exists.
	Proxy       graph.PortKey
	Root        graph.PortKey
	InterDepth  int
	Value       gate.TriState
	Occurrences int
	Code        Code
	Base        Base
}

func newReason(base Base, source, proxy, root graph.PortKey, interDepth int, value gate.TriState, occurrences int) Reason {
	return Reason{
		Source:      source,
		Proxy:       proxy,
		Root:        root,
		InterDepth:  interDepth,
		Value:       value,
		Occurrences: occurrences,
		Code:        CodeUnset,
		Base:        base,
	}
}

func (r Reason) withValue(v gate.TriState) Reason {
	r.Value = v
	return r
}

func (r Reason) withOccurrences(n int) Reason {
	r.Occurrences = n
	return r
}

func (r Reason) withCode(c Code) Reason {
	r.Code = c
	return r
}

func (r Reason) String() string {
	return fmt.Sprintf("Reason{%s source=%s proxy=%s root=%s inter=%d value=%d reasons=%d code=%d}",
		r.Base, r.Source, r.Proxy, r.Root, r.InterDepth, r.Value, r.Occurrences, r.Code)
}
