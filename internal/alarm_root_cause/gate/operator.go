package gate

import "fmt"

// TriState is a signal value with an explicit unknown state.
type TriState int

const (
	Unknown TriState = -1
	False   TriState = 0
	True    TriState = 1
)

// FromBool maps a boolean to True or False.
func FromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

func (v TriState) String() string {
	switch v {
	case Unknown:
		return "unknown"
	case False:
		return "false"
	case True:
		return "true"
	}
	return fmt.Sprintf("TriState(%d)", int(v))
}

// Kind is the logic behaviour of a module type.
type Kind int

const (
	KindOther Kind = iota
	KindAnd
	KindOr
	KindNot
	KindNand
	KindNor
	KindBin
	KindBSel
)

func (k Kind) String() string {
	switch k {
	case KindAnd:
		return "AND"
	case KindOr:
		return "OR"
	case KindNot:
		return "NOT"
	case KindNand:
		return "NAND"
	case KindNor:
		return "NOR"
	case KindBin:
		return "BIN"
	case KindBSel:
		return "BSEL"
	}
	return "OTHER"
}

// KindOf returns the logic behaviour of an afi type. T2000P variants are treated
// as opaque.
func KindOf(typeID int) Kind {
	switch typeID {
	case TypeAnd:
		return KindAnd
	case TypeOr:
		return KindOr
	case TypeNot:
		return KindNot
	case TypeNand:
		return KindNand
	case TypeNor:
		return KindNor
	case TypeBin:
		return KindBin
	case TypeBSel:
		return KindBSel
	}
	return KindOther
}

// BSelInputs is the number of inputs of a BSEL block.
const BSelInputs = 16

type valueSet map[TriState]struct{}

func setOf(values []TriState) valueSet {
	s := make(valueSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s valueSet) has(v TriState) bool {
	_, ok := s[v]
	return ok
}

// Combine recomputes the output of a gate of the given kind. inputs holds the
// values of the sibling inputs with the carried value appended last. When no rule
// decides, carried is returned unchanged. threshold is only used by BSEL.
func Combine(kind Kind, inputs []TriState, carried TriState, threshold int) TriState {
	if len(inputs) == 0 {
		return carried
	}
	set := setOf(inputs)

	switch kind {
	case KindAnd:
		switch {
		case set.has(False):
			return False
		case set.has(True) && len(set) == 1:
			return True
		case !set.has(False) && set.has(Unknown):
			return Unknown
		}
		return carried
	case KindOr:
		switch {
		case set.has(True):
			return True
		case set.has(False) && len(set) == 1:
			return False
		}
		// Mixed false and unknown inputs keep the carried value.
		return carried
	case KindNand:
		switch {
		case len(set) == 1 && set.has(False):
			return True
		case len(set) > 1 && set.has(True):
			return False
		case !set.has(True) && set.has(Unknown):
			return Unknown
		}
		return carried
	case KindNor:
		switch {
		case len(set) == 1 && set.has(True):
			return False
		case len(set) > 1 && set.has(False):
			return True
		case !set.has(False) && set.has(Unknown):
			return Unknown
		}
		return carried
	case KindNot:
		return Invert(inputs[0])
	case KindBin:
		return inputs[0]
	case KindBSel:
		ones, zeros := 0, 0
		for _, v := range inputs {
			switch v {
			case True:
				ones++
			case False:
				zeros++
			}
		}
		switch {
		case ones >= threshold:
			return True
		case zeros >= BSelInputs-threshold:
			return False
		case ones == 0 && zeros == 0:
			return Unknown
		}
		return carried
	case KindOther:
		return carried
	}
	return carried
}

// Invert flips True and False and keeps Unknown.
func Invert(v TriState) TriState {
	switch v {
	case True:
		return False
	case False:
		return True
	}
	return Unknown
}

// AdjacentOutput derives the output of the gate next to a source carrying value.
// passOn recomputes the output from all inputs and is only called when the
// carried value alone does not decide the gate.
func AdjacentOutput(kind Kind, value TriState, passOn func() TriState) TriState {
	switch kind {
	case KindAnd:
		if value == False {
			return False
		}
		return passOn()
	case KindOr:
		if value == True {
			return True
		}
		return passOn()
	case KindBSel:
		return passOn()
	case KindBin:
		return value
	case KindNot:
		return Invert(value)
	case KindNand:
		if value == False {
			return False
		}
		return passOn()
	case KindNor:
		if value == False {
			return True
		}
		return passOn()
	case KindOther:
		return False
	}
	return False
}
