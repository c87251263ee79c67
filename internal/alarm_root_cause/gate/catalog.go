package gate

// Afi type ids of the function blocks the analysis knows about.
const (
	TypeMonit  = 13
	TypeAnd    = 100
	TypeOr     = 101
	TypeNot    = 103
	TypeRSFF   = 105
	TypeJKFF   = 106
	TypeBSig   = 107
	TypeMinPls = 109
	TypePulse  = 110
	TypeLPulse = 111
	TypeTOn    = 112
	TypeTLOn   = 113
	TypeTOff   = 114
	TypeBSel   = 115
	TypeBin    = 207
	TypeNand   = 910088
	TypeNor    = 910100

	TypeBDMZ1 = 160193
	TypeBDMZ2 = 160194
	TypeBDMZ3 = 160198

	TypeT2000PAnd  = 160501
	TypeT2000PNand = 160502
	TypeT2000POr   = 160503
	TypeT2000PNor  = 160504
	TypeT2000PNot  = 160505
	TypeT2000PKon1 = 160539

	TypeT2000PTOn     = 160514
	TypeT2000PTOnS    = 160007
	TypeT2000PTOff    = 160516
	TypeT2000PTOffS   = 160009
	TypeT2000PPulse   = 160512
	TypeT2000PPulseS  = 160005
	TypeT2000PMinPls  = 160513
	TypeT2000PMinPlsS = 160006
)

// Port ids with a fixed meaning.
const (
	UnifiedOutPort = 1000
	NegatedOutPort = 1010
	BDMZOutPort    = 1010
	BDMZInPort     = 70
	BSelConstPort  = 170
)

// NegatedPortID maps a primary output to its negated twin and back.
func NegatedPortID(id int) (int, bool) {
	switch id {
	case UnifiedOutPort:
		return NegatedOutPort, true
	case NegatedOutPort:
		return UnifiedOutPort, true
	}
	return 0, false
}

// Catalog maps an afi type id to the port ids of interest on that type. An empty
// port set accepts every port of the type.
type Catalog map[int]map[int]struct{}

func portSet(ids ...int) map[int]struct{} {
	s := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func steps(from, to, step int, extra ...int) []int {
	var ids []int
	for i := from; i <= to; i += step {
		ids = append(ids, i)
	}
	return append(ids, extra...)
}

func catalogOf(ports []int, types ...int) Catalog {
	c := make(Catalog, len(types))
	for _, t := range types {
		c[t] = portSet(ports...)
	}
	return c
}

// Merge returns a new catalog holding the union of the given ones.
func Merge(cs ...Catalog) Catalog {
	out := make(Catalog)
	for _, c := range cs {
		for t, ports := range c {
			dst, ok := out[t]
			if !ok {
				dst = make(map[int]struct{}, len(ports))
				out[t] = dst
			}
			for p := range ports {
				dst[p] = struct{}{}
			}
		}
	}
	return out
}

func (c Catalog) HasType(typeID int) bool {
	_, ok := c[typeID]
	return ok
}

// Accepts reports whether the port id is of interest for the type.
func (c Catalog) Accepts(typeID, portID int) bool {
	ports, ok := c[typeID]
	if !ok {
		return false
	}
	if len(ports) == 0 {
		return true
	}
	_, ok = ports[portID]
	return ok
}

var (
	andPorts      = steps(10, 80, 10, UnifiedOutPort)
	t2000pPorts   = steps(70, 140, 10, UnifiedOutPort)
	notPorts      = []int{10, UnifiedOutPort}
	t2000pNot     = []int{70, UnifiedOutPort}
	bselPorts     = steps(10, 170, 10, UnifiedOutPort)
	bdmzPorts     = []int{BDMZInPort, BDMZOutPort}
	timerPorts    = []int{10, UnifiedOutPort}
	t2000pTimer   = []int{70, UnifiedOutPort}
	bsigPorts     = []int{10, UnifiedOutPort}
	kon1Ports     = []int{70, UnifiedOutPort}
	monitPorts    = []int{10, 20, 30, 40, UnifiedOutPort, NegatedOutPort}
	flipFlopPorts = []int{10, 20, 30, UnifiedOutPort, NegatedOutPort}
)

var (
	AndCatalog = Merge(catalogOf(andPorts, TypeAnd), catalogOf(t2000pPorts, TypeT2000PAnd))
	OrCatalog  = Merge(catalogOf(andPorts, TypeOr), catalogOf(t2000pPorts, TypeT2000POr))
	NotCatalog = Merge(catalogOf(notPorts, TypeNot), catalogOf(t2000pNot, TypeT2000PNot))

	BDMZCatalog = catalogOf(bdmzPorts, TypeBDMZ1, TypeBDMZ2, TypeBDMZ3)

	// InterCatalog lists the modules a search may pass through.
	InterCatalog = Merge(
		OrCatalog, AndCatalog, NotCatalog,
		catalogOf(bselPorts, TypeBSel),
		catalogOf(notPorts, TypeBin),
		BDMZCatalog,
		catalogOf(t2000pPorts, TypeT2000PNand, TypeT2000PNor),
	)

	NonInterCatalog = Merge(
		catalogOf(timerPorts, TypeTOn, TypeTOff, TypePulse, TypeLPulse, TypeMinPls, TypeTLOn),
		catalogOf(t2000pTimer,
			TypeT2000PTOn, TypeT2000PTOnS, TypeT2000PTOff, TypeT2000PTOffS,
			TypeT2000PPulse, TypeT2000PPulseS, TypeT2000PMinPls, TypeT2000PMinPlsS),
	)

	ConstCatalog = Merge(catalogOf(bsigPorts, TypeBSig), catalogOf(kon1Ports, TypeT2000PKon1))

	NegatedCatalog = Merge(
		catalogOf(monitPorts, TypeMonit),
		catalogOf(flipFlopPorts, TypeRSFF, TypeJKFF),
	)

	// ModuleCatalog is everything loaded for an analysis run.
	ModuleCatalog = Merge(InterCatalog, NonInterCatalog, ConstCatalog, NegatedCatalog)

	AlarmNotOutCatalog = Merge(NotCatalog, BDMZCatalog)
	AlarmAndOutCatalog = Merge(AndCatalog, BDMZCatalog)
	AlarmOrOutCatalog  = Merge(OrCatalog, BDMZCatalog)
)

func IsInter(typeID int) bool { return InterCatalog.HasType(typeID) }

func IsConst(typeID int) bool { return ConstCatalog.HasType(typeID) }

func IsNegatable(typeID int) bool { return NegatedCatalog.HasType(typeID) }

func IsBDMZ(typeID int) bool { return BDMZCatalog.HasType(typeID) }

// IsNotFamily reports whether the type inverts its input: NOT, NAND and NOR.
func IsNotFamily(typeID int) bool {
	switch typeID {
	case TypeNot, TypeNand, TypeNor:
		return true
	}
	return false
}

func IsOrType(typeID int) bool { return typeID == TypeOr || typeID == TypeT2000POr }

func IsAndType(typeID int) bool { return typeID == TypeAnd || typeID == TypeT2000PAnd }
