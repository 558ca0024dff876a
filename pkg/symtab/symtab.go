// Package symtab records what the translator has learned about the names in a
// script: the inferred type of every declared variable, which of them are
// input parameters, and the integer tags assigned to named trade signals.
package symtab

// Type represents the inferred type of a declared name.
type Type int

const (
	Numeric Type = iota
	Boolean
	String
	Color
	TimeSeries
	ListOfTimeSeries
	Parameter
)

func (t Type) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Boolean:
		return "bool"
	case String:
		return "string"
	case Color:
		return "color"
	case TimeSeries:
		return "series"
	case ListOfTimeSeries:
		return "series list"
	case Parameter:
		return "parameter"
	default:
		return "unknown"
	}
}

// HostType is the C# field type used for the declaration.
func (t Type) HostType() string {
	switch t {
	case Boolean:
		return "bool"
	case String:
		return "string"
	case Color:
		return "WLColor"
	case TimeSeries:
		return "TimeSeries"
	case ListOfTimeSeries:
		return "List<TimeSeries>"
	case Parameter:
		return "Parameter"
	default:
		return "double"
	}
}

// Symbol is a declared name with its inferred type.
type Symbol struct {
	Name string
	Type Type
	Host string // overrides Type.HostType when set, e.g. "BBUpper"
}

// Decl returns the host type the field is declared with.
func (s Symbol) Decl() string {
	if s.Host != "" {
		return s.Host
	}
	return s.Type.HostType()
}

// ParamKind is the declared kind of an input parameter.
type ParamKind int

const (
	Integer ParamKind = iota
	Double
	Bool
	PriceComponent
)

func (k ParamKind) String() string {
	switch k {
	case Integer:
		return "Int32"
	case Double:
		return "Double"
	case Bool:
		return "Boolean"
	case PriceComponent:
		return "PriceComponent"
	default:
		return "unknown"
	}
}

// Accessor is the Parameter property that reads the current value.
func (k ParamKind) Accessor() string {
	switch k {
	case Integer:
		return "AsInt"
	case Bool:
		return "AsBoolean"
	default:
		return "AsDouble"
	}
}

// Param is an input declaration.
type Param struct {
	Name  string
	Kind  ParamKind
	Title string
}

// Side is the direction of a position.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	if s == Short {
		return "short"
	}
	return "long"
}

// PositionTag pairs a named trade signal with the integer tag used for it.
type PositionTag struct {
	Signal string
	Tag    int
	Side   Side
}

// Table tracks symbols, parameters and position tags for one translation.
type Table struct {
	symbols map[string]*Symbol
	order   []string
	params  map[string]Param
	porder  []string
	tags    map[string]*PositionTag
	torder  []string
}

// New creates an empty table.
func New() *Table {
	return &Table{
		symbols: make(map[string]*Symbol),
		params:  make(map[string]Param),
		tags:    make(map[string]*PositionTag),
	}
}

// Declare records name with typ. The first declaration wins; later calls
// return the existing symbol unchanged.
func (t *Table) Declare(name string, typ Type) *Symbol {
	return t.DeclareHost(name, typ, "")
}

// DeclareHost is Declare with an explicit host type.
func (t *Table) DeclareHost(name string, typ Type, host string) *Symbol {
	if s, ok := t.symbols[name]; ok {
		return s
	}
	s := &Symbol{Name: name, Type: typ, Host: host}
	t.symbols[name] = s
	t.order = append(t.order, name)
	return s
}

// Lookup returns the symbol declared for name.
func (t *Table) Lookup(name string) (Symbol, bool) {
	s, ok := t.symbols[name]
	if !ok {
		return Symbol{}, false
	}
	return *s, true
}

// IsSeries reports whether name is a declared time series.
func (t *Table) IsSeries(name string) bool {
	s, ok := t.symbols[name]
	return ok && s.Type == TimeSeries
}

// IsList reports whether name is a declared list of time series.
func (t *Table) IsList(name string) bool {
	s, ok := t.symbols[name]
	return ok && s.Type == ListOfTimeSeries
}

// Symbols returns all symbols in first-declaration order.
func (t *Table) Symbols() []Symbol {
	out := make([]Symbol, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.symbols[name])
	}
	return out
}

// DeclareParam records an input parameter.
func (t *Table) DeclareParam(p Param) {
	if _, ok := t.params[p.Name]; !ok {
		t.porder = append(t.porder, p.Name)
	}
	t.params[p.Name] = p
}

// Param returns the parameter declared for name.
func (t *Table) Param(name string) (Param, bool) {
	p, ok := t.params[name]
	return p, ok
}

// Params returns all parameters in declaration order.
func (t *Table) Params() []Param {
	out := make([]Param, 0, len(t.porder))
	for _, name := range t.porder {
		out = append(out, t.params[name])
	}
	return out
}

// Entry returns the tag for signal, assigning the next one on first use, and
// records side as the signal's position side.
func (t *Table) Entry(signal string, side Side) PositionTag {
	pt := t.tag(signal, side)
	pt.Side = side
	return *pt
}

// Exit returns the tag for signal. A signal that was never entered gets a new
// tag and is assumed long.
func (t *Table) Exit(signal string) PositionTag {
	return *t.tag(signal, Long)
}

func (t *Table) tag(signal string, side Side) *PositionTag {
	if pt, ok := t.tags[signal]; ok {
		return pt
	}
	pt := &PositionTag{Signal: signal, Tag: len(t.torder) + 1, Side: side}
	t.tags[signal] = pt
	t.torder = append(t.torder, signal)
	return pt
}

// Tags returns all position tags in first-seen order.
func (t *Table) Tags() []PositionTag {
	out := make([]PositionTag, 0, len(t.torder))
	for _, signal := range t.torder {
		out = append(out, *t.tags[signal])
	}
	return out
}
