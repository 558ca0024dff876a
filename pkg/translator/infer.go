package translator

import (
	"fmt"
	"strings"

	"github.com/pinewealth/pinewealth/pkg/indicators"
	"github.com/pinewealth/pinewealth/pkg/lexer"
	"github.com/pinewealth/pinewealth/pkg/symtab"
)

// inference is the outcome of typing the right-hand side of a first
// assignment.
type inference struct {
	typ      symtab.Type
	mode     Mode
	consumed bool // fully handled by a side effect, nothing left to emit
}

var (
	seriesOf = inference{typ: symtab.TimeSeries, mode: Series}
	consumed = inference{consumed: true}
)

func scalarOf(t symtab.Type) inference {
	return inference{typ: t, mode: Scalar}
}

var arithmeticOps = map[string]bool{"+": true, "-": true, "*": true, "/": true, "%": true}

// infer decides the type and conversion mode for "name = rhs". The first
// matching rule wins.
func (c *context) infer(name string, rhs []string) (inference, error) {
	first := rhs[0]
	switch {
	case first == "input" && at(rhs, 1) == ".":
		return consumed, c.parameter(name, rhs)
	case first == "color":
		return scalarOf(symtab.Color), nil
	case len(rhs) == 1 && (first == "true" || first == "false"):
		return scalarOf(symtab.Boolean), nil
	case lexer.IsString(first):
		return scalarOf(symtab.String), nil
	}

	if i := indexOf(rhs, lexer.LibraryToken); i >= 0 {
		if indicators.IsTuple(at(rhs, i+1)) {
			return consumed, c.seriesList(name, rhs, i)
		}
		return seriesOf, nil
	}
	if c.containsBarField(rhs) || c.referencesList(rhs) {
		return seriesOf, nil
	}
	if len(rhs) == 1 && lexer.IsNumber(first) {
		return scalarOf(symtab.Numeric), nil
	}
	if containsAny(rhs, arithmeticOps) && c.hasSeriesOperand(rhs) {
		return seriesOf, nil
	}
	if containsAny(rhs, comparisonOps) || containsAny(rhs, logicalOps) {
		return scalarOf(symtab.Boolean), nil
	}
	return scalarOf(symtab.Numeric), nil
}

// scalarType types a value assigned per bar without prior declaration.
func scalarType(rhs []string) symtab.Type {
	first := at(rhs, 0)
	switch {
	case first == "color":
		return symtab.Color
	case first == "true" || first == "false":
		return symtab.Boolean
	case lexer.IsString(first):
		return symtab.String
	case containsAny(rhs, comparisonOps) || containsAny(rhs, logicalOps):
		return symtab.Boolean
	default:
		return symtab.Numeric
	}
}

func (c *context) containsBarField(toks []string) bool {
	for i, t := range toks {
		if barFields[t] != "" && at(toks, i-1) != "." {
			return true
		}
	}
	return false
}

func (c *context) referencesList(toks []string) bool {
	for _, t := range toks {
		if c.syms.IsList(t) {
			return true
		}
	}
	return false
}

func (c *context) hasSeriesOperand(toks []string) bool {
	for i, t := range toks {
		if at(toks, i-1) == "." {
			continue
		}
		if t == lexer.LibraryToken || barFields[t] != "" || c.syms.IsSeries(t) {
			return true
		}
	}
	return false
}

// parameter declares an input. Numeric and boolean inputs become strategy
// parameters; source inputs resolve to a bar field; anything else becomes a
// field assigned once.
func (c *context) parameter(name string, rhs []string) error {
	kind := at(rhs, 2)
	if at(rhs, 3) != "(" {
		return fmt.Errorf("%w after input.%s", ErrMalformedCall, kind)
	}
	closing := matching(rhs, 3)
	if closing < 0 {
		return fmt.Errorf("%w: unbalanced input.%s", ErrMalformedCall, kind)
	}
	args := splitArgs(rhs[4:closing])

	def, _ := args.value("defval", 0)
	title, ok := args.value("title", 1)
	if !ok || !lexer.IsString(at(title, 0)) {
		title = []string{`"` + name + `"`}
	}

	switch kind {
	case "source":
		field := "bars.Close"
		if f := barFields[at(def, 0)]; f != "" {
			field = f
		}
		c.syms.Declare(name, symtab.TimeSeries)
		c.syms.DeclareParam(symtab.Param{Name: name, Kind: symtab.PriceComponent, Title: title[0]})
		c.bufs.AddInitialize(name + " = " + field + ";")
		return nil
	case "int", "float", "bool":
	default:
		value, err := c.convertIn(Scalar, def)
		if err != nil {
			return err
		}
		c.syms.Declare(name, scalarType(def))
		c.bufs.AddInitialize(name + " = " + value + ";")
		return nil
	}

	pk := map[string]symtab.ParamKind{"int": symtab.Integer, "float": symtab.Double, "bool": symtab.Bool}[kind]
	value := joinTokens(def)
	if value == "" {
		value = map[symtab.ParamKind]string{symtab.Integer: "0", symtab.Double: "0", symtab.Bool: "false"}[pk]
	}
	call := []string{title[0], "ParameterType." + pk.String(), value}
	minval, hasMin := args.keyword("minval")
	maxval, hasMax := args.keyword("maxval")
	if hasMin && hasMax {
		step, ok := args.keyword("step")
		if !ok {
			step = []string{"1"}
		}
		call = append(call, joinTokens(minval), joinTokens(maxval), joinTokens(step))
	}

	c.syms.Declare(name, symtab.Parameter)
	c.syms.DeclareParam(symtab.Param{Name: name, Kind: pk, Title: title[0]})
	c.bufs.AddConstructor(name + " = AddParameter(" + strings.Join(call, ", ") + ");")
	c.log.Printf("line %d: parameter %s (%s)", c.line, name, pk)
	return nil
}

// seriesList declares name as a list holding every output of the tuple
// producing call at rhs[i].
func (c *context) seriesList(name string, rhs []string, i int) error {
	m, _ := indicators.Lookup(at(rhs, i+1))
	args, _, err := c.libraryArgs(rhs, i)
	if err != nil {
		return err
	}
	if m.Using != "" {
		c.bufs.AddUsing(m.Using)
	}
	outs := make([]string, len(m.Outputs))
	for k := range outs {
		outs[k] = fmt.Sprintf("%s[%d]", name, k)
	}

	c.syms.Declare(name, symtab.ListOfTimeSeries)
	c.bufs.AddInitialize(name + " = new List<TimeSeries>();")
	for k := range m.Outputs {
		code, err := m.RenderOutput(k, args, outs)
		if err != nil {
			return err
		}
		c.bufs.AddInitialize(name + ".Add(" + code + ");")
	}
	return nil
}
