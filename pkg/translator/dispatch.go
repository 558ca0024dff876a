package translator

import (
	"fmt"
	"strings"

	"github.com/pinewealth/pinewealth/pkg/indicators"
	"github.com/pinewealth/pinewealth/pkg/lexer"
	"github.com/pinewealth/pinewealth/pkg/symtab"
)

// pendingState tracks the "name = if cond" idiom, whose branches each end up
// assigning name.
type pendingState int

const (
	idle pendingState = iota
	awaitingBranch
	branchFilled
)

type pendingAssign struct {
	state pendingState
	name  string
	depth int // depth of the if header
}

var typeKeywords = map[string]bool{
	"float": true, "int": true, "bool": true, "string": true, "color": true,
}

// statement translates one logical line.
func (c *context) statement(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "//") {
		c.bufs.Comment(trimmed)
		return nil
	}

	expanded, depth := lexer.ExpandIndent(text)
	toks := lexer.Tokenize(expanded)
	for len(toks) > 0 && toks[0] == lexer.Tab {
		toks = toks[1:]
	}
	if len(toks) == 0 {
		return nil
	}

	c.modes = c.modes[:1]
	c.persistent = false
	c.closeBlocks(depth)

	toks = c.renameReserved(lexer.Normalize(desugar(toks)))
	toks = c.stripDeclKeywords(toks)
	toks = c.trackPending(toks, depth)
	if len(toks) == 0 {
		return nil
	}
	return c.dispatch(toks)
}

// desugar rewrites older dialect forms into the ones dispatch understands.
func desugar(toks []string) []string {
	out := make([]string, 0, len(toks)+2)
	for i, t := range toks {
		prev := at(toks, i-1)
		next := at(toks, i+1)
		if prev == "." {
			out = append(out, t)
			continue
		}
		switch {
		case indicators.BareNames[t] && next == "(":
			out = append(out, "ta", ".", t)
		case t == "input" && next == "(":
			out = append(out, "input", ".", legacyInputKind(toks[i+2:]))
		case t == "study" && next == "(":
			out = append(out, "indicator")
		case t == "bar_index":
			out = append(out, "idx")
		case t == "na" && next != "(":
			out = append(out, "double.NaN")
		default:
			out = append(out, t)
		}
	}
	return out
}

// legacyInputKind picks the typed input form from the default value of an
// untyped input(...) call.
func legacyInputKind(args []string) string {
	first := at(args, 0)
	switch {
	case barFields[first] != "":
		return "source"
	case first == "true" || first == "false":
		return "bool"
	case lexer.IsString(first):
		return "string"
	case lexer.IsInteger(first) && at(args, 1) == ".":
		return "float"
	default:
		return "int"
	}
}

// stripDeclKeywords drops var/varip and type keywords in front of a
// declaration, recording persistence.
func (c *context) stripDeclKeywords(toks []string) []string {
	if len(toks) > 1 && (toks[0] == "var" || toks[0] == "varip") {
		c.persistent = true
		toks = toks[1:]
	}
	if len(toks) > 2 && typeKeywords[toks[0]] && lexer.IsIdentifier(toks[1]) && toks[2] == "=" {
		toks = toks[1:]
	}
	return toks
}

// trackPending advances the deferred assignment state machine and returns
// the tokens to dispatch.
func (c *context) trackPending(toks []string, depth int) []string {
	p := &c.pending
	if p.state != idle {
		switch {
		case depth <= p.depth && toks[0] == "else":
			p.state = awaitingBranch
		case depth <= p.depth:
			*p = pendingAssign{}
		case depth == p.depth+1 && p.state == awaitingBranch && toks[0] != "if":
			p.state = branchFilled
			c.log.Printf("line %d: branch result assigned to %s", c.line, p.name)
			return append([]string{p.name, ":", "="}, toks...)
		}
	}

	var name string
	var rest []string
	switch {
	case len(toks) > 2 && toks[1] == "=" && toks[2] == "if":
		name, rest = toks[0], toks[2:]
	case len(toks) > 3 && toks[1] == ":" && toks[2] == "=" && toks[3] == "if":
		name, rest = toks[0], toks[3:]
	default:
		return toks
	}
	if !lexer.IsIdentifier(name) {
		return toks
	}
	*p = pendingAssign{state: awaitingBranch, name: name, depth: depth}
	c.log.Printf("line %d: deferred assignment to %s", c.line, name)
	return rest
}

func (c *context) dispatch(toks []string) error {
	first, second, third := at(toks, 0), at(toks, 1), at(toks, 2)
	switch {
	case lexer.IsIdentifier(first) && second == ":" && third == "=":
		return c.reassign(first, toks[3:])
	case lexer.IsIdentifier(first) && compoundOps[second] && third == "=":
		return c.compound(first, second, toks[3:])
	case lexer.IsIdentifier(first) && second == "=" && first != "if":
		return c.assign(first, toks[2:])
	case (first == "strategy" || first == "indicator") && second == "(":
		return c.metadata(toks)
	case first == "plot" && second == "(":
		return c.plot(toks)
	case first == "bgcolor" && second == "(":
		return c.bgcolor(toks)
	case first == "strategy" && second == ".":
		switch third {
		case "entry":
			return c.entry(toks)
		case "close":
			return c.exit(toks)
		case "close_all":
			return c.exitAll(toks)
		}
	case first == "if":
		return c.conditional("if", toks[1:])
	case first == "else" && second == "if":
		return c.conditional("else if", toks[2:])
	case first == "else":
		c.openBlock("else")
		return nil
	case first == "[":
		return c.tuple(toks)
	}
	return c.bare(toks)
}

var compoundOps = map[string]bool{"+": true, "-": true, "*": true, "/": true}

// lhs renders an assignment target for the current bar.
func (c *context) lhs(name string) string {
	if c.syms.IsSeries(name) {
		return name + "[idx]"
	}
	return name
}

// reassign handles "name := expr".
func (c *context) reassign(name string, rhs []string) error {
	if _, ok := c.syms.Lookup(name); !ok {
		c.syms.Declare(name, scalarType(rhs))
	}
	expr, err := c.convertIn(Scalar, rhs)
	if err != nil {
		return err
	}
	c.emit(c.lhs(name) + " = " + expr + ";")
	return nil
}

// compound handles "name op= expr".
func (c *context) compound(name, op string, rhs []string) error {
	if _, ok := c.syms.Lookup(name); !ok {
		c.syms.Declare(name, symtab.Numeric)
	}
	expr, err := c.convertIn(Scalar, rhs)
	if err != nil {
		return err
	}
	c.emit(c.lhs(name) + " " + op + "= " + expr + ";")
	return nil
}

// assign handles "name = expr". The first assignment decides the type; a
// later one to a scalar is a reassignment.
func (c *context) assign(name string, rhs []string) error {
	if len(rhs) == 0 {
		return nil
	}
	if sym, ok := c.syms.Lookup(name); ok {
		if sym.Type != symtab.TimeSeries {
			return c.reassign(name, rhs)
		}
		expr, err := c.convertIn(Series, rhs)
		if err != nil {
			return err
		}
		c.bufs.AddInitialize(name + " = " + expr + ";")
		return nil
	}

	inf, err := c.infer(name, rhs)
	if err != nil || inf.consumed {
		return err
	}
	c.syms.Declare(name, inf.typ)
	c.log.Printf("line %d: %s inferred %s (%s mode)", c.line, name, inf.typ, inf.mode)

	expr, err := c.convertIn(inf.mode, rhs)
	if err != nil {
		return err
	}
	line := name + " = " + expr + ";"
	if inf.mode == Series {
		c.bufs.AddInitialize(line)
	} else {
		c.emit(line)
	}
	return nil
}

// conditional emits an if or else-if header and opens its block.
func (c *context) conditional(keyword string, cond []string) error {
	if len(cond) == 0 {
		return fmt.Errorf("%s without a condition", keyword)
	}
	c.guard = true
	expr, err := c.convertIn(Scalar, cond)
	c.guard = false
	if err != nil {
		return err
	}

	logical := containsAny(cond, logicalOps)
	if !logical && !containsAny(cond, comparisonOps) && !containsAny(cond, negationOps) &&
		strings.Contains(expr, "[idx]") {
		expr += " > 0"
	}
	if logical || !enclosed(expr) {
		expr = "(" + expr + ")"
	}
	c.openBlock(keyword + " " + expr)
	return nil
}

// tuple handles "[a, b, ...] = ta.f(...)".
func (c *context) tuple(toks []string) error {
	end := indexOf(toks, "]")
	if end < 0 {
		return ErrMalformedTuple
	}
	if at(toks, end+1) != "=" {
		return c.bare(toks)
	}
	var names []string
	for _, t := range toks[1:end] {
		if t != "," {
			names = append(names, t)
		}
	}

	rhs := toks[end+2:]
	if at(rhs, 0) != lexer.LibraryToken {
		return fmt.Errorf("%w: tuple assignment needs a ta. call", ErrUnmappedFunction)
	}
	m, ok := indicators.Lookup(at(rhs, 1))
	if !ok || m.Kind != indicators.Tuple {
		return fmt.Errorf("%w: ta.%s does not produce multiple outputs", ErrUnmappedFunction, at(rhs, 1))
	}
	args, _, err := c.libraryArgs(rhs, 0)
	if err != nil {
		return err
	}
	if m.Using != "" {
		c.bufs.AddUsing(m.Using)
	}

	// discarded outputs are referenced inline by the outputs that need them
	outs := make([]string, len(names))
	for k, name := range names {
		outs[k] = name
		if name == "_" && k < len(m.Outputs) {
			outs[k] = indicators.Expand(m.Outputs[k].Template, args, nil)
		}
	}
	for k, name := range names {
		if name == "_" || k >= len(m.Outputs) {
			continue
		}
		code, err := m.RenderOutput(k, args, outs)
		if err != nil {
			return err
		}
		c.syms.DeclareHost(name, symtab.TimeSeries, m.Outputs[k].Host)
		c.bufs.AddInitialize(name + " = " + code + ";")
	}
	return nil
}

// bare converts an unrecognized statement as an expression.
func (c *context) bare(toks []string) error {
	expr, err := c.convertIn(Scalar, toks)
	if err != nil {
		return err
	}
	if expr == "" {
		return nil
	}
	if !strings.HasSuffix(expr, lexer.Tab) {
		expr += ";"
	}
	c.emit(expr)
	return nil
}
