package translator

import (
	"fmt"
	"strings"

	"github.com/pinewealth/pinewealth/pkg/indicators"
	"github.com/pinewealth/pinewealth/pkg/lexer"
	"github.com/pinewealth/pinewealth/pkg/symtab"
)

// barFields maps price identifiers to their bar history series.
var barFields = map[string]string{
	"open":   "bars.Open",
	"high":   "bars.High",
	"low":    "bars.Low",
	"close":  "bars.Close",
	"volume": "bars.Volume",
	"hl2":    "bars.AveragePriceHL",
	"hlc3":   "bars.AveragePriceHLC",
	"ohlc4":  "bars.AveragePriceOHLC",
}

var mathFuncs = map[string]string{
	"round": "Math.Round",
	"abs":   "Math.Abs",
	"max":   "Math.Max",
	"min":   "Math.Min",
	"sqrt":  "Math.Sqrt",
	"pow":   "Math.Pow",
	"log":   "Math.Log",
	"exp":   "Math.Exp",
	"floor": "Math.Floor",
	"ceil":  "Math.Ceiling",
}

var (
	logicalOps    = map[string]bool{"and": true, "or": true, "&&": true, "||": true}
	comparisonOps = map[string]bool{">": true, "<": true, ">=": true, "<=": true, "==": true, "!=": true}
	negationOps   = map[string]bool{"not": true, "!": true}
)

// convert renders toks as a C# expression in the current mode.
func (c *context) convert(toks []string) (string, error) {
	parts := make([]string, 0, len(toks))
	for i := 0; i < len(toks); {
		if toks[i] != lexer.Tab && strings.TrimSpace(toks[i]) == "" {
			break
		}
		part, next, err := c.term(toks, i)
		if err != nil {
			return "", err
		}
		if part != "" {
			parts = append(parts, part)
		}
		i = next
	}
	return joinTokens(parts), nil
}

// term renders the construct starting at toks[i] and returns the index after
// it.
func (c *context) term(toks []string, i int) (string, int, error) {
	tok := toks[i]
	prev, next := at(toks, i-1), at(toks, i+1)
	member := prev == "."

	switch {
	case tok == lexer.Tab:
		return "", i + 1, nil
	case tok == lexer.LibraryToken:
		return c.library(toks, i)
	case tok == "color" && next == "." && !member:
		return c.color(toks, i)
	case tok == "math" && next == "." && mathFuncs[at(toks, i+2)] != "":
		return mathFuncs[toks[i+2]], i + 3, nil
	case lexer.IsInteger(tok) && next == "." && lexer.IsInteger(at(toks, i+2)):
		return tok + "." + toks[i+2], i + 3, nil
	case tok == "(" && (!lexer.IsIdentifierEnd(prev) || logicalOps[prev] || negationOps[prev]):
		return c.group(toks, i)
	case member:
		return tok, i + 1, nil
	}

	switch tok {
	case "and":
		return c.pick("&", "&&"), i + 1, nil
	case "or":
		return c.pick("|", "||"), i + 1, nil
	case "not":
		return "!", i + 1, nil
	case "year":
		return "bars.DateTimes[idx].Year", i + 1, nil
	}
	if field := barFields[tok]; field != "" {
		return c.seriesRef(field, toks, i+1)
	}

	sym, ok := c.syms.Lookup(tok)
	if !ok {
		return tok, i + 1, nil
	}
	switch sym.Type {
	case symtab.TimeSeries:
		return c.seriesRef(tok, toks, i+1)
	case symtab.Parameter:
		p, _ := c.syms.Param(tok)
		return tok + "." + p.Kind.Accessor(), i + 1, nil
	}
	return tok, i + 1, nil
}

func (c *context) pick(series, scalar string) string {
	if c.mode() == Series {
		return series
	}
	return scalar
}

// seriesRef renders a reference to series base, consuming an optional
// history offset at toks[i].
func (c *context) seriesRef(base string, toks []string, i int) (string, int, error) {
	if at(toks, i) != "[" {
		if c.mode() == Series {
			return base, i, nil
		}
		return wrap(base) + "[idx]", i, nil
	}
	closing := matching(toks, i)
	if closing < 0 {
		return "", 0, fmt.Errorf("unbalanced [ after %s", base)
	}
	offset, err := c.convertIn(Scalar, toks[i+1:closing])
	if err != nil {
		return "", 0, err
	}
	if strings.Contains(offset, " ") {
		offset = "(" + offset + ")"
	}

	if c.mode() == Series {
		if offset == "0" || offset == "" {
			return base, closing + 1, nil
		}
		return "(" + wrap(base) + " >> " + offset + ")", closing + 1, nil
	}
	if offset == "0" || offset == "" {
		return wrap(base) + "[idx]", closing + 1, nil
	}
	return wrap(base) + "[idx - " + offset + "]", closing + 1, nil
}

// group converts a parenthesised sub-expression. In Series mode a history
// offset after the group shifts the whole group.
func (c *context) group(toks []string, i int) (string, int, error) {
	closing := matching(toks, i)
	if closing < 0 {
		return "(", i + 1, nil
	}
	shifted := at(toks, closing+1) == "["
	if shifted && c.mode() == Scalar {
		// a double has no history; shift a series copy of the group instead
		inner, err := c.convertIn(Series, toks[i+1:closing])
		if err != nil {
			return "", 0, err
		}
		tmp := c.temp()
		c.bufs.Hoist(tmp + " = " + inner + ";")
		c.log.Printf("line %d: hoisted shifted group into %s", c.line, tmp)
		return c.seriesRef(tmp, toks, closing+1)
	}

	inner, err := c.convert(toks[i+1 : closing])
	if err != nil {
		return "", 0, err
	}
	text := "(" + inner + ")"
	if shifted {
		return c.seriesRef(text, toks, closing+1)
	}
	return text, closing + 1, nil
}

// color renders color.<name>, color.new(base, transp) and the unsupported
// rgb constructors.
func (c *context) color(toks []string, i int) (string, int, error) {
	name := at(toks, i+2)
	switch name {
	case "new":
		if at(toks, i+3) != "(" {
			return "", 0, fmt.Errorf("%w after color.new", ErrMalformedCall)
		}
		closing := matching(toks, i+3)
		if closing < 0 {
			return "", 0, fmt.Errorf("%w: unbalanced color.new", ErrMalformedCall)
		}
		args := splitArgs(toks[i+4 : closing])
		baseToks, _ := args.value("color", 0)
		base, err := c.convert(baseToks)
		if err != nil {
			return "", 0, err
		}
		transpToks, ok := args.value("transp", 1)
		if !ok {
			return base, closing + 1, nil
		}
		transp, err := c.convert(transpToks)
		if err != nil {
			return "", 0, err
		}
		return transparent(base, transp), closing + 1, nil
	case "rgb", "rgba":
		c.warnf("color.%s is passed through untranslated", name)
		return "WLColor", i + 1, nil
	}
	return "WLColor." + proper(name), i + 3, nil
}

func transparent(color, transp string) string {
	return wrap(color) + ".MakeTransparent((byte)(" + transp + " * 2.55))"
}

// library renders a ta. call at toks[i].
func (c *context) library(toks []string, i int) (string, int, error) {
	name := at(toks, i+1)
	m, ok := indicators.Lookup(name)
	if !ok {
		if at(toks, i+2) != "(" {
			return "", 0, fmt.Errorf("%w after ta.%s", ErrMalformedCall, name)
		}
		return "", 0, fmt.Errorf("%w: ta.%s", ErrUnmappedFunction, name)
	}
	if m.Kind == indicators.Tuple {
		return "", 0, fmt.Errorf("%w: ta.%s produces %d outputs and must be destructured",
			ErrUnmappedFunction, name, len(m.Outputs))
	}

	enclosing := c.mode()
	args, next, err := c.libraryArgs(toks, i)
	if err != nil {
		return "", 0, err
	}
	code, err := m.Render(args)
	if err != nil {
		return "", 0, err
	}
	if m.Using != "" {
		c.bufs.AddUsing(m.Using)
	}

	if enclosing == Scalar && c.guard {
		tmp := c.temp()
		c.bufs.Hoist(tmp + " = " + code + ";")
		c.log.Printf("line %d: hoisted ta.%s into %s", c.line, name, tmp)
		return c.seriesRef(tmp, toks, next)
	}
	return c.seriesRef(code, toks, next)
}

// libraryArgs converts the arguments of the ta. call at toks[i] in Series
// mode. Keyword names are dropped; arguments are taken positionally.
func (c *context) libraryArgs(toks []string, i int) ([]string, int, error) {
	name := at(toks, i+1)
	if at(toks, i+2) != "(" {
		return nil, 0, fmt.Errorf("%w after ta.%s", ErrMalformedCall, name)
	}
	closing := matching(toks, i+2)
	if closing < 0 {
		return nil, 0, fmt.Errorf("%w: unbalanced ta.%s", ErrMalformedCall, name)
	}

	var args []string
	err := c.withMode(Series, func() error {
		for _, a := range splitArgs(toks[i+3 : closing]) {
			text, err := c.convert(a.toks)
			if err != nil {
				return err
			}
			args = append(args, text)
		}
		return nil
	})
	return args, closing + 1, err
}

// wrap parenthesises expr unless it is a single operand.
func wrap(expr string) string {
	depth := 0
	for _, r := range expr {
		switch r {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case ' ':
			if depth == 0 {
				return "(" + expr + ")"
			}
		}
	}
	return expr
}

func proper(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var spacedKeywords = map[string]bool{"if": true, "while": true, "for": true, "return": true}

// joinTokens joins rendered pieces with C# spacing.
func joinTokens(parts []string) string {
	var b strings.Builder
	prev := ""
	sign := false // prev is a unary + or -
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 && !sign && spaced(prev, p) {
			b.WriteByte(' ')
		}
		b.WriteString(p)
		sign = (p == "-" || p == "+") && !endsOperand(prev)
		prev = p
	}
	return b.String()
}

func spaced(prev, next string) bool {
	switch next {
	case ")", "]", ",", ".", "[":
		return false
	}
	switch prev {
	case "(", "[", "!":
		return false
	}
	if strings.HasSuffix(prev, ".") {
		return false
	}
	if next == "(" && lexer.IsIdentifierEnd(prev) && !spacedKeywords[prev] {
		return false
	}
	return true
}

// endsOperand reports whether p ends an operand, making a following "-"
// a subtraction.
func endsOperand(p string) bool {
	if p == "" {
		return false
	}
	last := p[len(p)-1]
	return lexer.IsIdentifierEnd(p) || last == '"' || (last >= '0' && last <= '9')
}
