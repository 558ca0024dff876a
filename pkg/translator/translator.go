// Package translator converts Pine Script strategies into WealthLab 8 C#
// strategy source.
//
// Translation is a single pass over the source lines. Each statement is
// lexed, normalized and dispatched on its leading tokens; handlers infer
// types, convert expressions and append text to the code buffers, which are
// finally substituted into the strategy template.
package translator

import (
	"hash/fnv"
	"log"
	"strings"

	"github.com/pinewealth/pinewealth/pkg/codegen"
	"github.com/pinewealth/pinewealth/pkg/lexer"
	"github.com/pinewealth/pinewealth/pkg/symtab"
)

// DefaultPane is the chart pane plots go to unless the script declares
// overlay=false.
const DefaultPane = "Price"

// Options configures a translation. The zero value is usable.
type Options struct {
	Template  string      // output template; empty selects codegen.DefaultTemplate
	Pane      string      // default plot pane
	ColorSeed int64       // seed for random plot colors; 0 derives one from the source
	Logger    *log.Logger // traces dispatch decisions when set
}

// Result is the output of a successful translation.
type Result struct {
	Code         string
	Buffers      *codegen.Buffers
	Symbols      []symtab.Symbol
	Parameters   []symtab.Param
	PositionTags []symtab.PositionTag
	Warnings     []string
}

// Translate converts source into C#. The first unsupported or malformed
// construct aborts the translation with an *Error.
func Translate(source string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	seed := opts.ColorSeed
	if seed == 0 {
		seed = sourceSeed(source)
	}
	c := newContext(opts, seed)

	for _, ln := range logicalLines(source) {
		c.line = ln.number
		if err := c.statement(ln.text); err != nil {
			return nil, &Error{Line: ln.number, Source: strings.TrimSpace(ln.text), Err: err}
		}
	}

	c.bufs.DropComments()
	c.closeBlocks(0)
	for _, s := range c.syms.Symbols() {
		c.bufs.AddVarDecl("private " + s.Decl() + " " + s.Name + ";")
	}

	code, err := codegen.Render(opts.Template, c.bufs)
	if err != nil {
		return nil, err
	}
	return &Result{
		Code:         code,
		Buffers:      c.bufs,
		Symbols:      c.syms.Symbols(),
		Parameters:   c.syms.Params(),
		PositionTags: c.syms.Tags(),
		Warnings:     c.warnings,
	}, nil
}

type logicalLine struct {
	number int
	text   string
}

// logicalLines splits source into statements. Statements after a top-level
// semicolon inherit the indentation of the first one on their line.
func logicalLines(source string) []logicalLine {
	source = strings.ReplaceAll(source, "\r", "")
	var out []logicalLine
	for i, raw := range strings.Split(source, "\n") {
		pieces := lexer.SplitStatements(raw)
		if len(pieces) == 0 {
			continue
		}
		first := pieces[0]
		indent := first[:len(first)-len(strings.TrimLeft(first, " \t"))]
		out = append(out, logicalLine{number: i + 1, text: first})
		for _, p := range pieces[1:] {
			out = append(out, logicalLine{number: i + 1, text: indent + strings.TrimLeft(p, " \t")})
		}
	}
	return out
}

// Statements returns the logical statements of source, as dispatched.
func Statements(source string) []string {
	lines := logicalLines(source)
	out := make([]string, 0, len(lines))
	for _, ln := range lines {
		if strings.TrimSpace(ln.text) != "" {
			out = append(out, ln.text)
		}
	}
	return out
}

func sourceSeed(source string) int64 {
	h := fnv.New32a()
	h.Write([]byte(source))
	return int64(h.Sum32() & 0x7fffffff)
}
