package translator

import (
	"fmt"
	"io"
	"log"

	"github.com/pinewealth/pinewealth/pkg/codegen"
	"github.com/pinewealth/pinewealth/pkg/symtab"
)

// Mode says whether an expression denotes a whole series or the value at
// the current bar.
type Mode int

const (
	Scalar Mode = iota
	Series
)

func (m Mode) String() string {
	if m == Series {
		return "series"
	}
	return "scalar"
}

// context holds all mutable state of one translation.
type context struct {
	log  *log.Logger
	bufs *codegen.Buffers
	syms *symtab.Table

	modes []Mode
	depth int  // open blocks in the Execute region
	guard bool // converting an if condition

	persistent bool // current statement was declared with var/varip
	pending    pendingAssign

	pane  string
	seed  int64
	rnd   string // random color generator field, once declared
	txn   string // transaction field for sized entries, once declared
	temps int

	reserved map[string]bool   // generated field names
	aliases  map[string]string // script identifiers renamed away from them

	line     int
	warnings []string
}

func newContext(opts *Options, seed int64) *context {
	pane := opts.Pane
	if pane == "" {
		pane = DefaultPane
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &context{
		log:      logger,
		bufs:     &codegen.Buffers{},
		syms:     symtab.New(),
		modes:    []Mode{Scalar},
		pane:     pane,
		seed:     seed,
		reserved: map[string]bool{},
		aliases:  map[string]string{},
	}
}

func (c *context) mode() Mode {
	return c.modes[len(c.modes)-1]
}

// withMode runs fn with m pushed on the mode stack. The enclosing mode is
// restored however fn returns.
func (c *context) withMode(m Mode, fn func() error) error {
	c.modes = append(c.modes, m)
	defer func() { c.modes = c.modes[:len(c.modes)-1] }()
	return fn()
}

// convertIn converts toks with m as the current mode.
func (c *context) convertIn(m Mode, toks []string) (string, error) {
	var out string
	err := c.withMode(m, func() error {
		var err error
		out, err = c.convert(toks)
		return err
	})
	return out, err
}

func (c *context) warnf(format string, args ...any) {
	msg := fmt.Sprintf("line %d: ", c.line) + fmt.Sprintf(format, args...)
	c.warnings = append(c.warnings, msg)
	c.log.Print("warning: " + msg)
}

// emit appends a statement to Execute at the current depth, or to
// Initialize for persistent declarations.
func (c *context) emit(line string) {
	if c.persistent {
		c.bufs.AddInitialize(line)
		return
	}
	c.bufs.AddExecute(line, c.depth)
}

func (c *context) openBlock(header string) {
	c.bufs.AddExecute(header, c.depth)
	c.bufs.AddExecute("{", c.depth)
	c.depth++
}

// closeBlocks emits closing braces until at most depth blocks remain open.
func (c *context) closeBlocks(depth int) {
	for c.depth > depth {
		c.depth--
		c.bufs.CloseBlock(c.depth)
	}
}

// reserve declares a generated field named base, or base with a numeric
// suffix when the script already uses base. Script identifiers that spell
// the returned name later are renamed by renameReserved.
func (c *context) reserve(base string, typ symtab.Type, host string) string {
	name := base
	for n := 2; ; n++ {
		if _, taken := c.syms.Lookup(name); !taken && !c.reserved[name] {
			break
		}
		name = fmt.Sprintf("%s%d", base, n)
	}
	c.reserved[name] = true
	c.syms.DeclareHost(name, typ, host)
	return name
}

// temp declares a fresh intermediate series field.
func (c *context) temp() string {
	for {
		c.temps++
		name := fmt.Sprintf("ts%d", c.temps)
		if _, taken := c.syms.Lookup(name); !taken && !c.reserved[name] {
			c.reserved[name] = true
			c.syms.Declare(name, symtab.TimeSeries)
			return name
		}
	}
}

// renameReserved rewrites script identifiers that collide with generated
// fields. A renamed identifier keeps its alias for the rest of the script.
func (c *context) renameReserved(toks []string) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t
		if at(toks, i-1) == "." {
			continue
		}
		if alias, ok := c.aliases[t]; ok {
			out[i] = alias
			continue
		}
		if !c.reserved[t] {
			continue
		}
		alias := t
		for {
			alias += "_"
			if _, taken := c.syms.Lookup(alias); !taken && !c.reserved[alias] {
				break
			}
		}
		c.aliases[t] = alias
		c.reserved[alias] = true
		c.warnf("%s renamed to %s, the name is used by a generated field", t, alias)
		out[i] = alias
	}
	return out
}

// randomColor returns an expression for a fresh random opaque color,
// declaring the generator on first use.
func (c *context) randomColor() string {
	if c.rnd == "" {
		c.rnd = c.reserve("_rnd", symtab.Numeric, "Random")
		c.bufs.Hoist(fmt.Sprintf("%s = new Random(%d);", c.rnd, c.seed))
	}
	r := c.rnd
	return fmt.Sprintf("WLColor.FromArgb(255, %s.Next(256), %s.Next(256), %s.Next(256))", r, r, r)
}

// transaction returns the field sized entries are assigned to.
func (c *context) transaction() string {
	if c.txn == "" {
		c.txn = c.reserve("_t", symtab.Numeric, "Transaction")
	}
	return c.txn
}
