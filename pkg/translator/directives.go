package translator

import (
	"fmt"
	"strings"

	"github.com/pinewealth/pinewealth/pkg/lexer"
	"github.com/pinewealth/pinewealth/pkg/symtab"
)

var lineStyles = map[string]string{
	"plot.style_line":      "LineStyle.Solid",
	"plot.style_stepline":  "LineStyle.Solid",
	"plot.style_histogram": "LineStyle.Histogram",
	"plot.style_circles":   "LineStyle.Dots",
	"plot.style_cross":     "LineStyle.Dots",
}

// callArgs splits the arguments of the call whose "(" is at toks[open].
func callArgs(toks []string, open int) (argList, error) {
	if at(toks, open) != "(" {
		return nil, fmt.Errorf("%w after %s", ErrMalformedCall, strings.Join(toks[:open], ""))
	}
	closing := matching(toks, open)
	if closing < 0 {
		return nil, fmt.Errorf("%w: unbalanced %s", ErrMalformedCall, strings.Join(toks[:open], ""))
	}
	return splitArgs(toks[open+1 : closing]), nil
}

// numericOnly reports whether toks is a plain, possibly signed, number.
func numericOnly(toks []string) bool {
	if len(toks) == 0 {
		return false
	}
	for _, t := range toks {
		if !lexer.IsNumber(t) && t != "-" && t != "+" && t != "." {
			return false
		}
	}
	return true
}

// metadata consumes strategy(...) and indicator(...). Only the pane is kept.
func (c *context) metadata(toks []string) error {
	a, err := callArgs(toks, 1)
	if err != nil {
		return err
	}
	overlay, _ := a.keyword("overlay")
	if joinTokens(overlay) != "false" {
		return nil
	}
	c.pane = "NewPane"
	if title, ok := a.value("title", 0); ok && lexer.IsString(at(title, 0)) {
		c.pane = strings.Trim(title[0], `"`)
	}
	c.log.Printf("line %d: plots go to pane %q", c.line, c.pane)
	return nil
}

// plot emits a one-time PlotTimeSeries call.
func (c *context) plot(toks []string) error {
	a, err := callArgs(toks, 1)
	if err != nil {
		return err
	}
	src, ok := a.value("series", 0)
	if !ok || numericOnly(src) {
		c.warnf("plot of a constant value is not supported, dropped")
		return nil
	}
	series, err := c.convertIn(Series, src)
	if err != nil {
		return err
	}

	title := `"` + strings.ReplaceAll(joinTokens(src), `"`, `\"`) + `"`
	if t, ok := a.value("title", 1); ok && len(t) > 0 {
		title = joinTokens(t)
	}
	var color string
	if ct, ok := a.value("color", 2); ok {
		if color, err = c.convertIn(Scalar, ct); err != nil {
			return err
		}
	} else {
		color = c.randomColor()
	}

	parts := []string{series, title, `"` + c.pane + `"`, color}
	width, hasWidth := a.value("linewidth", 3)
	style, hasStyle := a.value("style", 4)
	if hasWidth || hasStyle {
		w := "1"
		if hasWidth {
			w = joinTokens(width)
		}
		parts = append(parts, w)
	}
	if hasStyle {
		ls := lineStyles[joinTokens(style)]
		if ls == "" {
			ls = "LineStyle.Solid"
		}
		parts = append(parts, ls)
	}
	c.bufs.AddInitialize("PlotTimeSeries(" + strings.Join(parts, ", ") + ");")
	return nil
}

// bgcolor emits a per-bar background color.
func (c *context) bgcolor(toks []string) error {
	a, err := callArgs(toks, 1)
	if err != nil {
		return err
	}
	ct, ok := a.value("color", 0)
	if !ok {
		c.warnf("bgcolor without a color, dropped")
		return nil
	}
	color, err := c.convertIn(Scalar, ct)
	if err != nil {
		return err
	}
	transp, ok := a.keyword("transp")
	if !ok {
		if p, found := a.positional(1); found && numericOnly(p) {
			transp, ok = p, true
		}
	}
	if ok {
		color = transparent(color, joinTokens(transp))
	}
	c.emit("SetBackgroundColor(bars, idx, " + color + ");")
	return nil
}

func entryTransaction(s symtab.Side) string {
	if s == symtab.Short {
		return "Short"
	}
	return "Buy"
}

func exitTransaction(s symtab.Side) string {
	if s == symtab.Short {
		return "Cover"
	}
	return "Sell"
}

func positionType(s symtab.Side) string {
	if s == symtab.Short {
		return "Short"
	}
	return "Long"
}

func opposite(s symtab.Side) symtab.Side {
	if s == symtab.Short {
		return symtab.Long
	}
	return symtab.Short
}

func sideOf(toks []string) symtab.Side {
	switch joinTokens(toks) {
	case "strategy.short", "false":
		return symtab.Short
	}
	return symtab.Long
}

// signal returns the quoted signal name of a strategy order call.
func signal(a argList) (string, bool) {
	id, ok := a.value("id", 0)
	if !ok || len(id) != 1 || !lexer.IsString(id[0]) {
		return "", false
	}
	return id[0], true
}

// closePosition emits the guarded market exit of side.
func (c *context) closePosition(side symtab.Side) {
	c.bufs.AddExecute("if (HasOpenPosition(bars, PositionType."+positionType(side)+"))", c.depth)
	c.bufs.AddExecute("PlaceTrade(bars, TransactionType."+exitTransaction(side)+", OrderType.Market);", c.depth+1)
}

// when wraps emit in an if block when the call carries when=.
func (c *context) when(a argList, emit func() error) error {
	cond, ok := a.keyword("when")
	if !ok {
		return emit()
	}
	if err := c.conditional("if", cond); err != nil {
		return err
	}
	err := emit()
	c.closeBlocks(c.depth - 1)
	return err
}

// entry handles strategy.entry.
func (c *context) entry(toks []string) error {
	a, err := callArgs(toks, 3)
	if err != nil {
		return err
	}
	sig, ok := signal(a)
	if !ok {
		return c.bare(toks)
	}
	side := symtab.Long
	if d, ok := a.value("direction", 1); ok {
		side = sideOf(d)
	}
	tag := c.syms.Entry(strings.Trim(sig, `"`), side)
	c.log.Printf("line %d: entry %s tag %d (%s)", c.line, sig, tag.Tag, side)

	return c.when(a, func() error {
		c.closePosition(opposite(side))
		place := fmt.Sprintf("PlaceTrade(bars, TransactionType.%s, OrderType.Market, 0, %d, %s)",
			entryTransaction(side), tag.Tag, sig)
		qty, ok := a.keyword("qty")
		if !ok {
			c.bufs.AddExecute(place+";", c.depth)
			return nil
		}
		q, err := c.convertIn(Scalar, qty)
		if err != nil {
			return err
		}
		t := c.transaction()
		c.bufs.AddExecute(t+" = "+place+";", c.depth)
		c.bufs.AddExecute(t+".Quantity = "+q+";", c.depth)
		return nil
	})
}

// exit handles strategy.close. The side comes from the matching entry.
func (c *context) exit(toks []string) error {
	a, err := callArgs(toks, 3)
	if err != nil {
		return err
	}
	sig, ok := signal(a)
	if !ok {
		return c.bare(toks)
	}
	tag := c.syms.Exit(strings.Trim(sig, `"`))
	return c.when(a, func() error {
		c.bufs.AddExecute(fmt.Sprintf("PlaceTrade(bars, TransactionType.%s, OrderType.Market, 0, %d, %s);",
			exitTransaction(tag.Side), tag.Tag, sig), c.depth)
		return nil
	})
}

// exitAll handles strategy.close_all.
func (c *context) exitAll(toks []string) error {
	a, err := callArgs(toks, 3)
	if err != nil {
		return err
	}
	return c.when(a, func() error {
		c.closePosition(symtab.Long)
		c.closePosition(symtab.Short)
		return nil
	})
}
