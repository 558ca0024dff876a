// Package indicators maps Pine Script "ta." library functions onto WealthLab
// indicator constructions.
//
// Every mapping is a record consulted by name. Templates use {N} for the
// N-th converted call argument and {$N} for the variable that receives the
// N-th output of a tuple-producing function.
package indicators

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind distinguishes how a mapping renders.
type Kind int

const (
	Direct Kind = iota // Host.Series(args...)
	Custom             // Template with placeholders
	Tuple              // several outputs, destructuring only
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Custom:
		return "custom"
	case Tuple:
		return "tuple"
	default:
		return "unknown"
	}
}

// Output is one component produced by a tuple-producing function.
type Output struct {
	Host     string // indicator class, used as the field type
	Template string
}

// Mapping describes one library function.
type Mapping struct {
	Name          string
	Kind          Kind
	Host          string
	Template      string
	Arity         int
	DefaultSource string // prepended when one fewer than Arity arguments is given
	Using         string // extra namespace the rendering needs
	Outputs       []Output
}

const advancedSmoothers = "WealthLab.AdvancedSmoothers"

var table = map[string]Mapping{}

func init() {
	direct := map[string]string{
		"ema":         "EMA",
		"rsi":         "RSI",
		"sma":         "SMA",
		"barssince":   "BarsSince",
		"bbw":         "BBWidth",
		"cci":         "CCI",
		"cmo":         "CMO",
		"cog":         "CG",
		"correlation": "Corr",
		"dev":         "MeanAbsDev",
		"wma":         "WMA",
		"mom":         "Momentum",
		"roc":         "ROC",
		"stdev":       "StdDev",
	}
	for name, host := range direct {
		register(Mapping{Name: name, Kind: Direct, Host: host})
	}

	custom := []Mapping{
		{Name: "alma", Host: "ALMA", Template: "ALMA.Series({0}, {1}, {3}, {2}, 0)", Arity: 4, Using: advancedSmoothers},
		{Name: "atr", Host: "ATR", Template: "ATR.Series(bars, {0})", Arity: 1},
		{Name: "crossover", Template: "{0}.CrossOver({1})", Arity: 2},
		{Name: "crossunder", Template: "{0}.CrossUnder({1})", Arity: 2},
		{Name: "cross", Template: "{0}.CrossOver({1}) | {0}.CrossUnder({1})", Arity: 2},
		{Name: "cum", Template: "{0}.Sum()", Arity: 1},
		{Name: "falling", Template: "{0} < ({0} >> {1})", Arity: 2},
		{Name: "rising", Template: "{0} > ({0} >> {1})", Arity: 2},
		{Name: "highest", Host: "Highest", Template: "Highest.Series({0}, {1})", Arity: 2, DefaultSource: "bars.High"},
		{Name: "lowest", Host: "Lowest", Template: "Lowest.Series({0}, {1})", Arity: 2, DefaultSource: "bars.Low"},
		{Name: "highestbars", Template: "{0}.HighestBars({1})", Arity: 2, DefaultSource: "bars.High"},
		{Name: "lowestbars", Template: "{0}.LowestBars({1})", Arity: 2, DefaultSource: "bars.Low"},
		{Name: "hma", Host: "HMA", Template: "HMA.Series({0}, {1})", Arity: 2, Using: advancedSmoothers},
	}
	for _, m := range custom {
		m.Kind = Custom
		register(m)
	}

	tuples := []Mapping{
		{Name: "bb", Arity: 3, Outputs: []Output{
			{Host: "BBUpper", Template: "BBUpper.Series({0}, {1}, {2})"},
			{Host: "SMA", Template: "SMA.Series({0}, {1})"},
			{Host: "BBLower", Template: "BBLower.Series({0}, {1}, {2})"},
		}},
		{Name: "dc", Arity: 3, Outputs: []Output{
			{Host: "Highest", Template: "Highest.Series({0}, {2})"},
			{Host: "Lowest", Template: "Lowest.Series({1}, {2})"},
		}},
		{Name: "ichimoku", Arity: 4, Using: "WealthLab.IchimokuCloud", Outputs: []Output{
			{Host: "TenkanSen", Template: "TenkanSen.Series(bars, {0})"},
			{Host: "KijunSen", Template: "KijunSen.Series(bars, {1})"},
			{Host: "SenkouSpanA", Template: "SenkouSpanA.Series(bars, {0}, {1}, {3})"},
			{Host: "SenkouSpanB", Template: "SenkouSpanB.Series(bars, {2}, {3})"},
			{Host: "ChikouSpan", Template: "ChikouSpan.Series(bars, {3})"},
		}},
		{Name: "kc", Arity: 3, Outputs: []Output{
			{Host: "KeltnerUpper", Template: "KeltnerUpper.Series(bars, {1}, {2})"},
			{Host: "EMA", Template: "EMA.Series({0}, {1})"},
			{Host: "KeltnerLower", Template: "KeltnerLower.Series(bars, {1}, {2})"},
		}},
		{Name: "macd", Arity: 4, Outputs: []Output{
			{Host: "MACD", Template: "MACD.Series({0}, {1}, {2})"},
			{Host: "EMA", Template: "EMA.Series({$0}, {3})"},
			{Host: "MACDHist", Template: "MACDHist.Series({0}, {1}, {2}, {3})"},
		}},
		{Name: "dmi", Arity: 2, Outputs: []Output{
			{Host: "DIPlus", Template: "DIPlus.Series(bars, {0})"},
			{Host: "DIMinus", Template: "DIMinus.Series(bars, {0})"},
			{Host: "ADX", Template: "ADX.Series(bars, {1})"},
		}},
	}
	for _, m := range tuples {
		m.Kind = Tuple
		register(m)
	}
}

func register(m Mapping) {
	table[m.Name] = m
}

// Lookup returns the mapping for a library function name.
func Lookup(name string) (Mapping, bool) {
	m, ok := table[name]
	return m, ok
}

// Names returns every mapped function name, sorted.
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTuple reports whether name is a tuple-producing function.
func IsTuple(name string) bool {
	m, ok := table[name]
	return ok && m.Kind == Tuple
}

// BareNames lists functions older dialects call without the "ta." prefix.
var BareNames = map[string]bool{
	"ema": true, "sma": true, "rsi": true, "macd": true, "stoch": true,
	"atr": true, "adx": true, "adxdi": true, "dmi": true, "wma": true,
	"vwma": true, "hma": true, "cmo": true, "mom": true, "roc": true,
	"stdev": true, "variance": true, "highest": true, "lowest": true,
	"rma": true, "crossover": true, "crossunder": true,
}

// Render produces the single expression for a Direct or Custom mapping from
// already converted arguments.
func (m Mapping) Render(args []string) (string, error) {
	switch m.Kind {
	case Direct:
		return m.Host + ".Series(" + strings.Join(args, ", ") + ")", nil
	case Custom:
		args, err := m.complete(args)
		if err != nil {
			return "", err
		}
		return Expand(m.Template, args, nil), nil
	default:
		return "", fmt.Errorf("ta.%s produces %d outputs and must be destructured", m.Name, len(m.Outputs))
	}
}

// RenderOutput produces the construction of output k of a Tuple mapping.
// outputs names the receiving variable of each output, for {$N} references.
func (m Mapping) RenderOutput(k int, args, outputs []string) (string, error) {
	if m.Kind != Tuple {
		return "", fmt.Errorf("ta.%s does not produce multiple outputs", m.Name)
	}
	if k < 0 || k >= len(m.Outputs) {
		return "", fmt.Errorf("ta.%s has no output %d", m.Name, k)
	}
	args, err := m.complete(args)
	if err != nil {
		return "", err
	}
	return Expand(m.Outputs[k].Template, args, outputs), nil
}

func (m Mapping) complete(args []string) ([]string, error) {
	if m.DefaultSource != "" && len(args) == m.Arity-1 {
		args = append([]string{m.DefaultSource}, args...)
	}
	if len(args) < m.Arity {
		return nil, fmt.Errorf("ta.%s expects %d arguments, got %d", m.Name, m.Arity, len(args))
	}
	return args, nil
}

// Expand substitutes {N} with args[N] and {$N} with outputs[N]. Unknown or
// out of range placeholders are left as written.
func Expand(template string, args, outputs []string) string {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '{' {
			b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(template[i:], '}')
		if end < 0 {
			b.WriteString(template[i:])
			break
		}
		key := template[i+1 : i+end]
		src := args
		if strings.HasPrefix(key, "$") {
			src = outputs
			key = key[1:]
		}
		n, err := strconv.Atoi(key)
		if err != nil || n < 0 || n >= len(src) {
			b.WriteString(template[i : i+end+1])
		} else {
			b.WriteString(src[n])
		}
		i += end
	}
	return b.String()
}
