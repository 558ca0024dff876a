package translator

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pinewealth/pinewealth/pkg/codegen"
	"github.com/pinewealth/pinewealth/pkg/symtab"
)

func TestTranslateAcceptance(t *testing.T) {
	testdataDir := "../../testdata"
	entries, err := os.ReadDir(testdataDir)
	if err != nil {
		t.Fatalf("Failed to read testdata directory: %v", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		testName := entry.Name()
		t.Run(testName, func(t *testing.T) {
			testDir := filepath.Join(testdataDir, testName)

			input, err := os.ReadFile(filepath.Join(testDir, "input.pine"))
			if err != nil {
				t.Fatalf("Failed to read input.pine: %v", err)
			}
			expected, err := os.ReadFile(filepath.Join(testDir, "expected.cs"))
			if err != nil {
				t.Fatalf("Failed to read expected.cs: %v", err)
			}

			result, err := Translate(string(input), &Options{ColorSeed: 42})
			if err != nil {
				t.Fatalf("Translate error = %v", err)
			}

			if normalizeWhitespace(result.Code) != normalizeWhitespace(string(expected)) {
				t.Errorf("Generated code does not match expected.\n\n=== EXPECTED ===\n%s\n\n=== ACTUAL ===\n%s", expected, result.Code)
			}
			if len(result.Warnings) > 0 {
				t.Logf("Warnings: %v", result.Warnings)
			}
		})
	}
}

func TestTranslateExamples(t *testing.T) {
	files, err := filepath.Glob("../../examples/*.pine")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no example scripts found")
	}
	for _, f := range files {
		t.Run(filepath.Base(f), func(t *testing.T) {
			src, err := os.ReadFile(f)
			if err != nil {
				t.Fatal(err)
			}
			res, err := Translate(string(src), nil)
			if err != nil {
				t.Fatalf("Translate error = %v", err)
			}
			if strings.Count(res.Code, "{") != strings.Count(res.Code, "}") {
				t.Errorf("unbalanced braces:\n%s", res.Code)
			}
			if len(res.PositionTags) == 0 {
				t.Error("no trade signals recorded")
			}
		})
	}
}

// normalizeWhitespace collapses runs of blanks and drops empty lines.
func normalizeWhitespace(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			lines = append(lines, strings.Join(f, " "))
		}
	}
	return strings.Join(lines, "\n")
}

func translate(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Translate(src, &Options{ColorSeed: 7})
	if err != nil {
		t.Fatalf("Translate error = %v", err)
	}
	return res
}

// trimmed returns the lines of a region without indentation.
func trimmed(res *Result, r codegen.Region) []string {
	var out []string
	for _, l := range res.Buffers.Lines(r) {
		out = append(out, strings.TrimSpace(l))
	}
	return out
}

func contains(lines []string, want string) bool {
	for _, l := range lines {
		if l == want {
			return true
		}
	}
	return false
}

func TestTranslate_BraceBalance(t *testing.T) {
	src := `a = 1
if close > open
    if volume > 1000
        a := 2
    else if volume > 500
        a := 3
    else
        a := 4
if high > low
    a := 5
`
	res := translate(t, src)
	exec := strings.Join(res.Buffers.Lines(codegen.Execute), "\n")
	open, closed := strings.Count(exec, "{"), strings.Count(exec, "}")
	if open != closed || open != 5 {
		t.Errorf("braces open=%d close=%d, want 5 each\n%s", open, closed, exec)
	}
}

func TestTranslate_BarFieldAssignment(t *testing.T) {
	res := translate(t, "x = close\nif x > 10\n    y := x\n")

	sym := res.Symbols[0]
	if sym.Name != "x" || sym.Type != symtab.TimeSeries {
		t.Fatalf("x declared as %+v, want TimeSeries", sym)
	}
	if init := trimmed(res, codegen.Initialize); !contains(init, "x = bars.Close;") {
		t.Errorf("Initialize = %q", init)
	}
	exec := trimmed(res, codegen.Execute)
	for _, want := range []string{"if (x[idx] > 10)", "y = x[idx];"} {
		if !contains(exec, want) {
			t.Errorf("Execute missing %q: %q", want, exec)
		}
	}
}

func TestTranslate_BollingerTuple(t *testing.T) {
	res := translate(t, "[u, m, l] = ta.bb(close, 20, 2.5)\n")

	wantDecl := []string{"private BBUpper u;", "private SMA m;", "private BBLower l;"}
	if got := trimmed(res, codegen.VarDecl); strings.Join(got, "|") != strings.Join(wantDecl, "|") {
		t.Errorf("VarDecl = %q, want %q", got, wantDecl)
	}
	wantInit := []string{
		"u = BBUpper.Series(bars.Close, 20, 2.5);",
		"m = SMA.Series(bars.Close, 20);",
		"l = BBLower.Series(bars.Close, 20, 2.5);",
	}
	if got := trimmed(res, codegen.Initialize); strings.Join(got, "|") != strings.Join(wantInit, "|") {
		t.Errorf("Initialize = %q, want %q", got, wantInit)
	}
}

func TestTranslate_TupleDiscardedOutput(t *testing.T) {
	res := translate(t, "[_, signal, hist] = ta.macd(close, 12, 26, 9)\n")
	init := trimmed(res, codegen.Initialize)
	want := "signal = EMA.Series(MACD.Series(bars.Close, 12, 26), 9);"
	if !contains(init, want) {
		t.Errorf("Initialize = %q, want %q", init, want)
	}
	if len(res.Symbols) != 2 {
		t.Errorf("Symbols = %+v, want signal and hist only", res.Symbols)
	}
}

func TestTranslate_SeriesList(t *testing.T) {
	res := translate(t, "bands = ta.bb(close, 20, 2)\nupper = bands[0]\n")
	want := []string{
		"bands = new List<TimeSeries>();",
		"bands.Add(BBUpper.Series(bars.Close, 20, 2));",
		"bands.Add(SMA.Series(bars.Close, 20));",
		"bands.Add(BBLower.Series(bars.Close, 20, 2));",
		"upper = bands[0];",
	}
	if got := trimmed(res, codegen.Initialize); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Initialize = %q, want %q", got, want)
	}
	if res.Symbols[0].Type != symtab.ListOfTimeSeries || res.Symbols[1].Type != symtab.TimeSeries {
		t.Errorf("Symbols = %+v", res.Symbols)
	}
}

func TestTranslate_PlotOnlyInInitialize(t *testing.T) {
	res := translate(t, "x = ta.sma(close, 10)\nif close > x\n    plot(x, color=color.red, title=\"X\")\n")

	plot := `PlotTimeSeries(x, "X", "Price", WLColor.Red);`
	init := trimmed(res, codegen.Initialize)
	n := 0
	for _, l := range init {
		if l == plot {
			n++
		}
	}
	if n != 1 {
		t.Errorf("plot appears %d times in Initialize: %q", n, init)
	}
	for _, l := range trimmed(res, codegen.Execute) {
		if strings.Contains(l, "PlotTimeSeries") {
			t.Errorf("plot leaked into Execute: %q", l)
		}
	}
}

func TestTranslate_PlotConstantDropped(t *testing.T) {
	res := translate(t, "plot(50)\n")
	if len(res.Buffers.Lines(codegen.Initialize)) != 0 {
		t.Errorf("Initialize = %q, want empty", res.Buffers.Lines(codegen.Initialize))
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %q, want one", res.Warnings)
	}
}

func TestTranslate_PlotStyleAndPane(t *testing.T) {
	src := `strategy("Osc", overlay=false)
r = ta.rsi(close, 14)
plot(r, "RSI", color.orange, style=plot.style_histogram)
`
	res := translate(t, src)
	want := `PlotTimeSeries(r, "RSI", "Osc", WLColor.Orange, 1, LineStyle.Histogram);`
	if init := trimmed(res, codegen.Initialize); !contains(init, want) {
		t.Errorf("Initialize = %q, want %q", init, want)
	}
}

func TestTranslate_EntryCloseShareTag(t *testing.T) {
	src := `strategy.entry("Long", strategy.long)
strategy.entry("Short", strategy.short)
strategy.close("Long")
strategy.close("Short")
`
	res := translate(t, src)
	exec := trimmed(res, codegen.Execute)
	want := []string{
		"if (HasOpenPosition(bars, PositionType.Short))",
		"PlaceTrade(bars, TransactionType.Cover, OrderType.Market);",
		`PlaceTrade(bars, TransactionType.Buy, OrderType.Market, 0, 1, "Long");`,
		"if (HasOpenPosition(bars, PositionType.Long))",
		"PlaceTrade(bars, TransactionType.Sell, OrderType.Market);",
		`PlaceTrade(bars, TransactionType.Short, OrderType.Market, 0, 2, "Short");`,
		`PlaceTrade(bars, TransactionType.Sell, OrderType.Market, 0, 1, "Long");`,
		`PlaceTrade(bars, TransactionType.Cover, OrderType.Market, 0, 2, "Short");`,
	}
	if strings.Join(exec, "\n") != strings.Join(want, "\n") {
		t.Errorf("Execute =\n%s\nwant\n%s", strings.Join(exec, "\n"), strings.Join(want, "\n"))
	}

	tags := res.PositionTags
	if len(tags) != 2 || tags[0].Signal != "Long" || tags[1].Side != symtab.Short {
		t.Errorf("PositionTags = %+v", tags)
	}
}

func TestTranslate_EntryQuantityAndWhen(t *testing.T) {
	res := translate(t, `strategy.entry("S", strategy.short, qty=10, when=close < open)`+"\n")
	exec := res.Buffers.Lines(codegen.Execute)
	want := []string{
		"         if (bars.Close[idx] < bars.Open[idx])",
		"         {",
		"            if (HasOpenPosition(bars, PositionType.Long))",
		"               PlaceTrade(bars, TransactionType.Sell, OrderType.Market);",
		`            _t = PlaceTrade(bars, TransactionType.Short, OrderType.Market, 0, 1, "S");`,
		"            _t.Quantity = 10;",
		"         }",
	}
	if strings.Join(exec, "\n") != strings.Join(want, "\n") {
		t.Errorf("Execute =\n%s\nwant\n%s", strings.Join(exec, "\n"), strings.Join(want, "\n"))
	}
	if decl := trimmed(res, codegen.VarDecl); !contains(decl, "private Transaction _t;") {
		t.Errorf("VarDecl = %q", decl)
	}
}

func TestTranslate_GeneratedFieldsKeepTheirNames(t *testing.T) {
	res := translate(t, "if ta.rsi(close, 14) > 70\n    x := 1\nts1 = ta.sma(close, 5)\nplot(ts1)\n")
	init := trimmed(res, codegen.Initialize)
	for _, want := range []string{
		"ts1 = RSI.Series(bars.Close, 14);",
		"ts1_ = SMA.Series(bars.Close, 5);",
	} {
		if !contains(init, want) {
			t.Errorf("Initialize missing %q: %q", want, init)
		}
	}
	if contains(init, "ts1 = SMA.Series(bars.Close, 5);") {
		t.Errorf("script assignment overwrote the hoisted condition: %q", init)
	}
	if exec := trimmed(res, codegen.Execute); !contains(exec, "if (ts1[idx] > 70)") {
		t.Errorf("Execute = %q", exec)
	}
	if decl := trimmed(res, codegen.VarDecl); !contains(decl, "private TimeSeries ts1_;") {
		t.Errorf("VarDecl = %q", decl)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "ts1 renamed to ts1_") {
		t.Errorf("Warnings = %q", res.Warnings)
	}
}

func TestTranslate_GeneratedFieldsAvoidScriptNames(t *testing.T) {
	res := translate(t, "_t = 5\n_rnd = 1\nstrategy.entry(\"L\", strategy.long, qty=_t)\nplot(close)\n")
	exec := trimmed(res, codegen.Execute)
	for _, want := range []string{
		"_t = 5;",
		`_t2 = PlaceTrade(bars, TransactionType.Buy, OrderType.Market, 0, 1, "L");`,
		"_t2.Quantity = _t;",
	} {
		if !contains(exec, want) {
			t.Errorf("Execute missing %q: %q", want, exec)
		}
	}
	if init := trimmed(res, codegen.Initialize); !contains(init, "_rnd2 = new Random(7);") {
		t.Errorf("Initialize = %q", init)
	}
	decl := trimmed(res, codegen.VarDecl)
	for _, want := range []string{"private Transaction _t2;", "private Random _rnd2;", "private double _t;"} {
		if !contains(decl, want) {
			t.Errorf("VarDecl missing %q: %q", want, decl)
		}
	}
}

func TestTranslate_ScalarGroupOffset(t *testing.T) {
	res := translate(t, "if (close - open)[1] > 0\n    x := 1\n")
	if init := trimmed(res, codegen.Initialize); !contains(init, "ts1 = bars.Close - bars.Open;") {
		t.Errorf("Initialize = %q", init)
	}
	if exec := trimmed(res, codegen.Execute); !contains(exec, "if (ts1[idx - 1] > 0)") {
		t.Errorf("Execute = %q", exec)
	}
}

func TestTranslate_CloseAll(t *testing.T) {
	res := translate(t, "strategy.close_all()\n")
	if got := len(res.Buffers.Lines(codegen.Execute)); got != 4 {
		t.Errorf("Execute has %d lines, want 4: %q", got, res.Buffers.Lines(codegen.Execute))
	}
}

func TestTranslate_EmptyInput(t *testing.T) {
	for _, src := range []string{"", "\n\n", "// only\n   // comments\n"} {
		res := translate(t, src)
		for _, m := range []string{"<#Using>", "<#Constructor>", "<#Initialize>", "<#Execute>", "<#VarDecl>"} {
			if strings.Contains(res.Code, m) {
				t.Errorf("%q: marker %s not replaced", src, m)
			}
		}
		empty, _ := codegen.Render("", &codegen.Buffers{})
		if res.Code != empty {
			t.Errorf("%q: output differs from the empty template", src)
		}
	}
}

func TestTranslate_Parameters(t *testing.T) {
	src := `useFilter = input.bool(true, "Use filter")
level = input.float(1.5, "Level", minval=0.5, maxval=3.0, step=0.5)
label = input.string("Hi")
if useFilter
    x := level
`
	res := translate(t, src)
	ctor := trimmed(res, codegen.Constructor)
	want := []string{
		`useFilter = AddParameter("Use filter", ParameterType.Boolean, true);`,
		`level = AddParameter("Level", ParameterType.Double, 1.5, 0.5, 3.0, 0.5);`,
	}
	if strings.Join(ctor, "|") != strings.Join(want, "|") {
		t.Errorf("Constructor = %q, want %q", ctor, want)
	}
	if init := trimmed(res, codegen.Initialize); !contains(init, `label = "Hi";`) {
		t.Errorf("Initialize = %q", init)
	}
	exec := trimmed(res, codegen.Execute)
	for _, w := range []string{"if (useFilter.AsBoolean)", "x = level.AsDouble;"} {
		if !contains(exec, w) {
			t.Errorf("Execute missing %q: %q", w, exec)
		}
	}
	if len(res.Parameters) != 2 || res.Parameters[0].Kind != symtab.Bool {
		t.Errorf("Parameters = %+v", res.Parameters)
	}
}

func TestTranslate_Sugar(t *testing.T) {
	src := `study("Legacy")
len = input(14)
s = sma(close, len)
i = bar_index
n = na
`
	res := translate(t, src)
	if init := trimmed(res, codegen.Initialize); !contains(init, "s = SMA.Series(bars.Close, len.AsInt);") {
		t.Errorf("Initialize = %q", init)
	}
	exec := trimmed(res, codegen.Execute)
	for _, w := range []string{"i = idx;", "n = double.NaN;"} {
		if !contains(exec, w) {
			t.Errorf("Execute missing %q: %q", w, exec)
		}
	}
}

func TestTranslate_PersistentAndCompound(t *testing.T) {
	src := `var int count = 0
count += 1
total = 0; total := total + count
`
	res := translate(t, src)
	if init := trimmed(res, codegen.Initialize); !contains(init, "count = 0;") {
		t.Errorf("Initialize = %q", init)
	}
	exec := trimmed(res, codegen.Execute)
	want := []string{"count += 1;", "total = 0;", "total = total + count;"}
	if strings.Join(exec, "|") != strings.Join(want, "|") {
		t.Errorf("Execute = %q, want %q", exec, want)
	}
}

func TestTranslate_DeferredAssignmentEndsAtDedent(t *testing.T) {
	src := `c = if close > open
    color.green
else
    color.red
other = 5
`
	res := translate(t, src)
	exec := trimmed(res, codegen.Execute)
	want := []string{
		"if (bars.Close[idx] > bars.Open[idx])",
		"{",
		"c = WLColor.Green;",
		"}",
		"else",
		"{",
		"c = WLColor.Red;",
		"}",
		"other = 5;",
	}
	if strings.Join(exec, "|") != strings.Join(want, "|") {
		t.Errorf("Execute = %q, want %q", exec, want)
	}
	if s := res.Symbols[0]; s.Name != "c" || s.Type != symtab.Color {
		t.Errorf("c declared as %+v", s)
	}
}

func TestTranslate_CommentsAttachToNextStatement(t *testing.T) {
	src := `if close > open
    a := 1
// after the block
b = 2
// trailing
`
	res := translate(t, src)
	exec := trimmed(res, codegen.Execute)
	want := []string{"if (bars.Close[idx] > bars.Open[idx])", "{", "a = 1;", "}", "// after the block", "b = 2;"}
	if strings.Join(exec, "|") != strings.Join(want, "|") {
		t.Errorf("Execute = %q, want %q", exec, want)
	}
}

func TestTranslate_Bgcolor(t *testing.T) {
	res := translate(t, "bgcolor(close > open ? color.green : color.red, transp=70)\n")
	want := "SetBackgroundColor(bars, idx, (bars.Close[idx] > bars.Open[idx] ? WLColor.Green : WLColor.Red).MakeTransparent((byte)(70 * 2.55)));"
	if exec := trimmed(res, codegen.Execute); !contains(exec, want) {
		t.Errorf("Execute = %q, want %q", exec, want)
	}
}

func TestTranslate_UsingForAdvancedSmoothers(t *testing.T) {
	res := translate(t, "h = ta.hma(close, 21)\n")
	if using := res.Buffers.Lines(codegen.Using); len(using) != 1 || using[0] != "using WealthLab.AdvancedSmoothers;" {
		t.Errorf("Using = %q", using)
	}
}

func TestTranslate_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
		line int
	}{
		{"malformed tuple", "a = 1\n[u, m = ta.bb(close, 20, 2)\n", ErrMalformedTuple, 2},
		{"unmapped", "x = ta.vwap(close)\n", ErrUnmappedFunction, 1},
		{"tuple as expression", "plot(ta.macd(close, 12, 26, 9))\n", ErrUnmappedFunction, 1},
		{"tuple from plain call", "[a, b] = foo(close)\n", ErrUnmappedFunction, 1},
		{"missing paren", "\n\nx = ta.ema\n", ErrMalformedCall, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Translate(tt.src, nil)
			if res != nil {
				t.Error("partial result returned")
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var terr *Error
			if !errors.As(err, &terr) || terr.Line != tt.line {
				t.Errorf("error line = %+v, want %d", terr, tt.line)
			}
		})
	}
}

func TestTranslate_MissingMarker(t *testing.T) {
	_, err := Translate("x = 1\n", &Options{Template: "<#Execute>"})
	if !errors.Is(err, codegen.ErrMissingMarker) {
		t.Errorf("error = %v, want ErrMissingMarker", err)
	}
}

func TestTranslate_Logger(t *testing.T) {
	var buf bytes.Buffer
	_, err := Translate("x = close\n", &Options{Logger: log.New(&buf, "", 0)})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "x inferred series") {
		t.Errorf("log = %q", buf.String())
	}
}

func TestTranslate_Independent(t *testing.T) {
	a := translate(t, "x = close\n")
	b := translate(t, "y = 1\n")
	if len(b.Symbols) != 1 || b.Symbols[0].Name != "y" {
		t.Errorf("state leaked between translations: %+v (first %+v)", b.Symbols, a.Symbols)
	}
}

func TestStatements(t *testing.T) {
	got := Statements("a = 1; b = 2\n\n    if x; y = \"a;b\"\n")
	want := []string{"a = 1", "b = 2", "    if x", `    y = "a;b"`}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Statements = %q, want %q", got, want)
	}
}
