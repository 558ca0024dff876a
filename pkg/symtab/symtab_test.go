package symtab

import "testing"

func TestDeclare_FirstWins(t *testing.T) {
	tab := New()
	tab.Declare("x", TimeSeries)
	s := tab.Declare("x", Numeric)

	if s.Type != TimeSeries {
		t.Errorf("redeclared type = %v, want %v", s.Type, TimeSeries)
	}
	if !tab.IsSeries("x") {
		t.Error("IsSeries(x) = false")
	}
	if len(tab.Symbols()) != 1 {
		t.Errorf("Symbols() len = %d, want 1", len(tab.Symbols()))
	}
}

func TestSymbols_Order(t *testing.T) {
	tab := New()
	tab.Declare("b", Numeric)
	tab.DeclareHost("a", TimeSeries, "BBUpper")
	tab.Declare("c", Color)
	tab.Declare("b", Boolean)

	got := tab.Symbols()
	want := []struct{ name, decl string }{
		{"b", "double"},
		{"a", "BBUpper"},
		{"c", "WLColor"},
	}
	if len(got) != len(want) {
		t.Fatalf("Symbols() len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Decl() != w.decl {
			t.Errorf("Symbols()[%d] = %s %s, want %s %s", i, got[i].Decl(), got[i].Name, w.decl, w.name)
		}
	}
}

func TestHostType(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Numeric, "double"},
		{Boolean, "bool"},
		{String, "string"},
		{Color, "WLColor"},
		{TimeSeries, "TimeSeries"},
		{ListOfTimeSeries, "List<TimeSeries>"},
		{Parameter, "Parameter"},
	}
	for _, tt := range tests {
		if got := tt.typ.HostType(); got != tt.want {
			t.Errorf("%v.HostType() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}

func TestLookupAndList(t *testing.T) {
	tab := New()
	if _, ok := tab.Lookup("bands"); ok {
		t.Fatal("Lookup on empty table succeeded")
	}
	tab.Declare("bands", ListOfTimeSeries)
	s, ok := tab.Lookup("bands")
	if !ok || s.Type != ListOfTimeSeries {
		t.Errorf("Lookup(bands) = %+v, %v", s, ok)
	}
	if !tab.IsList("bands") || tab.IsSeries("bands") {
		t.Error("bands should be a list, not a series")
	}
}

func TestParams(t *testing.T) {
	tab := New()
	tab.DeclareParam(Param{Name: "len", Kind: Integer})
	tab.DeclareParam(Param{Name: "mult", Kind: Double})
	tab.DeclareParam(Param{Name: "len", Kind: Integer, Title: `"Length"`})

	p, ok := tab.Param("len")
	if !ok || p.Kind.Accessor() != "AsInt" || p.Title != `"Length"` {
		t.Errorf("Param(len) = %+v, %v", p, ok)
	}
	if got := len(tab.Params()); got != 2 {
		t.Errorf("Params() len = %d, want 2", got)
	}
	if Double.Accessor() != "AsDouble" || Bool.Accessor() != "AsBoolean" {
		t.Error("unexpected accessor")
	}
}

func TestPositionTags(t *testing.T) {
	tab := New()
	long := tab.Entry("Long", Long)
	short := tab.Entry("Short", Short)
	exitLong := tab.Exit("Long")
	exitShort := tab.Exit("Short")

	if long.Tag != 1 || short.Tag != 2 {
		t.Errorf("tags = %d, %d, want 1, 2", long.Tag, short.Tag)
	}
	if exitLong.Tag != long.Tag || exitLong.Side != Long {
		t.Errorf("Exit(Long) = %+v", exitLong)
	}
	if exitShort.Tag != short.Tag || exitShort.Side != Short {
		t.Errorf("Exit(Short) = %+v", exitShort)
	}

	// exit for a signal never entered defaults to long
	orphan := tab.Exit("Other")
	if orphan.Tag != 3 || orphan.Side != Long {
		t.Errorf("Exit(Other) = %+v", orphan)
	}

	if got := len(tab.Tags()); got != 3 {
		t.Errorf("Tags() len = %d, want 3", got)
	}
}
