package main

import (
	"testing"

	"github.com/pinewealth/pinewealth/pkg/symtab"
	"github.com/pinewealth/pinewealth/pkg/translator"
)

func TestExportedName(t *testing.T) {
	tests := map[string]string{
		"ma_cross.pine":        "MaCross",
		"/tmp/bb-squeeze.pine": "BbSqueeze",
		"rsi2.pine":            "Rsi2",
		"2ema.pine":            "Strategy2ema",
		"":                     "Strategy",
		"-":                    "Strategy",
	}
	for in, want := range tests {
		if got := exportedName(in); got != want {
			t.Errorf("exportedName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGoFile(t *testing.T) {
	res := &translator.Result{
		Code:         "// cs",
		Parameters:   []symtab.Param{{Name: "len", Kind: symtab.Integer, Title: `"Length"`}},
		PositionTags: []symtab.PositionTag{{Signal: "L", Tag: 0, Side: symtab.Long}},
	}
	gf := goFile("strategies", "dir/ma_cross.pine", res)
	if gf.Name != "MaCross" || gf.Origin != "ma_cross.pine" || gf.Code != "// cs" {
		t.Errorf("goFile = %+v", gf)
	}
	if len(gf.Parameters) != 1 || gf.Parameters[0].Kind != "Int32" {
		t.Errorf("Parameters = %+v", gf.Parameters)
	}
	if len(gf.Signals) != 1 || gf.Signals[0].Side != "long" {
		t.Errorf("Signals = %+v", gf.Signals)
	}

	if stdin := goFile("strategies", "-", res); stdin.Origin != "" {
		t.Errorf("stdin origin = %q", stdin.Origin)
	}
}
