package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pinewealth/pinewealth/pkg/config"
	"github.com/pinewealth/pinewealth/pkg/history"
)

func testStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(&history.Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestListRecords(t *testing.T) {
	s := testStore(t)
	ok, err := s.Save("x = 1", "code", []string{"w"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	bad, err := s.Save("[a] = foo", "", nil, errors.New("boom"))
	if err != nil {
		t.Fatal(err)
	}

	all, err := listRecords(s, 0, false)
	if err != nil {
		t.Fatalf("listRecords() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != bad.ID || all[1].ID != ok.ID || all[1].Warnings != 1 {
		t.Errorf("history = %+v", all)
	}

	failed, err := listRecords(s, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(failed) != 1 || failed[0].ID != bad.ID || failed[0].Error != "boom" || !failed[0].Failed {
		t.Errorf("failures = %+v", failed)
	}
}

func TestLookup(t *testing.T) {
	s := testStore(t)
	rec, err := s.Save("x = close", "code", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	got, err := lookup(s, "x = close")
	if err != nil {
		t.Fatalf("lookup() error = %v", err)
	}
	if got.ID != rec.ID || got.Code != "code" {
		t.Errorf("lookup() = %+v", got)
	}
	if _, err := lookup(s, "y = 1"); !errors.Is(err, history.ErrRecordNotFound) {
		t.Errorf("lookup(unknown) error = %v", err)
	}
}

func TestFunctions(t *testing.T) {
	fns := functions()
	found := map[string]functionInfo{}
	for _, f := range fns {
		found[f.Name] = f
	}
	if f, ok := found["ta.bb"]; !ok || f.Kind != "tuple" || f.Outputs != 3 {
		t.Errorf("ta.bb = %+v", f)
	}
	if f, ok := found["ta.ema"]; !ok || f.Kind != "direct" {
		t.Errorf("ta.ema = %+v", f)
	}
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	if err := initConfig(dir); err != nil {
		t.Fatalf("initConfig() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	t.Setenv(history.EnvDBPath, "")
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GoPackage != "strategies" || cfg.Pane != "Price" {
		t.Errorf("written config = %+v", cfg)
	}
	if err := initConfig(dir); err == nil {
		t.Error("initConfig() overwrote an existing config")
	}
}
