// pinewealth - Pine Script to WealthLab 8 C# translator
//
// Usage:
//
//	pinewealth [options] strategy.pine > Strategy.cs
//	cat strategy.pine | pinewealth -emit go -go-package strategies > strategy.go
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/pinewealth/pinewealth/pkg/codegen"
	"github.com/pinewealth/pinewealth/pkg/compilebridge"
	"github.com/pinewealth/pinewealth/pkg/config"
	"github.com/pinewealth/pinewealth/pkg/history"
	"github.com/pinewealth/pinewealth/pkg/translator"
)

var (
	output         = flag.String("o", "", "write output to file instead of stdout")
	templatePath   = flag.String("template", "", "strategy template with <#...> markers")
	emit           = flag.String("emit", "cs", "output kind: cs (C# strategy) or go (Go file embedding it)")
	goPackage      = flag.String("go-package", "", "package name for -emit go")
	historyDB      = flag.String("history", "", "record the translation in this SQLite database")
	compilerPlugin = flag.String("compiler-plugin", "", "c-shared plugin used to compile the result")
	pane           = flag.String("pane", "", "default plot pane")
	debug          = flag.Bool("debug", false, "trace translation decisions to stderr")
	version        = flag.Bool("version", false, "print version and exit")
)

const versionStr = "0.3.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pinewealth - Pine Script to WealthLab 8 C# translator\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  pinewealth [options] [file.pine] > Strategy.cs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Printf("pinewealth version %s\n", versionStr)
		os.Exit(0)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}
	applyFlags(cfg)

	source, err := readSource(path)
	if err != nil {
		return err
	}

	opts := &translator.Options{Pane: cfg.Pane, ColorSeed: cfg.ColorSeed}
	if opts.Template, err = cfg.TemplateText(); err != nil {
		return err
	}
	if *debug {
		opts.Logger = log.New(os.Stderr, "[pinewealth] ", 0)
	}

	res, terr := translator.Translate(source, opts)
	if cfg.HistoryDB != "" {
		if err := record(cfg.HistoryDB, source, res, terr); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	if terr != nil {
		return terr
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	if cfg.CompilerPlugin != "" {
		if err := compile(cfg.CompilerPlugin, res.Code); err != nil {
			return err
		}
	}

	out := res.Code
	switch *emit {
	case "cs":
	case "go":
		pkg := cfg.GoPackage
		if pkg == "" {
			pkg = "strategies"
		}
		if out, err = codegen.GoSource(goFile(pkg, path, res)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown emit kind %q (use 'cs' or 'go')", *emit)
	}

	if *output == "" {
		_, err = io.WriteString(os.Stdout, out)
		return err
	}
	return os.WriteFile(*output, []byte(out), 0644)
}

// applyFlags lets explicitly set flags override the configuration.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "template":
			cfg.Template = *templatePath
		case "history":
			cfg.HistoryDB = *historyDB
		case "compiler-plugin":
			cfg.CompilerPlugin = *compilerPlugin
		case "go-package":
			cfg.GoPackage = *goPackage
		case "pane":
			cfg.Pane = *pane
		}
	})
}

func readSource(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(data), nil
}

func record(dbPath, source string, res *translator.Result, terr error) error {
	store, err := history.Open(&history.Config{DBPath: dbPath})
	if err != nil {
		return err
	}
	defer store.Close()

	var code string
	var warnings []string
	if res != nil {
		code, warnings = res.Code, res.Warnings
	}
	rec, err := store.Save(source, code, warnings, terr)
	if err != nil {
		return err
	}
	if *debug {
		fmt.Fprintf(os.Stderr, "[pinewealth] recorded %s in %s\n", rec.ID, store.Path())
	}
	return nil
}

func compile(plugin, code string) error {
	bridge, err := compilebridge.Load(plugin)
	if err != nil {
		return err
	}
	diags, err := bridge.Check(code)
	if err != nil {
		return err
	}
	for _, d := range diags {
		if d.IsWarning() {
			fmt.Fprintf(os.Stderr, "Warning: compile: %s\n", d.Error())
		}
	}
	if err := diags.Err(); err != nil {
		return fmt.Errorf("generated code does not compile: %w", err)
	}
	return nil
}

func goFile(pkg, path string, res *translator.Result) codegen.GoFile {
	gf := codegen.GoFile{
		Package: pkg,
		Name:    exportedName(path),
		Origin:  filepath.Base(path),
		Code:    res.Code,
	}
	if path == "" || path == "-" {
		gf.Origin = ""
	}
	for _, p := range res.Parameters {
		gf.Parameters = append(gf.Parameters, codegen.GoParam{Name: p.Name, Kind: p.Kind.String(), Title: p.Title})
	}
	for _, t := range res.PositionTags {
		gf.Signals = append(gf.Signals, codegen.GoSignal{Name: t.Signal, Tag: t.Tag, Side: t.Side.String()})
	}
	return gf
}

// exportedName turns a file name like ma_cross.pine into MaCross.
func exportedName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	upper := true
	for _, r := range base {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	name := b.String()
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "Strategy" + name
	}
	return name
}
