// Package main provides a CLI tool for inspecting how pinewealth sees a Pine
// Script file.
//
// Usage:
//
//	pine-inspect tokenize <file.pine>       # Output JSON tokens per statement
//	pine-inspect statements <file.pine>     # Output JSON logical statements
//	pine-inspect translate <file.pine>      # Output JSON translation details
//	pine-inspect history <db> [limit]       # Output recorded translations
//	pine-inspect failures <db> [limit]      # Output recorded failed translations
//	pine-inspect lookup <db> <file.pine>    # Output the latest record for a file
//	pine-inspect delete <db> <id>           # Remove a recorded translation
//	pine-inspect functions                  # Output the supported ta.* functions
//	pine-inspect init [dir]                 # Write a default .pinewealth.json
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pinewealth/pinewealth/pkg/codegen"
	"github.com/pinewealth/pinewealth/pkg/config"
	"github.com/pinewealth/pinewealth/pkg/history"
	"github.com/pinewealth/pinewealth/pkg/indicators"
	"github.com/pinewealth/pinewealth/pkg/lexer"
	"github.com/pinewealth/pinewealth/pkg/translator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	var err error

	switch command {
	case "tokenize", "statements", "translate":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: missing file argument")
			printUsage()
			os.Exit(1)
		}
		err = withSource(os.Args[2], commands[command])

	case "history", "failures":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Error: missing database argument")
			printUsage()
			os.Exit(1)
		}
		limit := 20
		if len(os.Args) > 3 {
			if limit, err = strconv.Atoi(os.Args[3]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid limit %q\n", os.Args[3])
				os.Exit(1)
			}
		}
		err = withStore(os.Args[2], func(s *history.Store) (any, error) {
			return listRecords(s, limit, command == "failures")
		})

	case "delete":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Error: missing database or record argument")
			printUsage()
			os.Exit(1)
		}
		err = withStore(os.Args[2], func(s *history.Store) (any, error) {
			return map[string]string{"deleted": os.Args[3]}, s.Delete(os.Args[3])
		})

	case "functions":
		err = printJSON(functions())

	case "init":
		dir := "."
		if len(os.Args) > 2 {
			dir = os.Args[2]
		}
		err = initConfig(dir)

	case "lookup":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Error: missing database or file argument")
			printUsage()
			os.Exit(1)
		}
		err = cmdLookup(os.Args[2], os.Args[3])

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pine-inspect - Inspect Pine Script translation

Usage:
  pine-inspect tokenize <file.pine>       Output JSON tokens per statement
  pine-inspect statements <file.pine>     Output JSON logical statements
  pine-inspect translate <file.pine>      Output JSON translation details
  pine-inspect history <db> [limit]       Output recorded translations
  pine-inspect failures <db> [limit]      Output recorded failed translations
  pine-inspect lookup <db> <file.pine>    Output the latest record for a file
  pine-inspect delete <db> <id>           Remove a recorded translation
  pine-inspect functions                  Output the supported ta.* functions
  pine-inspect init [dir]                 Write a default .pinewealth.json
  pine-inspect help                       Show this help message

Examples:
  pine-inspect tokenize ma_cross.pine | jq '.[0]'
  pine-inspect translate ma_cross.pine | jq .symbols`)
}

var commands = map[string]func(string) (any, error){
	"tokenize":   tokenize,
	"statements": statements,
	"translate":  translate,
}

func withSource(filename string, cmd func(string) (any, error)) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	v, err := cmd(string(content))
	if err != nil {
		return err
	}
	return printJSON(v)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// statementTokens is one statement as the dispatcher receives it.
type statementTokens struct {
	Statement string   `json:"statement"`
	Depth     int      `json:"depth"`
	Tokens    []string `json:"tokens"`
}

func tokenize(source string) (any, error) {
	out := []statementTokens{}
	for _, s := range translator.Statements(source) {
		line, depth := lexer.ExpandIndent(s)
		out = append(out, statementTokens{
			Statement: s,
			Depth:     depth,
			Tokens:    lexer.Normalize(lexer.Tokenize(line)),
		})
	}
	return out, nil
}

func statements(source string) (any, error) {
	out := translator.Statements(source)
	if out == nil {
		out = []string{}
	}
	return out, nil
}

type symbolInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Decl string `json:"decl"`
}

type paramInfo struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

type tagInfo struct {
	Signal string `json:"signal"`
	Tag    int    `json:"tag"`
	Side   string `json:"side"`
}

type translation struct {
	Regions    map[string][]string `json:"regions,omitempty"`
	Symbols    []symbolInfo        `json:"symbols,omitempty"`
	Parameters []paramInfo         `json:"parameters,omitempty"`
	Tags       []tagInfo           `json:"position_tags,omitempty"`
	Warnings   []string            `json:"warnings,omitempty"`
	Error      string              `json:"error,omitempty"`
	Line       int                 `json:"line,omitempty"`
}

func translate(source string) (any, error) {
	res, err := translator.Translate(source, nil)
	if err != nil {
		var terr *translator.Error
		if errors.As(err, &terr) {
			return translation{Error: terr.Err.Error(), Line: terr.Line}, nil
		}
		return nil, err
	}

	t := translation{Regions: map[string][]string{}, Warnings: res.Warnings}
	for _, r := range []codegen.Region{codegen.Using, codegen.Constructor, codegen.Initialize, codegen.Execute, codegen.VarDecl} {
		t.Regions[r.String()] = res.Buffers.Lines(r)
	}
	for _, s := range res.Symbols {
		t.Symbols = append(t.Symbols, symbolInfo{Name: s.Name, Type: s.Type.String(), Decl: s.Decl()})
	}
	for _, p := range res.Parameters {
		t.Parameters = append(t.Parameters, paramInfo{Name: p.Name, Kind: p.Kind.String(), Title: p.Title})
	}
	for _, pt := range res.PositionTags {
		t.Tags = append(t.Tags, tagInfo{Signal: pt.Signal, Tag: pt.Tag, Side: pt.Side.String()})
	}
	return t, nil
}

func withStore(dbPath string, cmd func(*history.Store) (any, error)) error {
	store, err := history.Open(&history.Config{DBPath: dbPath})
	if err != nil {
		return err
	}
	defer store.Close()

	v, err := cmd(store)
	if err != nil {
		return err
	}
	return printJSON(v)
}

type recordEntry struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Failed    bool   `json:"failed"`
	Error     string `json:"error,omitempty"`
	Warnings  int    `json:"warnings"`
}

func listRecords(s *history.Store, limit int, failedOnly bool) ([]recordEntry, error) {
	list := s.List
	if failedOnly {
		list = s.Failures
	}
	recs, err := list(limit)
	if err != nil {
		return nil, err
	}
	out := []recordEntry{}
	for _, r := range recs {
		out = append(out, recordEntry{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			Failed:    r.Failed(),
			Error:     r.Error,
			Warnings:  len(r.Warnings),
		})
	}
	return out, nil
}

type functionInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Outputs int    `json:"outputs,omitempty"`
	Using   string `json:"using,omitempty"`
}

func functions() []functionInfo {
	var out []functionInfo
	for _, name := range indicators.Names() {
		m, _ := indicators.Lookup(name)
		out = append(out, functionInfo{Name: "ta." + name, Kind: m.Kind.String(), Outputs: len(m.Outputs), Using: m.Using})
	}
	return out
}

// initConfig writes a default configuration unless dir already has one.
func initConfig(dir string) error {
	path := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	cfg := &config.Config{
		GoPackage: "strategies",
		Pane:      translator.DefaultPane,
	}
	if err := config.Save(dir, cfg); err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func cmdLookup(dbPath, filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}
	return withStore(dbPath, func(s *history.Store) (any, error) {
		return lookup(s, string(content))
	})
}

// lookupResult shows the record id, which Record keeps out of its JSON.
type lookupResult struct {
	ID string `json:"id"`
	*history.Record
}

func lookup(s *history.Store, source string) (lookupResult, error) {
	rec, err := s.FindBySource(source)
	if err != nil {
		return lookupResult{}, err
	}
	return lookupResult{rec.ID, rec}, nil
}
