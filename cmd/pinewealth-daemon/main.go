// pinewealth-daemon - long-running translator for editor integrations
//
// The daemon reads one JSON request per line on stdin and writes one JSON
// response per line on stdout.
//
// Usage: pinewealth-daemon [--compiler-plugin PATH] [--history DB] [--debug]
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/pinewealth/pinewealth/pkg/compilebridge"
	"github.com/pinewealth/pinewealth/pkg/history"
	"github.com/pinewealth/pinewealth/pkg/translator"
)

// Request is one translation job.
type Request struct {
	ID       string `json:"id,omitempty"`
	Source   string `json:"source"`
	Template string `json:"template,omitempty"`
	Pane     string `json:"pane,omitempty"`
	Compile  bool   `json:"compile,omitempty"`
}

// Response answers a Request with the same id.
type Response struct {
	ID          string                    `json:"id"`
	Code        string                    `json:"code,omitempty"`
	Warnings    []string                  `json:"warnings,omitempty"`
	Diagnostics compilebridge.Diagnostics `json:"diagnostics,omitempty"`
	Record      string                    `json:"record,omitempty"`
	Error       string                    `json:"error,omitempty"`
	Line        int                       `json:"line,omitempty"`
}

// Daemon serves translation requests.
type Daemon struct {
	compiler compilebridge.Checker
	store    *history.Store
	log      *log.Logger
}

var (
	pluginPath = flag.String("compiler-plugin", "", "c-shared plugin used for compile requests")
	historyDB  = flag.String("history", "", "record translations in this SQLite database")
	debug      = flag.Bool("debug", false, "Enable debug output to stderr")
)

func main() {
	flag.Parse()

	d := &Daemon{log: log.New(io.Discard, "", 0)}
	if *debug {
		d.log = log.New(os.Stderr, "[pinewealth-daemon] ", 0)
	}

	plugin := *pluginPath
	if plugin == "" {
		plugin = os.Getenv(compilebridge.EnvPlugin)
	}
	if plugin != "" {
		bridge, err := compilebridge.Load(plugin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "pinewealth-daemon: %v\n", err)
			os.Exit(1)
		}
		d.compiler = bridge
		d.log.Printf("compiler plugin %s", bridge.Path())
	}

	if *historyDB != "" {
		store, err := history.Open(&history.Config{DBPath: *historyDB})
		if err != nil {
			fmt.Fprintf(os.Stderr, "pinewealth-daemon: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		d.store = store
		d.log.Printf("history %s", store.Path())
	}

	if err := d.Run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "pinewealth-daemon: scanner error: %v\n", err)
	}
}

// Run processes JSON requests from r until EOF.
func (d *Daemon) Run(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Scripts can be long; allow 1MB lines.
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, len(buf))
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(Response{Error: "invalid JSON: " + err.Error()})
			continue
		}
		if req.ID == "" {
			req.ID = uuid.New().String()
		}
		d.log.Printf("request %s (%d bytes, compile=%v)", req.ID, len(req.Source), req.Compile)

		if err := enc.Encode(d.HandleRequest(req)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// HandleRequest translates one request.
func (d *Daemon) HandleRequest(req Request) Response {
	resp := Response{ID: req.ID}

	res, err := translator.Translate(req.Source, &translator.Options{
		Template: req.Template,
		Pane:     req.Pane,
		Logger:   d.log,
	})
	if d.store != nil {
		resp.Record = d.record(req.Source, res, err)
	}
	if err != nil {
		resp.Error = err.Error()
		var terr *translator.Error
		if errors.As(err, &terr) {
			resp.Line = terr.Line
		}
		return resp
	}
	resp.Code = res.Code
	resp.Warnings = res.Warnings

	if !req.Compile {
		return resp
	}
	if d.compiler == nil {
		resp.Error = "compile requested but no compiler plugin is loaded"
		return resp
	}
	diags, err := d.compiler.Check(res.Code)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Diagnostics = diags
	if err := diags.Err(); err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func (d *Daemon) record(source string, res *translator.Result, terr error) string {
	var code string
	var warnings []string
	if res != nil {
		code, warnings = res.Code, res.Warnings
	}
	rec, err := d.store.Save(source, code, warnings, terr)
	if err != nil {
		d.log.Printf("recording translation: %v", err)
		return ""
	}
	return rec.ID
}
