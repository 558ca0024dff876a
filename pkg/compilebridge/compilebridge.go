// Package compilebridge checks generated C# by handing it to a native
// compiler plugin.
//
// The plugin is a c-shared library exporting
//
//	char* CompileStrategy(char* code)
//
// which returns a JSON array of diagnostics, [] when the code compiles.
package compilebridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unsafe"

	"github.com/hashicorp/go-multierror"
	"github.com/jamesits/goinvoke"
)

// EnvPlugin names the plugin to load when none is configured.
const EnvPlugin = "PINEWEALTH_COMPILER_PLUGIN"

// ErrMissingExport indicates a plugin without CompileStrategy.
var ErrMissingExport = errors.New("plugin does not export CompileStrategy")

// Diagnostic is one compiler message.
type Diagnostic struct {
	Line     int    `json:"line"`
	Column   int    `json:"column,omitempty"`
	Severity string `json:"severity,omitempty"` // "error" when empty
	Message  string `json:"message"`
}

func (d Diagnostic) Error() string {
	if d.Column > 0 {
		return fmt.Sprintf("line %d:%d: %s", d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("line %d: %s", d.Line, d.Message)
}

// IsWarning reports whether the diagnostic leaves the code compilable.
func (d Diagnostic) IsWarning() bool {
	return strings.EqualFold(d.Severity, "warning")
}

// Diagnostics is the result of one compile.
type Diagnostics []Diagnostic

// Err combines every non-warning diagnostic, or returns nil.
func (ds Diagnostics) Err() error {
	var result *multierror.Error
	for _, d := range ds {
		if !d.IsWarning() {
			result = multierror.Append(result, d)
		}
	}
	return result.ErrorOrNil()
}

// ParseDiagnostics decodes the plugin's reply.
func ParseDiagnostics(reply string) (Diagnostics, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, nil
	}
	var ds Diagnostics
	if err := json.Unmarshal([]byte(reply), &ds); err != nil {
		return nil, fmt.Errorf("decoding diagnostics: %w", err)
	}
	return ds, nil
}

// Checker compiles generated code.
type Checker interface {
	Check(code string) (Diagnostics, error)
}

// pluginFuncs holds the exported functions of the plugin.
type pluginFuncs struct {
	CompileStrategy *goinvoke.Proc `func:"CompileStrategy"`
}

// Bridge is a loaded compiler plugin. Calls are serialized.
type Bridge struct {
	funcs *pluginFuncs
	path  string
	mu    sync.Mutex
}

// Load loads the plugin at path. An empty path falls back to EnvPlugin.
func Load(path string) (*Bridge, error) {
	if path == "" {
		path = os.Getenv(EnvPlugin)
	}
	if path == "" {
		return nil, errors.New("no compiler plugin configured")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("plugin not found: %w", err)
	}

	funcs := &pluginFuncs{}
	if err := goinvoke.Unmarshal(path, funcs); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	if funcs.CompileStrategy == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrMissingExport)
	}
	return &Bridge{funcs: funcs, path: path}, nil
}

// Path returns the plugin file.
func (b *Bridge) Path() string {
	return b.path
}

// Check compiles code and returns its diagnostics.
func (b *Bridge) Check(code string) (Diagnostics, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	in := cstring(code)
	ret, _, _ := b.funcs.CompileStrategy.Call(uintptr(in))
	return ParseDiagnostics(gostring(unsafe.Pointer(ret)))
}

// cstring converts a Go string to a null-terminated byte buffer.
func cstring(s string) unsafe.Pointer {
	buf := append([]byte(s), 0)
	return unsafe.Pointer(&buf[0])
}

// maxReply bounds the scan for the terminator of a plugin reply.
const maxReply = 1 << 20

// gostring converts a C string pointer to a Go string.
func gostring(p unsafe.Pointer) string {
	if p == nil {
		return ""
	}
	n := 0
	for n < maxReply && *(*byte)(unsafe.Add(p, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(p), n))
}
