// Package codegen accumulates generated C# text and substitutes it into a
// WealthLab strategy template.
//
// Translation fills five ordered regions. Each region replaces one marker in
// the template:
//
//	<#Using>        extra using clauses
//	<#Constructor>  parameter declarations
//	<#Initialize>   one-time series construction and plotting
//	<#Execute>      per-bar statements
//	<#VarDecl>      field declarations
package codegen

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

// DefaultTemplate is used when the caller supplies no template.
//
//go:embed strategy.cs.tmpl
var DefaultTemplate string

// ErrMissingMarker indicates a template without one of the region markers.
var ErrMissingMarker = errors.New("template is missing marker")

// Region identifies one of the five code buffers.
type Region int

const (
	Using Region = iota
	Constructor
	Initialize
	Execute
	VarDecl
	numRegions
)

var markers = [numRegions]string{
	Using:       "<#Using>",
	Constructor: "<#Constructor>",
	Initialize:  "<#Initialize>",
	Execute:     "<#Execute>",
	VarDecl:     "<#VarDecl>",
}

// Marker returns the template marker the region replaces.
func (r Region) Marker() string {
	if r < 0 || r >= numRegions {
		return ""
	}
	return markers[r]
}

func (r Region) String() string {
	switch r {
	case Using:
		return "using"
	case Constructor:
		return "constructor"
	case Initialize:
		return "initialize"
	case Execute:
		return "execute"
	case VarDecl:
		return "vardecl"
	default:
		return "unknown"
	}
}

const (
	declIndent  = "      "
	bodyIndent  = "         "
	blockIndent = "   "
)

// Buffers holds the generated lines for one translation. The zero value is
// ready to use.
type Buffers struct {
	lines    [numRegions][]string
	comments []string
}

// Comment queues a full-line comment; it is written in front of the next
// Initialize or Execute line.
func (b *Buffers) Comment(text string) {
	b.comments = append(b.comments, strings.TrimSpace(text))
}

// pendingComments returns the number of queued comments.
func (b *Buffers) pendingComments() int {
	return len(b.comments)
}

// AddUsing adds a using clause for namespace once.
func (b *Buffers) AddUsing(namespace string) {
	line := "using " + namespace + ";"
	for _, l := range b.lines[Using] {
		if l == line {
			return
		}
	}
	b.lines[Using] = append(b.lines[Using], line)
}

// AddConstructor appends a constructor statement.
func (b *Buffers) AddConstructor(line string) {
	b.lines[Constructor] = append(b.lines[Constructor], bodyIndent+strings.TrimSpace(line))
}

// AddInitialize appends a one-time statement. Per-bar index accessors are
// dropped because Initialize has no current bar.
func (b *Buffers) AddInitialize(line string) {
	b.flushComments(Initialize, bodyIndent)
	b.Hoist(line)
}

// Hoist appends a one-time statement that was lifted out of a later
// statement. Queued comments stay with that statement.
func (b *Buffers) Hoist(line string) {
	line = strings.ReplaceAll(line, "[idx]", "")
	b.lines[Initialize] = append(b.lines[Initialize], bodyIndent+strings.TrimSpace(line))
}

// AddExecute appends a per-bar statement nested depth blocks deep.
func (b *Buffers) AddExecute(line string, depth int) {
	indent := bodyIndent + strings.Repeat(blockIndent, depth)
	b.flushComments(Execute, indent)
	b.lines[Execute] = append(b.lines[Execute], indent+strings.TrimSpace(line))
}

// CloseBlock appends a closing brace depth blocks deep. Queued comments stay
// queued for the statement that follows the block.
func (b *Buffers) CloseBlock(depth int) {
	b.lines[Execute] = append(b.lines[Execute], bodyIndent+strings.Repeat(blockIndent, depth)+"}")
}

// DropComments discards queued comments that no statement followed.
func (b *Buffers) DropComments() {
	b.comments = nil
}

// AddVarDecl appends a field declaration once.
func (b *Buffers) AddVarDecl(line string) {
	line = declIndent + strings.TrimSpace(line)
	for _, l := range b.lines[VarDecl] {
		if l == line {
			return
		}
	}
	b.lines[VarDecl] = append(b.lines[VarDecl], line)
}

func (b *Buffers) flushComments(r Region, indent string) {
	for _, c := range b.comments {
		b.lines[r] = append(b.lines[r], indent+c)
	}
	b.comments = nil
}

// Lines returns the lines of a region.
func (b *Buffers) Lines(r Region) []string {
	if r < 0 || r >= numRegions {
		return nil
	}
	return b.lines[r]
}

// Text returns a region joined with newlines.
func (b *Buffers) Text(r Region) string {
	return strings.Join(b.Lines(r), "\n")
}

var cleanups = strings.NewReplacer(
	"WLColor . ", "WLColor.",
	"else ( if", "else if (",
	" .Make", ".Make",
)

// Render substitutes every region into template. An empty template selects
// DefaultTemplate.
func Render(template string, b *Buffers) (string, error) {
	if template == "" {
		template = DefaultTemplate
	}
	for r := Region(0); r < numRegions; r++ {
		if !strings.Contains(template, markers[r]) {
			return "", fmt.Errorf("%w %s", ErrMissingMarker, markers[r])
		}
	}
	for r := Region(0); r < numRegions; r++ {
		template = strings.Replace(template, markers[r], b.Text(r), 1)
	}
	return cleanups.Replace(template), nil
}
