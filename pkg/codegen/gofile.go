// This file renders a Go source file that carries a translated strategy.
package codegen

import (
	"bytes"
	"fmt"
	"go/token"

	"github.com/dave/jennifer/jen"
)

// GoFile describes a translated strategy to embed in Go source.
type GoFile struct {
	Package    string
	Name       string // exported identifier prefix, e.g. "MACross"
	Origin     string // source file name for the header comment
	Code       string // generated C#
	Parameters []GoParam
	Signals    []GoSignal
}

// GoParam describes one strategy parameter.
type GoParam struct {
	Name  string
	Kind  string
	Title string
}

// GoSignal describes one named trade signal and its position tag.
type GoSignal struct {
	Name string
	Tag  int
	Side string
}

// GoSource renders gf as a gofmt-formatted Go file.
func GoSource(gf GoFile) (string, error) {
	if !token.IsIdentifier(gf.Package) {
		return "", fmt.Errorf("invalid package name %q", gf.Package)
	}
	if !token.IsIdentifier(gf.Name) || !token.IsExported(gf.Name) {
		return "", fmt.Errorf("invalid exported name %q", gf.Name)
	}

	f := jen.NewFile(gf.Package)
	f.HeaderComment("Code generated by pinewealth. DO NOT EDIT.")
	if gf.Origin != "" {
		f.HeaderComment("Source: " + gf.Origin)
	}

	paramType := gf.Name + "Parameter"
	signalType := gf.Name + "Signal"

	f.Comment(gf.Name + "Source is the WealthLab C# strategy.")
	f.Const().Id(gf.Name + "Source").Op("=").Lit(gf.Code)
	f.Line()

	f.Comment(paramType + " describes a strategy parameter.")
	f.Type().Id(paramType).Struct(
		jen.Id("Name").String(),
		jen.Id("Kind").String(),
		jen.Id("Title").String(),
	)
	f.Line()

	f.Comment(signalType + " describes a named trade signal.")
	f.Type().Id(signalType).Struct(
		jen.Id("Name").String(),
		jen.Id("Tag").Int(),
		jen.Id("Side").String(),
	)
	f.Line()

	f.Var().Id(gf.Name + "Parameters").Op("=").Index().Id(paramType).ValuesFunc(func(g *jen.Group) {
		for _, p := range gf.Parameters {
			g.Values(jen.Dict{
				jen.Id("Name"):  jen.Lit(p.Name),
				jen.Id("Kind"):  jen.Lit(p.Kind),
				jen.Id("Title"): jen.Lit(p.Title),
			})
		}
	})
	f.Line()

	f.Var().Id(gf.Name + "Signals").Op("=").Index().Id(signalType).ValuesFunc(func(g *jen.Group) {
		for _, s := range gf.Signals {
			g.Values(jen.Dict{
				jen.Id("Name"): jen.Lit(s.Name),
				jen.Id("Tag"):  jen.Lit(s.Tag),
				jen.Id("Side"): jen.Lit(s.Side),
			})
		}
	})

	buf := &bytes.Buffer{}
	if err := f.Render(buf); err != nil {
		return "", fmt.Errorf("rendering go source: %w", err)
	}
	return buf.String(), nil
}
