// Package ssaload turns Go source into the ir graph model through go/ssa.
package ssaload

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// LoadConfig selects the packages to load.
type LoadConfig struct {
	Dir      string
	Patterns []string
	Tests    bool
}

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// Load type-checks the packages matching cfg.Patterns, builds their SSA form
// and returns the functions defined in them, sorted by name.
func Load(ctx context.Context, cfg LoadConfig) ([]*ssa.Function, error) {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	pcfg := &packages.Config{
		Context: ctx,
		Dir:     cfg.Dir,
		Mode:    loadMode,
		Tests:   cfg.Tests,
		Fset:    token.NewFileSet(),
	}
	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", strings.Join(patterns, " "), err)
	}
	if err := packageErrors(pkgs); err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("load %s: no packages matched", strings.Join(patterns, " "))
	}

	prog, ssaPkgs := ssautil.Packages(pkgs, ssa.InstantiateGenerics)
	prog.Build()
	return Functions(prog, ssaPkgs), nil
}

func packageErrors(pkgs []*packages.Package) error {
	var errs []error
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			errs = append(errs, e)
		}
	})
	return errors.Join(errs...)
}

// ParseSource builds a single-file package from src. Imports resolve through
// the compiler's export data.
func ParseSource(filename string, src []byte) ([]*ssa.Function, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	pkg := types.NewPackage(file.Name.Name, file.Name.Name)
	tc := &types.Config{Importer: importer.Default()}
	ssaPkg, _, err := ssautil.BuildPackage(tc, fset, pkg, []*ast.File{file}, ssa.InstantiateGenerics)
	if err != nil {
		return nil, err
	}
	return Functions(ssaPkg.Prog, []*ssa.Package{ssaPkg}), nil
}

// Functions returns the source functions of pkgs, including closures and
// methods, sorted by RelString. Synthetic wrappers and bodiless functions are
// skipped.
func Functions(prog *ssa.Program, pkgs []*ssa.Package) []*ssa.Function {
	want := make(map[*ssa.Package]bool, len(pkgs))
	for _, p := range pkgs {
		if p != nil {
			want[p] = true
		}
	}
	var out []*ssa.Function
	for fn := range ssautil.AllFunctions(prog) {
		if fn.Synthetic != "" || len(fn.Blocks) == 0 || !want[fn.Pkg] {
			continue
		}
		out = append(out, fn)
	}
	slices.SortFunc(out, func(a, b *ssa.Function) int {
		return strings.Compare(a.RelString(nil), b.RelString(nil))
	})
	return out
}
