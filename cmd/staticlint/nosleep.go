package main

import (
	"go/ast"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// NoSleepAnalyzer reports time.Sleep outside _test.go files. Code that has
// to wait takes a context and a timer, or an injected sleeper.
var NoSleepAnalyzer = &analysis.Analyzer{
	Name:     "nosleep",
	Doc:      "reports time.Sleep in non-test code",
	Run:      runNoSleep,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
}

func runNoSleep(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		if strings.HasSuffix(pass.Fset.File(call.Pos()).Name(), "_test.go") {
			return
		}
		if isPkgFunc(pass, call, "time", "Sleep") {
			pass.Reportf(call.Pos(), "time.Sleep is forbidden outside tests, wait on a timer with a context instead")
		}
	})

	return nil, nil
}
