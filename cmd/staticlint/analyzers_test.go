package main

import (
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"
)

func TestOSExitAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), OSExitAnalyzer, "osexit", "library")
}

func TestNoSleepAnalyzer(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), NoSleepAnalyzer, "nosleep")
}

func TestAnalyzersAreUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, a := range analyzers() {
		if seen[a.Name] {
			t.Fatalf("analyzer %s registered twice", a.Name)
		}
		seen[a.Name] = true
	}
	for _, name := range []string{"osexitlint", "nosleep", "printf"} {
		if !seen[name] {
			t.Errorf("analyzer %s missing", name)
		}
	}
}
