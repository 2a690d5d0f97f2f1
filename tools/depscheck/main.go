package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
)

const modulePath = "npc-director/server/"

type packageInfo struct {
	ImportPath string
	Imports    []string
}

// layerRule forbids packages under From from importing anything under To.
type layerRule struct {
	From string
	To   string
}

// The agent core talks to its host only through interfaces, and nothing off
// the simulation goroutine may reach into the world.
var rules = []layerRule{
	{From: "internal/ai", To: "internal/world"},
	{From: "internal/ai", To: "internal/sim"},
	{From: "internal/ai", To: "internal/weapon"},
	{From: "internal/ai", To: "internal/net"},
	{From: "internal/net", To: "internal/world"},
	{From: "internal/net", To: "internal/weapon"},
	{From: "internal/replica", To: "internal/world"},
	{From: "internal/sim", To: "internal/world"},
	{From: "logging", To: "internal/"},
}

func main() {
	cmd := exec.Command("go", "list", "-json", "./...")
	cmd.Env = os.Environ()
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Stderr.Write(exitErr.Stderr)
		}
		fmt.Fprintf(os.Stderr, "depscheck: failed to list packages: %v\n", err)
		os.Exit(1)
	}

	decoder := json.NewDecoder(bytes.NewReader(output))

	var violations []string
	for {
		var pkg packageInfo
		if err := decoder.Decode(&pkg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "depscheck: failed to decode package info: %v\n", err)
			os.Exit(1)
		}
		violations = append(violations, check(pkg)...)
	}

	if len(violations) > 0 {
		sort.Strings(violations)
		fmt.Fprintln(os.Stderr, "depscheck: found forbidden imports:")
		for _, violation := range violations {
			fmt.Fprintf(os.Stderr, "  %s\n", violation)
		}
		os.Exit(1)
	}
}

func check(pkg packageInfo) []string {
	var violations []string
	for _, rule := range rules {
		if !within(pkg.ImportPath, rule.From) {
			continue
		}
		for _, imp := range pkg.Imports {
			if within(imp, rule.To) {
				violations = append(violations, fmt.Sprintf("%s -> %s", pkg.ImportPath, imp))
			}
		}
	}
	return violations
}

func within(importPath, prefix string) bool {
	rel, ok := strings.CutPrefix(importPath, modulePath)
	if !ok {
		return false
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return rel == prefix || strings.HasPrefix(rel, prefix+"/")
}
