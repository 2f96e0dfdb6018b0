// Package scriptlet implements SPEC_FULL.md's domain-stack addition: a
// fourth, lightweight tool kind whose call is a short Go snippet evaluated
// in-process with github.com/traefik/yaegi rather than spawned as an
// internal/frob subprocess. Grounded on the teacher's
// internal/autopoiesis/yaegi_executor.go (YaegiExecutor), which interprets
// a func RunTool(input string) (string, error) body under a stdlib-only
// import whitelist to avoid the cost and fragility of `go build`ing
// user-submitted tool code; this package keeps that whitelist-and-wrap
// shape and generalizes the single-function entry point to this repo's
// tools.Tool Execute signature.
package scriptlet

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// allowedPackages is the stdlib whitelist a scriptlet's code may import,
// carried over from the teacher's YaegiExecutor: text/data manipulation
// packages; os, os/exec and net are not on it, though path/filepath is and
// its Walk and Glob can still read directory listings.
var allowedPackages = map[string]bool{
	"strings":         true,
	"strconv":         true,
	"fmt":             true,
	"math":            true,
	"regexp":          true,
	"encoding/json":   true,
	"encoding/base64": true,
	"time":            true,
	"sort":            true,
	"bytes":           true,
	"path":            true,
	"path/filepath":   true,
}

// Definition is a user-authored scriptlet: its declared tool schema plus
// the Go source defining a func Call(input string) (string, error).
type Definition struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Category    string                    `json:"category,omitempty"`
	Code        string                    `json:"code"`
	Required    []string                  `json:"required,omitempty"`
	Properties  map[string]tools.Property `json:"properties,omitempty"`
}

// ToTool compiles a Definition into a *tools.Tool. The scriptlet's Execute
// receives the call's args JSON-encoded as a single string, the same shape
// as the teacher's RunTool(input string), so scriptlet authors write plain
// functions without needing to know this repo's args map type.
func ToTool(def Definition) (*tools.Tool, error) {
	if err := validateImports(def.Code); err != nil {
		return nil, err
	}

	category := tools.CategoryScriptlet
	if def.Category != "" {
		category = tools.ToolCategory(def.Category)
	}

	return &tools.Tool{
		Name:        def.Name,
		Description: def.Description,
		Category:    category,
		AsyncSafe:   true,
		Execute:     executeScriptlet(def),
		Schema: tools.ToolSchema{
			Required:   def.Required,
			Properties: def.Properties,
		},
	}, nil
}

func executeScriptlet(def Definition) tools.ExecuteFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		input, err := argsToJSON(args)
		if err != nil {
			return "", fmt.Errorf("marshal args: %w", err)
		}

		i := interp.New(interp.Options{})
		if err := i.Use(stdlib.Symbols); err != nil {
			return "", fmt.Errorf("load stdlib: %w", err)
		}

		if _, err := i.Eval(wrapCode(def.Code)); err != nil {
			return "", fmt.Errorf("scriptlet %s: code evaluation failed: %w", def.Name, err)
		}

		callFn, err := i.Eval("main.Call")
		if err != nil {
			return "", fmt.Errorf("scriptlet %s: Call function not found: %w", def.Name, err)
		}
		call, ok := callFn.Interface().(func(string) (string, error))
		if !ok {
			return "", fmt.Errorf("scriptlet %s: Call has incorrect signature (expected func(string) (string, error))", def.Name)
		}

		logging.ToolsDebug("scriptlet %s: input=%s", def.Name, input)

		type result struct {
			out string
			err error
		}
		done := make(chan result, 1)
		go func() {
			out, err := call(input)
			done <- result{out, err}
		}()

		select {
		case r := <-done:
			if r.err != nil {
				return "", fmt.Errorf("scriptlet %s: %w", def.Name, r.err)
			}
			return r.out, nil
		case <-ctx.Done():
			return "", fmt.Errorf("scriptlet %s: %w", def.Name, ctx.Err())
		}
	}
}

// validateImports rejects any import outside allowedPackages, the same
// line-scan the teacher's YaegiExecutor uses rather than a full parse,
// since scriptlet code is a small, user-authored snippet, not arbitrary
// untrusted Go from the network.
func validateImports(code string) error {
	var imports []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			imports = append(imports, strings.Trim(trimmed, `"`))
		case strings.HasPrefix(trimmed, "import "):
			pkg := strings.TrimPrefix(trimmed, "import ")
			imports = append(imports, strings.Trim(pkg, `"`))
		}
	}

	var forbidden []string
	for _, pkg := range imports {
		if pkg == "" {
			continue
		}
		if !allowedPackages[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports in scriptlet: %v (stdlib-only whitelist)", forbidden)
	}
	return nil
}

func argsToJSON(args map[string]any) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func wrapCode(code string) string {
	if strings.Contains(code, "package main") {
		return code
	}
	return "package main\n\n" + code
}
