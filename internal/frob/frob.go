// Package frob implements spec.md §4.3/§6's "external user integrations":
// subprocess tool definitions discovered from a filesystem directory
// containing registry.json, spec.json, and an executable main. Grounded on
// internal/mcp/transport_stdio.go's subprocess handling (os/exec, piping,
// logging), simplified to a one-shot spawn-capture-exit invocation rather
// than a persistent stdio protocol, since a frob is a single synchronous
// call, not a long-lived connection.
package frob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// RegistryEntry is registry.json: which project(s) a frob is available to.
type RegistryEntry struct {
	Name     string   `json:"name"`
	Global   bool     `json:"global"`
	Projects []string `json:"projects,omitempty"`
}

// availableFor reports whether this frob is registered for the given
// project, per spec.md §4.3's "registration is filtered by project (or
// marked global)".
func (r RegistryEntry) availableFor(project string) bool {
	if r.Global {
		return true
	}
	for _, p := range r.Projects {
		if p == project {
			return true
		}
	}
	return false
}

// Spec is spec.json: the declarative schema a frob exposes, the same shape
// as a built-in tool's ToolSchema.
type Spec struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Category    string                    `json:"category,omitempty"`
	Required    []string                  `json:"required,omitempty"`
	Properties  map[string]tools.Property `json:"properties,omitempty"`
}

// Definition is one discovered frob: its directory, registration, and
// declared schema.
type Definition struct {
	Dir      string
	Registry RegistryEntry
	Spec     Spec
}

// mainExecutable is the filename a frob directory must contain alongside
// registry.json and spec.json.
const mainExecutable = "main"

// Discover walks root for immediate subdirectories that carry all three
// required files and parses their registry.json/spec.json. A subdirectory
// missing any of the three, or with malformed JSON, is skipped rather than
// failing the whole scan -- one broken frob should not hide the rest.
func Discover(root string) ([]Definition, error) {
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read frobs dir %s: %w", root, err)
	}

	var defs []Definition
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())
		def, ok, err := loadDefinition(dir)
		if err != nil {
			logging.Tools("frob %s: skipping, %v", dir, err)
			continue
		}
		if !ok {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func loadDefinition(dir string) (Definition, bool, error) {
	mainPath := filepath.Join(dir, mainExecutable)
	info, err := os.Stat(mainPath)
	if err != nil || info.IsDir() {
		return Definition{}, false, nil
	}
	if info.Mode()&0111 == 0 {
		return Definition{}, false, fmt.Errorf("main is not executable")
	}

	var reg RegistryEntry
	if err := readJSONFile(filepath.Join(dir, "registry.json"), &reg); err != nil {
		return Definition{}, false, fmt.Errorf("registry.json: %w", err)
	}
	var spec Spec
	if err := readJSONFile(filepath.Join(dir, "spec.json"), &spec); err != nil {
		return Definition{}, false, fmt.Errorf("spec.json: %w", err)
	}
	if reg.Name == "" {
		reg.Name = spec.Name
	}
	return Definition{Dir: dir, Registry: reg, Spec: spec}, true, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Config is the settings subset serialised into the CONFIG env var handed
// to a frob's main, per spec.md §6 ("CONFIG (settings subset as JSON)").
type Config map[string]any

// ToTool turns a discovered Definition into a registry.Tool, filtered to
// the given project per availableFor. Returns false if the frob is not
// registered for this project.
func ToTool(def Definition, project string, config Config) (*tools.Tool, bool) {
	if !def.Registry.availableFor(project) {
		return nil, false
	}

	category := tools.CategoryFrob
	if def.Spec.Category != "" {
		category = tools.ToolCategory(def.Spec.Category)
	}

	t := &tools.Tool{
		Name:        def.Spec.Name,
		Description: def.Spec.Description,
		Category:    category,
		Execute:     executeFrob(def, project, config),
		Schema: tools.ToolSchema{
			Required:   def.Spec.Required,
			Properties: def.Spec.Properties,
		},
	}
	return t, true
}

// executeFrob spawns def's main with PROJECT/CONFIG/ARGS_JSON set, per
// spec.md §4.3/§6: "spawn the executable with env vars PROJECT, CONFIG
// (serialised), ARGS_JSON (model-provided arguments serialised). Collect
// exit status and captured output... Stdout is the result; non-zero exit
// is an error."
func executeFrob(def Definition, project string, config Config) tools.ExecuteFunc {
	return func(ctx context.Context, args map[string]any) (string, error) {
		configJSON, err := json.Marshal(config)
		if err != nil {
			return "", fmt.Errorf("marshal config: %w", err)
		}
		argsJSON, err := json.Marshal(args)
		if err != nil {
			return "", fmt.Errorf("marshal args: %w", err)
		}

		cmd := exec.CommandContext(ctx, filepath.Join(def.Dir, mainExecutable))
		cmd.Dir = def.Dir
		cmd.Env = append(os.Environ(),
			"PROJECT="+project,
			"CONFIG="+string(configJSON),
			"ARGS_JSON="+string(argsJSON),
		)

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		logging.ToolsDebug("frob %s: project=%s args=%s", def.Spec.Name, project, argsJSON)

		if err := cmd.Run(); err != nil {
			logging.Tools("frob %s failed: %v", def.Spec.Name, err)
			return "", fmt.Errorf("frob %s failed: %w\nstderr:\n%s", def.Spec.Name, err, stderr.String())
		}
		return stdout.String(), nil
	}
}

// RegisterAll discovers frobs under root and registers every one available
// to project into registry.
func RegisterAll(registry *tools.Registry, root, project string, config Config) error {
	defs, err := Discover(root)
	if err != nil {
		return err
	}
	for _, def := range defs {
		t, ok := ToTool(def, project, config)
		if !ok {
			continue
		}
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("register frob %s: %w", def.Spec.Name, err)
		}
	}
	return nil
}
