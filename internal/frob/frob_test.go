package frob

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"fnord/internal/tools"
)

func writeFrob(t *testing.T, root, name string, reg RegistryEntry, spec Spec, script string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	regData, _ := json.Marshal(reg)
	if err := os.WriteFile(filepath.Join(dir, "registry.json"), regData, 0644); err != nil {
		t.Fatal(err)
	}
	specData, _ := json.Marshal(spec)
	if err := os.WriteFile(filepath.Join(dir, "spec.json"), specData, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "main"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
}

const echoEnvScript = `#!/bin/sh
echo "project=$PROJECT config=$CONFIG args=$ARGS_JSON"
`

const failScript = `#!/bin/sh
echo "boom" 1>&2
exit 3
`

func TestDiscoverFindsRegisteredFrob(t *testing.T) {
	root := t.TempDir()
	writeFrob(t, root, "echoer", RegistryEntry{Name: "echoer", Global: true},
		Spec{Name: "echoer", Description: "echoes env", Required: []string{"text"}}, echoEnvScript)

	defs, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("expected 1 frob, got %d", len(defs))
	}
	if defs[0].Spec.Name != "echoer" {
		t.Fatalf("unexpected spec: %+v", defs[0].Spec)
	}
}

func TestDiscoverSkipsMissingMain(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "broken")
	os.MkdirAll(dir, 0755)
	os.WriteFile(filepath.Join(dir, "registry.json"), []byte(`{"global":true}`), 0644)
	os.WriteFile(filepath.Join(dir, "spec.json"), []byte(`{"name":"broken"}`), 0644)

	defs, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(defs) != 0 {
		t.Fatalf("expected broken frob to be skipped, got %d", len(defs))
	}
}

func TestToToolFiltersByProject(t *testing.T) {
	root := t.TempDir()
	writeFrob(t, root, "scoped", RegistryEntry{Name: "scoped", Projects: []string{"alpha"}},
		Spec{Name: "scoped", Description: "scoped to alpha"}, echoEnvScript)

	defs, err := Discover(root)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if _, ok := ToTool(defs[0], "beta", nil); ok {
		t.Fatalf("expected frob scoped to alpha to be unavailable for beta")
	}
	tool, ok := ToTool(defs[0], "alpha", nil)
	if !ok {
		t.Fatalf("expected frob to be available for alpha")
	}
	if tool.Name != "scoped" {
		t.Fatalf("unexpected tool name %q", tool.Name)
	}
}

func TestExecuteFrobPassesEnvAndCapturesStdout(t *testing.T) {
	root := t.TempDir()
	writeFrob(t, root, "echoer", RegistryEntry{Global: true}, Spec{Name: "echoer"}, echoEnvScript)

	defs, _ := Discover(root)
	tool, ok := ToTool(defs[0], "myproj", Config{"key": "val"})
	if !ok {
		t.Fatalf("expected tool to be available")
	}

	out, err := tool.Execute(context.Background(), map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out == "" {
		t.Fatalf("expected non-empty output")
	}
	if !strings.Contains(out, "project=myproj") || !strings.Contains(out, `"key":"val"`) || !strings.Contains(out, `"text":"hi"`) {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestExecuteFrobNonZeroExitFails(t *testing.T) {
	root := t.TempDir()
	writeFrob(t, root, "failer", RegistryEntry{Global: true}, Spec{Name: "failer"}, failScript)

	defs, _ := Discover(root)
	tool, ok := ToTool(defs[0], "p", nil)
	if !ok {
		t.Fatalf("expected tool to be available")
	}
	if _, err := tool.Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatalf("expected error for non-zero exit")
	}
}

func TestRegisterAllRegistersAvailableFrobs(t *testing.T) {
	root := t.TempDir()
	writeFrob(t, root, "echoer", RegistryEntry{Global: true}, Spec{Name: "echoer"}, echoEnvScript)

	registry := tools.NewRegistry()
	if err := RegisterAll(registry, root, "p", nil); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	if registry.Get("echoer") == nil {
		t.Fatalf("expected echoer to be registered")
	}
}
