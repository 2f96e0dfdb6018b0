package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStoreAt(t *testing.T, dir string) *Store {
	t.Helper()
	s := NewStore(filepath.Join(dir, "settings.json"))
	s.lockTimeout = 2 * time.Second
	s.staleAfter = 200 * time.Millisecond
	return s
}

func TestSettingsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := newTestStoreAt(t, dir)

	err := s.Mutate(func(doc *Document) error {
		doc.Approvals["shell"] = append(doc.Approvals["shell"], "git log")
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	doc, err := s.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(doc.Approvals["shell"]) != 1 || doc.Approvals["shell"][0] != "git log" {
		t.Fatalf("unexpected approvals: %+v", doc.Approvals)
	}
}

func TestSettingsApprovalsNeverShrinkToEmpty(t *testing.T) {
	dir := t.TempDir()
	s := newTestStoreAt(t, dir)

	if err := s.ApprovalsApprove("", "shell", "git log"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	// The baseline is captured on a store's first load, and s captured an
	// empty one before the approval existed. A fresh store (as in a new
	// process) captures a baseline that holds "git log".
	s = newTestStoreAt(t, dir)
	if _, err := s.Read(); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	// A racing writer wipes the shell list entirely without explicit intent.
	err := s.Mutate(func(doc *Document) error {
		doc.Approvals["shell"] = nil
		return nil
	})
	if err != nil {
		t.Fatalf("mutate failed: %v", err)
	}

	doc, _ := s.Read()
	if len(doc.Approvals["shell"]) == 0 {
		t.Fatalf("expected healed approvals to retain baseline entries, got %+v", doc.Approvals)
	}
}

func TestSettingsApprovalSetSemantics(t *testing.T) {
	dir := t.TempDir()
	s := newTestStoreAt(t, dir)

	if err := s.ApprovalsApprove("", "shell", "git log"); err != nil {
		t.Fatal(err)
	}
	if err := s.ApprovalsApprove("", "shell", "git log"); err != nil {
		t.Fatal(err)
	}

	list, err := s.ApprovalsGet("", "shell")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected approve(approve(s)) = approve(s), got %v", list)
	}
}

func TestSettingsProjectPersistentApproval(t *testing.T) {
	// Mirrors spec.md §8 S3: project-scoped approval of "docker image".
	dir := t.TempDir()
	s := newTestStoreAt(t, dir)

	if err := s.ApprovalsApprove("myproj", "shell", "docker image"); err != nil {
		t.Fatal(err)
	}

	proj, err := s.GetProject("myproj")
	if err != nil {
		t.Fatal(err)
	}
	if len(proj.Approvals["shell"]) != 1 || proj.Approvals["shell"][0] != "docker image" {
		t.Fatalf("expected exactly [\"docker image\"], got %+v", proj.Approvals["shell"])
	}
}

func TestSettingsMigrationIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	legacy := map[string]any{
		"myproj": map[string]any{
			"root": "/home/user/myproj",
		},
	}
	data, _ := json.Marshal(legacy)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	s := newTestStoreAt(t, dir)
	doc, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Version != CurrentVersion {
		t.Fatalf("expected version stamped to %d, got %d", CurrentVersion, doc.Version)
	}
	proj, ok := doc.Projects["myproj"]
	if !ok || proj.Root != "/home/user/myproj" {
		t.Fatalf("expected myproj migrated under projects, got %+v", doc.Projects)
	}

	// Re-reading an already-migrated document should be a no-op.
	doc2, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if len(doc2.Projects) != len(doc.Projects) {
		t.Fatalf("migration not idempotent: %+v vs %+v", doc.Projects, doc2.Projects)
	}
}

func TestSettingsEmptyDocumentHasNoProjectsKey(t *testing.T) {
	dir := t.TempDir()
	s := newTestStoreAt(t, dir)

	doc, err := s.Read()
	if err != nil {
		t.Fatal(err)
	}
	if doc.Version != CurrentVersion {
		t.Fatalf("expected fresh document stamped with version %d", CurrentVersion)
	}
	if len(doc.Projects) != 0 {
		t.Fatalf("expected no projects in a fresh document")
	}
}

func TestSettingsStaleLockIsReclaimed(t *testing.T) {
	dir := t.TempDir()
	s := newTestStoreAt(t, dir)

	if err := os.Mkdir(s.lockDir(), 0755); err != nil {
		t.Fatal(err)
	}
	owner := lockOwner{PID: 999999, Timestamp: time.Now().Add(-time.Hour)}
	data, _ := json.Marshal(owner)
	if err := os.WriteFile(s.ownerPath(), data, 0644); err != nil {
		t.Fatal(err)
	}

	err := s.Mutate(func(doc *Document) error {
		doc.Approvals["shell"] = []string{"git log"}
		return nil
	})
	if err != nil {
		t.Fatalf("expected stale lock to be reclaimed, got error: %v", err)
	}
}

func TestSettingsEffectiveMCPConfigMergesProjectOverGlobal(t *testing.T) {
	dir := t.TempDir()
	s := newTestStoreAt(t, dir)

	if err := s.MCPServerSet("search", MCPServerConfig{Protocol: "stdio", Endpoint: "search-server", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.SetProjectData("myproj", &ProjectRecord{
		Root: "/tmp/myproj",
		MCPServers: map[string]MCPServerConfig{
			"search": {Protocol: "websocket", Endpoint: "ws://localhost:9000", Enabled: true},
		},
	}); err != nil {
		t.Fatal(err)
	}

	effective, err := s.EffectiveMCPConfig("myproj", "search")
	if err != nil {
		t.Fatal(err)
	}
	if effective.Protocol != "websocket" || effective.Endpoint != "ws://localhost:9000" {
		t.Fatalf("expected project override to win, got %+v", effective)
	}
}
