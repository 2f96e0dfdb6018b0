package index

import "testing"

func TestHashContentIsDeterministic(t *testing.T) {
	a := hashContent([]byte("hello"))
	b := hashContent([]byte("hello"))
	if a != b {
		t.Fatalf("expected deterministic hash, got %s vs %s", a, b)
	}
	if a == hashContent([]byte("world")) {
		t.Fatalf("expected different content to hash differently")
	}
}

func TestHashPathIsStableAcrossCalls(t *testing.T) {
	if hashPath("src/main.go") != hashPath("src/main.go") {
		t.Fatalf("expected stable path hash")
	}
	if hashPath("src/main.go") == hashPath("src/other.go") {
		return
	}
	t.Fatalf("expected distinct paths to hash differently")
}

func TestEntryIsComplete(t *testing.T) {
	cases := []struct {
		name  string
		entry Entry
		want  bool
	}{
		{"empty", Entry{}, false},
		{"summary only", Entry{Summary: "s"}, false},
		{"summary and outline, no embedding", Entry{Summary: "s", Outline: "o"}, false},
		{"complete", Entry{Summary: "s", Outline: "o", Embedding: []float32{0.1}}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.entry.IsComplete(); got != tc.want {
				t.Fatalf("IsComplete() = %v, want %v", got, tc.want)
			}
		})
	}
}
