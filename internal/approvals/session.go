package approvals

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// SessionState is the call's in-memory accumulator: patterns approved with
// scope "session" never touch the settings store and vanish when the
// process exits, per spec.md §4.4.
type SessionState struct {
	mu         sync.Mutex
	shell      []string // prefix or literal full-string patterns
	shellFull  []*regexp.Regexp
	editScopes map[string]bool // file_path -> approved-for-session
}

// NewSessionState returns an empty session accumulator.
func NewSessionState() *SessionState {
	return &SessionState{editScopes: make(map[string]bool)}
}

func (s *SessionState) approveShell(pattern string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if re, isRegex := compileShellFull(pattern); isRegex {
		s.shellFull = append(s.shellFull, re)
		return
	}
	for _, p := range s.shell {
		if p == pattern {
			return
		}
	}
	s.shell = append(s.shell, pattern)
}

// approvedShell implements decision step 2: the session set matches the
// prefix (as a literal prefix of the full string) or a session regex
// matches the full string.
func (s *SessionState) approvedShell(prefix, full string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.shell {
		if p == prefix || strings.HasPrefix(full, p) {
			return true
		}
	}
	for _, re := range s.shellFull {
		if re.MatchString(full) {
			return true
		}
	}
	return false
}

func (s *SessionState) approveEditForSession(filePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editScopes[filePath] = true
}

func (s *SessionState) editApprovedForSession(filePath string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editScopes[filePath]
}

// shellPatterns returns a sorted, deduplicated snapshot for tests/inspection.
func (s *SessionState) shellPatterns() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.shell...)
	sort.Strings(out)
	return out
}
