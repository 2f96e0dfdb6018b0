package index

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"fnord/internal/ferr"
)

// Project ties a source tree to its on-disk derivative store, per spec.md
// §3's project record ("name, source_root, store_path").
type Project struct {
	Name       string
	SourceRoot string
	StorePath  string
	Exclude    []string // additional project-specific glob/name excludes
}

// defaultExcludes mirrors the teacher's scanner defaults: directories that
// are never worth indexing regardless of project configuration.
var defaultExcludes = []string{
	".git",
	".fnord",
	"node_modules",
	"vendor",
	"dist",
	"build",
	".next",
	"target",
	"bin",
	"obj",
	".terraform",
	".venv",
	".cache",
}

func normalizeExcludePattern(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimSuffix(p, "/")
	p = strings.TrimSuffix(p, "\\")
	return filepath.ToSlash(p)
}

// isExcluded reports whether rel (slash-separated, relative to SourceRoot)
// should be skipped, given name is its base name.
func isExcluded(rel, name string, patterns []string) bool {
	rel = filepath.ToSlash(rel)
	for _, raw := range patterns {
		p := normalizeExcludePattern(raw)
		if p == "" {
			continue
		}
		if strings.ContainsAny(p, "*?[]") {
			if ok, _ := path.Match(p, rel); ok {
				return true
			}
			if strings.HasSuffix(p, "/*") {
				prefix := strings.TrimSuffix(p, "/*")
				if strings.HasPrefix(rel, prefix+"/") {
					return true
				}
			}
			continue
		}
		if name == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// SourceFiles walks SourceRoot and returns the relative paths of every
// regular file not excluded by defaultExcludes or p.Exclude.
func (p *Project) SourceFiles() ([]string, error) {
	patterns := append(append([]string{}, defaultExcludes...), p.Exclude...)
	var files []string

	err := filepath.Walk(p.SourceRoot, func(fullPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(p.SourceRoot, fullPath)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := info.Name()

		if isExcluded(rel, name, patterns) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to walk source root %s: %v", ferr.IndexError, p.SourceRoot, err)
	}
	return files, nil
}

// ListFiles returns the relative paths of every entry currently present in
// the derivative store, regardless of whether the source file still exists.
func (p *Project) ListFiles(store *EntryStore) ([]string, error) {
	tracked, err := p.trackedFiles(store)
	if err != nil {
		return nil, err
	}
	rels := make([]string, 0, len(tracked))
	for rel := range tracked {
		rels = append(rels, rel)
	}
	return rels, nil
}

// DeleteMissingFiles removes derivative entries for files that no longer
// appear in sourceFiles (e.g. deleted or renamed since the last index run).
func (p *Project) DeleteMissingFiles(store *EntryStore, sourceFiles []string) error {
	current := make(map[string]bool, len(sourceFiles))
	for _, f := range sourceFiles {
		current[f] = true
	}

	known, err := p.trackedFiles(store)
	if err != nil {
		return err
	}
	for rel := range known {
		if !current[rel] {
			if err := store.DeleteEntry(rel); err != nil {
				return fmt.Errorf("%w: failed to delete stale entry for %s: %v", ferr.IndexError, rel, err)
			}
		}
	}
	return nil
}

// trackedFiles reconstructs the set of relative paths the store currently
// holds entries for, by reading the tracked-path sidecar each Save writes.
func (p *Project) trackedFiles(store *EntryStore) (map[string]bool, error) {
	dirEntries, err := os.ReadDir(store.storePath)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("%w: failed to read store directory: %v", ferr.IndexError, err)
	}

	tracked := make(map[string]bool, len(dirEntries))
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		relPathData, err := os.ReadFile(filepath.Join(store.storePath, de.Name(), fileRelativePath))
		if err != nil {
			continue
		}
		tracked[string(relPathData)] = true
	}
	return tracked, nil
}

// Delete removes the project's entire derivative store.
func (p *Project) Delete(store *EntryStore) error {
	if err := os.RemoveAll(store.storePath); err != nil {
		return fmt.Errorf("%w: failed to delete project store %s: %v", ferr.IndexError, store.storePath, err)
	}
	return nil
}
