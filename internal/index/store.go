package index

import (
	"fmt"
	"os"
	"path/filepath"

	"fnord/internal/ferr"
	"fnord/internal/logging"
)

// entryFiles names the on-disk artifacts under an entry's hash directory.
const (
	fileSourceFile   = "source_file"
	fileSummary      = "summary"
	fileOutline      = "outline"
	fileEmbedding    = "embedding"
	fileHash         = "content_hash"
	fileRelativePath = "relative_path"
)

// EntryStore manages one project's per-entry directories under storePath.
type EntryStore struct {
	storePath string
}

// NewEntryStore returns a store rooted at storePath
// (e.g. ~/.fnord/<project>).
func NewEntryStore(storePath string) *EntryStore {
	return &EntryStore{storePath: storePath}
}

func (s *EntryStore) entryDir(relativePath string) string {
	return filepath.Join(s.storePath, hashPath(relativePath))
}

// ReadSourceFile reads the given file relative to sourceRoot.
func (s *EntryStore) ReadSourceFile(sourceRoot, relativePath string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(sourceRoot, relativePath))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read source file %s: %v", ferr.IndexError, relativePath, err)
	}
	return data, nil
}

// Load reads the current on-disk entry for relativePath, if any. Returns a
// zero-value Entry (no error) if the directory does not exist.
func (s *EntryStore) Load(relativePath string) (*Entry, error) {
	dir := s.entryDir(relativePath)
	entry := &Entry{RelativePath: relativePath}

	hashData, err := os.ReadFile(filepath.Join(dir, fileHash))
	if err != nil {
		if os.IsNotExist(err) {
			return entry, nil
		}
		return nil, fmt.Errorf("%w: failed to read content hash for %s: %v", ferr.IndexError, relativePath, err)
	}
	entry.ContentHash = string(hashData)

	if data, err := os.ReadFile(filepath.Join(dir, fileSummary)); err == nil {
		entry.Summary = string(data)
	}
	if data, err := os.ReadFile(filepath.Join(dir, fileOutline)); err == nil {
		entry.Outline = string(data)
	}
	if data, err := os.ReadFile(filepath.Join(dir, fileEmbedding)); err == nil {
		entry.Embedding = bytesToFloat32s(data)
	}
	if info, err := os.Stat(filepath.Join(dir, fileHash)); err == nil {
		entry.LastIndexedAt = info.ModTime()
	}
	return entry, nil
}

// Save writes summary/outline/embedding atomically (temp file + rename),
// writing the content hash last so that a reader racing the writer always
// sees either the old complete entry or a still-partial (hence stale) one,
// never a torn complete-looking one. Also persists a copy of the source
// file for tools that want to diff/display the indexed content.
func (s *EntryStore) Save(relativePath string, sourceContent []byte, summary, outline string, vec []float32) error {
	dir := s.entryDir(relativePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create entry directory for %s: %v", ferr.IndexError, relativePath, err)
	}

	if err := writeAtomic(filepath.Join(dir, fileSourceFile), sourceContent); err != nil {
		return fmt.Errorf("%w: failed to persist source copy for %s: %v", ferr.IndexError, relativePath, err)
	}
	if err := writeAtomic(filepath.Join(dir, fileRelativePath), []byte(relativePath)); err != nil {
		return fmt.Errorf("%w: failed to persist relative path for %s: %v", ferr.IndexError, relativePath, err)
	}
	if err := writeAtomic(filepath.Join(dir, fileSummary), []byte(summary)); err != nil {
		return fmt.Errorf("%w: failed to write summary for %s: %v", ferr.IndexError, relativePath, err)
	}
	if err := writeAtomic(filepath.Join(dir, fileOutline), []byte(outline)); err != nil {
		return fmt.Errorf("%w: failed to write outline for %s: %v", ferr.IndexError, relativePath, err)
	}
	if err := writeAtomic(filepath.Join(dir, fileEmbedding), float32sToBytes(vec)); err != nil {
		return fmt.Errorf("%w: failed to write embedding for %s: %v", ferr.IndexError, relativePath, err)
	}
	// Hash written last: readers that see a hash match are guaranteed to
	// also see the derivatives written above it.
	hash := hashContent(sourceContent)
	if err := writeAtomic(filepath.Join(dir, fileHash), []byte(hash)); err != nil {
		return fmt.Errorf("%w: failed to write content hash for %s: %v", ferr.IndexError, relativePath, err)
	}

	logging.IndexDebug("indexed %s (hash=%s)", relativePath, hash[:12])
	return nil
}

// IsStale reports whether the on-disk entry for relativePath is missing,
// partial, or out of date with currentContent.
func (s *EntryStore) IsStale(relativePath string, currentContent []byte) (bool, error) {
	entry, err := s.Load(relativePath)
	if err != nil {
		return true, err
	}
	if entry.ContentHash == "" || !entry.IsComplete() {
		return true, nil
	}
	return entry.ContentHash != hashContent(currentContent), nil
}

// DeleteEntry removes an entry's directory entirely.
func (s *EntryStore) DeleteEntry(relativePath string) error {
	return os.RemoveAll(s.entryDir(relativePath))
}

// writeAtomic writes data to path via a sibling temp file + rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
