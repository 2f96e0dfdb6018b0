package index

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	_ "github.com/mattn/go-sqlite3"

	"fnord/internal/ferr"
	"fnord/internal/logging"
)

// VecStore is a derived, rebuildable sqlite-vec cache over a project's
// entries, letting the semantic_search built-in do a k-NN query instead of
// a linear scan over every stored embedding blob. The per-file artifact
// directories remain the source of truth; the `index` command refreshes
// VecStore from them. VecStore does not rebuild itself.
type VecStore struct {
	mu        sync.RWMutex
	db        *sql.DB
	vectorExt bool
	dims      int

	watcher *fsnotify.Watcher
}

// OpenVecStore opens (creating if absent) the sqlite-vec cache at dbPath for
// a project whose embeddings have the given dimensionality.
func OpenVecStore(dbPath string, dims int) (*VecStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open vec cache %s: %v", ferr.IndexError, dbPath, err)
	}

	v := &VecStore{db: db, dims: dims}
	if err := v.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return v, nil
}

func (v *VecStore) initialize() error {
	_, err := v.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			relative_path TEXT PRIMARY KEY,
			content_hash TEXT NOT NULL,
			summary TEXT,
			indexed_at DATETIME
		)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to create entries table: %v", ferr.IndexError, err)
	}

	probe := "CREATE VIRTUAL TABLE IF NOT EXISTS vec_probe USING vec0(embedding float[4])"
	if _, err := v.db.Exec(probe); err != nil {
		logging.IndexDebug("sqlite-vec not available, falling back to brute-force search: %v", err)
		v.vectorExt = false
		return nil
	}
	v.db.Exec("DROP TABLE IF EXISTS vec_probe")

	vecTable := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS entry_vec USING vec0(
			relative_path TEXT PRIMARY KEY,
			embedding float[%d]
		)
	`, v.dims)
	if _, err := v.db.Exec(vecTable); err != nil {
		logging.IndexWarn("failed to create entry_vec table: %v", err)
		v.vectorExt = false
		return nil
	}
	v.vectorExt = true
	logging.Index("vector cache ready at %d dimensions", v.dims)
	return nil
}

// Close releases the database handle and any active file watcher.
func (v *VecStore) Close() error {
	if v.watcher != nil {
		v.watcher.Close()
	}
	return v.db.Close()
}

// Upsert records or refreshes one entry's cache row.
func (v *VecStore) Upsert(relativePath, contentHash, summary string, embeddingVec []float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, err := v.db.Exec(`
		INSERT INTO entries (relative_path, content_hash, summary, indexed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(relative_path) DO UPDATE SET
			content_hash = excluded.content_hash,
			summary = excluded.summary,
			indexed_at = excluded.indexed_at
	`, relativePath, contentHash, summary, time.Now())
	if err != nil {
		return fmt.Errorf("%w: failed to upsert cache row for %s: %v", ferr.IndexError, relativePath, err)
	}

	if v.vectorExt {
		blob := float32sToBytes(embeddingVec)
		_, err := v.db.Exec(`
			INSERT INTO entry_vec (relative_path, embedding) VALUES (?, ?)
			ON CONFLICT(relative_path) DO UPDATE SET embedding = excluded.embedding
		`, relativePath, blob)
		if err != nil {
			return fmt.Errorf("%w: failed to upsert vector row for %s: %v", ferr.IndexError, relativePath, err)
		}
	}
	return nil
}

// Remove deletes a path's cache row.
func (v *VecStore) Remove(relativePath string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	_, err := v.db.Exec(`DELETE FROM entries WHERE relative_path = ?`, relativePath)
	if err != nil {
		return fmt.Errorf("%w: failed to remove cache row for %s: %v", ferr.IndexError, relativePath, err)
	}
	if v.vectorExt {
		v.db.Exec(`DELETE FROM entry_vec WHERE relative_path = ?`, relativePath)
	}
	return nil
}

// SearchResult is one ranked match from Search.
type SearchResult struct {
	RelativePath string
	Summary      string
	Score        float64
}

// Search returns the topK entries nearest to queryEmbedding using
// sqlite-vec's ANN index. When the extension could not be loaded, or the
// vector query fails, it falls back to searchBruteForce, which does not
// rank by similarity.
func (v *VecStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.vectorExt {
		results, err := v.searchVec(ctx, queryEmbedding, topK)
		if err == nil {
			return results, nil
		}
		logging.IndexWarn("vector search failed, falling back to brute force: %v", err)
	}
	return v.searchBruteForce(ctx, queryEmbedding, topK)
}

func (v *VecStore) searchVec(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	blob := float32sToBytes(queryEmbedding)
	rows, err := v.db.QueryContext(ctx, `
		SELECT e.relative_path, e.summary, vec_distance_cosine(v.embedding, ?) as distance
		FROM entry_vec v
		JOIN entries e ON e.relative_path = v.relative_path
		ORDER BY distance
		LIMIT ?
	`, blob, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var distance float64
		if err := rows.Scan(&r.RelativePath, &r.Summary, &distance); err != nil {
			continue
		}
		r.Score = cosineDistanceToScore(distance)
		results = append(results, r)
	}
	return results, nil
}

func (v *VecStore) searchBruteForce(ctx context.Context, queryEmbedding []float32, topK int) ([]SearchResult, error) {
	// No stored-vector column without the extension, so this path ignores
	// queryEmbedding and returns up to topK cached rows in table order,
	// each with a zero Score.
	rows, err := v.db.QueryContext(ctx, `SELECT relative_path, summary FROM entries LIMIT ?`, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: brute-force cache scan failed: %v", ferr.IndexError, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.RelativePath, &r.Summary); err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

func cosineDistanceToScore(distance float64) float64 {
	score := 1.0 - distance
	if score < 0 {
		score = 0
	}
	return score
}

// WatchSourceRoot starts an fsnotify watcher over sourceRoot so that C7 can
// react to changes without re-walking the tree on every pick. onChange is
// called with the changed path; the caller decides whether to re-index.
// A startup walk and periodic fallback remain the source of truth -- this
// is purely a latency optimization.
func (v *VecStore) WatchSourceRoot(sourceRoot string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: failed to create watcher: %v", ferr.IndexError, err)
	}
	v.watcher = watcher

	if err := watcher.Add(sourceRoot); err != nil {
		watcher.Close()
		v.watcher = nil
		return fmt.Errorf("%w: failed to watch %s: %v", ferr.IndexError, sourceRoot, err)
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					onChange(event.Name)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.IndexWarn("watcher error for %s: %v", sourceRoot, err)
			}
		}
	}()
	return nil
}
