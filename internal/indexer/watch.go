package indexer

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"fnord/internal/logging"
)

// Watch starts an fsnotify watcher on the project's source root and feeds
// every write/create event into Notify, so a newly-staled file is picked up
// on the indexer's very next cycle instead of waiting for the next full
// rescan (SPEC_FULL.md's C3/C7 rationale for carrying fsnotify at all). The
// returned stop func closes the watcher; it is safe to call once.
func (ix *Indexer) Watch(sourceRoot string) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := addRecursive(watcher, sourceRoot); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				rel, err := filepath.Rel(sourceRoot, event.Name)
				if err != nil || strings.HasPrefix(rel, "..") {
					continue
				}
				ix.Notify(filepath.ToSlash(rel))
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logging.IndexerWarn("fsnotify error: %v", werr)
			}
		}
	}()

	return func() { watcher.Close(); <-done }, nil
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				logging.IndexerWarn("watch %s: %v", path, err)
			}
		}
		return nil
	})
}
