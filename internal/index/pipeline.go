package index

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"fnord/internal/embedding"
	"fnord/internal/ferr"
	"fnord/internal/logging"
)

// Summarizer produces a natural-language summary of a source file's content.
type Summarizer interface {
	Summarize(ctx context.Context, relativePath string, content []byte) (string, error)
}

// Outliner produces a structural outline (signatures, declarations) of a
// source file's content.
type Outliner interface {
	Outline(ctx context.Context, relativePath string, content []byte) (string, error)
}

// Pipeline runs the indexing steps of spec.md §4.2 for one or more entries:
// read, summarize+outline concurrently, compose the embedding input, embed,
// write atomically.
type Pipeline struct {
	Project    *Project
	Store      *EntryStore
	Summarizer Summarizer
	Outliner   Outliner
	Embedder   embedding.EmbeddingEngine
}

// IndexFile runs the full pipeline for one relative path. Per-entry failure
// is the caller's to handle (per spec.md §4.2's "logged and does not abort
// the run" policy) -- IndexFile returns the error so IndexAll can apply that
// policy uniformly.
func (p *Pipeline) IndexFile(ctx context.Context, relativePath string) error {
	content, err := p.Store.ReadSourceFile(p.Project.SourceRoot, relativePath)
	if err != nil {
		return err
	}

	var summary, outline string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := p.Summarizer.Summarize(gctx, relativePath, content)
		if err != nil {
			return fmt.Errorf("%w: summarize %s: %v", ferr.IndexError, relativePath, err)
		}
		summary = s
		return nil
	})
	g.Go(func() error {
		o, err := p.Outliner.Outline(gctx, relativePath, content)
		if err != nil {
			return fmt.Errorf("%w: outline %s: %v", ferr.IndexError, relativePath, err)
		}
		outline = o
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	input := composeEmbeddingInput(relativePath, summary, outline, content)
	vec, err := p.Embedder.Embed(ctx, input)
	if err != nil {
		return fmt.Errorf("%w: embed %s: %v", ferr.IndexError, relativePath, err)
	}

	return p.Store.Save(relativePath, content, summary, outline, vec)
}

// composeEmbeddingInput builds the exact template from spec.md §4.2:
// "# File\n`path`\n\n## Summary\n…\n\n## Outline\n…\n\n## Contents\n```…```".
func composeEmbeddingInput(relativePath, summary, outline string, content []byte) string {
	var b strings.Builder
	b.WriteString("# File\n`")
	b.WriteString(relativePath)
	b.WriteString("`\n\n## Summary\n")
	b.WriteString(summary)
	b.WriteString("\n\n## Outline\n")
	b.WriteString(outline)
	b.WriteString("\n\n## Contents\n```\n")
	b.Write(content)
	b.WriteString("\n```")
	return b.String()
}

// IndexAll runs the pipeline over every file in relativePaths, skipping
// those that are not stale unless force is set. A per-file error is logged
// and does not abort the run; the returned slice collects the relative
// paths that failed.
func (p *Pipeline) IndexAll(ctx context.Context, relativePaths []string, force bool) []string {
	var failed []string
	for _, rel := range relativePaths {
		if !force {
			content, err := p.Store.ReadSourceFile(p.Project.SourceRoot, rel)
			if err != nil {
				logging.IndexWarn("skipping %s: %v", rel, err)
				failed = append(failed, rel)
				continue
			}
			stale, err := p.Store.IsStale(rel, content)
			if err != nil {
				logging.IndexWarn("stale check failed for %s: %v", rel, err)
			}
			if !stale {
				continue
			}
		}
		if err := p.IndexFile(ctx, rel); err != nil {
			logging.IndexWarn("indexing failed for %s: %v", rel, err)
			failed = append(failed, rel)
		}
	}
	return failed
}
