package semantic

import (
	"fnord/internal/embedding"
	"fnord/internal/index"
	"fnord/internal/tools"
)

// RegisterAll registers the semantic_search built-in with the given
// registry. Unlike the other C3 families this one takes live collaborators
// (an embedder and the project's vector cache) rather than constructing its
// own state, so callers wire it in once both are available -- after a
// project's VecStore is opened, not at process startup.
func RegisterAll(registry *tools.Registry, embedder embedding.EmbeddingEngine, store *index.VecStore) error {
	return registry.Register(SearchTool(embedder, store))
}
