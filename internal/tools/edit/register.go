package edit

import (
	"fnord/internal/tools"
)

// RegisterAll registers the file-editing tool family with the given
// registry, sharing one PatchStore between make_patch and apply_patch.
func RegisterAll(registry *tools.Registry, store *PatchStore) error {
	allTools := []*tools.Tool{
		FindHunksTool(),
		MakePatchTool(store),
		ApplyPatchTool(store),
		RestoreBackupTool(),
		MakeChangesTool(),
	}
	for _, t := range allTools {
		if err := registry.Register(t); err != nil {
			return err
		}
	}
	return nil
}
