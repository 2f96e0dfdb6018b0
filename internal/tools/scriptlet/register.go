package scriptlet

import (
	"fmt"

	"fnord/internal/logging"
	"fnord/internal/tools"
)

// RegisterAll loads every scriptlet saved in store and registers it with
// registry, skipping (and reporting) any definition whose code fails the
// import whitelist rather than aborting the whole load.
func RegisterAll(registry *tools.Registry, store *Store) error {
	defs, err := store.LoadAll()
	if err != nil {
		return err
	}
	for _, def := range defs {
		tool, err := ToTool(def)
		if err != nil {
			logging.ToolsWarn("skipping scriptlet %s: %v", def.Name, err)
			continue
		}
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("register scriptlet %s: %w", def.Name, err)
		}
	}
	return nil
}
