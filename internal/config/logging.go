package config

// LoggingConfig configures internal/logging. That package keeps its own
// minimal JSON mirror at ~/.fnord/logging.json (to avoid a circular import,
// since logging.Boot* is used for config's own diagnostics); this struct is
// the YAML source of truth and SyncLoggingMirror (config.go) writes the
// mirror; Load and Save do not call it, the CLI does after loading.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`
	Format     string          `yaml:"format" json:"format,omitempty"`
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"`
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"`
}

// IsCategoryEnabled returns whether logging is enabled for a category.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
