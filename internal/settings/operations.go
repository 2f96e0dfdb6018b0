package settings

import (
	"fmt"
	"strings"

	"fnord/internal/ferr"
)

// Get returns the value at a dotted key path (e.g. "projects.foo.root") from
// a read-only snapshot of the document.
func (s *Store) Get(key string) (any, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return getDotted(doc, strings.Split(key, "."))
}

// Set writes the value at a dotted key path under the lock.
func (s *Store) Set(key string, value any) error {
	return s.Mutate(func(doc *Document) error {
		return setDotted(doc, strings.Split(key, "."), value)
	})
}

// Update applies an arbitrary function under the lock; used by callers that
// need read-then-write semantics beyond a single dotted key.
func (s *Store) Update(fn func(doc *Document) error) error {
	return s.Mutate(fn)
}

// Delete removes the value at a dotted key path under the lock.
func (s *Store) Delete(key string) error {
	return s.Mutate(func(doc *Document) error {
		return deleteDotted(doc, strings.Split(key, "."))
	})
}

func getDotted(doc *Document, parts []string) (any, error) {
	if len(parts) == 0 {
		return doc, nil
	}
	switch parts[0] {
	case "version":
		return doc.Version, nil
	case "projects":
		if len(parts) == 1 {
			return doc.Projects, nil
		}
		proj, ok := doc.Projects[parts[1]]
		if !ok {
			return nil, fmt.Errorf("%w: no such project %q", ferr.ConfigError, parts[1])
		}
		if len(parts) == 2 {
			return proj, nil
		}
		return getProjectField(proj, parts[2:])
	case "approvals":
		if len(parts) == 1 {
			return doc.Approvals, nil
		}
		return doc.Approvals[parts[1]], nil
	case "mcp_servers":
		if len(parts) == 1 {
			return doc.MCPServers, nil
		}
		cfg, ok := doc.MCPServers[parts[1]]
		if !ok {
			return nil, fmt.Errorf("%w: no such mcp server %q", ferr.ConfigError, parts[1])
		}
		return cfg, nil
	default:
		return nil, fmt.Errorf("%w: unknown top-level key %q", ferr.ConfigError, parts[0])
	}
}

func getProjectField(proj *ProjectRecord, parts []string) (any, error) {
	switch parts[0] {
	case "root":
		return proj.Root, nil
	case "exclude":
		return proj.Exclude, nil
	case "approvals":
		if len(parts) == 1 {
			return proj.Approvals, nil
		}
		return proj.Approvals[parts[1]], nil
	case "mcp_servers":
		if len(parts) == 1 {
			return proj.MCPServers, nil
		}
		return proj.MCPServers[parts[1]], nil
	default:
		return nil, fmt.Errorf("%w: unknown project field %q", ferr.ConfigError, parts[0])
	}
}

func setDotted(doc *Document, parts []string, value any) error {
	if len(parts) < 2 {
		return fmt.Errorf("%w: cannot set reserved top-level key %q directly", ferr.ConfigError, strings.Join(parts, "."))
	}
	switch parts[0] {
	case "projects":
		name := parts[1]
		proj, ok := doc.Projects[name]
		if !ok {
			proj = &ProjectRecord{Approvals: make(map[string][]string), MCPServers: make(map[string]MCPServerConfig)}
			doc.Projects[name] = proj
		}
		if len(parts) == 2 {
			rec, ok := value.(*ProjectRecord)
			if !ok {
				return fmt.Errorf("%w: value for projects.%s must be a *ProjectRecord", ferr.ConfigError, name)
			}
			doc.Projects[name] = rec
			return nil
		}
		return setProjectField(proj, parts[2:], value)
	case "approvals":
		list, ok := value.([]string)
		if !ok {
			return fmt.Errorf("%w: value for approvals.%s must be []string", ferr.ConfigError, parts[1])
		}
		doc.Approvals[parts[1]] = list
		return nil
	case "mcp_servers":
		cfg, ok := value.(MCPServerConfig)
		if !ok {
			return fmt.Errorf("%w: value for mcp_servers.%s must be MCPServerConfig", ferr.ConfigError, parts[1])
		}
		doc.MCPServers[parts[1]] = cfg
		return nil
	default:
		return fmt.Errorf("%w: unknown top-level key %q", ferr.ConfigError, parts[0])
	}
}

func setProjectField(proj *ProjectRecord, parts []string, value any) error {
	switch parts[0] {
	case "root":
		root, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: root must be a string", ferr.ConfigError)
		}
		proj.Root = root
		return nil
	case "exclude":
		globs, ok := value.([]string)
		if !ok {
			return fmt.Errorf("%w: exclude must be []string", ferr.ConfigError)
		}
		proj.Exclude = globs
		return nil
	case "approvals":
		if proj.Approvals == nil {
			proj.Approvals = make(map[string][]string)
		}
		list, ok := value.([]string)
		if !ok {
			return fmt.Errorf("%w: project approvals value must be []string", ferr.ConfigError)
		}
		proj.Approvals[parts[1]] = list
		return nil
	case "mcp_servers":
		if proj.MCPServers == nil {
			proj.MCPServers = make(map[string]MCPServerConfig)
		}
		cfg, ok := value.(MCPServerConfig)
		if !ok {
			return fmt.Errorf("%w: project mcp_servers value must be MCPServerConfig", ferr.ConfigError)
		}
		proj.MCPServers[parts[1]] = cfg
		return nil
	default:
		return fmt.Errorf("%w: unknown project field %q", ferr.ConfigError, parts[0])
	}
}

func deleteDotted(doc *Document, parts []string) error {
	switch parts[0] {
	case "projects":
		if len(parts) == 2 {
			delete(doc.Projects, parts[1])
			return nil
		}
	case "approvals":
		if len(parts) == 2 {
			delete(doc.Approvals, parts[1])
			return nil
		}
	case "mcp_servers":
		if len(parts) == 2 {
			delete(doc.MCPServers, parts[1])
			return nil
		}
	}
	return fmt.Errorf("%w: cannot delete %q", ferr.ConfigError, strings.Join(parts, "."))
}

// GetProject returns a copy of the named project record.
func (s *Store) GetProject(name string) (*ProjectRecord, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	proj, ok := doc.Projects[name]
	if !ok {
		return nil, fmt.Errorf("%w: no such project %q", ferr.ConfigError, name)
	}
	return proj, nil
}

// SetProjectData replaces (or creates) a project record.
func (s *Store) SetProjectData(name string, rec *ProjectRecord) error {
	return s.Mutate(func(doc *Document) error {
		if rec.Approvals == nil {
			rec.Approvals = make(map[string][]string)
		}
		if rec.MCPServers == nil {
			rec.MCPServers = make(map[string]MCPServerConfig)
		}
		doc.Projects[name] = rec
		return nil
	})
}

// ListProjects returns all project names, sorted.
func (s *Store) ListProjects() ([]string, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Projects))
	for name := range doc.Projects {
		names = append(names, name)
	}
	return sortAndDedup(names), nil
}

// ApprovalsGet returns the approvals list for a kind at global scope, or for
// a project scope when project is non-empty.
func (s *Store) ApprovalsGet(project, kind string) ([]string, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if project == "" {
		return doc.Approvals[kind], nil
	}
	proj, ok := doc.Projects[project]
	if !ok {
		return nil, fmt.Errorf("%w: no such project %q", ferr.ConfigError, project)
	}
	return proj.Approvals[kind], nil
}

// ApprovalsApprove adds pattern to the approvals set for kind, at global
// scope (project == "") or project scope.
func (s *Store) ApprovalsApprove(project, kind, pattern string) error {
	return s.Mutate(func(doc *Document) error {
		if project == "" {
			doc.Approvals[kind] = append(doc.Approvals[kind], pattern)
			return nil
		}
		proj, ok := doc.Projects[project]
		if !ok {
			proj = &ProjectRecord{Approvals: make(map[string][]string), MCPServers: make(map[string]MCPServerConfig)}
			doc.Projects[project] = proj
		}
		if proj.Approvals == nil {
			proj.Approvals = make(map[string][]string)
		}
		proj.Approvals[kind] = append(proj.Approvals[kind], pattern)
		return nil
	})
}

// ApprovalsApproved reports whether pattern is present in the given scope's
// set for kind (global when project == "", else project-scoped; does not
// fall back to global — callers wanting the layered check do that in
// internal/approvals).
func (s *Store) ApprovalsApproved(project, kind, pattern string) (bool, error) {
	list, err := s.ApprovalsGet(project, kind)
	if err != nil {
		return false, err
	}
	for _, item := range list {
		if item == pattern {
			return true, nil
		}
	}
	return false, nil
}

// MCPServerGet returns the named server's global config.
func (s *Store) MCPServerGet(name string) (MCPServerConfig, error) {
	doc, err := s.read()
	if err != nil {
		return MCPServerConfig{}, err
	}
	cfg, ok := doc.MCPServers[name]
	if !ok {
		return MCPServerConfig{}, fmt.Errorf("%w: no such mcp server %q", ferr.ConfigError, name)
	}
	return cfg, nil
}

// MCPServerSet replaces the named server's global config.
func (s *Store) MCPServerSet(name string, cfg MCPServerConfig) error {
	return s.Mutate(func(doc *Document) error {
		doc.MCPServers[name] = cfg
		return nil
	})
}

// MCPServerAdd is an alias of MCPServerSet, kept distinct per spec.md §4.1's
// named operation list ("add, update, remove").
func (s *Store) MCPServerAdd(name string, cfg MCPServerConfig) error {
	return s.MCPServerSet(name, cfg)
}

// MCPServerUpdate mutates an existing server's config via fn.
func (s *Store) MCPServerUpdate(name string, fn func(cfg *MCPServerConfig)) error {
	return s.Mutate(func(doc *Document) error {
		cfg := doc.MCPServers[name]
		fn(&cfg)
		doc.MCPServers[name] = cfg
		return nil
	})
}

// MCPServerRemove deletes the named server's global config.
func (s *Store) MCPServerRemove(name string) error {
	return s.Mutate(func(doc *Document) error {
		delete(doc.MCPServers, name)
		return nil
	})
}

// EffectiveMCPConfig merges a server's global config under its per-project
// override (project values win), per spec.md §4.1 ("effective_config is a
// merge of global under project overrides").
func (s *Store) EffectiveMCPConfig(project, name string) (MCPServerConfig, error) {
	doc, err := s.read()
	if err != nil {
		return MCPServerConfig{}, err
	}
	effective := doc.MCPServers[name]

	proj, ok := doc.Projects[project]
	if !ok || proj.MCPServers == nil {
		return effective, nil
	}
	override, ok := proj.MCPServers[name]
	if !ok {
		return effective, nil
	}
	if override.Protocol != "" {
		effective.Protocol = override.Protocol
	}
	if override.Endpoint != "" {
		effective.Endpoint = override.Endpoint
	}
	if override.Timeout != "" {
		effective.Timeout = override.Timeout
	}
	effective.Enabled = override.Enabled
	return effective, nil
}
