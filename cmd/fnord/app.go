package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"fnord/internal/approvals"
	"fnord/internal/completion"
	"fnord/internal/config"
	"fnord/internal/convstore"
	"fnord/internal/embedding"
	"fnord/internal/ferr"
	"fnord/internal/frob"
	"fnord/internal/index"
	"fnord/internal/mcp"
	"fnord/internal/settings"
	"fnord/internal/tools"
	"fnord/internal/tools/core"
	"fnord/internal/tools/edit"
	projecttools "fnord/internal/tools/project"
	"fnord/internal/tools/scriptlet"
	"fnord/internal/tools/semantic"
	"fnord/internal/tools/shell"
	"fnord/internal/ui"
)

// exitCodeFor maps fnord's ferr taxonomy to process exit codes, per
// spec.md §6's "non-zero per structured failure class".
func exitCodeFor(err error) int {
	switch {
	case ferr.Is(err, ferr.ConfigError):
		return 2
	case ferr.Is(err, ferr.LockError):
		return 3
	case ferr.Is(err, ferr.IndexError):
		return 4
	case ferr.Is(err, ferr.ToolArgError), ferr.Is(err, ferr.ToolCallError):
		return 5
	case ferr.Is(err, ferr.ApprovalDenied):
		return 6
	case ferr.Is(err, ferr.TransportError):
		return 7
	case ferr.Is(err, ferr.ModelError):
		return 8
	case ferr.Is(err, ferr.Fatal):
		return 70
	default:
		return 1
	}
}

// app bundles the per-invocation collaborators a command needs, built once
// by newApp and threaded through the rest of the command's RunE.
type app struct {
	home     string
	cfg      *config.Config
	settings *settings.Store
	convs    *convstore.Store
	embedder embedding.EmbeddingEngine
	llm      *completion.GenAIClient
	queue    *ui.Queue
}

// newApp loads process-local config and opens the settings store. It does
// not construct the embedder or LLM client eagerly -- those require a
// reachable provider and only commands that need them (index, ask, search)
// pay that cost.
func newApp() (*app, error) {
	cfgPath := config.DefaultConfigPath(homeDir)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("%w: load config: %v", ferr.ConfigError, err)
	}
	if apiKeyFlag != "" {
		cfg.LLM.APIKey = apiKeyFlag
	}
	if timeoutFl > 0 {
		cfg.LLM.Timeout = timeoutFl.String()
		cfg.Execution.DefaultTimeout = timeoutFl.String()
	}
	if quiet {
		cfg.Execution.Quiet = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ferr.ConfigError, err)
	}
	if err := cfg.SyncLoggingMirror(homeDir); err != nil {
		return nil, fmt.Errorf("%w: sync logging config: %v", ferr.ConfigError, err)
	}

	store := settings.NewStore(filepath.Join(homeDir, "settings.json"))
	return &app{
		home:     homeDir,
		cfg:      cfg,
		settings: store,
		convs:    convstore.NewStore(homeDir),
	}, nil
}

// ui lazily builds the C5 queue, shared by every command in a process.
func (a *app) ui() *ui.Queue {
	if a.queue == nil {
		a.queue = ui.New(os.Stdout, ui.WithQuiet(a.cfg.Execution.Quiet))
	}
	return a.queue
}

// embeddingEngine lazily constructs the embedding engine from config.
func (a *app) embeddingEngine() (embedding.EmbeddingEngine, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}
	engine, err := embedding.NewEngine(embedding.Config{
		Provider:       a.cfg.Embedding.Provider,
		OllamaEndpoint: a.cfg.Embedding.OllamaEndpoint,
		OllamaModel:    a.cfg.Embedding.OllamaModel,
		GenAIAPIKey:    a.cfg.Embedding.GenAIAPIKey,
		GenAIModel:     a.cfg.Embedding.GenAIModel,
		TaskType:       a.cfg.Embedding.TaskType,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: build embedding engine: %v", ferr.ConfigError, err)
	}
	a.embedder = engine
	return engine, nil
}

// genaiClient lazily constructs the completion-loop LLM client.
func (a *app) genaiClient(ctx context.Context) (*completion.GenAIClient, error) {
	if a.llm != nil {
		return a.llm, nil
	}
	if a.cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("%w: no LLM API key configured (set OPENAI_API_KEY, GEMINI_API_KEY, ANTHROPIC_API_KEY, or --api-key)", ferr.ConfigError)
	}
	client, err := completion.NewGenAIClient(ctx, a.cfg.LLM.APIKey)
	if err != nil {
		return nil, fmt.Errorf("%w: build LLM client: %v", ferr.TransportError, err)
	}
	a.llm = client
	return client, nil
}

// resolveProject loads or creates a project record, honouring --dir/--exclude
// overrides, and returns the index.Project view of it plus the resolved
// store paths under home.
func (a *app) resolveProject(name, dir string, exclude []string) (*index.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: --project is required", ferr.ConfigError)
	}

	rec, err := a.settings.GetProject(name)
	if err != nil {
		if dir == "" {
			return nil, fmt.Errorf("%w: unknown project %q (pass --dir to create it)", ferr.ConfigError, name)
		}
		rec = &settings.ProjectRecord{
			Approvals:  make(map[string][]string),
			MCPServers: make(map[string]settings.MCPServerConfig),
		}
	}
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve --dir: %v", ferr.ConfigError, err)
		}
		rec.Root = abs
	}
	if len(exclude) > 0 {
		rec.Exclude = exclude
	}
	if err := a.settings.SetProjectData(name, rec); err != nil {
		return nil, fmt.Errorf("%w: persist project record: %v", ferr.ConfigError, err)
	}

	return &index.Project{
		Name:       name,
		SourceRoot: rec.Root,
		StorePath:  filepath.Join(a.home, name),
		Exclude:    rec.Exclude,
	}, nil
}

// pipeline builds an index.Pipeline for proj, wired to the real
// tree-sitter outliner, the LLM-backed summarizer, and the configured
// embedder.
func (a *app) pipeline(ctx context.Context, proj *index.Project) (*index.Pipeline, error) {
	engine, err := a.embeddingEngine()
	if err != nil {
		return nil, err
	}
	client, err := a.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	return &index.Pipeline{
		Project:    proj,
		Store:      index.NewEntryStore(proj.StorePath),
		Summarizer: &index.LLMSummarizer{Completer: client, Model: a.cfg.LLM.Model},
		Outliner:   index.NewTreeSitterOutliner(),
		Embedder:   engine,
	}, nil
}

// vecStore opens (creating if absent) proj's sqlite-vec cache, sized to
// the configured embedder's dimensionality.
func (a *app) vecStore(proj *index.Project) (*index.VecStore, error) {
	engine, err := a.embeddingEngine()
	if err != nil {
		return nil, err
	}
	dbPath := filepath.Join(proj.StorePath, "vectors.db")
	store, err := index.OpenVecStore(dbPath, engine.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("%w: open vector store: %v", ferr.IndexError, err)
	}
	return store, nil
}

// registryFor builds the complete C3 tool registry for proj: every
// built-in family, the project's saved scriptlets, its discovered frobs,
// and semantic search wired to vecStore.
func (a *app) registryFor(ctx context.Context, proj *index.Project, vecStore *index.VecStore) (*tools.Registry, *edit.PatchStore, error) {
	registry := tools.NewRegistry()

	if err := core.RegisterAll(registry); err != nil {
		return nil, nil, fmt.Errorf("register core tools: %w", err)
	}
	if err := shell.RegisterAll(registry); err != nil {
		return nil, nil, fmt.Errorf("register shell tools: %w", err)
	}

	patchStore := edit.NewPatchStore()
	if a.cfg.Execution.EditMode {
		if err := edit.RegisterAll(registry, patchStore); err != nil {
			return nil, nil, fmt.Errorf("register edit tools: %w", err)
		}
	}

	projectStore := projecttools.NewStore(a.home)
	if err := projecttools.RegisterAll(registry, projectStore); err != nil {
		return nil, nil, fmt.Errorf("register project tools: %w", err)
	}

	scriptletDir := filepath.Join(a.home, proj.Name, "scriptlets")
	scriptletStore := scriptlet.NewStore(scriptletDir)
	if err := scriptlet.RegisterAll(registry, scriptletStore); err != nil {
		return nil, nil, fmt.Errorf("register scriptlets: %w", err)
	}

	if vecStore != nil {
		engine, err := a.embeddingEngine()
		if err != nil {
			return nil, nil, err
		}
		if err := semantic.RegisterAll(registry, engine, vecStore); err != nil {
			return nil, nil, fmt.Errorf("register semantic search: %w", err)
		}
	}

	frobRoot := filepath.Join(a.home, "frobs")
	frobConfig := frob.Config{
		"allowed_env_vars": a.cfg.Execution.AllowedEnvVars,
	}
	if err := frob.RegisterAll(registry, frobRoot, proj.Name, frobConfig); err != nil {
		return nil, nil, fmt.Errorf("register frobs: %w", err)
	}

	if err := a.connectMCPServers(ctx, proj, registry); err != nil {
		a.ui().LogError(fmt.Sprintf("mcp: %v", err))
	}

	return registry, patchStore, nil
}

// connectMCPServers implements spec.md §4.3's remote tool family: every
// enabled server in the settings document (merged global-under-project, per
// EffectiveMCPConfig) is connected and its tools installed as synthetic
// built-ins. A single server failing to connect is logged and skipped
// rather than aborting registry construction -- one unreachable remote tool
// server should not block local tool use.
func (a *app) connectMCPServers(ctx context.Context, proj *index.Project, registry *tools.Registry) error {
	doc, err := a.settings.Read()
	if err != nil {
		return err
	}
	if len(doc.MCPServers) == 0 {
		return nil
	}

	dbPath := filepath.Join(a.home, proj.Name, "mcp_tools.db")
	store, err := mcp.NewMCPToolStore(dbPath, nil)
	if err != nil {
		return fmt.Errorf("open mcp tool store: %w", err)
	}

	configs := make(map[string]mcp.MCPServerConfig, len(doc.MCPServers))
	for name := range doc.MCPServers {
		effective, err := a.settings.EffectiveMCPConfig(proj.Name, name)
		if err != nil {
			continue
		}
		if !effective.Enabled {
			continue
		}
		configs[name] = mcpConfigFromSettings(name, effective)
	}
	if len(configs) == 0 {
		return nil
	}

	manager := mcp.NewMCPClientManager(store, nil, configs)
	var firstErr error
	for name := range configs {
		if err := manager.Connect(ctx, name); err != nil {
			a.ui().LogError(fmt.Sprintf("mcp server %s: connect failed: %v", name, err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := mcp.RegisterServerTools(ctx, registry, manager, name, a.cfg.GetExecutionTimeout()); err != nil {
			a.ui().LogError(fmt.Sprintf("mcp server %s: register tools failed: %v", name, err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// mcpConfigFromSettings adapts settings.MCPServerConfig (the persisted
// document shape) to mcp.MCPServerConfig (the transport-layer shape).
// Endpoint doubles as BaseURL for http/websocket servers and as the stdio
// command line for stdio servers, since the settings document carries only
// one address field per server.
func mcpConfigFromSettings(name string, cfg settings.MCPServerConfig) mcp.MCPServerConfig {
	out := mcp.MCPServerConfig{
		ID:          name,
		Enabled:     cfg.Enabled,
		Protocol:    cfg.Protocol,
		Timeout:     cfg.Timeout,
		AutoConnect: true,
	}
	if out.Timeout == "" {
		out.Timeout = "30s"
	}
	switch mcp.Protocol(cfg.Protocol) {
	case mcp.ProtocolStdio:
		out.Endpoint = cfg.Endpoint
	default:
		out.BaseURL = cfg.Endpoint
	}
	return out
}

// loop builds the C6 completion loop for proj, with every collaborator
// (tools, approvals, UI, interrupts, timestamp classifier) wired in.
func (a *app) loop(ctx context.Context, proj *index.Project, registry *tools.Registry) (*completion.Loop, error) {
	client, err := a.genaiClient(ctx)
	if err != nil {
		return nil, err
	}
	eng := approvals.New(a.settings, a.ui(), proj.Name, a.cfg.Execution)
	return &completion.Loop{
		Model:      a.cfg.LLM.Model,
		Client:     client,
		Classifier: &completion.TimestampClassifier{Client: client, Model: a.cfg.LLM.Model},
		Registry:   registry,
		Approvals:  eng,
		Queue:      a.ui(),
		Interrupts: completion.NewInterruptQueue(),
	}, nil
}
