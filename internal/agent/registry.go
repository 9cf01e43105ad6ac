package agent

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/crewkit/crew/internal/config"
	crewerrors "github.com/crewkit/crew/internal/errors"
)

// AgentsDirName is the directory under the project marker that holds agents.
const AgentsDirName = "agents"

// Registry enumerates and loads agents from the resolved project scope.
// There are no global agents; without a project scope List is empty and every
// Load fails with NotFound. Definitions are re-read on every Load, never
// cached across calls.
type Registry struct {
	projectDir     string // the .crew directory, empty when no project scope
	projectServers map[string]config.MCPServerSpec
}

// NewRegistry creates a Registry over the given effective configuration. The
// project MCP server set is captured once so that agent loading merges
// against the same snapshot the rest of the session sees.
func NewRegistry(cfg *config.EffectiveConfig) (*Registry, error) {
	servers, err := cfg.MCPServers()
	if err != nil {
		return nil, err
	}
	return &Registry{
		projectDir:     cfg.ProjectDir(),
		projectServers: servers,
	}, nil
}

// List returns the sorted names of all agents in the project scope. An agent
// is any directory under .crew/agents that contains a config.toml. Without a
// project scope the list is empty.
func (r *Registry) List() ([]string, error) {
	if r.projectDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(filepath.Join(r.projectDir, AgentsDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		cfgPath := filepath.Join(r.projectDir, AgentsDirName, entry.Name(), ConfigFileName)
		if _, err := os.Stat(cfgPath); err == nil {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads one agent definition by name. It fails with NotFound when the
// agent directory or its config.toml does not exist, and with ConfigInvalid
// when the config is malformed.
//
// MCP resolution: the effective server set starts from the inline
// mcp_servers in config.toml, overridden by same-name entries from the
// sibling mcp.toml. When inherit_mcp_from_project is true, project servers
// are merged in underneath — the agent's entries win on name collision.
// Inheriting with no active project scope merges against an empty set; it is
// not an error.
func (r *Registry) Load(name string) (*Agent, error) {
	if r.projectDir == "" {
		return nil, crewerrors.NewNotFoundError("agent", name)
	}

	dir := filepath.Join(r.projectDir, AgentsDirName, name)
	cfgPath := filepath.Join(dir, ConfigFileName)

	cfg, err := loadConfigFile(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, crewerrors.NewNotFoundError("agent", name)
		}
		return nil, err
	}

	// Name defaults to the directory name.
	if cfg.Name == "" {
		cfg.Name = name
	}

	servers := make(map[string]config.MCPServerSpec, len(cfg.MCPServers))
	for k, v := range cfg.MCPServers {
		servers[k] = v
	}

	// Sibling server-map entries override inline entries with the same name.
	mapped, err := loadServerMapFile(filepath.Join(dir, ServerMapFileName))
	if err != nil {
		return nil, err
	}
	for k, v := range mapped {
		servers[k] = v
	}

	// Project inheritance fills in servers the agent does not define itself.
	if cfg.InheritMCPFromProject {
		for k, v := range r.projectServers {
			if _, exists := servers[k]; !exists {
				servers[k] = v
			}
		}
	}

	return &Agent{
		Name:       cfg.Name,
		Dir:        dir,
		Config:     cfg,
		Prompt:     loadPrompt(dir, cfg.PromptFile),
		MCPServers: servers,
	}, nil
}
