// Package agent loads per-agent configuration from the project's
// .crew/agents directory and resolves each agent's effective MCP server set.
package agent

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/crewkit/crew/internal/config"
	crewerrors "github.com/crewkit/crew/internal/errors"
)

// ConfigFileName is the required config file inside each agent directory.
const ConfigFileName = "config.toml"

// ServerMapFileName is the optional sibling server-map file. Entries in it
// override inline mcp_servers from config.toml on name collision.
const ServerMapFileName = "mcp.toml"

// DefaultPromptName is the prompt file used when prompt_file is not set.
const DefaultPromptName = "AGENTS.md"

// Config is the per-agent configuration schema (agents/<name>/config.toml).
type Config struct {
	Name                  string                          `toml:"name"`
	Role                  string                          `toml:"role"`
	Model                 string                          `toml:"model"`
	ModelProvider         string                          `toml:"model_provider"`
	Profile               string                          `toml:"profile"`
	PromptFile            string                          `toml:"prompt_file"`
	IncludeApplyPatchTool *bool                           `toml:"include_apply_patch_tool"`
	IncludePlanTool       *bool                           `toml:"include_plan_tool"`
	Tags                  []string                        `toml:"tags"`
	InheritMCPFromProject bool                            `toml:"inherit_mcp_from_project"`
	MCPServers            map[string]config.MCPServerSpec `toml:"mcp_servers"`
}

// Agent is a fully loaded agent definition: its parsed config, its prompt,
// and its effective MCP server set after the inheritance policy is applied.
type Agent struct {
	Name       string
	Dir        string
	Config     Config
	Prompt     string
	MCPServers map[string]config.MCPServerSpec
}

// loadConfigFile parses and validates an agent config.toml.
func loadConfigFile(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, crewerrors.NewConfigError("parsing agent config", err).WithPath(path)
	}
	if err := validateServers(cfg.MCPServers, path); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadServerMapFile parses the optional mcp.toml sibling file. A missing file
// yields an empty map.
func loadServerMapFile(path string) (map[string]config.MCPServerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]config.MCPServerSpec{}, nil
		}
		return nil, crewerrors.NewConfigError("reading server map", err).WithPath(path)
	}

	servers := map[string]config.MCPServerSpec{}
	if err := toml.Unmarshal(data, &servers); err != nil {
		return nil, crewerrors.NewConfigError("parsing server map", err).WithPath(path)
	}
	if err := validateServers(servers, path); err != nil {
		return nil, err
	}
	return servers, nil
}

// validateServers enforces the server-name pattern and required fields for
// every entry in a server table.
func validateServers(servers map[string]config.MCPServerSpec, path string) error {
	for name, spec := range servers {
		if !config.ValidServerName(name) {
			return crewerrors.NewConfigError(
				"server name must contain only letters, digits, '_' and '-'", nil).
				WithPath(path).WithSection("mcp_servers." + name)
		}
		if spec.Command == "" {
			return crewerrors.NewConfigError("command is required", nil).
				WithPath(path).WithSection("mcp_servers." + name)
		}
	}
	return nil
}

// loadPrompt reads the agent's prompt. prompt_file is resolved relative to
// the agent directory; when unset, AGENTS.md inside the directory is used.
// A missing or blank prompt is treated as absent, not an error.
func loadPrompt(dir, promptFile string) string {
	path := promptFile
	if path == "" {
		path = DefaultPromptName
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
