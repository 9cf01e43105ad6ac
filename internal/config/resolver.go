// Package config implements crew's layered configuration model. Configuration
// is assembled from up to four scopes — global, project, agent, and CLI
// overrides — each an immutable TOML value tree. Resolution deep-merges the
// applicable layers in precedence order into one EffectiveConfig; nothing is
// ever mutated in place, so a changed input requires a fresh Resolve call.
package config

import (
	"os"
	"path/filepath"
)

// MarkerDir is the project marker directory that roots a crew project.
const MarkerDir = ".crew"

// ProjectConfigName is the config file inside the marker directory.
const ProjectConfigName = "config.toml"

// Resolver discovers configuration layers and merges them into an
// EffectiveConfig.
type Resolver struct {
	// GlobalFile overrides the global config path; defaults to
	// GlobalConfigFile(). Mainly for tests.
	GlobalFile string
}

// EffectiveConfig is the fully merged configuration for one invocation.
// It is immutable once produced; accessors return copies.
type EffectiveConfig struct {
	projectDir string // path to the .crew directory, empty if none found
	layers     []Layer
	values     map[string]any
}

// Resolve discovers the project scope starting at cwd and merges
// global + project + CLI override layers into one EffectiveConfig.
//
// Discovery walks upward from cwd until a .crew directory is found or the
// filesystem root is reached. Absence of a project marker is not an error;
// resolution proceeds with the global and CLI layers only.
//
// cliOverrides entries take the form "dotted.path=value" (see ParseOverrides).
func (r *Resolver) Resolve(cwd string, cliOverrides []string) (*EffectiveConfig, error) {
	globalFile := r.GlobalFile
	if globalFile == "" {
		globalFile = GlobalConfigFile()
	}

	global, err := loadLayerFile(ScopeGlobal, globalFile)
	if err != nil {
		return nil, err
	}

	layers := []Layer{global}

	projectDir := FindProjectDir(cwd)
	if projectDir != "" {
		project, err := loadLayerFile(ScopeProject, filepath.Join(projectDir, ProjectConfigName))
		if err != nil {
			return nil, err
		}
		layers = append(layers, project)
	}

	if len(cliOverrides) > 0 {
		overrideValues, err := ParseOverrides(cliOverrides)
		if err != nil {
			return nil, err
		}
		layers = append(layers, Layer{Scope: ScopeCLIOverride, Values: overrideValues})
	}

	merged := map[string]any{}
	for _, layer := range layers {
		merged = Merge(merged, layer.Values)
	}

	return &EffectiveConfig{
		projectDir: projectDir,
		layers:     layers,
		values:     merged,
	}, nil
}

// FindProjectDir walks upward from cwd through parent directories and returns
// the first .crew directory found, or "" if none exists up to the filesystem
// root.
func FindProjectDir(cwd string) string {
	dir, err := filepath.Abs(cwd)
	if err != nil {
		return ""
	}

	for {
		marker := filepath.Join(dir, MarkerDir)
		if info, err := os.Stat(marker); err == nil && info.IsDir() {
			return marker
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ProjectDir returns the discovered .crew directory, or "" when resolution ran
// without a project scope.
func (c *EffectiveConfig) ProjectDir() string {
	return c.projectDir
}

// HasProject reports whether a project scope was discovered.
func (c *EffectiveConfig) HasProject() bool {
	return c.projectDir != ""
}

// Values returns a deep copy of the merged value tree.
func (c *EffectiveConfig) Values() map[string]any {
	return Merge(nil, c.values)
}

// Layers returns the layers that contributed to this config, lowest
// precedence first.
func (c *EffectiveConfig) Layers() []Layer {
	out := make([]Layer, len(c.layers))
	copy(out, c.layers)
	return out
}

// Get returns the value at a dotted path in the merged tree. Tables and
// arrays are deep-copied so callers cannot mutate the resolved config.
func (c *EffectiveConfig) Get(path string) (any, bool) {
	v, ok := lookup(c.values, splitPath(path))
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// GetString returns the string value at a dotted path, or "" if the path is
// absent or not a string.
func (c *EffectiveConfig) GetString(path string) string {
	v, ok := c.Get(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// MCPServers returns the project-scope MCP server set from the merged config.
// The result is keyed by server name and validated against the server name
// pattern. An absent mcp_servers table yields an empty map.
func (c *EffectiveConfig) MCPServers() (map[string]MCPServerSpec, error) {
	raw, ok := c.values["mcp_servers"]
	if !ok {
		return map[string]MCPServerSpec{}, nil
	}
	table, ok := raw.(map[string]any)
	if !ok {
		return nil, badMCPTable("mcp_servers")
	}
	return decodeMCPServers(table, "")
}
