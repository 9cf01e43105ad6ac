package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	crewerrors "github.com/crewkit/crew/internal/errors"
)

// Scope identifies where a configuration layer came from. Scopes are listed
// lowest precedence first; merging applies them strictly in this order.
type Scope int

const (
	// ScopeGlobal is the user-wide config file under the crew config dir.
	ScopeGlobal Scope = iota
	// ScopeProject is the config file inside the project's .crew directory.
	ScopeProject
	// ScopeAgent is a per-agent config contribution.
	ScopeAgent
	// ScopeCLIOverride is the set of -c key=value overrides; always wins.
	ScopeCLIOverride
)

// String returns the string representation of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeGlobal:
		return "global"
	case ScopeProject:
		return "project"
	case ScopeAgent:
		return "agent"
	case ScopeCLIOverride:
		return "cli"
	default:
		return "unknown"
	}
}

// Layer is one named source of configuration values with a fixed precedence
// rank. Layers are immutable once loaded; a changed file requires a fresh
// resolution.
type Layer struct {
	Scope  Scope
	Path   string // file the layer came from, empty for CLI overrides
	Values map[string]any
}

// loadLayerFile parses a TOML file into a layer value tree. A missing file is
// not an error; it yields an empty tree so resolution can proceed with the
// remaining layers.
func loadLayerFile(scope Scope, path string) (Layer, error) {
	layer := Layer{Scope: scope, Path: path, Values: map[string]any{}}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return layer, nil
		}
		return layer, crewerrors.NewConfigError("reading config file", err).WithPath(path)
	}

	if err := toml.Unmarshal(data, &layer.Values); err != nil {
		return layer, crewerrors.NewConfigError("parsing config file", err).WithPath(path)
	}
	return layer, nil
}

// GlobalConfigDir returns the path to the user's crew config directory.
func GlobalConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "crew")
	}
	// Fall back to ~/.config/crew
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crew"
	}
	return filepath.Join(home, ".config", "crew")
}

// GlobalConfigFile returns the path to the global config file.
func GlobalConfigFile() string {
	return filepath.Join(GlobalConfigDir(), "config.toml")
}
