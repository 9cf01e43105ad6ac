// Package workflow loads workflow definitions and runs them: an ordered list
// of steps, each executed in a fresh, isolated agent or team session.
package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/crewkit/crew/internal/config"
	crewerrors "github.com/crewkit/crew/internal/errors"
)

// WorkflowsDirName is the directory under the project marker that holds
// workflow files.
const WorkflowsDirName = "workflows"

// Step types.
const (
	StepAgent = "agent"
	StepTeam  = "team"
)

// Config is the workflow configuration schema (workflows/<name>.toml).
type Config struct {
	Name        string                `toml:"name"`
	Description string                `toml:"description"`
	Steps       []string              `toml:"steps"`
	StepDefs    map[string]StepConfig `toml:"step"`
}

// StepConfig defines one step. MaxTurns overrides the referenced team's own
// turn cap for that step only; zero means no override.
type StepConfig struct {
	Type     string `toml:"type"`
	ID       string `toml:"id"`
	Prompt   string `toml:"prompt"`
	MaxTurns int    `toml:"max_turns"`
}

// Workflow is a loaded and validated workflow definition.
type Workflow struct {
	Name   string
	Path   string
	Config Config
}

// Step returns the definition for a listed step name.
func (w *Workflow) Step(name string) StepConfig {
	return w.Config.StepDefs[name]
}

// Registry enumerates and loads workflows from the resolved project scope.
type Registry struct {
	projectDir string
}

// NewRegistry creates a Registry over the given effective configuration.
func NewRegistry(cfg *config.EffectiveConfig) *Registry {
	return &Registry{projectDir: cfg.ProjectDir()}
}

// List returns the sorted names of all workflows in the project scope.
func (r *Registry) List() ([]string, error) {
	if r.projectDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(filepath.Join(r.projectDir, WorkflowsDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".toml") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".toml"))
	}
	sort.Strings(names)
	return names, nil
}

// Load reads and validates one workflow by name. Every name listed in steps
// must have a [step.<name>] table with a valid type and a non-empty id; this
// is checked here, before any step runs.
func (r *Registry) Load(name string) (*Workflow, error) {
	if r.projectDir == "" {
		return nil, crewerrors.NewNotFoundError("workflow", name)
	}

	path := filepath.Join(r.projectDir, WorkflowsDirName, name+".toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, crewerrors.NewNotFoundError("workflow", name)
		}
		return nil, crewerrors.NewConfigError("reading workflow config", err).WithPath(path)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, crewerrors.NewConfigError("parsing workflow config", err).WithPath(path)
	}

	if cfg.Name == "" {
		cfg.Name = name
	}

	if err := validate(cfg, path); err != nil {
		return nil, err
	}

	return &Workflow{Name: cfg.Name, Path: path, Config: cfg}, nil
}

func validate(cfg Config, path string) error {
	if len(cfg.Steps) == 0 {
		return crewerrors.NewConfigError("steps must not be empty", nil).
			WithPath(path).WithSection("steps")
	}

	seen := make(map[string]bool, len(cfg.Steps))
	for _, name := range cfg.Steps {
		if seen[name] {
			return crewerrors.NewConfigError(
				fmt.Sprintf("step '%s' listed more than once", name), nil).
				WithPath(path).WithSection("steps")
		}
		seen[name] = true

		def, ok := cfg.StepDefs[name]
		if !ok {
			return crewerrors.NewConfigError(
				fmt.Sprintf("step '%s' is listed but has no [step.%s] table", name, name), nil).
				WithPath(path).WithSection("steps")
		}
		if def.Type != StepAgent && def.Type != StepTeam {
			return crewerrors.NewConfigError(
				"type must be 'agent' or 'team'", nil).
				WithPath(path).WithSection("step." + name)
		}
		if def.ID == "" {
			return crewerrors.NewConfigError("id is required", nil).
				WithPath(path).WithSection("step." + name)
		}
		if def.MaxTurns < 0 {
			return crewerrors.NewConfigError("max_turns must not be negative", nil).
				WithPath(path).WithSection("step." + name)
		}
	}

	return nil
}
