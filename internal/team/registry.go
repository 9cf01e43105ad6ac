// Package team loads team definitions from the project's .crew/teams
// directory and implements the speaker and termination policies that drive a
// team conversation.
package team

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/crewkit/crew/internal/config"
	crewerrors "github.com/crewkit/crew/internal/errors"
)

// TeamsDirName is the directory under the project marker that holds teams.
const TeamsDirName = "teams"

// DefaultPromptName is the prompt file used when prompt_file is not set. It
// is resolved relative to the teams directory.
const DefaultPromptName = "TEAM.md"

// DefaultMaxTurns applies when a team omits the [termination] table entirely.
// An explicit max_turns of zero or below is a validation error, not a request
// for the default.
const DefaultMaxTurns = 10

// Conversation modes.
const (
	ModeRoundRobin = "round_robin"
	ModeSelector   = "selector"
)

// Config is the team configuration schema (teams/<name>.toml).
type Config struct {
	Name        string            `toml:"name"`
	Mode        string            `toml:"mode"`
	PromptFile  string            `toml:"prompt_file"`
	Members     []string          `toml:"members"`
	Selector    SelectorConfig    `toml:"selector"`
	Termination TerminationConfig `toml:"termination"`
}

// SelectorConfig configures the model that picks the next speaker when the
// team runs in selector mode.
type SelectorConfig struct {
	Model                string `toml:"model"`
	PromptFile           string `toml:"prompt_file"`
	AllowRepeatedSpeaker bool   `toml:"allow_repeated_speaker"`
}

// TerminationConfig bounds a team conversation. MaxTurns is a pointer so an
// absent value can default while an explicit non-positive value fails
// validation.
type TerminationConfig struct {
	MaxTurns    *int   `toml:"max_turns"`
	MentionText string `toml:"mention_text"`
}

// Team is a fully loaded team definition: its validated config, its prompt,
// and the selector prompt preamble when one is configured.
type Team struct {
	Name           string
	Path           string
	Config         Config
	Prompt         string
	SelectorPrompt string
	MaxTurns       int
}

// Registry enumerates and loads teams from the resolved project scope. Like
// agents, teams exist only in the project scope, and definitions are re-read
// on every Load.
type Registry struct {
	projectDir string
}

// NewRegistry creates a Registry over the given effective configuration.
func NewRegistry(cfg *config.EffectiveConfig) *Registry {
	return &Registry{projectDir: cfg.ProjectDir()}
}

// List returns the sorted names of all teams in the project scope. A team is
// any .toml file under .crew/teams; the name is the file stem.
func (r *Registry) List() ([]string, error) {
	if r.projectDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(filepath.Join(r.projectDir, TeamsDirName))
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

// Load reads and validates one team definition by name. All cross-field
// validation happens here, before any turn is attempted: selector mode
// requires a selector model, members must be non-empty, and max_turns must be
// at least one when set.
func (r *Registry) Load(name string) (*Team, error) {
	if r.projectDir == "" {
		return nil, crewerrors.NewNotFoundError("team", name)
	}

	dir := filepath.Join(r.projectDir, TeamsDirName)
	path := filepath.Join(dir, name+".toml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, crewerrors.NewNotFoundError("team", name)
		}
		return nil, crewerrors.NewConfigError("reading team config", err).WithPath(path)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, crewerrors.NewConfigError("parsing team config", err).WithPath(path)
	}

	if cfg.Name == "" {
		cfg.Name = name
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeRoundRobin
	}

	if err := validate(cfg, path); err != nil {
		return nil, err
	}

	maxTurns := DefaultMaxTurns
	if cfg.Termination.MaxTurns != nil {
		maxTurns = *cfg.Termination.MaxTurns
	}

	return &Team{
		Name:           cfg.Name,
		Path:           path,
		Config:         cfg,
		Prompt:         loadPrompt(dir, cfg.PromptFile, DefaultPromptName),
		SelectorPrompt: loadPrompt(dir, cfg.Selector.PromptFile, ""),
		MaxTurns:       maxTurns,
	}, nil
}

func validate(cfg Config, path string) error {
	switch cfg.Mode {
	case ModeRoundRobin, ModeSelector:
	default:
		return crewerrors.NewConfigError(
			"mode must be 'round_robin' or 'selector'", nil).
			WithPath(path).WithSection("mode")
	}

	if len(cfg.Members) == 0 {
		return crewerrors.NewConfigError("members must not be empty", nil).
			WithPath(path).WithSection("members")
	}

	if cfg.Mode == ModeSelector && cfg.Selector.Model == "" {
		return crewerrors.NewConfigError(
			"mode 'selector' requires selector.model", nil).
			WithPath(path).WithSection("selector")
	}

	if cfg.Termination.MaxTurns != nil && *cfg.Termination.MaxTurns < 1 {
		return crewerrors.NewConfigError("max_turns must be at least 1", nil).
			WithPath(path).WithSection("termination")
	}

	return nil
}

// loadPrompt reads a prompt file relative to the teams directory. When
// promptFile is empty the fallback name is tried instead; an empty fallback
// means no default. A missing or blank file yields an empty prompt.
func loadPrompt(dir, promptFile, fallback string) string {
	path := promptFile
	if path == "" {
		path = fallback
	}
	if path == "" {
		return ""
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
