// Package testutil builds throwaway crew project trees for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crewkit/crew/internal/config"
)

// Project is a temporary project with a .crew directory. It is removed
// automatically when the test completes.
type Project struct {
	t *testing.T

	// Root is the project root; CrewDir is the .crew directory inside it.
	Root    string
	CrewDir string
}

// NewProject creates an empty project with a .crew marker directory.
func NewProject(t *testing.T) *Project {
	t.Helper()

	root := t.TempDir()
	crewDir := filepath.Join(root, config.MarkerDir)
	if err := os.MkdirAll(crewDir, 0755); err != nil {
		t.Fatalf("failed to create marker dir: %v", err)
	}

	return &Project{t: t, Root: root, CrewDir: crewDir}
}

// WriteFile writes a file at the given path relative to the .crew directory,
// creating parent directories as needed.
func (p *Project) WriteFile(rel, content string) {
	p.t.Helper()

	path := filepath.Join(p.CrewDir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		p.t.Fatalf("failed to create %s: %v", filepath.Dir(rel), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		p.t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// WriteProjectConfig writes the project-level config.toml.
func (p *Project) WriteProjectConfig(content string) {
	p.WriteFile(config.ProjectConfigName, content)
}

// WriteAgent creates an agent directory with the given files, keyed by file
// name (config.toml, AGENTS.md, mcp.toml, ...).
func (p *Project) WriteAgent(name string, files map[string]string) {
	p.t.Helper()
	for fname, content := range files {
		p.WriteFile(filepath.Join("agents", name, fname), content)
	}
}

// WriteTeam writes a team definition file.
func (p *Project) WriteTeam(name, content string) {
	p.WriteFile(filepath.Join("teams", name+".toml"), content)
}

// WriteTeamFile writes a sibling file in the teams directory, such as TEAM.md
// or a selector prompt.
func (p *Project) WriteTeamFile(name, content string) {
	p.WriteFile(filepath.Join("teams", name), content)
}

// WriteWorkflow writes a workflow definition file.
func (p *Project) WriteWorkflow(name, content string) {
	p.WriteFile(filepath.Join("workflows", name+".toml"), content)
}

// Resolve produces the effective configuration for the project, with the
// global layer pointed at a file that does not exist.
func (p *Project) Resolve() *config.EffectiveConfig {
	p.t.Helper()

	r := &config.Resolver{GlobalFile: filepath.Join(p.Root, "no-such-global.toml")}
	cfg, err := r.Resolve(p.Root, nil)
	if err != nil {
		p.t.Fatalf("failed to resolve config: %v", err)
	}
	return cfg
}
