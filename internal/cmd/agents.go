package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crewkit/crew/internal/agent"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect the project's agents",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List agents defined in the project",
	RunE:  runAgentsList,
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one agent's configuration and effective MCP servers",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsShow,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsShowCmd)
}

func newAgentRegistry() (*agent.Registry, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	return agent.NewRegistry(cfg)
}

func runAgentsList(cmd *cobra.Command, _ []string) error {
	reg, err := newAgentRegistry()
	if err != nil {
		return err
	}

	names, err := reg.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		cmd.Println(mutedStyle.Render("no agents defined"))
		return nil
	}

	for _, name := range names {
		a, err := reg.Load(name)
		if err != nil {
			return err
		}
		line := titleStyle.Render(name)
		if a.Config.Role != "" {
			line += "  " + mutedStyle.Render(a.Config.Role)
		}
		cmd.Println(line)
	}
	return nil
}

func runAgentsShow(cmd *cobra.Command, args []string) error {
	reg, err := newAgentRegistry()
	if err != nil {
		return err
	}

	a, err := reg.Load(args[0])
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render(a.Name))
	printField(cmd, "role", a.Config.Role)
	printField(cmd, "model", a.Config.Model)
	printField(cmd, "model_provider", a.Config.ModelProvider)
	printField(cmd, "profile", a.Config.Profile)
	printField(cmd, "tags", strings.Join(a.Config.Tags, ", "))
	printField(cmd, "inherit_mcp_from_project", fmt.Sprintf("%v", a.Config.InheritMCPFromProject))
	if a.Prompt != "" {
		printField(cmd, "prompt", fmt.Sprintf("%d chars", len(a.Prompt)))
	}

	if len(a.MCPServers) > 0 {
		cmd.Println(labelStyle.Render("mcp_servers:"))
		names := make([]string, 0, len(a.MCPServers))
		for name := range a.MCPServers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			spec := a.MCPServers[name]
			cmd.Printf("  %s  %s\n", name, mutedStyle.Render(strings.Join(append([]string{spec.Command}, spec.Args...), " ")))
		}
	}
	return nil
}

func printField(cmd *cobra.Command, label, value string) {
	if value == "" {
		return
	}
	cmd.Printf("%s %s\n", labelStyle.Render(label+":"), value)
}
