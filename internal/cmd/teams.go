package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crewkit/crew/internal/team"
)

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "Inspect the project's teams",
}

var teamsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List teams defined in the project",
	RunE:  runTeamsList,
}

var teamsShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show one team's configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runTeamsShow,
}

func init() {
	rootCmd.AddCommand(teamsCmd)
	teamsCmd.AddCommand(teamsListCmd)
	teamsCmd.AddCommand(teamsShowCmd)
}

func newTeamRegistry() (*team.Registry, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}
	return team.NewRegistry(cfg), nil
}

func runTeamsList(cmd *cobra.Command, _ []string) error {
	reg, err := newTeamRegistry()
	if err != nil {
		return err
	}

	names, err := reg.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		cmd.Println(mutedStyle.Render("no teams defined"))
		return nil
	}

	for _, name := range names {
		t, err := reg.Load(name)
		if err != nil {
			return err
		}
		cmd.Printf("%s  %s\n", titleStyle.Render(name),
			mutedStyle.Render(fmt.Sprintf("%s, %d members", t.Config.Mode, len(t.Config.Members))))
	}
	return nil
}

func runTeamsShow(cmd *cobra.Command, args []string) error {
	reg, err := newTeamRegistry()
	if err != nil {
		return err
	}

	t, err := reg.Load(args[0])
	if err != nil {
		return err
	}

	cmd.Println(titleStyle.Render(t.Name))
	printField(cmd, "mode", t.Config.Mode)
	printField(cmd, "members", strings.Join(t.Config.Members, ", "))
	if t.Config.Mode == team.ModeSelector {
		printField(cmd, "selector.model", t.Config.Selector.Model)
		printField(cmd, "selector.allow_repeated_speaker",
			fmt.Sprintf("%v", t.Config.Selector.AllowRepeatedSpeaker))
	}
	printField(cmd, "termination.max_turns", fmt.Sprintf("%d", t.MaxTurns))
	printField(cmd, "termination.mention_text", t.Config.Termination.MentionText)
	if t.Prompt != "" {
		printField(cmd, "prompt", fmt.Sprintf("%d chars", len(t.Prompt)))
	}
	return nil
}
