package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	crewerrors "github.com/crewkit/crew/internal/errors"
	"github.com/crewkit/crew/internal/runlog"
	"github.com/crewkit/crew/internal/util"
	"github.com/crewkit/crew/internal/workflow"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect past workflow runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the run log of one run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
}

// runsDir returns the project's runs directory, or an error without a
// project scope.
func runsDir() (string, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return "", err
	}
	if !cfg.HasProject() {
		return "", crewerrors.New("no project found (missing .crew directory)")
	}
	return filepath.Join(cfg.ProjectDir(), workflow.RunsDirName), nil
}

func runRunsList(cmd *cobra.Command, _ []string) error {
	dir, err := runsDir()
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			cmd.Println(mutedStyle.Render("no runs recorded"))
			return nil
		}
		return err
	}

	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		records, err := runlog.Read(filepath.Join(dir, id))
		if err != nil || len(records) == 0 {
			cmd.Printf("%s  %s\n", id, mutedStyle.Render("(empty)"))
			continue
		}
		first, last := records[0], records[len(records)-1]
		status := mutedStyle.Render("incomplete")
		if last.Kind == "run.completed" {
			if last.Outcome == runlog.OutcomeOK {
				status = okStyle.Render("completed")
			} else {
				status = errStyle.Render("failed")
			}
		}
		cmd.Printf("%s  %s  %s  %s\n", id, first.Workflow,
			first.Time.Format("2006-01-02 15:04:05"), status)
	}
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	dir, err := runsDir()
	if err != nil {
		return err
	}

	records, err := runlog.Read(filepath.Join(dir, args[0]))
	if err != nil {
		if os.IsNotExist(err) {
			return crewerrors.NewNotFoundError("run", args[0])
		}
		return err
	}

	for _, r := range records {
		line := fmt.Sprintf("%s  %s", r.Time.Format("15:04:05"), labelStyle.Render(r.Kind))
		if r.Step != "" {
			line += "  " + r.Step
		}
		if r.Actor != "" {
			line += "  " + r.Actor
		}
		if r.Kind == "turn.completed" {
			line += "  " + mutedStyle.Render(util.TruncateString(r.Text, 80))
		}
		if r.Outcome == runlog.OutcomeFailed {
			line += "  " + errStyle.Render(r.Error)
		}
		cmd.Println(line)
	}
	return nil
}
