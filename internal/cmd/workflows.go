package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crewkit/crew/internal/agent"
	"github.com/crewkit/crew/internal/ai"
	"github.com/crewkit/crew/internal/event"
	"github.com/crewkit/crew/internal/util"
	"github.com/crewkit/crew/internal/workflow"
)

var workflowsCmd = &cobra.Command{
	Use:     "workflows",
	Aliases: []string{"workflow"},
	Short:   "List and run the project's workflows",
}

var workflowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflows defined in the project",
	RunE:  runWorkflowsList,
}

var workflowsRunCmd = &cobra.Command{
	Use:   "run <name>",
	Short: "Run a workflow",
	Long: `Run a workflow step by step. Each step gets a fresh session for its
agent or team; any step failure stops the run. Run records are written to
.crew/runs/<run-id>/run.jsonl.`,
	Args: cobra.ExactArgs(1),
	RunE: runWorkflowRun,
}

var (
	flagRunJSON        bool
	flagOutputLastMsg  string
	flagForwardLastMsg bool
)

func init() {
	rootCmd.AddCommand(workflowsCmd)
	workflowsCmd.AddCommand(workflowsListCmd)
	workflowsCmd.AddCommand(workflowsRunCmd)

	workflowsRunCmd.Flags().BoolVar(&flagRunJSON, "json", false, "print the run result as JSON instead of progress output")
	workflowsRunCmd.Flags().StringVar(&flagOutputLastMsg, "output-last-message", "", "write the run's final message text to this file")
	workflowsRunCmd.Flags().BoolVar(&flagForwardLastMsg, "forward-last-message", false, "append each step's final text to the next step's prompt")
}

func runWorkflowsList(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	reg := workflow.NewRegistry(cfg)
	names, err := reg.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		cmd.Println(mutedStyle.Render("no workflows defined"))
		return nil
	}

	for _, name := range names {
		wf, err := reg.Load(name)
		if err != nil {
			return err
		}
		line := titleStyle.Render(name)
		line += "  " + mutedStyle.Render(fmt.Sprintf("%d steps", len(wf.Config.Steps)))
		if wf.Config.Description != "" {
			line += "  " + mutedStyle.Render(wf.Config.Description)
		}
		cmd.Println(line)
	}
	return nil
}

func runWorkflowRun(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	wf, err := workflow.NewRegistry(cfg).Load(args[0])
	if err != nil {
		return err
	}

	agents, err := agent.NewRegistry(cfg)
	if err != nil {
		return err
	}
	teams, err := newTeamRegistry()
	if err != nil {
		return err
	}

	completer, err := ai.NewAnthropicClient(ai.AnthropicConfig{
		APIKey:       cfg.GetString("api_key"),
		DefaultModel: cfg.GetString("model"),
	})
	if err != nil {
		return err
	}

	bus := event.NewBus()
	if !flagRunJSON {
		subscribeProgress(cmd, bus)
	}

	opts := []workflow.RunnerOption{
		workflow.WithBus(bus),
		workflow.WithDebugLog(viper.GetString("log_level")),
	}
	if cfg.HasProject() {
		opts = append(opts, workflow.WithRunsDir(filepath.Join(cfg.ProjectDir(), workflow.RunsDirName)))
	}
	if flagForwardLastMsg {
		opts = append(opts, workflow.WithForwardLastMessage())
	}

	runner := workflow.NewRunner(agents, teams, completer, opts...)
	result, runErr := runner.Run(cmd.Context(), wf)

	if flagRunJSON {
		if err := printRunJSON(cmd, result, runErr); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	if flagOutputLastMsg != "" {
		if err := os.WriteFile(flagOutputLastMsg, []byte(result.LastMessage), 0644); err != nil {
			return fmt.Errorf("writing last message: %w", err)
		}
	}
	return nil
}

// subscribeProgress prints run progress as events arrive, in execution order.
func subscribeProgress(cmd *cobra.Command, bus *event.Bus) {
	bus.Subscribe("run.started", func(e event.Event) {
		ev := e.(event.RunStartedEvent)
		cmd.Printf("%s %s %s\n", titleStyle.Render(ev.Workflow),
			mutedStyle.Render(fmt.Sprintf("(%d steps)", ev.Steps)),
			mutedStyle.Render("run "+ev.RunID))
	})
	bus.Subscribe("step.started", func(e event.Event) {
		ev := e.(event.StepStartedEvent)
		cmd.Printf("%s %s %s\n", labelStyle.Render(fmt.Sprintf("[%d]", ev.Index+1)),
			ev.Step, mutedStyle.Render(ev.Kind+" "+ev.ID))
	})
	bus.Subscribe("turn.completed", func(e event.Event) {
		ev := e.(event.TurnCompletedEvent)
		// The line carries style escape codes, so truncate by visual width.
		line := labelStyle.Render(ev.Speaker+":") + " " + ev.Text
		cmd.Printf("    %s\n", util.TruncateANSI(line, 100))
	})
	bus.Subscribe("selection.failed", func(e event.Event) {
		ev := e.(event.SelectionFailedEvent)
		line := errStyle.Render("selection failed:") + " " + ev.Output
		cmd.Printf("    %s\n", util.TruncateANSI(line, 100))
	})
	bus.Subscribe("run.completed", func(e event.Event) {
		ev := e.(event.RunCompletedEvent)
		if ev.Success {
			cmd.Println(okStyle.Render("run completed"))
		} else {
			cmd.Println(errStyle.Render("run failed: " + ev.Error))
		}
	})
}

func printRunJSON(cmd *cobra.Command, result *workflow.RunResult, runErr error) error {
	type stepJSON struct {
		Name        string `json:"name"`
		Index       int    `json:"index"`
		Kind        string `json:"kind"`
		ID          string `json:"id"`
		Turns       int    `json:"turns"`
		LastMessage string `json:"last_message"`
	}
	out := struct {
		RunID       string     `json:"run_id"`
		Workflow    string     `json:"workflow"`
		State       string     `json:"state"`
		Steps       []stepJSON `json:"steps"`
		LastMessage string     `json:"last_message,omitempty"`
		Error       string     `json:"error,omitempty"`
	}{
		RunID:       result.RunID,
		Workflow:    result.Workflow,
		State:       string(result.State),
		Steps:       make([]stepJSON, 0, len(result.Steps)),
		LastMessage: result.LastMessage,
	}
	for _, s := range result.Steps {
		out.Steps = append(out.Steps, stepJSON(s))
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
