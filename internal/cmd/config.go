package cmd

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the merged configuration for the current directory",
	Long: `Show the effective configuration after merging the global config, the
project config, and any -c overrides, in precedence order.`,
	RunE: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	if cfg.HasProject() {
		cmd.Println(mutedStyle.Render("# project: " + cfg.ProjectDir()))
	} else {
		cmd.Println(mutedStyle.Render("# no project scope"))
	}
	for _, layer := range cfg.Layers() {
		if layer.Path != "" {
			cmd.Println(mutedStyle.Render("# layer " + layer.Scope.String() + ": " + layer.Path))
		} else {
			cmd.Println(mutedStyle.Render("# layer " + layer.Scope.String()))
		}
	}

	values := cfg.Values()
	if len(values) == 0 {
		cmd.Println(mutedStyle.Render("# empty"))
		return nil
	}

	data, err := toml.Marshal(values)
	if err != nil {
		return err
	}
	cmd.Print(string(data))
	return nil
}
