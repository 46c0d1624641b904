package commands

import (
	"github.com/spf13/cobra"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [path]",
		Short: "Print the view once",
		Long: `Load the source, apply the configured sorts and print the view.

Output adapts to environment:
  - Terminal: Boxed table with sort indicators
  - Piped/Scripted: Markdown table

Use --output to force table, csv, json or markdown.`,
		Example: `  # Print a CSV file sorted by department, then name
  sheetview render people.csv --sort dept --sort name

  # Query a SQLite database and emit JSON
  sheetview render --path app.db --query "SELECT * FROM users" -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args)
		},
	}

	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	withPathArg(cc, args)

	v, err := loadView[struct{}](cmd.Context(), cc)
	if err != nil {
		return err
	}
	return cc.Renderer.Snapshot(v.Snapshot())
}

// withPathArg points the source at a positional path argument, if given.
func withPathArg(cc *CommandContext, args []string) {
	if len(args) == 0 {
		return
	}
	cfg := *cc.Cfg
	cfg.Source.Path = args[0]
	cc.Cfg = &cfg
}
