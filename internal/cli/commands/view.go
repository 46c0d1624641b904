package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sheetview/internal/render"
	"github.com/leapstack-labs/sheetview/internal/tui"
)

// ViewOptions holds options for the view command.
type ViewOptions struct {
	Title string
	Pick  bool
}

// NewViewCommand creates the view command.
func NewViewCommand() *cobra.Command {
	opts := &ViewOptions{}

	cmd := &cobra.Command{
		Use:   "view [path]",
		Short: "Browse the view in the terminal",
		Long: `Open an interactive full-screen view of the source.

Move with the arrow keys or hjkl, sort the column under the cursor with s,
select with space and submit a row with enter. Press ? for all keys.

When output is not a terminal the view is printed once instead.`,
		Example: `  # Browse a CSV file
  sheetview view people.csv

  # Pick a row and print the chosen cell
  sheetview view people.csv --pick`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Title, "title", "", "Title line (default: source name)")
	cmd.Flags().BoolVar(&opts.Pick, "pick", false, "Exit on submit and print the submitted cell")

	return cmd
}

func runView(cmd *cobra.Command, args []string, opts *ViewOptions) error {
	cc := NewCommandContext(cmd)
	withPathArg(cc, args)

	if !render.IsTerminal(cmd.OutOrStdout()) {
		cc.Logger.Debug("output is not a terminal, printing the view once")
		v, err := loadView[struct{}](cmd.Context(), cc)
		if err != nil {
			return err
		}
		return cc.Renderer.Snapshot(v.Snapshot())
	}

	v, err := loadView[*tui.Model](cmd.Context(), cc)
	if err != nil {
		return err
	}

	title := opts.Title
	if title == "" {
		title = sourceName(cc)
	}

	m, err := tui.Run(cmd.Context(), v, tui.Options{
		Title:        title,
		NoColor:      cc.Cfg.NoColor,
		ExitOnSubmit: opts.Pick,
		Input:        cmd.InOrStdin(),
		Output:       cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	if opts.Pick {
		pos, ok := m.Picked()
		if !ok {
			return fmt.Errorf("nothing was submitted")
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), v.CellText(pos.Row, pos.Column))
	}
	return nil
}

// sourceName is a short label for the configured source.
func sourceName(cc *CommandContext) string {
	src := cc.Cfg.Source
	switch {
	case src.Table != "":
		return src.Table
	case src.Path != "":
		return filepath.Base(src.Path)
	case src.Type != "":
		return src.Type
	}
	return "sheetview"
}
