package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sheetview/internal/cli/config"
	"github.com/leapstack-labs/sheetview/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Serve the view over HTTP",
		Long: `Start a local HTTP server exposing the view as a JSON API.

Endpoints:
  GET    /api/view            Current view and version
  GET    /api/events          Server-sent change events
  POST   /api/sort            Sort by {column, order}; DELETE resets the chain
  POST   /api/cursor          Move the cursor to {column, row}
  POST   /api/move            Move by {dx, dy} or {to: first_row|last_row|...}
  POST   /api/select          Select {column, row}, or the cursor cell
  DELETE /api/select          Deselect {column, row}, or clear the selection
  POST   /api/submit          Submit the cursor row
  POST   /api/column-select   Set column select {on}
  POST   /api/flags           Set {enabled, read_only, column_select}
  PUT    /api/cells           Edit {row, column, value}; DELETE clears a cell

With --watch a file source is reloaded whenever it changes.`,
		Example: `  # Serve a CSV file and reload it on change
  sheetview serve people.csv --watch

  # Serve on another port
  sheetview serve --path app.db --table users --port 9000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, args)
		},
	}

	// Defaults live in the config layer; these only override when set.
	cmd.Flags().String("host", "", fmt.Sprintf("Host to bind (default: %s)", config.DefaultHost))
	cmd.Flags().Int("port", 0, fmt.Sprintf("Port to serve on (default: %d)", config.DefaultPort))
	cmd.Flags().Bool("watch", false, "Reload the source when the file changes")
	cmd.Flags().Duration("debounce", 0, fmt.Sprintf("Wait this long after a change before reloading (default: %s)", config.DefaultDebounce))

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	withPathArg(cc, args)

	v, err := loadView[*server.Call](cmd.Context(), cc)
	if err != nil {
		return err
	}

	watch := cc.Cfg.Server.Watch
	if watch && !cc.Cfg.Source.IsFile() {
		cc.Renderer.Warnf("--watch needs a file source; not watching")
		watch = false
	}

	srv := server.New(v, server.Config{
		Addr:     cc.Cfg.Server.Addr(),
		Source:   cc.Cfg.Source,
		Columns:  cc.Cfg.SheetColumns(),
		Watch:    watch,
		Debounce: cc.Cfg.Server.Debounce,
		Logger:   cc.Logger,
	})

	cc.Renderer.Printf("Serving %s on http://%s (%d rows)\n", sourceName(cc), cc.Cfg.Server.Addr(), v.RecordCount())
	if watch {
		cc.Renderer.Printf("Watching %s for changes (debounce %s)\n", cc.Cfg.Source.Path, cc.Cfg.Server.Debounce.Round(time.Millisecond))
	}
	cc.Renderer.Println("Press Ctrl+C to stop")

	return srv.Serve(cmd.Context())
}
