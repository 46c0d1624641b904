package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sheetview/internal/cli/config"
	"github.com/leapstack-labs/sheetview/internal/render"
	"github.com/leapstack-labs/sheetview/internal/source"
	"github.com/leapstack-labs/sheetview/pkg/cell"
	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *render.Renderer
}

// NewCommandContext builds a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.GetConfig(cmd.Context())
	logger := config.GetLogger(cmd.Context())

	// Validated by LoadConfig, so an error can only come from a config
	// built by hand; fall back to auto then.
	mode, _ := render.ParseMode(cfg.Output)
	r := render.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode, cfg.NoColor)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// loadView reads the configured source into a new view, then applies the
// configured sorts and view flags.
func loadView[C any](ctx context.Context, cc *CommandContext) (*sheet.View[cell.Value, C], error) {
	if err := cc.Cfg.ValidateSource(); err != nil {
		return nil, err
	}

	tbl, err := source.Load(ctx, cc.Cfg.Source, cc.Logger)
	if err != nil {
		return nil, err
	}

	v := sheet.New[cell.Value, C]()
	source.Apply(v, tbl, cc.Cfg.SheetColumns())
	applyConfig(v, cc)
	return v, nil
}

// applyConfig applies sorts and flags. Sorts run before the flags so a view
// configured as disabled still starts sorted.
func applyConfig[C any](v *sheet.View[cell.Value, C], cc *CommandContext) {
	for _, s := range cc.Cfg.Sort {
		if !v.SortByColumn(s.Column, s.Order == sheet.Ascending) {
			cc.Renderer.Warnf("ignoring sort on unknown column %q", s.Column)
		}
	}
	v.SetReadOnly(cc.Cfg.View.ReadOnly)
	v.SetColumnSelect(cc.Cfg.View.ColumnSelect)
	v.SetEnabled(!cc.Cfg.View.Disabled)
}
