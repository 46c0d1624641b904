package commands

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sheetview/internal/render"
	"github.com/leapstack-labs/sheetview/internal/source"
)

// Check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor [path]",
		Short: "Check the configuration and source",
		Long: `Check that the configuration is complete and the source loads, and
report configured columns or sorts that do not match the data.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format

Exits with an error when any check fails.`,
		Example: `  # Check the project in the current directory
  sheetview doctor

  # Output as JSON
  sheetview doctor -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, args)
		},
	}

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Config   string        `json:"config,omitempty"`
	Source   SourceSummary `json:"source"`
	Checks   []HealthCheck `json:"checks"`
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
}

// SourceSummary describes the loaded source.
type SourceSummary struct {
	Type    string `json:"type,omitempty"`
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
}

// HealthCheck represents a single check result.
type HealthCheck struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"` // "pass", "warn", "error"
	Details []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cc := NewCommandContext(cmd)
	withPathArg(cc, args)

	out := diagnose(cmd.Context(), cc)

	var err error
	switch cc.Renderer.Mode() {
	case render.ModeJSON:
		enc := json.NewEncoder(cc.Renderer.Out())
		enc.SetIndent("", "  ")
		err = enc.Encode(out)
	case render.ModeMarkdown, render.ModeCSV:
		renderDoctorMarkdown(cc.Renderer, out)
	default:
		renderDoctorText(cc.Renderer, out)
	}
	if err != nil {
		return err
	}

	if out.Errors > 0 {
		return fmt.Errorf("doctor found %d problem(s)", out.Errors)
	}
	return nil
}

// diagnose runs every check. Data checks are skipped when the source cannot
// be loaded.
func diagnose(ctx context.Context, cc *CommandContext) *DoctorOutput {
	cfg := cc.Cfg
	out := &DoctorOutput{
		Config: cfg.ConfigFile,
		Source: SourceSummary{Type: source.InferType(cfg.Source), Name: sourceName(cc)},
	}
	add := func(c HealthCheck) {
		switch c.Status {
		case statusError:
			out.Errors++
		case statusWarn:
			out.Warnings++
		}
		out.Checks = append(out.Checks, c)
	}

	configCheck := HealthCheck{ID: "C001", Name: "Config file", Group: "config", Status: statusPass}
	if cfg.ConfigFile == "" {
		configCheck.Status = statusWarn
		configCheck.Details = []string{"no sheetview.yaml found; using flags, environment and defaults"}
	} else {
		configCheck.Details = []string{cfg.ConfigFile}
	}
	add(configCheck)

	srcCheck := HealthCheck{ID: "S001", Name: "Source loads", Group: "source", Status: statusPass}
	if err := cfg.ValidateSource(); err != nil {
		srcCheck.Status = statusError
		srcCheck.Details = []string{firstLine(err.Error())}
		add(srcCheck)
		return out
	}
	tbl, err := source.Load(ctx, cfg.Source, cc.Logger)
	if err != nil {
		srcCheck.Status = statusError
		srcCheck.Details = []string{err.Error()}
		add(srcCheck)
		return out
	}
	out.Source.Rows, out.Source.Columns = len(tbl.Records), len(tbl.Keys)
	srcCheck.Details = []string{fmt.Sprintf("%d rows, %d columns", out.Source.Rows, out.Source.Columns)}
	add(srcCheck)

	watchCheck := HealthCheck{ID: "S002", Name: "Watchable source", Group: "source", Status: statusPass}
	if cfg.Server.Watch && !cfg.Source.IsFile() {
		watchCheck.Status = statusWarn
		watchCheck.Details = []string{"server.watch is set but the source is not a local file"}
	}
	add(watchCheck)

	shown := tbl.Keys
	colCheck := HealthCheck{ID: "V001", Name: "Configured columns exist", Group: "columns", Status: statusPass}
	if len(cfg.Columns) > 0 {
		shown = nil
		for _, col := range cfg.Columns {
			shown = append(shown, col.Key)
			if !slices.Contains(tbl.Keys, col.Key) {
				colCheck.Details = append(colCheck.Details, fmt.Sprintf("column %q has no data in the source", col.Key))
			}
		}
		if len(colCheck.Details) > 0 {
			colCheck.Status = statusWarn
		}
	}
	add(colCheck)

	hiddenCheck := HealthCheck{ID: "V002", Name: "Source fields shown", Group: "columns", Status: statusPass}
	for _, key := range tbl.Keys {
		if !slices.Contains(shown, key) {
			hiddenCheck.Details = append(hiddenCheck.Details, fmt.Sprintf("field %q is not shown", key))
		}
	}
	if len(hiddenCheck.Details) > 0 {
		hiddenCheck.Status = statusWarn
	}
	add(hiddenCheck)

	sortCheck := HealthCheck{ID: "V003", Name: "Sort columns exist", Group: "columns", Status: statusPass}
	for _, s := range cfg.Sort {
		if !slices.Contains(shown, s.Column) {
			sortCheck.Details = append(sortCheck.Details, fmt.Sprintf("sort column %q is not shown and will be ignored", s.Column))
		}
	}
	if len(sortCheck.Details) > 0 {
		sortCheck.Status = statusWarn
	}
	add(sortCheck)

	return out
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func renderDoctorText(r *render.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	// Header
	r.Println("")
	r.Println(styles.Header.Render("sheetview Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	// Source Summary
	r.Println(styles.Header.Render("Source"))
	r.Printf("   %s | Rows: %d | Columns: %d\n", out.Source.Name, out.Source.Rows, out.Source.Columns)
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Header.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case statusWarn:
			icon = styles.Warning.Render("!")
		case statusError:
			icon = styles.Error.Render("✗")
		}
		r.Printf("   %s %s: %s\n", icon, check.ID, check.Name)

		// Show first 3 details
		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Printf("   %d error(s), %d warning(s)\n", out.Errors, out.Warnings)
}

func renderDoctorMarkdown(r *render.Renderer, out *DoctorOutput) {
	r.Println("# sheetview Health Report")
	r.Println("")

	r.Println("## Source")
	r.Println("")
	r.Printf("- **Name**: %s\n", out.Source.Name)
	r.Printf("- **Rows**: %d\n", out.Source.Rows)
	r.Printf("- **Columns**: %d\n", out.Source.Columns)
	r.Println("")

	r.Println("## Checks")
	r.Println("")
	for _, check := range out.Checks {
		r.Printf("- **[%s]** %s: %s\n", strings.ToUpper(check.Status), check.ID, check.Name)
		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")
	r.Printf("**%d error(s), %d warning(s)**\n", out.Errors, out.Warnings)
}
