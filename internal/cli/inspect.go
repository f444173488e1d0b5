package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/backdrop/pkg/bias"
	"github.com/matzehuels/backdrop/pkg/compose"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/field"
	pkgio "github.com/matzehuels/backdrop/pkg/io"
	"github.com/matzehuels/backdrop/pkg/pipeline"
	"github.com/matzehuels/backdrop/pkg/texture"
)

// inspectOpts holds the command-line flags for the inspect command.
type inspectOpts struct {
	secondary string
	density   string
	asJSON    bool
}

// TierReport summarizes one tier of an inspected pattern.
type TierReport struct {
	Name    string        `json:"name"`
	Width   int           `json:"width"`
	Height  int           `json:"height"`
	Summary field.Summary `json:"summary"`
	Bias    bias.Report   `json:"bias"`
}

// InspectReport is the output of the inspect command.
type InspectReport struct {
	Request    compose.Request `json:"request"`
	Tiers      []TierReport    `json:"tiers"`
	Correction bias.Result     `json:"correction"`
}

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var opts inspectOpts

	cmd := &cobra.Command{
		Use:   "inspect <snapshot.json | family seed>",
		Short: "Show value statistics and center bias for each tier",
		Long: `Inspect a pattern tier by tier.

The pattern is read from a snapshot written by "generate -f json", or
generated in memory from a family and seed. For every tier the command
prints the value distribution and the center/periphery ratio; for the macro
tier it also shows how bias correction got there.`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: completeFamilyArg,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.runInspect(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			if opts.asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printInspectReport(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.secondary, "secondary", "", "secondary (accent) family when generating")
	cmd.Flags().StringVar(&opts.density, "density", "", "density when generating")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	registerPatternCompletions(cmd)

	return cmd
}

// runInspect builds the report from a snapshot path or a family and seed.
func (c *CLI) runInspect(ctx context.Context, args []string, opts inspectOpts) (*InspectReport, error) {
	logger := loggerFromContext(ctx)

	if len(args) == 1 {
		snap, err := pkgio.ImportJSON(args[0])
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded snapshot", "path", args[0], "request", snap.Request)
		return reportFromSnapshot(snap), nil
	}

	seed, err := errors.ParseSeed(args[1])
	if err != nil {
		return nil, err
	}
	popts := pipeline.Options{Primary: args[0], Secondary: opts.secondary, Density: opts.density, Seed: seed}
	popts.SetRequestDefaults()
	req, err := popts.Request()
	if err != nil {
		return nil, err
	}
	sprites := compose.New(nil, compose.WithLogger(logger)).Generate(req)
	return reportFromSprites(req, sprites), nil
}

func reportFromSnapshot(s *pkgio.Snapshot) *InspectReport {
	r := &InspectReport{Request: s.Request, Correction: s.Correction}
	for _, t := range s.Tiers {
		r.Tiers = append(r.Tiers, tierReport(t.Name, t.Field()))
	}
	return r
}

func reportFromSprites(req compose.Request, s *compose.Sprites) *InspectReport {
	r := &InspectReport{Request: req, Correction: s.Correction}
	for _, t := range compose.Tiers {
		r.Tiers = append(r.Tiers, tierReport(t.String(), texture.FieldFromImage(s.Tier(t).Image)))
	}
	return r
}

func tierReport(name string, f *field.Field) TierReport {
	return TierReport{
		Name:    name,
		Width:   f.Width,
		Height:  f.Height,
		Summary: field.Summarize(f),
		Bias:    bias.Measure(f),
	}
}

func printInspectReport(r *InspectReport) {
	fmt.Println(StyleTitle.Render(r.Request.String()))
	printNewline()

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, len(r.Tiers))
	for i, t := range r.Tiers {
		s := t.Summary
		rows[i] = []string{
			t.Name,
			fmt.Sprintf("%dx%d", t.Width, t.Height),
			fmt.Sprintf("%.3f", s.Mean),
			fmt.Sprintf("%.3f", s.StdDev),
			fmt.Sprintf("%.3f", s.P05),
			fmt.Sprintf("%.3f", s.P50),
			fmt.Sprintf("%.3f", s.P95),
			fmt.Sprintf("%.2f", s.Contrast),
			fmt.Sprintf("%.3f", t.Bias.Ratio),
		}
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Tier", "Size", "Mean", "StdDev", "P05", "P50", "P95", "Contrast", "Ratio").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 8 && r.Tiers[row].Bias.Biased() {
				return lipgloss.NewStyle().Foreground(colorYellow)
			}
			return lipgloss.NewStyle()
		})
	fmt.Println(tbl.Render())
	printNewline()

	corr := r.Correction
	printKeyValue("Bias before", fmt.Sprintf("%.3f", corr.Before.Ratio))
	printKeyValue("Bias after", fmt.Sprintf("%.3f", corr.After.Ratio))
	if len(corr.Ratios) > 1 {
		steps := make([]string, len(corr.Ratios))
		for i, v := range corr.Ratios {
			steps[i] = fmt.Sprintf("%.3f", v)
		}
		printKeyValue("Passes", strings.Join(steps, " → "))
	}
	switch {
	case corr.Iterations == 0 && !corr.After.Biased():
		printSuccess("Macro tier within threshold %.2f", bias.Threshold)
	case corr.Converged:
		printSuccess("Corrected in %d passes", corr.Iterations)
	default:
		msg := fmt.Sprintf("Still biased after %d passes", corr.Iterations)
		if corr.RolledBack {
			msg += " (last pass rolled back)"
		}
		printWarning("%s", msg)
	}
}
