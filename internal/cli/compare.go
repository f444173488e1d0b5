package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/field"
	pkgio "github.com/matzehuels/backdrop/pkg/io"
)

// compareOpts holds the command-line flags for the compare command.
type compareOpts struct {
	maxMAE float64
	asJSON bool
}

// TierDiff holds the comparison of one tier in two snapshots.
type TierDiff struct {
	Name    string                   `json:"name"`
	Metrics field.Metrics            `json:"metrics"`
	Borders map[string]field.Metrics `json:"borders"`
}

// worstBorder returns the border strip with the highest MAE.
func (d TierDiff) worstBorder() (string, field.Metrics) {
	var name string
	var worst field.Metrics
	for _, b := range []string{"top", "bottom", "left", "right"} {
		if m, ok := d.Borders[b]; ok && (name == "" || m.MAE > worst.MAE) {
			name, worst = b, m
		}
	}
	return name, worst
}

// compareCommand creates the compare command.
func (c *CLI) compareCommand() *cobra.Command {
	var opts compareOpts

	cmd := &cobra.Command{
		Use:   "compare <baseline.json> <current.json>",
		Short: "Compare two pattern snapshots tier by tier",
		Long: `Compare two snapshots written by "generate -f json".

For each tier present in both snapshots the command reports mean absolute
error, RMSE and histogram distance over the whole tier and over each border
strip. With --max-mae the command exits with status 4 when any tier drifts
further than the limit, which makes it usable as a regression gate.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			diffs, err := compareSnapshots(args[0], args[1])
			if err != nil {
				return err
			}
			if opts.asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(diffs); err != nil {
					return err
				}
			} else {
				printDiffs(diffs, opts.maxMAE)
			}
			return checkDrift(diffs, opts.maxMAE)
		},
	}

	cmd.Flags().Float64Var(&opts.maxMAE, "max-mae", 0, "fail when a tier's MAE exceeds this value (0 disables)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the comparison as JSON")

	return cmd
}

// compareSnapshots loads both snapshots and compares every tier they share.
func compareSnapshots(baselinePath, currentPath string) ([]TierDiff, error) {
	baseline, err := pkgio.ImportJSON(baselinePath)
	if err != nil {
		return nil, err
	}
	current, err := pkgio.ImportJSON(currentPath)
	if err != nil {
		return nil, err
	}

	var diffs []TierDiff
	for _, bt := range baseline.Tiers {
		ct, ok := current.Tier(bt.Name)
		if !ok {
			continue
		}
		bf, cf := bt.Field(), ct.Field()
		m, err := field.Compare(bf, cf)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "tier %s", bt.Name)
		}
		borders, err := field.CompareBorders(bf, cf)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "tier %s", bt.Name)
		}
		diffs = append(diffs, TierDiff{Name: bt.Name, Metrics: m, Borders: borders})
	}
	if len(diffs) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "snapshots share no tiers")
	}
	return diffs, nil
}

// checkDrift fails when any tier's MAE exceeds limit. A zero limit disables
// the check.
func checkDrift(diffs []TierDiff, limit float64) error {
	if limit <= 0 {
		return nil
	}
	var drifted []string
	for _, d := range diffs {
		if d.Metrics.MAE > limit {
			drifted = append(drifted, d.Name)
		}
	}
	if len(drifted) == 0 {
		return nil
	}
	slices.Sort(drifted)
	return errors.New(errors.ErrCodeDrift, "tiers %v exceed MAE %.4f", drifted, limit)
}

func printDiffs(diffs []TierDiff, limit float64) {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, len(diffs))
	for i, d := range diffs {
		border, bm := d.worstBorder()
		rows[i] = []string{
			d.Name,
			fmt.Sprintf("%.4f", d.Metrics.MAE),
			fmt.Sprintf("%.4f", d.Metrics.RMSE),
			fmt.Sprintf("%.4f", d.Metrics.HistL1),
			fmt.Sprintf("%s %.4f", border, bm.MAE),
		}
	}
	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Tier", "MAE", "RMSE", "Hist L1", "Worst border").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if limit > 0 && diffs[row].Metrics.MAE > limit {
				return lipgloss.NewStyle().Foreground(colorRed)
			}
			return lipgloss.NewStyle()
		})
	fmt.Println(tbl.Render())
}
