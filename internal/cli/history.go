package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/backdrop/pkg/history"
)

// historyCommand creates the history command.
func (c *CLI) historyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded generation runs",
	}

	cmd.AddCommand(c.historyListCommand())
	cmd.AddCommand(c.historyShowCommand())
	cmd.AddCommand(c.historyPruneCommand())

	return cmd
}

// historyListCommand creates the "history list" subcommand.
func (c *CLI) historyListCommand() *cobra.Command {
	var filter history.Filter
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), func(ctx context.Context, s *history.Store) error {
				entries, err := s.List(ctx, filter)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(entries)
				}
				if len(entries) == 0 {
					printInfo("No runs recorded")
					return nil
				}
				fmt.Println(renderHistory(entries, time.Now()))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.Level, "level", "", "only runs of this catalog level")
	cmd.Flags().StringVar(&filter.Primary, "family", "", "only runs of this primary family")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", history.DefaultLimit, "maximum number of runs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")

	return cmd
}

// historyShowCommand creates the "history show" subcommand.
func (c *CLI) historyShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run (a unique ID prefix of 8+ characters works)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), func(ctx context.Context, s *history.Store) error {
				e, err := s.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(e)
				}
				printHistoryEntry(e)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")

	return cmd
}

// historyPruneCommand creates the "history prune" subcommand.
func (c *CLI) historyPruneCommand() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the most recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(cmd.Context(), func(ctx context.Context, s *history.Store) error {
				n, err := s.Prune(ctx, keep)
				if err != nil {
					return err
				}
				printSuccess("Removed %s runs", humanize.Comma(n))
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 100, "number of runs to keep")

	return cmd
}

// withHistory opens the default history store for the duration of fn.
func withHistory(ctx context.Context, fn func(context.Context, *history.Store) error) error {
	s, err := openHistory()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderHistory renders entries as a table with times relative to now.
func renderHistory(entries []history.Entry, now time.Time) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		pattern := e.Primary
		if e.Secondary != "" {
			pattern += "+" + e.Secondary
		}
		name := e.Level
		if name == "" {
			name = fmt.Sprintf("%s #%d", pattern, e.Seed)
		}
		status := iconFresh
		if e.CacheHit {
			status = iconCached
		}
		rows[i] = []string{
			shortID(e.ID),
			humanize.RelTime(e.CreatedAt, now, "ago", "from now"),
			name,
			e.Density,
			fmt.Sprintf("%.3f", e.BiasAfter),
			humanize.Bytes(uint64(e.Bytes)),
			status,
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "When", "Pattern", "Density", "Ratio", "Size", "Source").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			e := entries[row]
			switch {
			case col == 0 || col == 1:
				return lipgloss.NewStyle().Foreground(colorDim)
			case col == 4 && !e.Converged:
				return lipgloss.NewStyle().Foreground(colorYellow)
			case col == 6 && e.CacheHit:
				return styleCached
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// shortID returns the first eight characters of a run ID, enough to pass to
// "history show".
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printHistoryEntry(e history.Entry) {
	fmt.Println(StyleTitle.Render(e.ID))
	printKeyValue("When", fmt.Sprintf("%s (%s)", e.CreatedAt.Local().Format(time.DateTime), humanize.Time(e.CreatedAt)))
	if e.Level != "" {
		printKeyValue("Level", e.Level)
	}
	printKeyValue("Primary", e.Primary)
	if e.Secondary != "" {
		printKeyValue("Accent", e.Secondary)
	}
	printKeyValue("Density", e.Density)
	printKeyValue("Counts", fmt.Sprintf("%d/%d/%d", e.MacroCount, e.MesoCount, e.MicroCount))
	printKeyValue("Seed", fmt.Sprintf("%d (%#x)", e.Seed, e.Seed))
	printKeyValue("Pattern", e.PatternHash)
	printKeyValue("Bias", fmt.Sprintf("%.3f → %.3f in %d passes", e.BiasBefore, e.BiasAfter, e.Iterations))
	printKeyValue("Duration", e.Duration.Round(time.Microsecond).String())
	printKeyValue("Size", humanize.Bytes(uint64(e.Bytes)))
	if e.CacheHit {
		printKeyValue("Source", styleCached.Render(iconCached))
	}
	if !e.Converged {
		printWarning("Macro tier stayed above the bias threshold")
	}
}
