package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/backdrop/pkg/catalog"
	"github.com/matzehuels/backdrop/pkg/errors"
	"github.com/matzehuels/backdrop/pkg/generator"
)

// catalogCommand creates the catalog command.
func (c *CLI) catalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect TOML level catalogs",
	}

	cmd.AddCommand(c.catalogListCommand())
	cmd.AddCommand(c.catalogShowCommand())

	return cmd
}

// catalogListCommand creates the "catalog list" subcommand.
func (c *CLI) catalogListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "List the levels of a catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Debug("loaded catalog", "path", args[0], "levels", cat.Len())
			fmt.Println(renderCatalog(cat))
			printDetail("%d levels in %s", cat.Len(), args[0])
			return nil
		},
	}
}

// catalogShowCommand creates the "catalog show" subcommand.
func (c *CLI) catalogShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file> <level>",
		Short: "Show the resolved request of one level",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Load(args[0])
			if err != nil {
				return err
			}
			e, ok := cat.Lookup(args[1])
			if !ok {
				return errors.New(errors.ErrCodeLevelNotFound, "level %q not in %s", args[1], args[0])
			}
			printCatalogEntry(e)
			printNewline()
			printNextStep("Generate it", fmt.Sprintf("%s generate --catalog %s --level %s", appName, args[0], e.Name))
			return nil
		},
	}
}

// renderCatalog renders the resolved levels as a table. Derived seeds are
// dimmed.
func renderCatalog(cat *catalog.Catalog) string {
	entries := cat.Entries()
	rows := make([][]string, len(entries))
	for i, e := range entries {
		r := e.Request
		rows[i] = []string{
			e.Name,
			r.Primary.String(),
			secondaryName(r.Secondary),
			r.Density.String(),
			fmt.Sprintf("%d/%d/%d", r.MacroCount, r.MesoCount, r.MicroCount),
			fmt.Sprintf("%#x", r.ZoneSeed),
			e.Palette,
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Level", "Primary", "Accent", "Density", "Counts", "Seed", "Palette").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			switch {
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case col == 5 && entries[row].Derived:
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func printCatalogEntry(e catalog.Entry) {
	r := e.Request
	fmt.Println(StyleTitle.Render(e.Name))
	printKeyValue("Primary", r.Primary.String())
	printKeyValue("Accent", secondaryName(r.Secondary))
	printKeyValue("Density", r.Density.String())
	printKeyValue("Macro", fmt.Sprint(r.MacroCount))
	printKeyValue("Meso", fmt.Sprint(r.MesoCount))
	printKeyValue("Micro", fmt.Sprint(r.MicroCount))
	seed := fmt.Sprintf("%d (%#x)", r.ZoneSeed, r.ZoneSeed)
	if e.Derived {
		seed += StyleDim.Render(" derived from name")
	}
	printKeyValue("Seed", seed)
	printKeyValue("Palette", e.Palette)
}

// secondaryName renders an absent secondary as a dash.
func secondaryName(f generator.Family) string {
	if f == generator.None {
		return "—"
	}
	return f.String()
}
