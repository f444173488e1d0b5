package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/backdrop/pkg/generator"
	"github.com/matzehuels/backdrop/pkg/pipeline"
	"github.com/matzehuels/backdrop/pkg/texture"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for backdrop and write it to stdout.

  bash        source <(backdrop completion bash)
  zsh         backdrop completion zsh > "${fpath[1]}/_backdrop"
  fish        backdrop completion fish > ~/.config/fish/completions/backdrop.fish
  powershell  backdrop completion powershell | Out-String | Invoke-Expression

Completions cover command names, flags, and family, density, palette and
format values for generate and inspect.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}

	return cmd
}

// completeFamilyArg completes the family of "<family> <seed>" arguments.
// Files stay available because inspect also takes a snapshot path.
func completeFamilyArg(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return generator.FamilyNames(), cobra.ShellCompDirectiveDefault
}

// registerPatternCompletions adds value completions for the pattern flags cmd
// defines.
func registerPatternCompletions(cmd *cobra.Command) {
	values := map[string][]string{
		"secondary": generator.FamilyNames(),
		"density":   {"sparse", "normal", "dense"},
		"palette":   texture.PaletteNames(),
		"format":    {pipeline.FormatPNG, pipeline.FormatPreview, pipeline.FormatJSON},
	}
	for name, choices := range values {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(choices, cobra.ShellCompDirectiveNoFileComp))
	}
}
