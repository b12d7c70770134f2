package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand prints a shell completion script. Besides commands and
// flags, the scripts complete plant ids for --select on view and snapshot.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Print a shell completion script",
		Long: `Print a completion script for the given shell to stdout.

The script completes ecomap's commands and flags. For --select on view
and snapshot it offers the plant ids from the configured plant source,
with each plant's name as the description where the shell shows one.`,
		Example: `  # current bash session
  source <(ecomap completion bash)

  # zsh, installed on fpath
  ecomap completion zsh > "${fpath[1]}/_ecomap"

  # fish
  ecomap completion fish > ~/.config/fish/completions/ecomap.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}
