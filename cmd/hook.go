package cmd

import (
	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/hookgen"
)

var hookTokenFile string

var hookCmd = &cobra.Command{
	Use:     "hook <shell>",
	GroupID: "interchange",
	Short:   "Print a shell snippet that loads a session token on startup",
	Long: `Hook prints a snippet for bash, zsh, or fish that, when sourced, reads
AUTHY_TOKEN from a file into the shell's environment. Wire it up with:

  eval "$(authy hook bash)"     # bash/zsh
  authy hook fish | source      # fish`,
	Args: cobra.ExactArgs(1),
	RunE: runHook,
}

func init() {
	hookCmd.Flags().StringVar(&hookTokenFile, "token-file", "", "path to read AUTHY_TOKEN from (default: $AUTHY_TOKEN_FILE)")
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	snippet, err := hookgen.Generate(hookgen.Shell(args[0]), hookTokenFile)
	if err != nil {
		return err
	}
	payload(snippet)
	return nil
}
