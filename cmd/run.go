package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
	"github.com/eric8810/authy/internal/subprocess"
)

var (
	runUppercase   bool
	runReplaceDash string
	runPrefix      string
)

var runCmd = &cobra.Command{
	Use:     "run <scope> -- <command> [args...]",
	GroupID: "execution",
	Short:   "Run a command with a scope's secrets injected into its environment",
	Long: `Run injects every secret a policy scope can read into a child
process's environment, then execs it. Unlike get and env, run is never
blocked by a policy's run_only flag: subprocess injection is exactly the
access path run_only exists to still permit.`,
	Example: `  authy run ci-deploy -- ./deploy.sh
  authy run ci-deploy --uppercase --prefix APP_ -- ./deploy.sh`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runUppercase, "uppercase", false, "uppercase injected variable names")
	runCmd.Flags().StringVar(&runReplaceDash, "replace-dash", "", "replace dashes in secret names with this character")
	runCmd.Flags().StringVar(&runPrefix, "prefix", "", "prefix injected variable names")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	scope := args[0]
	command := args[1:]
	if command[0] == "--" {
		command = command[1:]
	}
	if len(command) == 0 {
		return cmd.Usage()
	}

	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, false, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	secrets, err := c.ResolveScopedSecrets(scope)
	if err != nil {
		return err
	}

	naming := subprocess.NamingOptions{Uppercase: runUppercase}
	if runReplaceDash != "" {
		r := []rune(runReplaceDash)[0]
		naming.ReplaceDash = &r
	}
	if runPrefix != "" {
		naming.Prefix = &runPrefix
	}

	exitCode, err := subprocess.RunWithSecrets(command, secrets, naming)
	if err != nil {
		return err
	}
	os.Exit(exitCode)
	return nil
}
