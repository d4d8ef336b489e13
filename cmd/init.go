package cmd

import (
	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
)

var (
	initGenerateKeyfile string
	initPassphraseFlag  string
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "vault",
	Short:   "Initialize a new vault",
	Long: `Initialize creates a new, empty vault at ~/.authy/vault.age.

By default you are prompted for a master passphrase. Pass --generate-keyfile
to create a recipient-key vault instead, writing a fresh age identity (and
its public half) to the given path.`,
	Example: `  # Initialize a passphrase-sealed vault
  authy init

  # Initialize a recipient-key vault
  authy init --generate-keyfile ~/.authy/id.age`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initGenerateKeyfile, "generate-keyfile", "", "generate a new age identity at this path instead of using a passphrase")
	initCmd.Flags().StringVar(&initPassphraseFlag, "passphrase", "", "master passphrase (prefer AUTHY_PASSPHRASE; avoid shell history)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	paths, err := vaultPaths()
	if err != nil {
		return err
	}

	key, err := authresolver.ResolveForInit(initPassphraseFlag, initGenerateKeyfile, authresolver.PromptHiddenWithConfirmation)
	if err != nil {
		return err
	}

	actor := "master(passphrase)"
	if initGenerateKeyfile != "" {
		actor = "master(keyfile)"
	}
	c, err := client.New(paths, key, actor)
	if err != nil {
		return err
	}
	if err := c.InitVault(); err != nil {
		return err
	}

	statusf(colorSuccess, "Vault initialized at %s\n", paths.VaultPath())
	return nil
}
