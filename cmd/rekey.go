package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
	"github.com/eric8810/authy/internal/cryptoengine"
	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/vaultstore"
)

var (
	rekeyGenerateKeyfile string
	rekeyToPassphrase    bool
	rekeyNewKeyfile      string
)

var rekeyCmd = &cobra.Command{
	Use:     "rekey",
	GroupID: "vault",
	Short:   "Re-encrypt the vault under new credentials",
	Long: `Rekey authenticates with the current credential (which must carry
write access; session tokens are never accepted), re-encrypts the vault
under a new passphrase or keyfile, and invalidates every existing session
token. Exactly one of --generate-keyfile, --to-passphrase, or
--new-keyfile may be given; the default with none of them is an
interactive passphrase prompt.`,
	Args: cobra.NoArgs,
	RunE: runRekey,
}

func init() {
	rekeyCmd.Flags().StringVar(&rekeyGenerateKeyfile, "generate-keyfile", "", "generate a fresh age identity at this path and rekey to it")
	rekeyCmd.Flags().BoolVar(&rekeyToPassphrase, "to-passphrase", false, "rekey to an interactively prompted passphrase")
	rekeyCmd.Flags().StringVar(&rekeyNewKeyfile, "new-keyfile", "", "rekey to an existing age identity file")
	rootCmd.AddCommand(rekeyCmd)
}

func runRekey(cmd *cobra.Command, args []string) error {
	flagCount := 0
	if rekeyGenerateKeyfile != "" {
		flagCount++
	}
	if rekeyToPassphrase {
		flagCount++
	}
	if rekeyNewKeyfile != "" {
		flagCount++
	}
	if flagCount > 1 {
		return engineerrors.New(engineerrors.KindOther, "only one of --generate-keyfile, --to-passphrase, or --new-keyfile can be specified")
	}

	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	oldKey, ctx, err := authresolver.Resolve(paths, true, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, oldKey, ctx)
	if err != nil {
		return err
	}

	var newKey vaultstore.VaultKey
	switch {
	case rekeyGenerateKeyfile != "":
		identity, publicKey, err := cryptoengine.GenerateKeypair()
		if err != nil {
			return err
		}
		if err := os.WriteFile(rekeyGenerateKeyfile, []byte(identity), 0o600); err != nil {
			return engineerrors.Wrap(engineerrors.KindIO, err, "writing keyfile")
		}
		if err := os.WriteFile(rekeyGenerateKeyfile+".pub", []byte(publicKey), 0o644); err != nil {
			return engineerrors.Wrap(engineerrors.KindIO, err, "writing public keyfile")
		}
		statusf(colorSuccess, "Generated new keyfile: %s\n", rekeyGenerateKeyfile)
		statusf(colorSuccess, "Public key: %s\n", rekeyGenerateKeyfile+".pub")
		newKey = vaultstore.RecipientKey(identity, publicKey)

	case rekeyNewKeyfile != "":
		identity, publicKey, err := authresolver.ReadKeyfile(rekeyNewKeyfile)
		if err != nil {
			return err
		}
		newKey = vaultstore.RecipientKey(identity, publicKey)

	default:
		passphrase, err := authresolver.PromptHiddenWithConfirmation("Enter new vault passphrase", "Confirm new passphrase")
		if err != nil {
			return engineerrors.Wrap(engineerrors.KindAuthFailed, err, "reading passphrase")
		}
		newKey = vaultstore.PassphraseKey(passphrase)
	}

	if err := c.Rekey(newKey, ctx.ActorName()); err != nil {
		return err
	}

	statusf(colorSuccess, "Vault re-encrypted successfully.\n")
	statusf(colorWarn, "Warning: all existing session tokens are now invalidated.\n")
	return nil
}
