package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/vaultstore"
)

var (
	jsonOutput bool

	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "authy",
	Short: "A local, encrypted secrets vault for developer and agent workflows",
	Long: `authy is a local, encrypted secrets vault. A single operator owns an
on-disk vault holding named secret values, access policies, and session
tokens; secrets are consumed through this CLI, shell hooks, a programmatic
client, and a JSON-RPC tool server. Every mutation is recorded in a
tamper-evident append-only audit log.`,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		reportError(err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "report errors as a machine-readable JSON envelope on stderr")

	color.NoColor = color.NoColor || !isTerminalStderr()

	rootCmd.AddGroup(
		&cobra.Group{ID: "vault", Title: "Vault Lifecycle:"},
		&cobra.Group{ID: "secrets", Title: "Secret Lifecycle:"},
		&cobra.Group{ID: "access", Title: "Access Control:"},
		&cobra.Group{ID: "execution", Title: "Execution:"},
		&cobra.Group{ID: "observability", Title: "Observability:"},
		&cobra.Group{ID: "interchange", Title: "Interchange:"},
	)
}

// vaultPaths resolves the on-disk layout for every command.
func vaultPaths() (vaultstore.Paths, error) {
	return vaultstore.DiscoverPaths()
}

// exitCodeFor maps an error to the process exit code defined in §6's table.
func exitCodeFor(err error) int {
	var engineErr *engineerrors.Error
	if errors.As(err, &engineErr) {
		return engineErr.ExitCode()
	}
	return 1
}

// reportError prints err to stderr, as a single human-readable line or, in
// --json mode, as a structured error envelope.
func reportError(err error) {
	if jsonOutput {
		printJSONError(err)
		return
	}
	statusf(color.New(color.FgRed), "Error: %v\n", err)
}

func printJSONError(err error) {
	code := "other"
	var engineErr *engineerrors.Error
	if errors.As(err, &engineErr) {
		code = engineErr.Code()
	}
	envelope := map[string]interface{}{
		"error": map[string]interface{}{
			"code":      code,
			"message":   err.Error(),
			"exit_code": exitCodeFor(err),
		},
	}
	data, _ := json.Marshal(envelope)
	fmt.Fprintln(os.Stderr, string(data))
}
