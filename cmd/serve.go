package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/rpcserver"
)

var serveTool bool

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "interchange",
	Short:   "Run a line-delimited JSON-RPC tool server over stdio",
	Long: `Serve authenticates once using the normal credential resolution
order, then reads JSON-RPC 2.0 requests from stdin and writes responses
to stdout, one per line, until stdin closes. Exposed methods are
secrets.get, secrets.list, and secrets.testPolicy. Requires --tool.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveTool, "tool", false, "confirm intent to run the tool server")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if !serveTool {
		statusf(colorError, "authy serve requires --tool\n")
		return engineerrors.New(engineerrors.KindOther, "authy serve requires --tool")
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

	server := rpcserver.New(c)
	return server.Serve(os.Stdin, os.Stdout)
}
