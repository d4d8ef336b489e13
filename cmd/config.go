package cmd

import (
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/engineconfig"
	"github.com/eric8810/authy/internal/engineerrors"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "observability",
	Short:   "Inspect engine configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	paths, err := vaultPaths()
	if err != nil {
		return err
	}

	cfg, err := engineconfig.Load(paths.ConfigPath())
	if err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return engineerrors.Wrap(engineerrors.KindOther, err, "serializing configuration")
	}
	payload(string(data))
	return nil
}
