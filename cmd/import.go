package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/importadapter"
)

var (
	importFrom      string
	importPath      string
	importKeepNames bool
	importPrefix    string
	importForce     bool
	importDryRun    bool
)

var importCmd = &cobra.Command{
	Use:     "import [file]",
	GroupID: "interchange",
	Short:   "Import secrets from a dotenv file, pass, or sops",
	Long: `Import reads name/value pairs from an external source and stores
each under a transformed name (lower-kebab-case by default, or the raw
name with --keep-names). --dry-run reports what would happen without
writing anything; --force overwrites secrets that already exist.`,
	Example: `  authy import .env
  authy import --from pass
  authy import --from sops secrets.enc.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFrom, "from", "dotenv", "source: dotenv, pass, or sops")
	importCmd.Flags().StringVar(&importPath, "path", "", "pass store prefix (used only with --from pass; sops takes its file positionally)")
	importCmd.Flags().BoolVar(&importKeepNames, "keep-names", false, "store secrets under their original names instead of lower-kebab-case")
	importCmd.Flags().StringVar(&importPrefix, "prefix", "", "prefix applied to every stored name")
	importCmd.Flags().BoolVar(&importForce, "force", false, "overwrite secrets that already exist")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "report what would be imported without storing anything")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	var file string
	if len(args) == 1 {
		file = args[0]
	}

	pairs, err := fetchImportSecrets(cmd.Context(), importFrom, file, importPath)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		infof("No secrets found in input.\n")
		return nil
	}

	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, !importDryRun, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	imported, skipped := 0, 0
	for _, pair := range pairs {
		name := transformImportName(pair.Name, importKeepNames, importPrefix)

		if importDryRun {
			action := "create"
			if _, ok, err := c.Get(name); err == nil && ok {
				action = "overwrite"
			}
			preview := pair.Value
			if len(preview) > 20 {
				preview = preview[:20] + "..."
			}
			payload(fmt.Sprintf("[dry-run] %s %s = %s", action, name, preview))
			imported++
			continue
		}

		if err := c.Store(name, pair.Value, importForce); err != nil {
			if engineerrors.Is(err, engineerrors.KindSecretAlreadyExists) {
				infof("Skipping %q (already exists, use --force to overwrite)\n", name)
				skipped++
				continue
			}
			return err
		}
		imported++
	}

	suffix := ""
	if importDryRun {
		suffix = " (dry run)"
	}
	infof("%d secret(s) imported, %d skipped.%s\n", imported, skipped, suffix)
	return nil
}

func fetchImportSecrets(ctx context.Context, from, file, path string) ([]importadapter.NameValue, error) {
	switch from {
	case "pass":
		return importadapter.PassAdapter{Prefix: path}.Fetch(ctx)
	case "sops":
		if file == "" {
			return nil, engineerrors.New(engineerrors.KindOther, "sops import requires a file argument (e.g., authy import --from sops secrets.enc.yaml)")
		}
		return importadapter.SOPSAdapter{FilePath: file}.Fetch(ctx)
	case "dotenv", "":
		if file == "" {
			return nil, engineerrors.New(engineerrors.KindOther, "import requires a file argument (e.g., authy import .env)")
		}
		content, err := readDotenvSource(file)
		if err != nil {
			return nil, err
		}
		return importadapter.ParseDotenv(content), nil
	default:
		return nil, engineerrors.New(engineerrors.KindOther, fmt.Sprintf("unknown import source %q", from))
	}
}

func readDotenvSource(file string) (string, error) {
	if file == "-" {
		scanner := bufio.NewScanner(os.Stdin)
		var buf []byte
		for scanner.Scan() {
			buf = append(buf, scanner.Bytes()...)
			buf = append(buf, '\n')
		}
		if err := scanner.Err(); err != nil {
			return "", engineerrors.Wrap(engineerrors.KindIO, err, "reading stdin")
		}
		return string(buf), nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", engineerrors.Wrap(engineerrors.KindIO, err, "reading "+file)
	}
	return string(data), nil
}

func transformImportName(raw string, keepNames bool, prefix string) string {
	name := raw
	if !keepNames {
		name = importadapter.ToLowerKebab(raw)
	}
	return prefix + name
}
