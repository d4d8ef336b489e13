package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/subprocess"
)

var (
	exportFormat      string
	exportScope       string
	exportUppercase   bool
	exportReplaceDash string
	exportPrefix      string
)

var exportCmd = &cobra.Command{
	Use:     "export",
	GroupID: "interchange",
	Short:   "Export secrets as dotenv or JSON",
	Long: `Export writes every secret (or, with --scope, every secret that
scope can read) to standard output. With no --scope it requires a
write-capable master credential, since it is the one read path that
bypasses scope narrowing entirely.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "env", "output format: env or json")
	exportCmd.Flags().StringVar(&exportScope, "scope", "", "restrict export to a policy scope")
	exportCmd.Flags().BoolVar(&exportUppercase, "uppercase", false, "uppercase emitted names")
	exportCmd.Flags().StringVar(&exportReplaceDash, "replace-dash", "", "replace dashes in names with this character")
	exportCmd.Flags().StringVar(&exportPrefix, "prefix", "", "prefix emitted names")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	requireWrite := exportScope == ""
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, requireWrite, authresolver.PromptHidden)
	if err != nil {
		return err
	}
	if ctx.RunOnly {
		return engineerrors.New(engineerrors.KindRunOnly, "credential is run-only")
	}

	c, err := client.FromContext(paths, key, ctx)
	if err != nil {
		return err
	}

	if exportScope != "" {
		scopeRunOnly, err := c.ScopeRunOnly(exportScope)
		if err != nil {
			return err
		}
		if scopeRunOnly {
			return engineerrors.New(engineerrors.KindRunOnly, fmt.Sprintf("scope %q is run-only", exportScope))
		}
	}

	entries, err := c.Export(exportScope)
	if err != nil {
		return err
	}

	naming := subprocess.NamingOptions{Uppercase: exportUppercase}
	if exportReplaceDash != "" {
		r := []rune(exportReplaceDash)[0]
		naming.ReplaceDash = &r
	}
	if exportPrefix != "" {
		naming.Prefix = &exportPrefix
	}
	for i := range entries {
		entries[i].Name = subprocess.TransformName(entries[i].Name, naming)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	switch exportFormat {
	case "env":
		for _, e := range entries {
			payload(fmt.Sprintf("%s=%s", e.Name, dotenvQuote(e.Value)))
		}
	case "json":
		type jsonEntry struct {
			Name     string `json:"name"`
			Value    string `json:"value"`
			Version  int    `json:"version"`
			Created  string `json:"created"`
			Modified string `json:"modified"`
		}
		out := make([]jsonEntry, 0, len(entries))
		for _, e := range entries {
			out = append(out, jsonEntry{
				Name:     e.Name,
				Value:    e.Value,
				Version:  e.Version,
				Created:  e.Created.Format("2006-01-02T15:04:05Z07:00"),
				Modified: e.Modified.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return engineerrors.Wrap(engineerrors.KindSerialization, err, "")
		}
		payload(string(data))
	default:
		return engineerrors.New(engineerrors.KindOther, fmt.Sprintf("unknown format %q. Use 'env' or 'json'.", exportFormat))
	}

	return nil
}
