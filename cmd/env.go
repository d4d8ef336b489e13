package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/eric8810/authy/internal/authresolver"
	"github.com/eric8810/authy/internal/client"
	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/subprocess"
)

var (
	envUppercase   bool
	envReplaceDash string
	envPrefix      string
	envFormat      string
	envNoExport    bool
)

var envCmd = &cobra.Command{
	Use:     "env <scope>",
	GroupID: "execution",
	Short:   "Print a scope's secrets as shell, dotenv, or JSON name/value pairs",
	Long: `Env, unlike run, prints secret values to standard output, so it is
blocked whenever the active credential or the named scope carries the
run_only flag.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnv,
}

func init() {
	envCmd.Flags().BoolVar(&envUppercase, "uppercase", false, "uppercase emitted variable names")
	envCmd.Flags().StringVar(&envReplaceDash, "replace-dash", "", "replace dashes in secret names with this character")
	envCmd.Flags().StringVar(&envPrefix, "prefix", "", "prefix emitted variable names")
	envCmd.Flags().StringVar(&envFormat, "format", "shell", "output format: shell, dotenv, or json")
	envCmd.Flags().BoolVar(&envNoExport, "no-export", false, "omit the `export` keyword in shell format")
	rootCmd.AddCommand(envCmd)
}

func runEnv(cmd *cobra.Command, args []string) error {
	scope := args[0]
	paths, err := vaultPaths()
	if err != nil {
		return err
	}
	key, ctx, err := authresolver.Resolve(paths, false, authresolver.PromptHidden)
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

	scopeRunOnly, err := c.ScopeRunOnly(scope)
	if err != nil {
		return err
	}
	if scopeRunOnly {
		return engineerrors.New(engineerrors.KindRunOnly, fmt.Sprintf("scope %q is run-only", scope))
	}

	secrets, err := c.ResolveScopedSecrets(scope)
	if err != nil {
		return err
	}

	naming := subprocess.NamingOptions{Uppercase: envUppercase}
	if envReplaceDash != "" {
		r := []rune(envReplaceDash)[0]
		naming.ReplaceDash = &r
	}
	if envPrefix != "" {
		naming.Prefix = &envPrefix
	}

	type pair struct{ key, value string }
	pairs := make([]pair, 0, len(secrets))
	for name, value := range secrets {
		pairs = append(pairs, pair{subprocess.TransformName(name, naming), value})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	switch envFormat {
	case "shell":
		for _, p := range pairs {
			escaped := shellEscape(p.value)
			if envNoExport {
				payload(fmt.Sprintf("%s='%s'", p.key, escaped))
			} else {
				payload(fmt.Sprintf("export %s='%s'", p.key, escaped))
			}
		}
	case "dotenv":
		for _, p := range pairs {
			payload(fmt.Sprintf("%s=%s", p.key, dotenvQuote(p.value)))
		}
	case "json":
		m := make(map[string]string, len(pairs))
		for _, p := range pairs {
			m[p.key] = p.value
		}
		data, err := json.Marshal(m)
		if err != nil {
			return engineerrors.Wrap(engineerrors.KindSerialization, err, "")
		}
		payload(string(data))
	default:
		return engineerrors.New(engineerrors.KindOther, fmt.Sprintf("unknown format %q. Use 'shell', 'dotenv', or 'json'.", envFormat))
	}

	return nil
}

// shellEscape quotes a value for a single-quoted POSIX shell string.
func shellEscape(value string) string {
	return strings.ReplaceAll(value, "'", `'\''`)
}

// dotenvQuote quotes a value for dotenv format, double-quoting and
// escaping it only when it contains characters a bare assignment can't.
func dotenvQuote(value string) string {
	if value == "" {
		return `""`
	}
	if !strings.ContainsAny(value, " #\"'\\\n\r\t$`") {
		return value
	}
	escaped := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"\t", `\t`,
	).Replace(value)
	return `"` + escaped + `"`
}
