// Package importadapter defines the thin shell every external secret
// source is fetched through: a sequence of name/value pairs the CLI then
// feeds through the client facade's Store.
package importadapter

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/eric8810/authy/internal/engineerrors"
)

// NameValue is one fetched secret, not yet stored.
type NameValue struct {
	Name  string
	Value string
}

// Adapter fetches secrets from one external source. 1Password and
// HashiCorp Vault are documented by this interface but not implemented
// here: both require network credentials this repository has no way to
// exercise in an audited local environment.
type Adapter interface {
	Fetch(ctx context.Context) ([]NameValue, error)
}

// PassAdapter shells out to the `pass` password manager, listing every
// entry under Prefix (or the whole store when Prefix is empty) and
// reading each one with `pass show`.
type PassAdapter struct {
	Prefix string
}

func (a PassAdapter) Fetch(ctx context.Context) ([]NameValue, error) {
	lsArgs := []string{"ls"}
	if a.Prefix != "" {
		lsArgs = append(lsArgs, a.Prefix)
	}
	names, err := runPassList(ctx, lsArgs)
	if err != nil {
		return nil, err
	}

	results := make([]NameValue, 0, len(names))
	for _, name := range names {
		value, err := runCommand(ctx, "pass", "show", name)
		if err != nil {
			return nil, engineerrors.Wrap(engineerrors.KindOther, err, "pass show "+name)
		}
		results = append(results, NameValue{Name: name, Value: firstLine(value)})
	}
	return results, nil
}

// SOPSAdapter shells out to `sops -d` against a single encrypted file,
// treating every non-blank, non-comment line of the decrypted document that
// holds "key: value" or "key=value" as a secret. Lines are read one by one;
// nesting in the document is not interpreted.
type SOPSAdapter struct {
	FilePath string
}

func (a SOPSAdapter) Fetch(ctx context.Context) ([]NameValue, error) {
	decrypted, err := runCommand(ctx, "sops", "-d", a.FilePath)
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.KindOther, err, "sops -d "+a.FilePath)
	}

	var results []NameValue
	for _, line := range strings.Split(decrypted, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		results = append(results, NameValue{Name: name, Value: value})
	}
	return results, nil
}

// ParseDotenv parses a dotenv-format document into name/value pairs,
// handling double-quoted (with escapes), single-quoted (literal), and
// bare (with inline `#` comment stripping) values, and an optional
// leading `export ` keyword.
func ParseDotenv(content string) []NameValue {
	var result []NameValue
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		trimmed = strings.TrimPrefix(trimmed, "export ")
		trimmed = strings.TrimPrefix(trimmed, "export\t")

		eq := strings.IndexByte(trimmed, '=')
		if eq < 0 {
			continue
		}
		name := strings.TrimSpace(trimmed[:eq])
		if name == "" {
			continue
		}
		result = append(result, NameValue{Name: name, Value: parseDotenvValue(trimmed[eq+1:])})
	}
	return result
}

func parseDotenvValue(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, `"`) {
		if end := findClosingQuote(trimmed, '"'); end >= 0 {
			return unescapeDoubleQuoted(trimmed[1:end])
		}
	}
	if strings.HasPrefix(trimmed, "'") {
		if end := findClosingQuote(trimmed, '\''); end >= 0 {
			return trimmed[1:end]
		}
	}

	if idx := strings.Index(trimmed, " #"); idx >= 0 {
		return strings.TrimSpace(trimmed[:idx])
	}
	return trimmed
}

func findClosingQuote(s string, quote byte) int {
	for i := 1; i < len(s); i++ {
		if s[i] == '\\' && quote == '"' {
			i++
			continue
		}
		if s[i] == quote {
			return i
		}
	}
	return -1
}

func unescapeDoubleQuoted(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i == len(s)-1 {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// ToLowerKebab replaces `_`, `/`, spaces, and `.` with `-` and lowercases
// the result, the default name transform an import applies unless
// --keep-names is given.
func ToLowerKebab(name string) string {
	lower := strings.ToLower(name)
	replacer := strings.NewReplacer("_", "-", "/", "-", " ", "-", ".", "-")
	return replacer.Replace(lower)
}

func splitKeyValue(line string) (name, value string, ok bool) {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[:idx]), strings.Trim(strings.TrimSpace(line[idx+1:]), `"`), true
	}
	if idx := strings.Index(line, "="); idx >= 0 {
		return strings.TrimSpace(line[:idx]), strings.Trim(strings.TrimSpace(line[idx+1:]), `"`), true
	}
	return "", "", false
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func runPassList(ctx context.Context, args []string) ([]string, error) {
	out, err := runCommand(ctx, "pass", args...)
	if err != nil {
		return nil, engineerrors.Wrap(engineerrors.KindOther, err, "pass ls")
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "│├└─ "))
		if line == "" || strings.Contains(line, "Password Store") {
			continue
		}
		names = append(names, line)
	}
	return names, nil
}

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return stdout.String(), nil
}
