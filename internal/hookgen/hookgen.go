// Package hookgen emits the shell snippets `authy hook <shell>` prints,
// which export a session token (AUTHY_TOKEN) from a local file into the
// calling shell's environment.
package hookgen

import (
	"fmt"

	"github.com/eric8810/authy/internal/engineerrors"
)

// Shell identifies a supported shell dialect.
type Shell string

const (
	ShellBash Shell = "bash"
	ShellZsh  Shell = "zsh"
	ShellFish Shell = "fish"
)

// Generate returns the activation snippet for shell, reading AUTHY_TOKEN
// from tokenFile at shell startup. With an empty tokenFile the snippet reads
// from the file named by $AUTHY_TOKEN_FILE instead, if that is set.
func Generate(shell Shell, tokenFile string) (string, error) {
	switch shell {
	case ShellBash, ShellZsh:
		return posixSnippet(tokenFile), nil
	case ShellFish:
		return fishSnippet(tokenFile), nil
	default:
		return "", engineerrors.New(engineerrors.KindOther, fmt.Sprintf("unsupported shell %q. Use bash, zsh, or fish.", shell))
	}
}

func posixSnippet(tokenFile string) string {
	if tokenFile == "" {
		return `if [ -n "$AUTHY_TOKEN_FILE" ] && [ -f "$AUTHY_TOKEN_FILE" ]; then
    export AUTHY_TOKEN="$(cat "$AUTHY_TOKEN_FILE")"
fi
`
	}
	return fmt.Sprintf(`if [ -f %q ]; then
    export AUTHY_TOKEN="$(cat %q)"
fi
`, tokenFile, tokenFile)
}

func fishSnippet(tokenFile string) string {
	if tokenFile == "" {
		return `if test -n "$AUTHY_TOKEN_FILE"; and test -f "$AUTHY_TOKEN_FILE"
    set -gx AUTHY_TOKEN (cat $AUTHY_TOKEN_FILE)
end
`
	}
	return fmt.Sprintf(`if test -f %q
    set -gx AUTHY_TOKEN (cat %q)
end
`, tokenFile, tokenFile)
}
