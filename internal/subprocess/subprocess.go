// Package subprocess runs an external command with a set of secrets
// injected into its environment under transformed names.
package subprocess

import (
	"os"
	"os/exec"
	"strings"

	"github.com/eric8810/authy/internal/engineerrors"
)

// NamingOptions controls how secret names become environment variable names.
type NamingOptions struct {
	Uppercase   bool
	ReplaceDash *rune
	Prefix      *string
}

// TransformName applies naming to a secret name, in the fixed order
// replace-dash, uppercase, prefix.
func TransformName(name string, opts NamingOptions) string {
	result := name

	if opts.ReplaceDash != nil {
		result = strings.ReplaceAll(result, "-", string(*opts.ReplaceDash))
	}
	if opts.Uppercase {
		result = strings.ToUpper(result)
	}
	if opts.Prefix != nil {
		result = *opts.Prefix + result
	}
	return result
}

// RunWithSecrets execs command with secrets injected as environment
// variables under transformed names, and AUTHY_PASSPHRASE/AUTHY_TOKEN
// scrubbed so the child never inherits the master credential it was
// launched with. Returns the child's exit code.
func RunWithSecrets(command []string, secrets map[string]string, naming NamingOptions) (int, error) {
	if len(command) == 0 {
		return 0, engineerrors.New(engineerrors.KindOther, "no command specified")
	}

	env := scrubCredentials(os.Environ())
	for name, value := range secrets {
		env = append(env, TransformName(name, naming)+"="+value)
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if ok := asExitError(err, &exitErr); ok {
		code := exitErr.ExitCode()
		if code == -1 {
			code = 1
		}
		return code, nil
	}
	return 1, engineerrors.Wrap(engineerrors.KindOther, err, "running command '"+command[0]+"'")
}

func asExitError(err error, target **exec.ExitError) bool {
	if e, ok := err.(*exec.ExitError); ok {
		*target = e
		return true
	}
	return false
}

func scrubCredentials(environ []string) []string {
	scrubbed := make([]string, 0, len(environ))
	for _, kv := range environ {
		if strings.HasPrefix(kv, "AUTHY_PASSPHRASE=") || strings.HasPrefix(kv, "AUTHY_TOKEN=") {
			continue
		}
		scrubbed = append(scrubbed, kv)
	}
	return scrubbed
}
