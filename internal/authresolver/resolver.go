package authresolver

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/howeyc/gopass"
	"golang.org/x/term"

	"github.com/eric8810/authy/internal/cryptoengine"
	"github.com/eric8810/authy/internal/engineerrors"
	"github.com/eric8810/authy/internal/session"
	"github.com/eric8810/authy/internal/vaultstore"
)

const (
	envPassphrase    = "AUTHY_PASSPHRASE"
	envKeyfile       = "AUTHY_KEYFILE"
	envToken         = "AUTHY_TOKEN"
	envNonInteractive = "AUTHY_NON_INTERACTIVE"
)

// Prompter reads a secret from the controlling terminal. The default is
// PromptHidden (gopass-masked); tests substitute a canned implementation.
type Prompter func(prompt string) (string, error)

// IsNonInteractive reports whether prompting is forbidden: either the
// operator asked for it explicitly, or stdin isn't a terminal at all.
func IsNonInteractive() bool {
	if os.Getenv(envNonInteractive) == "1" {
		return true
	}
	return !term.IsTerminal(int(os.Stdin.Fd()))
}

// Resolve implements the §4.5 resolution order: token, then keyfile, then
// passphrase env, then an interactive prompt. requireWrite rejects token
// auth immediately, since tokens are always read-only.
func Resolve(paths vaultstore.Paths, requireWrite bool, prompt Prompter) (vaultstore.VaultKey, Context, error) {
	if token, ok := os.LookupEnv(envToken); ok {
		return resolveToken(paths, token, requireWrite)
	}

	if keyfilePath, ok := os.LookupEnv(envKeyfile); ok {
		identity, _, err := readKeyfile(keyfilePath)
		if err != nil {
			return vaultstore.VaultKey{}, Context{}, err
		}
		publicKey, err := cryptoengine.PublicKeyFromIdentity(identity)
		if err != nil {
			return vaultstore.VaultKey{}, Context{}, engineerrors.Wrap(engineerrors.KindInvalidKeyfile, err, "deriving public key from keyfile")
		}
		return vaultstore.RecipientKey(identity, publicKey), MasterKeyfile(), nil
	}

	if passphrase, ok := os.LookupEnv(envPassphrase); ok {
		return vaultstore.PassphraseKey(passphrase), MasterPassphrase(), nil
	}

	if IsNonInteractive() {
		return vaultstore.VaultKey{}, Context{}, engineerrors.New(engineerrors.KindAuthFailed,
			fmt.Sprintf("no credentials provided. Set %s, %s, or %s environment variable.", envKeyfile, envPassphrase, envToken))
	}

	passphrase, err := prompt("Enter vault passphrase")
	if err != nil {
		return vaultstore.VaultKey{}, Context{}, engineerrors.Wrap(engineerrors.KindAuthFailed, err, "reading passphrase")
	}
	return vaultstore.PassphraseKey(passphrase), MasterPassphrase(), nil
}

func resolveToken(paths vaultstore.Paths, token string, requireWrite bool) (vaultstore.VaultKey, Context, error) {
	if requireWrite {
		return vaultstore.VaultKey{}, Context{}, engineerrors.New(engineerrors.KindTokenReadOnly,
			"write operations require master key authentication (tokens are read-only)")
	}

	keyfilePath, ok := os.LookupEnv(envKeyfile)
	if !ok {
		return vaultstore.VaultKey{}, Context{}, engineerrors.New(engineerrors.KindAuthFailed,
			fmt.Sprintf("%s requires %s to be set", envToken, envKeyfile))
	}

	identity, _, err := readKeyfile(keyfilePath)
	if err != nil {
		return vaultstore.VaultKey{}, Context{}, err
	}
	publicKey, err := cryptoengine.PublicKeyFromIdentity(identity)
	if err != nil {
		return vaultstore.VaultKey{}, Context{}, engineerrors.Wrap(engineerrors.KindInvalidKeyfile, err, "deriving public key from keyfile")
	}
	vaultKey := vaultstore.RecipientKey(identity, publicKey)

	v, err := vaultstore.Load(paths, vaultKey)
	if err != nil {
		return vaultstore.VaultKey{}, Context{}, err
	}

	hmacKey, err := cryptoengine.DeriveKey(vaultKey.KeyMaterial(), []byte("session-hmac"), 32)
	if err != nil {
		return vaultstore.VaultKey{}, Context{}, engineerrors.Wrap(engineerrors.KindOther, err, "deriving session HMAC key")
	}

	rec, err := session.Validate(token, v.Sessions, hmacKey, time.Now())
	if err != nil {
		return vaultstore.VaultKey{}, Context{}, err
	}

	return vaultKey, FromToken(rec.ID, rec.Scope, rec.RunOnly), nil
}

// ResolveForInit is the distinct entry point for `init`: a provided
// passphrase, a newly generated keypair written to disk, or a confirmed
// interactive prompt.
func ResolveForInit(providedPassphrase string, generateKeyfilePath string, prompt func(prompt, confirm string) (string, error)) (vaultstore.VaultKey, error) {
	if generateKeyfilePath != "" {
		identity, publicKey, err := cryptoengine.GenerateKeypair()
		if err != nil {
			return vaultstore.VaultKey{}, err
		}
		if err := os.WriteFile(generateKeyfilePath, []byte(identity), 0o600); err != nil {
			return vaultstore.VaultKey{}, engineerrors.Wrap(engineerrors.KindIO, err, "writing keyfile")
		}
		if err := os.WriteFile(generateKeyfilePath+".pub", []byte(publicKey), 0o644); err != nil {
			return vaultstore.VaultKey{}, engineerrors.Wrap(engineerrors.KindIO, err, "writing public keyfile")
		}
		fmt.Fprintf(os.Stderr, "Generated keyfile: %s\n", generateKeyfilePath)
		fmt.Fprintf(os.Stderr, "Public key: %s\n", generateKeyfilePath+".pub")
		return vaultstore.RecipientKey(identity, publicKey), nil
	}

	if providedPassphrase != "" {
		return vaultstore.PassphraseKey(providedPassphrase), nil
	}

	if passphrase, ok := os.LookupEnv(envPassphrase); ok {
		return vaultstore.PassphraseKey(passphrase), nil
	}

	passphrase, err := prompt("Create vault passphrase", "Confirm passphrase")
	if err != nil {
		return vaultstore.VaultKey{}, engineerrors.Wrap(engineerrors.KindAuthFailed, err, "reading passphrase")
	}
	return vaultstore.PassphraseKey(passphrase), nil
}

// ReadKeyfile parses an age X25519 identity file, returning (identity,
// publicKey). Exported for callers outside auth resolution proper, such as
// rekey, that need to load an existing keyfile without going through
// Resolve.
func ReadKeyfile(path string) (string, string, error) {
	return readKeyfile(path)
}

// readKeyfile parses an age X25519 identity file, returning (identity,
// publicKey).
func readKeyfile(path string) (string, string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", "", engineerrors.Wrap(engineerrors.KindInvalidKeyfile, err, fmt.Sprintf("cannot read %s", path))
	}
	identity := strings.TrimSpace(string(content))
	publicKey, err := cryptoengine.PublicKeyFromIdentity(identity)
	if err != nil {
		return "", "", engineerrors.Wrap(engineerrors.KindInvalidKeyfile, err, "parsing keyfile identity")
	}
	return identity, publicKey, nil
}

// PromptHidden is the default Prompter: a single masked read from the
// controlling terminal, via the teacher's own masked-input dependency.
func PromptHidden(prompt string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	passwordBytes, err := gopass.GetPasswdMasked()
	if err != nil {
		return "", err
	}
	defer cryptoengine.ClearBytes(passwordBytes)
	return string(passwordBytes), nil
}

// PromptHiddenWithConfirmation reads a secret twice and requires the two
// reads to match, for use at vault-creation time.
func PromptHiddenWithConfirmation(prompt, confirmPrompt string) (string, error) {
	first, err := PromptHidden(prompt)
	if err != nil {
		return "", err
	}
	second, err := PromptHidden(confirmPrompt)
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("passphrases don't match")
	}
	return first, nil
}
