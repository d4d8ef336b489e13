// Package engineconfig loads and saves the vault's optional TOML
// configuration file (~/.authy/authy.toml), using viper the way the rest of
// the codebase's ambient stack does.
package engineconfig

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/eric8810/authy/internal/engineerrors"
)

const (
	authMethodPassphrase = "passphrase"
	authMethodKeyfile    = "keyfile"
)

// VaultConfig records the vault's authentication method and keyfile path.
// authresolver.Resolve does not read it: credentials come only from the
// AUTHY_* variables or the interactive prompt.
type VaultConfig struct {
	AuthMethod string `mapstructure:"auth_method"`
	Keyfile    string `mapstructure:"keyfile"`
}

// AuditConfig holds the audit-enabled flag. The client facade appends audit
// entries whatever its value.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Config is the full ~/.authy/authy.toml schema.
type Config struct {
	Vault VaultConfig `mapstructure:"vault"`
	Audit AuditConfig `mapstructure:"audit"`
}

// Default returns the configuration a freshly initialized vault writes.
func Default() *Config {
	return &Config{
		Vault: VaultConfig{AuthMethod: authMethodPassphrase},
		Audit: AuditConfig{Enabled: true},
	}
}

// Load reads path, returning Default() unchanged if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("vault.auth_method", authMethodPassphrase)
	v.SetDefault("audit.enabled", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, engineerrors.Wrap(engineerrors.KindOther, err, "reading "+path)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, engineerrors.Wrap(engineerrors.KindOther, err, "parsing "+path)
	}
	return cfg, nil
}

// Save writes c to path in TOML, creating the parent directory if needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return engineerrors.Wrap(engineerrors.KindIO, err, "creating config directory")
		}
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("vault.auth_method", c.Vault.AuthMethod)
	v.Set("vault.keyfile", c.Vault.Keyfile)
	v.Set("audit.enabled", c.Audit.Enabled)

	if err := v.WriteConfigAs(path); err != nil {
		return engineerrors.Wrap(engineerrors.KindIO, err, "writing "+path)
	}
	return os.Chmod(path, 0o600)
}

// Valid reports whether AuthMethod names a method the engine understands.
func (c *Config) Valid() bool {
	switch c.Vault.AuthMethod {
	case authMethodPassphrase, authMethodKeyfile:
		return true
	default:
		return false
	}
}
