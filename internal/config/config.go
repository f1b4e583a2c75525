// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/invowk/fnpack/internal/issue"
	"github.com/invowk/fnpack/pkg/cueutil"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "fnpack"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides: FNPACK_STORE_BACKEND overrides store.backend.
	EnvPrefix = "FNPACK"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the fnpack configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	// Allow tests to override the config directory
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the config and the path it was read from
// ("" when only defaults and environment overrides apply).
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	// Set defaults
	defaults := DefaultConfig()
	v.SetDefault("store.backend", defaults.Store.Backend)
	v.SetDefault("store.key_template", defaults.Store.KeyTemplate)
	v.SetDefault("store.region", defaults.Store.Region)
	v.SetDefault("store.endpoint", defaults.Store.Endpoint)
	v.SetDefault("store.access_key", defaults.Store.AccessKey)
	v.SetDefault("store.secret_key", defaults.Store.SecretKey)
	v.SetDefault("store.use_ssl", defaults.Store.UseSSL)
	v.SetDefault("store.dir", defaults.Store.Dir)
	v.SetDefault("build.temp_dir", defaults.Build.TempDir)
	v.SetDefault("build.archive_name", defaults.Build.ArchiveName)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath, err := ResolvePath(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.New(issue.ConfigLoadFailedId, "load configuration").
				On(resolvedPath).
				Hint("Check that the file contains valid CUE syntax").
				Hint("Verify the configuration values match the expected schema").
				Hint("See 'fnpack config --help' for configuration options").
				Wrap(err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Store.Backend = StoreBackend(strings.ToLower(string(cfg.Store.Backend)))

	// Environment overrides bypass the CUE schema, so validate the merged result.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.New(issue.ConfigLoadFailedId, "validate configuration").
			On(resolvedPath).
			Hint("Check store.backend and the settings it requires (store.endpoint for minio, store.dir for dir)").
			Hint("Check %s_* environment variables", EnvPrefix).
			Wrap(errs[0])
	}

	return &cfg, resolvedPath, nil
}

// ResolvePath returns the config file the loader reads for opts, or "" when
// no file exists and defaults apply. An explicit ConfigFilePath must exist.
func ResolvePath(opts LoadOptions) (string, error) {
	// If a custom config file path is set via --config flag, use it exclusively.
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.New(issue.ConfigLoadFailedId, "load configuration").
				On(opts.ConfigFilePath).
				Hint("Verify the file path is correct").
				Hint("Use 'fnpack config show' to see the default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath))
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}

	if cuePath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(cuePath) {
		return cuePath, nil
	}
	// Also check current directory
	if localCuePath := ConfigFileName + "." + ConfigFileExt; fileExists(localCuePath) {
		return localCuePath, nil
	}
	return "", nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Note: This uses manual CUE parsing instead of cueutil.ParseAndDecode because
// the config decodes to map[string]any for Viper, with optional fields left
// non-concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	// Unify with schema to validate against #Config definition
	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file unless one exists and
// returns its path.
func CreateDefaultConfig() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	cfgPath := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)

	if _, err := os.Stat(cfgPath); err == nil {
		return cfgPath, nil // File exists
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// fnpack configuration file\n\n")

	sb.WriteString("store: {\n")
	fmt.Fprintf(&sb, "\tbackend: %q\n", cfg.Store.Backend)
	fmt.Fprintf(&sb, "\tkey_template: %q\n", cfg.Store.KeyTemplate)
	if cfg.Store.Region != "" {
		fmt.Fprintf(&sb, "\tregion: %q\n", cfg.Store.Region)
	}
	if cfg.Store.Endpoint != "" {
		fmt.Fprintf(&sb, "\tendpoint: %q\n", cfg.Store.Endpoint)
	}
	if cfg.Store.AccessKey != "" {
		fmt.Fprintf(&sb, "\taccess_key: %q\n", cfg.Store.AccessKey)
	}
	if cfg.Store.SecretKey != "" {
		fmt.Fprintf(&sb, "\tsecret_key: %q\n", cfg.Store.SecretKey)
	}
	fmt.Fprintf(&sb, "\tuse_ssl: %v\n", cfg.Store.UseSSL)
	if cfg.Store.Dir != "" {
		fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Store.Dir)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nbuild: {\n")
	if cfg.Build.TempDir != "" {
		fmt.Fprintf(&sb, "\ttemp_dir: %q\n", cfg.Build.TempDir)
	}
	fmt.Fprintf(&sb, "\tarchive_name: %q\n", cfg.Build.ArchiveName)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
