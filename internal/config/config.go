// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/artifactgen/artifactgen/internal/issue"
	"github.com/artifactgen/artifactgen/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "artifactgen"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "artifactgen"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (ARTIFACTGEN_ENABLED, ...).
	EnvPrefix = "ARTIFACTGEN"
)

//go:embed config_schema.cue
var configSchema string

// FilePath returns the default config file location inside dir.
func FilePath(dir string) string {
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
}

// loadWithOptions reads the config into a fresh Viper instance, so repeated
// loads (the watch loop reloads on every trigger) never share state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("load config canceled: %w", err)
	}

	v := viper.New()
	defaults := DefaultConfig()
	v.SetDefault("enabled", defaults.Enabled)
	v.SetDefault("project", defaults.Project)
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("modules", []any{})
	v.SetDefault("preprocessing", []any{})
	v.SetDefault("shell.runtime", string(defaults.Shell.Runtime))
	v.SetDefault("shell.path", "")
	v.SetDefault("preprocess.timeout", "")
	v.SetDefault("preprocess.max_output", 0)
	v.SetDefault("state_file", defaults.StateFile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	baseDir := opts.BaseDir
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("failed to get working directory: %w", err)
		}
		baseDir = wd
	}

	resolvedPath := ""
	switch {
	case opts.ConfigFilePath != "":
		if !fileExists(opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'artifactgen config init' to create a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	case fileExists(FilePath(baseDir)):
		resolvedPath = FilePath(baseDir)
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		abs, err := filepath.Abs(resolvedPath)
		if err == nil {
			resolvedPath = abs
		}
		baseDir = filepath.Dir(resolvedPath)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Give each module at most one entry in 'modules'").
			WithSuggestion("Use a Go duration such as \"30s\" for preprocess.timeout").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
// The file decodes to a map rather than a struct so Viper keeps its defaults
// and environment overrides for keys the file leaves out.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	unified, err := cueutil.Unify([]byte(configSchema), data, "#Config",
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config to path unless a file is
// already there. It reports whether a file was written.
func CreateDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := Save(path, DefaultConfig()); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes cfg to path as CUE.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE renders cfg as a CUE document accepted by #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// artifactgen configuration\n\n")

	fmt.Fprintf(&sb, "enabled: %v\n", cfg.Enabled)
	fmt.Fprintf(&sb, "project: %q\n", cfg.Project)
	fmt.Fprintf(&sb, "log_level: %q\n", cfg.LogLevel)
	fmt.Fprintf(&sb, "state_file: %q\n", filepath.ToSlash(cfg.StateFile))

	sb.WriteString("\nmodules: [")
	if len(cfg.Modules) > 0 {
		sb.WriteString("\n")
		for _, m := range cfg.Modules {
			fmt.Fprintf(&sb, "\t{name: %q", m.Name)
			if m.Output != "" {
				fmt.Fprintf(&sb, ", output: %q", m.Output)
			}
			if len(m.Exclude) > 0 {
				quoted := make([]string, len(m.Exclude))
				for i, e := range m.Exclude {
					quoted[i] = fmt.Sprintf("%q", e)
				}
				fmt.Fprintf(&sb, ", exclude: [%s]", strings.Join(quoted, ", "))
			}
			sb.WriteString("},\n")
		}
	}
	sb.WriteString("]\n")

	sb.WriteString("\npreprocessing: [")
	if len(cfg.Preprocessing) > 0 {
		sb.WriteString("\n")
		for _, p := range cfg.Preprocessing {
			fmt.Fprintf(&sb, "\t{name: %q, cmd: %q},\n", p.Name, p.Cmd)
		}
	}
	sb.WriteString("]\n")

	sb.WriteString("\nshell: {\n")
	fmt.Fprintf(&sb, "\truntime: %q\n", cfg.Shell.Runtime)
	if cfg.Shell.Path != "" {
		fmt.Fprintf(&sb, "\tpath: %q\n", cfg.Shell.Path)
	}
	sb.WriteString("}\n")

	if cfg.Preprocess.Timeout != "" || cfg.Preprocess.MaxOutput > 0 {
		sb.WriteString("\npreprocess: {\n")
		if cfg.Preprocess.Timeout != "" {
			fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Preprocess.Timeout)
		}
		if cfg.Preprocess.MaxOutput > 0 {
			fmt.Fprintf(&sb, "\tmax_output: %d\n", cfg.Preprocess.MaxOutput)
		}
		sb.WriteString("}\n")
	}

	return sb.String()
}
