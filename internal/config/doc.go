// SPDX-License-Identifier: MPL-2.0

// Package config handles artifactgen configuration using Viper with CUE as the file format.
//
// Configuration is loaded from artifactgen.cue in the project directory, or from an
// explicit file. It lists the modules to generate artifacts for, their exclusions and
// output overrides, the preprocessing commands registered per module, and ambient
// settings (log level, preprocessing shell, state file). Generation is disabled unless
// the file sets enabled: true.
//
// Configuration validation is performed against a CUE schema (config_schema.cue).
// ARTIFACTGEN_* environment variables override scalar settings.
package config
