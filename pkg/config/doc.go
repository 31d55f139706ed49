// Package config resolves the process-wide skillsync configuration.
//
// Configuration layers, later winning:
//
//  1. Embedded defaults (embedded/defaults.toml)
//  2. User config file: config.toml or config.yaml under the XDG config
//     dir (~/.config/skillsync)
//  3. SKILLSYNC_* environment variables (SKILLSYNC_HOME, SKILLSYNC_JOBS, ...)
//
// The result is an explicit Config value handed to every component
// constructor; no component reads the environment after startup.
package config
