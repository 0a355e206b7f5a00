// Package config provides user configuration management for scopectl.
//
// This package manages a YAML-based configuration file that stores
// metadata for known oscilloscopes (model, last address, installed
// options) and application preferences such as the slot directory and
// the remote panel bind address. The file location follows OS-specific
// conventions.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/scopectl/config.yaml or $HOME/.config/scopectl/config.yaml
//   - macOS: $HOME/.config/scopectl/config.yaml
//   - Windows: %LOCALAPPDATA%\scopectl\config.yaml
//
// Configuration snapshot slot files live in the same directory unless
// the slot_dir preference points elsewhere.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.RecordConnection("91E123456", "701470", "1:4", "DL7480,LOGIC")
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across
// goroutines. File operations are protected by a mutex to ensure atomic
// writes.
package config
