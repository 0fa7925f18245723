// Package config provides configuration for the pacer rate governor.
//
// # Overview
//
// Configuration is an explicit struct with named, defaulted fields. It can be
// built three ways:
//
//   - Preset("moderate") for a ready-to-use profile
//   - Load("pacer.yaml") for file-based configuration
//   - a literal Config with ApplyDefaults filling the gaps
//
// # Validation Philosophy
//
// The governor must never prevent startup. Validate therefore clamps
// out-of-range values (negative thresholds, zero rates) to safe minimums and
// reports what it changed, instead of rejecting the configuration.
//
// # Hot Reload
//
// Watcher observes a configuration file and delivers reloaded configurations
// through a callback, debounced so editor write storms trigger only one
// reload.
package config
