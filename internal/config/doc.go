// Package config loads, validates, and defaults the daemon's TOML
// configuration.
//
// Load reads the config file (or the default path under the user's config
// directory), overlays it on Default(), normalizes paths, and validates the
// result. Dynamic daemon admission settings (enabled flag, concurrency cap,
// follow-up placement) live in the queue store, not here; this file holds the
// static wiring: directories, bind address, bridge endpoints, LLM settings,
// and loop timing.
package config
