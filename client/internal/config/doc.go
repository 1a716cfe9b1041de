// Package config loads and validates the YAML configuration for
// logrelay-tail, and can watch the file for changes so long-running tails
// pick up new settings without a restart.
package config
