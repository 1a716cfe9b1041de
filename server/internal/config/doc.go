// Package config loads and validates the YAML configuration for
// logrelay-server. Secrets (API keys, webhook URLs) are never stored in the
// file itself; the file names environment variables and the values are
// resolved at use time.
package config
