// Package config defines configuration for the fetch-coin-assets CLI.
//
// Configuration can be provided via:
//   - Command-line flags
//   - Environment variables (COIN_ASSETS_ prefix)
//   - A YAML (.yaml, .yml) or TOML (.toml) configuration file
//
// Precedence, lowest first: defaults, file, environment, flags.
//
// # File Format
//
//	base_url: https://raw.githubusercontent.com/KomodoPlatform/coins
//	revision_file: ./coins_ci.json
//	asset_root: ./assets
//	coins_key: coins.json
//	coins_config_key: coins_config.json
//	icon_dir: coin-icons
//	workers: 4
//	task_timeout: 10s
//	http_timeout: 60s
//	progress: auto
package config
