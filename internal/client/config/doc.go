// Package config loads runtime configuration for the assetvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "cache_path": "assetvault.db",
//	  "provider_id": "pixverse",
//	  "batch_limit": 4,
//	  "hash_workers": 2
//	}
package config
