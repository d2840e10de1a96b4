package config

import (
	"encoding/json"
	"os"

	"github.com/dkovalev/assetvault/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Parsed
// values are copied into the runtime Config.
type JsonConfig struct {
	ServerURL   string `json:"server_url"`
	CachePath   string `json:"cache_path"`
	ProviderID  string `json:"provider_id"`
	BatchLimit  int    `json:"batch_limit"`
	HashWorkers int    `json:"hash_workers"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// via the -c or -config flags. Missing file path means no JSON is loaded.
// Panics on read or unmarshal errors (caller should recover if desired).
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.CachePath != "" {
		cfg.CachePath = jc.CachePath
	}
	if jc.ProviderID != "" {
		cfg.ProviderID = jc.ProviderID
	}
	if jc.BatchLimit > 0 {
		cfg.BatchLimit = jc.BatchLimit
	}
	if jc.HashWorkers > 0 {
		cfg.HashWorkers = jc.HashWorkers
	}
}
