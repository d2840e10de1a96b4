package config

// Config holds runtime settings for the assetvault CLI.
//
// Fields:
//   - ServerURL: base URL of the asset registry API.
//   - CachePath: filesystem path of the local candidate cache database.
//   - ProviderID: default target provider for upload commands.
//   - BatchLimit: maximum concurrent reconciliations in a bulk upload.
//   - HashWorkers: number of background hashing goroutines.
type Config struct {
	ServerURL   string
	CachePath   string
	ProviderID  string
	BatchLimit  int
	HashWorkers int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.CachePath = "assetvault.db"
	c.ProviderID = "pixverse"
	c.BatchLimit = 4
	c.HashWorkers = 2
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
