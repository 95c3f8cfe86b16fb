package config

// APIConfig configures the HTTP API started by the serve command.
type APIConfig struct {
	Addr           string   `json:"addr"`
	Token          string   `json:"token"`
	AllowedOrigins []string `json:"allowed_origins"`
	// History is the SQLite run history served under /api/v1/runs.
	History string `json:"history"`
}

// SetDefaults applies default values.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}
