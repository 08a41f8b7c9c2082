package config

import "github.com/bobmcallan/vire-desk/internal/common"

// DefaultQuestion is sent with every analysis request.
const DefaultQuestion = "Analyze this stock and give trading recommendations"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		API: APIConfig{
			Mode:            "http",
			URL:             "http://localhost:8000",
			TimeoutSeconds:  60,
			Question:        DefaultQuestion,
			CacheTTLSeconds: 5,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Badger: BadgerConfig{
				Path: "./data/vire-desk",
			},
			File: FileConfig{
				Path: "./data/vire-desk/session.json",
			},
		},
		Offline: OfflineConfig{
			Prices: map[string]float64{},
		},
		MCP: MCPConfig{
			Name: "Vire-Desk",
			Port: "4243",
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Format:     "text",
			Outputs:    []string{"console", "file"},
			FilePath:   "logs/vire-desk.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}
