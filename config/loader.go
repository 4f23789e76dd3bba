package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads and validates the application configuration. The config file
// is searched at the given path first, then at the default locations.
// Secrets are taken from the environment (a .env file is honored when
// present).
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	paths := []string{"config.yml", "./deploy/config.yml"}
	if path != "" {
		paths = []string{path}
	}
	var data []byte
	var err error
	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	cfg.Train.APIKey = os.Getenv("SNCF_API_KEY")
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 16181
	}
	if cfg.Bus.ReadIntervalMS == 0 {
		cfg.Bus.ReadIntervalMS = 30000
	}
	if cfg.Bus.TimeoutMS == 0 {
		cfg.Bus.TimeoutMS = 15000
	}
	if cfg.Train.TimeoutMS == 0 {
		cfg.Train.TimeoutMS = 15000
	}
	if cfg.Train.Count == 0 {
		cfg.Train.Count = 10
	}
	if cfg.Train.CacheTTLSec == 0 {
		cfg.Train.CacheTTLSec = 120
	}
	if cfg.Reconcile.MatchWindowHours == 0 {
		cfg.Reconcile.MatchWindowHours = 12
	}
	if cfg.Reconcile.HubName == "" {
		cfg.Reconcile.HubName = "Gerzat"
	}
	if cfg.Reconcile.PaturalGroup == "" {
		cfg.Reconcile.PaturalGroup = "patural"
	}
}
