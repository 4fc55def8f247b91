package goAuthClient

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// LoadConfig starts from DefaultConfig, overlays the YAML (or TOML, EDN, .env) file at path
// when path is not empty, then environment variables, and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
