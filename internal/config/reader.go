package config

import (
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Reader interface {
	Read() (*Config, error)
}

// EnvReader reads configuration from the process environment. When
// CONFIG_PATH names a file, its values are loaded first and the
// environment overrides them.
type EnvReader struct{}

func NewEnvReader() EnvReader {
	return EnvReader{}
}

func (EnvReader) Read() (*Config, error) {
	cfg := new(Config)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		err := cleanenv.ReadConfig(path, cfg)
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	err := cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
