// Package config loads blindsig settings from an optional YAML file, a .env file and
// BLINDSIG_* environment variables.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mahdiidarabi/blind-rsa/internal/logging"
)

const (
	configDirPathEnv     = "BLINDSIG_CONFIG_DIR_PATH"
	defaultConfigDirPath = "."
)

// Config is the effective blindsig configuration.
type Config struct {
	KeyBits          int    `yaml:"key_bits" env:"BLINDSIG_KEY_BITS" env-default:"1024" validate:"gte=512,lte=8192,evenbits"`
	KeyGenAttempts   int    `yaml:"keygen_attempts" env:"BLINDSIG_KEYGEN_ATTEMPTS" env-default:"16" validate:"gte=1,lte=1000"`
	BlindingAttempts int    `yaml:"blinding_attempts" env:"BLINDSIG_BLINDING_ATTEMPTS" env-default:"64" validate:"gte=1,lte=10000"`
	Workers          int    `yaml:"workers" env:"BLINDSIG_WORKERS" env-default:"0" validate:"gte=0,lte=1024"`
	DataDir          string `yaml:"data_dir" env:"BLINDSIG_DATA_DIR" env-default:"." validate:"required"`
	DatabasePath     string `yaml:"database_path" env:"BLINDSIG_DATABASE_PATH" env-default:"owner_vault.db"`
	JournalPath      string `yaml:"journal_path" env:"BLINDSIG_JOURNAL_PATH" env-default:"signer_journal.db"`
	LogLevel         string `yaml:"log_level" env:"BLINDSIG_LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	MetricsFile      string `yaml:"metrics_file" env:"BLINDSIG_METRICS_FILE"`
}

// Load builds the configuration. A .env file in BLINDSIG_CONFIG_DIR_PATH is applied to the
// environment first; path, when non-empty, names a YAML file whose values are overridden by
// the environment.
func Load(path string, logger logging.Logger) (*Config, error) {
	logger = logger.NewSystem("config")

	configDirPath := os.Getenv(configDirPathEnv)
	if configDirPath == "" {
		configDirPath = defaultConfigDirPath
	}

	configDotEnvPath := filepath.Join(configDirPath, ".env")
	if err := godotenv.Load(configDotEnvPath); err != nil {
		logger.Debug(".env file not found", "path", configDotEnvPath)
	}

	var cfg Config
	if path != "" {
		logger.Info("loading config file", "path", path)
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read config from environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return nil
}

// ResolvePath joins a relative path onto DataDir.
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

// Dump writes the configuration as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	return enc.Close()
}

func getValidator() *validator.Validate {
	validate := validator.New()

	// Keys are built from two primes of bits/2 bits each.
	if err := validate.RegisterValidation("evenbits", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 == 0
	}); err != nil {
		panic(fmt.Sprintf("failed to register evenbits validation: %v", err))
	}
	return validate
}
