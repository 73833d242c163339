// Package config provides Viper-based hierarchical configuration:
// defaults, then an optional YAML config file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"statement-ingest/internal/logging"
)

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Data struct {
		Directory string `mapstructure:"directory" yaml:"directory"`
	} `mapstructure:"data" yaml:"data"`

	CSV struct {
		Delimiter      string `mapstructure:"delimiter" yaml:"delimiter"`
		IncludeHeaders bool   `mapstructure:"include_headers" yaml:"include_headers"`
	} `mapstructure:"csv" yaml:"csv"`

	Parser struct {
		MinTextLength        int `mapstructure:"min_text_length" yaml:"min_text_length"`
		MinRowsPerTable      int `mapstructure:"min_rows_per_table" yaml:"min_rows_per_table"`
		MaxDescriptionLength int `mapstructure:"max_description_length" yaml:"max_description_length"`
	} `mapstructure:"parser" yaml:"parser"`

	Ingest struct {
		DefaultCurrency string `mapstructure:"default_currency" yaml:"default_currency"`
		DefaultUser     string `mapstructure:"default_user" yaml:"default_user"`
	} `mapstructure:"ingest" yaml:"ingest"`
}

// InitializeConfig loads configuration with hierarchical precedence.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.statement-ingest")
	v.AddConfigPath(".statement-ingest")
	v.AddConfigPath(".")

	v.SetEnvPrefix("STMT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("data.directory", ".statement-ingest/data")

	v.SetDefault("csv.delimiter", ",")
	v.SetDefault("csv.include_headers", true)

	v.SetDefault("parser.min_text_length", 50)
	v.SetDefault("parser.min_rows_per_table", 2)
	v.SetDefault("parser.max_description_length", 150)

	v.SetDefault("ingest.default_currency", "SGD")
	v.SetDefault("ingest.default_user", "local")
}

func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}
	if len(config.CSV.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}
	if config.Parser.MinRowsPerTable < 1 {
		return fmt.Errorf("parser.min_rows_per_table must be at least 1, got: %d", config.Parser.MinRowsPerTable)
	}
	if config.Data.Directory == "" {
		return fmt.Errorf("data.directory must not be empty")
	}
	return nil
}

// ConfigureLoggingFromConfig builds a logger matching the Log section and
// retunes every logger handed out by the logging registry to the same level
// and format.
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	var formatter logrus.Formatter
	if strings.ToLower(config.Log.Format) == "json" {
		formatter = &logrus.JSONFormatter{}
	} else {
		formatter = &logrus.TextFormatter{
			FullTimestamp: true,
		}
	}
	logger.SetFormatter(formatter)

	logging.SetAllLogLevels(logLevel)
	logging.SetAllFormatters(formatter)

	return logger
}

var envOnce sync.Once

// LoadEnv loads a .env file from the working directory once, if present.
// Missing files are fine; real environment variables always win.
func LoadEnv() {
	envOnce.Do(func() {
		if _, err := os.Stat(".env"); os.IsNotExist(err) {
			return
		}
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: error loading .env file: %v\n", err)
		}
	})
}
