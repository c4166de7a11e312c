package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".modelfinder"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for modelfinder settings.
const envPrefix = "MODELFINDER"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// LoadConfig loads configuration from file, env vars, and defaults.
// A .env file in the working directory is loaded into the environment first;
// variables already set win. If configPath is non-empty, it is used as the
// explicit config file path. Otherwise, the config file is searched in CWD
// and $HOME. Missing config file is not an error; defaults are used. Any
// config file that is read is checked against the embedded schema.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)
	viperCfg.SetEnvPrefix(envPrefix)
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	viperCfg.AutomaticEnv()

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName(configName)
		viperCfg.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viperCfg.AddConfigPath(home)
		}
	}

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFound) {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
	}

	if used := viperCfg.ConfigFileUsed(); used != "" && readErr == nil {
		schemaErr := ValidateFile(used)
		if schemaErr != nil {
			return nil, schemaErr
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("discovery.directory", DefaultDirectory)
	viperCfg.SetDefault("discovery.recursive", DefaultRecursive)
	viperCfg.SetDefault("discovery.ignore", []string{})
	viperCfg.SetDefault("discovery.focus", []string{})
	viperCfg.SetDefault("discovery.base_model", DefaultBaseModel)
	viperCfg.SetDefault("discovery.extensions", []string{DefaultExtension})
	viperCfg.SetDefault("discovery.type_paths", []string{})
	viperCfg.SetDefault("discovery.strict", DefaultStrict)
	viperCfg.SetDefault("discovery.workers", DefaultWorkers)
	viperCfg.SetDefault("discovery.cache_size", DefaultCacheSize)

	viperCfg.SetDefault("output.format", DefaultFormat)
	viperCfg.SetDefault("output.no_color", DefaultNoColor)

	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	viperCfg.SetDefault("telemetry.otlp_endpoint", DefaultOTLPEndpoint)
	viperCfg.SetDefault("telemetry.otlp_insecure", DefaultOTLPInsecure)
	viperCfg.SetDefault("telemetry.sample_ratio", DefaultSampleRatio)
	viperCfg.SetDefault("telemetry.metrics_addr", DefaultMetricsAddr)

	viperCfg.SetDefault("neo4j.uri", DefaultNeo4jURI)
	viperCfg.SetDefault("neo4j.user", DefaultNeo4jUser)
	viperCfg.SetDefault("neo4j.password", DefaultNeo4jPassword)
	viperCfg.SetDefault("neo4j.database", DefaultNeo4jDatabase)
}
