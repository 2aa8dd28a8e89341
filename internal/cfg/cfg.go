package cfg

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"churn-predictor/internal/common"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ModelStoreDir  string
	DataPath       string
	DefaultModel   common.ModelID
	ServerPort     int
	ChurnThreshold float64
	RequestTimeout time.Duration
	MaxRecords     int
	LogLevel       string
}

type ConfigFile struct {
	Models struct {
		StoreDir     string `yaml:"storeDir"`
		DefaultModel string `yaml:"defaultModel"`
	} `yaml:"models"`

	Server struct {
		Port           int    `yaml:"port"`
		RequestTimeout string `yaml:"requestTimeout"`
		MaxRecords     int    `yaml:"maxRecords"`
	} `yaml:"server"`

	Report struct {
		ChurnThreshold *float64 `yaml:"churnThreshold"` // nil when unset, so 0 is a valid threshold
	} `yaml:"report"`

	System struct {
		DataPath string `yaml:"dataPath"`
		LogLevel string `yaml:"logLevel"`
	} `yaml:"system"`
}

// Load reads a .env file if present, then the YAML file named by CONFIG_FILE or,
// without one, the environment. Environment variables override the YAML file.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file loaded, continuing with environment variables")
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	requestTimeout, err := time.ParseDuration(config.Server.RequestTimeout)
	if err != nil {
		requestTimeout = common.DefaultRequestTimeout
	}

	settings := Settings{
		ModelStoreDir:  getEnvOrDefault(common.EnvModelStoreDir, orDefault(config.Models.StoreDir, common.DefaultModelStoreDir)),
		DataPath:       getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		ServerPort:     getIntFromEnvOrConfig(common.EnvServerPort, config.Server.Port, common.DefaultServerPort),
		ChurnThreshold: getFloatFromEnvOrConfig(common.EnvChurnThreshold, config.Report.ChurnThreshold, common.DefaultChurnThreshold),
		RequestTimeout: getDurationOrDefault(common.EnvRequestTimeout, requestTimeout),
		MaxRecords:     getIntFromEnvOrConfig(common.EnvMaxRecords, config.Server.MaxRecords, common.DefaultMaxRecords),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
	}

	model, err := common.ParseModelID(getEnvOrDefault(common.EnvDefaultModel, orDefault(config.Models.DefaultModel, common.DefaultModel)))
	if err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	settings.DefaultModel = model

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	model, err := common.ParseModelID(getEnvOrDefault(common.EnvDefaultModel, common.DefaultModel))
	if err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	settings := Settings{
		ModelStoreDir:  getEnvOrDefault(common.EnvModelStoreDir, common.DefaultModelStoreDir),
		DataPath:       os.Getenv(common.EnvDataPath), // optional
		DefaultModel:   model,
		ServerPort:     getIntOrDefault(common.EnvServerPort, common.DefaultServerPort),
		ChurnThreshold: getFloatOrDefault(common.EnvChurnThreshold, common.DefaultChurnThreshold),
		RequestTimeout: getDurationOrDefault(common.EnvRequestTimeout, common.DefaultRequestTimeout),
		MaxRecords:     getIntOrDefault(common.EnvMaxRecords, common.DefaultMaxRecords),
		LogLevel:       getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func orDefault(v, defaultValue string) string {
	if v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if configValue != 0 {
		defaultValue = configValue
	}
	return getIntOrDefault(key, defaultValue)
}

func getFloatFromEnvOrConfig(key string, configValue *float64, defaultValue float64) float64 {
	if configValue != nil {
		defaultValue = *configValue
	}
	return getFloatOrDefault(key, defaultValue)
}

// validateSettings performs validation of configuration values
func validateSettings(settings *Settings) error {
	if strings.TrimSpace(settings.ModelStoreDir) == "" {
		return fmt.Errorf("model store directory cannot be empty")
	}
	if !settings.DefaultModel.Valid() {
		return fmt.Errorf("unknown default model %q", settings.DefaultModel)
	}

	if settings.ServerPort < common.MinServerPort || settings.ServerPort > common.MaxServerPort {
		return fmt.Errorf("server port must be between %d and %d, got %d",
			common.MinServerPort, common.MaxServerPort, settings.ServerPort)
	}
	if settings.RequestTimeout < time.Second || settings.RequestTimeout > 10*time.Minute {
		return fmt.Errorf("request timeout must be between 1s and 10m, got %v", settings.RequestTimeout)
	}
	if settings.MaxRecords <= 0 || settings.MaxRecords > common.MaxRecordLimit {
		return fmt.Errorf("max records must be between 1 and %d, got %d", common.MaxRecordLimit, settings.MaxRecords)
	}

	if settings.ChurnThreshold < 0 || settings.ChurnThreshold > 1 {
		return fmt.Errorf("churn threshold must be between 0 and 1, got %f", settings.ChurnThreshold)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}

	return nil
}
