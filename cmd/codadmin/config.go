// Config loading for the codadmin CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/codadmin/internal/paths"
	"github.com/mesh-intelligence/codadmin/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "CODADMIN"

	cfgKeyBaseURL    = "base_url"
	cfgKeyDataDir    = "data_dir"
	cfgKeyActor      = "actor"
	cfgKeyPageSize   = "page_size"
	cfgKeyTimeout    = "timeout"
	cfgKeyRetryCount = "retry_count"
	cfgKeyLogLevel   = "log_level"
	cfgKeyLogFormat  = "log_format"

	defaultLogLevel  = "warn"
	defaultLogFormat = "console"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# codadmin configuration
# Every key can be overridden with a CODADMIN_<KEY> environment variable.

base_url: http://localhost:3001/api/v1
actor: merchant
page_size: 10
timeout: 30s
retry_count: 0
log_level: warn
log_format: console

# Data directory for the session store (optional; overridable by --data-dir)
# data_dir:
`

// settings are the resolved CLI settings.
type settings struct {
	types.Config
	LogLevel  string
	LogFormat string
}

// loadDotEnv loads an optional .env file from the working directory. A
// missing file is not an error.
func loadDotEnv() error {
	if err := godotenv.Load(paths.EnvFileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", paths.EnvFileName, err)
	}
	return nil
}

// loadConfig reads config.yaml from the resolved config directory using Viper.
// It creates the config directory and a default config.yaml on first run.
// A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBaseURL, types.DefaultBaseURL)
	v.SetDefault(cfgKeyActor, string(types.ActorMerchant))
	v.SetDefault(cfgKeyPageSize, types.DefaultPageSize)
	v.SetDefault(cfgKeyTimeout, types.DefaultTimeout)
	v.SetDefault(cfgKeyRetryCount, 0)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLogFormat, defaultLogFormat)
	v.SetDefault(cfgKeyDataDir, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := paths.ConfigFile(configDir)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// settingsFrom reads the settings out of v.
func settingsFrom(v *viper.Viper) settings {
	return settings{
		Config: types.Config{
			BaseURL:    strings.TrimRight(v.GetString(cfgKeyBaseURL), "/"),
			DataDir:    v.GetString(cfgKeyDataDir),
			Actor:      types.Actor(v.GetString(cfgKeyActor)),
			PageSize:   v.GetInt(cfgKeyPageSize),
			Timeout:    v.GetDuration(cfgKeyTimeout),
			RetryCount: v.GetInt(cfgKeyRetryCount),
		},
		LogLevel:  v.GetString(cfgKeyLogLevel),
		LogFormat: v.GetString(cfgKeyLogFormat),
	}
}
