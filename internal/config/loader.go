package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/Ning0612/Mirrorsync/internal/domain"
)

// EnvPrefix prefixes every environment variable read by mirrorsync,
// e.g. MIRRORSYNC_LOG_LEVEL for log.level
const EnvPrefix = "MIRRORSYNC"

// Defaults applied before any file, environment or flag value
var defaults = map[string]any{
	"source":             "",
	"destination":        "",
	"interval":           "0s",
	"run_on_start":       false,
	"exclude":            []string{},
	"log.path":           "",
	"log.level":          "info",
	"log.format":         "text",
	"log.console":        true,
	"log.max_size_mb":    10,
	"log.max_age_days":   30,
	"log.max_backups":    5,
	"log.compress":       false,
	"settings.state_dir": "",
	"settings.pid_file":  "",
}

// DefaultConfigPaths returns the default paths to search for config files
func DefaultConfigPaths() []string {
	paths := []string{
		".",
		"./configs",
	}

	// Add user config directory
	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "mirrorsync"))
	}

	// Add home directory
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(homeDir, ".config", "mirrorsync"))
		paths = append(paths, filepath.Join(homeDir, ".mirrorsync"))
	}

	return paths
}

// NewViper returns a viper instance with defaults and environment binding.
// Callers may bind command line flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration into v and decodes it.
// If path is empty, default locations are searched for config.yaml and a
// missing file is not an error: every key may come from the environment
// or flags instead. An explicit path that does not exist is reported as
// domain.ErrConfigNotFound.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		// Use specific file
		v.SetConfigFile(path)
	} else {
		// Search default paths
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && path == "":
			// No config file; defaults, env and flags only
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
		}
	}

	return decode(v)
}

// LoadFromString parses configuration from a YAML string
func LoadFromString(yamlContent string) (*Config, error) {
	v := NewViper()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(strings.NewReader(yamlContent)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	cfg.ExpandPaths()
	if err := cfg.validateLog(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// secondsToDurationHook reads bare numbers as seconds, so "interval: 30"
// means thirty seconds rather than thirty nanoseconds
func secondsToDurationHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		durationType := reflect.TypeOf(time.Duration(0))
		if to != durationType || from == durationType {
			return data, nil
		}

		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Second, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return time.Duration(reflect.ValueOf(data).Uint()) * time.Second, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(reflect.ValueOf(data).Float() * float64(time.Second)), nil
		case reflect.String:
			s := strings.TrimSpace(data.(string))
			if s != "" && strings.Trim(s, "0123456789.") == "" {
				return s + "s", nil
			}
		}
		return data, nil
	}
}
