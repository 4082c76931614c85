// Package config loads domain.Config from defaults, a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/opensource-finance/lendscore/internal/domain"
)

const (
	// EnvPrefix prefixes every configuration variable.
	EnvPrefix = "LENDSCORE_"

	// EnvConfigFile names an optional YAML configuration file.
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering, lowest precedence first:
//  1. domain.DefaultConfig()
//  2. the YAML file named by LENDSCORE_CONFIG, if set
//  3. LENDSCORE_* environment variables, with "__" separating nested keys
//     (LENDSCORE_SERVER__PORT -> server.port)
func Load() (*domain.Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", envKey)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := *domain.DefaultConfig()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}

// Validate rejects configurations the binaries cannot start with.
func Validate(cfg *domain.Config) error {
	var errs []error

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", cfg.Server.Port))
	}
	if cfg.Dashboard.Server.Port <= 0 || cfg.Dashboard.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("dashboard.server.port %d out of range", cfg.Dashboard.Server.Port))
	}
	if cfg.Dashboard.APIURL == "" {
		errs = append(errs, errors.New("dashboard.api_url must not be empty"))
	}
	if cfg.Dashboard.APITimeout <= 0 {
		errs = append(errs, errors.New("dashboard.api_timeout must be positive"))
	}
	if cfg.Dashboard.ReportTTL <= 0 {
		errs = append(errs, errors.New("dashboard.report_ttl must be positive"))
	}

	switch cfg.Model.Source {
	case domain.ModelSourceFile:
		if cfg.Model.Dir == "" {
			errs = append(errs, errors.New("model.dir is required for the file source"))
		}
	case domain.ModelSourceRepository:
	default:
		errs = append(errs, fmt.Errorf("unsupported model.source %q", cfg.Model.Source))
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unsupported logging.level %q", cfg.Logging.Level))
	}

	return errors.Join(errs...)
}
