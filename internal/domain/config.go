package domain

import "time"

// Config holds the complete Lendscore configuration.
type Config struct {
	// Prediction service settings
	Server ServerConfig `koanf:"server"`

	// Dashboard front end settings
	Dashboard DashboardConfig `koanf:"dashboard"`

	// Model artifact loading
	Model ModelConfig `koanf:"model"`

	// Component configurations
	Repository RepositoryConfig `koanf:"repository"`
	Cache      CacheConfig      `koanf:"cache"`

	// Observability
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `koanf:"host"`
	Port         int    `koanf:"port"`
	ReadTimeout  int    `koanf:"read_timeout"`  // seconds
	WriteTimeout int    `koanf:"write_timeout"` // seconds
}

// DashboardConfig holds the interactive front end settings.
type DashboardConfig struct {
	Server ServerConfig `koanf:"server"`

	// APIURL is the base URL of the prediction service.
	APIURL string `koanf:"api_url"`

	// APITimeout bounds the single prediction round trip. No retries are made.
	APITimeout time.Duration `koanf:"api_timeout"`

	// ColumnsPath points at a local columns artifact. When empty the
	// columns are fetched from the prediction service.
	ColumnsPath string `koanf:"columns_path"`

	// ReportTTL is how long a rendered report stays downloadable.
	ReportTTL time.Duration `koanf:"report_ttl"`
}

// ModelConfig selects where the model artifacts are read from.
type ModelConfig struct {
	// Source is "file" or "repository".
	Source string `koanf:"source"`

	// Dir holds columns.json, scaler.json and model.json for the file source.
	Dir string `koanf:"dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// Model artifact sources.
const (
	ModelSourceFile       = "file"
	ModelSourceRepository = "repository"
)

// DefaultConfig returns the default configuration: file artifacts, SQLite
// artifact registry and an in-memory report store.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Dashboard: DashboardConfig{
			Server: ServerConfig{
				Host:         "0.0.0.0",
				Port:         8501,
				ReadTimeout:  30,
				WriteTimeout: 30,
			},
			APIURL:     "http://127.0.0.1:5000",
			APITimeout: 10 * time.Second,
			ReportTTL:  15 * time.Minute,
		},
		Model: ModelConfig{
			Source: ModelSourceFile,
			Dir:    "./artifacts",
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./lendscore.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 1000,
			LocalTTL:     5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
