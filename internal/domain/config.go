package domain

import "time"

// Config represents the application configuration
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig contains history store configuration. It is captured by value
// when the store is opened and never changes afterwards.
type StoreConfig struct {
	DatabasePath  string        `mapstructure:"database_path"`
	IgnoreHistory bool          `mapstructure:"ignore_history"` // Report every file as not downloaded
	IgnoreCache   bool          `mapstructure:"ignore_cache"`   // Report every cache read as a miss
	BusyTimeout   time.Duration `mapstructure:"busy_timeout"`
}

// ServerConfig contains settings of the read-only inspection API
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // categorized JSON logs, disabled when empty
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			DatabasePath:  "$HOME/.dl-history/download_history.sqlite",
			IgnoreHistory: false,
			IgnoreCache:   false,
			BusyTimeout:   30 * time.Second,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8089,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stderr",
		},
	}
}
