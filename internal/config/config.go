package config

import (
	"log/slog"
	"net/url"

	"github.com/spf13/pflag"
)

// DefaultFileMatch associates the schema with entity files of a behavior pack
// when neither the config file nor the data manifest names a pattern.
const DefaultFileMatch = "**/addon/behavior_pack/entities/**/*.json"

// TLSConfig holds TLS configuration options
type TLSConfig struct {
	Enabled      bool
	CertFile     string
	KeyFile      string
	GenerateCert bool
}

// CORSConfig holds CORS configuration options
type CORSConfig struct {
	Enabled          bool
	AllowOrigins     string
	AllowMethods     string
	AllowHeaders     string
	AllowCredentials bool
	MaxAge           int
}

// LogConfig selects the log level and output format
type LogConfig struct {
	Level  string
	Format string
}

// Config holds the application configuration
type Config struct {
	Port int
	// DataDir overrides the embedded schema data when set.
	DataDir string
	Watch   bool
	// FileMatch overrides the globs advertised by the data manifest.
	FileMatch     []string
	CacheEnabled  bool
	CheckRefs     bool
	ProxyURL      *url.URL
	InsecureProxy bool
	TLS           TLSConfig
	CORS          CORSConfig
	Log           LogConfig
}

// Flags holds command line values that override the config file
type Flags struct {
	ConfigPath string
	DataDir    string
	Port       int
	LogLevel   string
	Watch      bool
}

// Register adds the override flags to fs
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "config.yml", "Path to configuration file")
	fs.StringVarP(&f.DataDir, "data-dir", "d", "", "Directory containing baseline.json and patches/ (overrides config)")
	fs.IntVarP(&f.Port, "port", "p", 0, "Port to listen on (overrides config)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")
	fs.BoolVar(&f.Watch, "watch", false, "Reload the data directory when it changes (overrides config)")
}

// Resolve loads the config file named by the flags and applies the overrides.
// A missing or unreadable config file falls back to the defaults.
func (f *Flags) Resolve() *Config {
	config, err := LoadConfig(f.ConfigPath)
	if err != nil {
		slog.Warn("could not load config file, using defaults", "path", f.ConfigPath, "error", err)
		config = Default()
	}

	if f.DataDir != "" {
		config.DataDir = f.DataDir
	}
	if f.Port != 0 {
		config.Port = f.Port
	}
	if f.LogLevel != "" {
		config.Log.Level = f.LogLevel
	}
	if f.Watch {
		config.Watch = true
	}

	return config
}
