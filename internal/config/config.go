package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/chartloom/internal/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// HTTP server
	Addr        string `mapstructure:"addr" yaml:"addr"`
	GinMode     string `mapstructure:"gin_mode" yaml:"gin_mode"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	// Origins allowed to call the JSON API cross-site; empty disables CORS.
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins,omitempty"`

	// Sessions
	SessionTTLMin int `mapstructure:"session_ttl_min" yaml:"session_ttl_min"`
	MaxSessions   int `mapstructure:"max_sessions" yaml:"max_sessions"`

	// Dataset parsing
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	Decimal    string `mapstructure:"decimal" yaml:"decimal"`
	SampleRows int    `mapstructure:"sample_rows" yaml:"sample_rows"`

	// Chart canvas
	ChartWidth  int `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int `mapstructure:"chart_height" yaml:"chart_height"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// SessionTTL returns the idle timeout as a duration.
func (c *Global) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMin) * time.Minute
}

// DelimiterRune decodes the delimiter setting. Empty means sniff from the
// file name; "tab" and `\t` select a tab.
func (c *Global) DelimiterRune() (rune, error) {
	return singleRune("delimiter", c.Delimiter)
}

// DecimalRune decodes the decimal separator setting. Empty means '.'.
func (c *Global) DecimalRune() (rune, error) {
	r, err := singleRune("decimal", c.Decimal)
	if r == 0 && err == nil {
		r = '.'
	}
	return r, err
}

func singleRune(key, s string) (rune, error) {
	switch s {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}
	rs := []rune(s)
	if len(rs) != 1 {
		return 0, fmt.Errorf("invalid %s %q: want a single character", key, s)
	}
	return rs[0], nil
}

// Dir returns ~/.chartloom.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".chartloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.chartloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env (including a local .env) > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; existing environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CHARTLOOM")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("addr", ":8501")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("max_sessions", 256)
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal", "")
	v.SetDefault("sample_rows", 5)
	v.SetDefault("chart_width", 960)
	v.SetDefault("chart_height", 480)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
