package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/fboucher/terminal-tools/internal/platform"
	"github.com/fboucher/terminal-tools/internal/speech"
)

// Config captures the persistent settings for the vaani CLI. Command-line
// flags override these values.
type Config struct {
	Endpoint             string        `mapstructure:"endpoint"`
	Language             string        `mapstructure:"language"`
	Translate            bool          `mapstructure:"translate"`
	ReturnAudio          bool          `mapstructure:"return_audio"`
	Timeout              time.Duration `mapstructure:"timeout"`
	SilenceGate          bool          `mapstructure:"silence_gate"`
	SilenceThresholdDBFS float64       `mapstructure:"silence_threshold_dbfs"`
	Transcoder           string        `mapstructure:"transcoder"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from the YAML config file and
// VAANI_* environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfg := os.Getenv("VAANI_CONFIG_FILE"); cfg != "" {
		v.SetConfigFile(cfg)
		explicitFile = true
	}

	if !explicitFile {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := platform.ResolveConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("VAANI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures the loaded values are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		c.Endpoint = speech.DefaultEndpoint
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %s", c.Timeout)
	}
	if c.Timeout == 0 {
		c.Timeout = speech.DefaultTimeout
	}

	if c.SilenceThresholdDBFS >= 0 {
		return fmt.Errorf("silence_threshold_dbfs must be negative, got %g", c.SilenceThresholdDBFS)
	}

	switch c.Transcoder {
	case "", "auto", "ffmpeg", "sox":
	default:
		return fmt.Errorf("transcoder must be auto, ffmpeg, or sox, got %q", c.Transcoder)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("endpoint", speech.DefaultEndpoint)
	v.SetDefault("language", speech.DefaultLanguage)
	v.SetDefault("translate", false)
	v.SetDefault("return_audio", false)
	v.SetDefault("timeout", "5m")
	v.SetDefault("silence_gate", false)
	v.SetDefault("silence_threshold_dbfs", -65.0)
	v.SetDefault("transcoder", "auto")
}
