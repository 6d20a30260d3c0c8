// Package config loads injgen's configuration from an optional config file
// (injgen.toml, injgen.yaml or injgen.json), a .env file and INJGEN_*
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/refaktor/injgen/logging"
)

const (
	// FileName is the base name searched for when no config file is given.
	FileName  = "injgen"
	EnvPrefix = "INJGEN"
)

type Output struct {
	// Suffix is appended to the snake-cased artifact name to form the file
	// name of generated files.
	Suffix string `mapstructure:"suffix" validate:"required,endswith=.go"`
	// DryRun keeps generated files in memory.
	DryRun bool `mapstructure:"dry_run"`
}

type Config struct {
	// Dir is the directory packages are loaded from.
	Dir string `mapstructure:"dir"`
	// Packages are the package patterns processed for inject directives.
	Packages   []string `mapstructure:"packages" validate:"required,min=1,dive,required"`
	BuildFlags []string `mapstructure:"build_flags"`
	// Env holds additional KEY=VALUE pairs for the go command.
	Env    []string `mapstructure:"env" validate:"dive,contains=="`
	Output Output   `mapstructure:"output"`
	// MaxRounds bounds the number of load-discover-generate rounds.
	MaxRounds int `mapstructure:"max_rounds" validate:"min=1,max=100"`
	// WarnImplicit reports a note for every artifact generated for a type
	// outside the processed packages.
	WarnImplicit bool `mapstructure:"warn_implicit"`
	// DebugGraph is a file to write the discovered dependency graph to, in
	// DOT format. Empty disables it.
	DebugGraph string         `mapstructure:"debug_graph"`
	Log        logging.Config `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dir", "")
	v.SetDefault("packages", []string{"./..."})
	v.SetDefault("build_flags", []string{})
	v.SetDefault("env", []string{})
	v.SetDefault("output.suffix", ".injgen.go")
	v.SetDefault("output.dry_run", false)
	v.SetDefault("max_rounds", 10)
	v.SetDefault("warn_implicit", true)
	v.SetDefault("debug_graph", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.no_color", false)
	v.SetDefault("log.timestamp", false)
}

// Options selects where configuration is read from.
type Options struct {
	// ConfigFile is an explicit config file. If empty, a file named
	// [FileName] with a supported extension is searched for in SearchDir.
	ConfigFile string
	// EnvFile is an explicit .env file. If empty, SearchDir/.env is used
	// if it exists.
	EnvFile   string
	SearchDir string
}

// Load reads, defaults and validates the configuration.
func Load(opts Options) (*Config, error) {
	searchDir := opts.SearchDir
	if searchDir == "" {
		searchDir = "."
	}

	envFile := opts.EnvFile
	if envFile == "" {
		if p := filepath.Join(searchDir, ".env"); fileExists(p) {
			envFile = p
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, &Error{filePath: envFile, err: err}
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(searchDir)
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is only an error if it was asked for.
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, &Error{filePath: configPath(v, opts.ConfigFile), err: err}
		}
	}
	used := v.ConfigFileUsed()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &Error{filePath: used, err: err}
	}
	cfg.ApplyDefaults(used)
	if err := cfg.Validate(); err != nil {
		return nil, &Error{filePath: used, err: err}
	}
	return cfg, nil
}

func configPath(v *viper.Viper, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return v.ConfigFileUsed()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ApplyDefaults fills in values that depend on where the config was
// found. configFile is the config file used, or "".
func (c *Config) ApplyDefaults(configFile string) {
	if c.Dir == "" {
		if configFile != "" {
			c.Dir = filepath.Dir(configFile)
		} else {
			c.Dir = "."
		}
	} else if configFile != "" && !filepath.IsAbs(c.Dir) {
		c.Dir = filepath.Join(filepath.Dir(configFile), c.Dir)
	}
	c.Log.ApplyDefaults()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and the logging config.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	return c.Log.Validate()
}
