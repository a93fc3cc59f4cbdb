package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug            = "debug"
	ConfigBookPath         = "book-path"
	ConfigTTSize           = "tt-size"
	ConfigTTMemoryFraction = "tt-memory-fraction"
	ConfigMaxDepth         = "max-depth"
	ConfigMaxTime          = "max-time"
	ConfigNullWindow       = "null-window"
	ConfigThreads          = "threads"
	ConfigCPUProfile       = "cpu-profile"
	ConfigMemProfile       = "mem-profile"
	ConfigStorePath        = "store-path"
	ConfigNatsURL          = "nats-url"
	ConfigBotChannel       = "bot-channel"
	ConfigFile             = "config"
)

const EnvPrefix = "C4SOLVER"

type Config struct {
	*viper.Viper
}

// DefaultConfig returns a config with every default set and nothing
// loaded from flags, environment or file.
func DefaultConfig() *Config {
	c := &Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigBookPath, "")
	c.SetDefault(ConfigTTSize, 0)
	c.SetDefault(ConfigTTMemoryFraction, 0.0)
	c.SetDefault(ConfigMaxDepth, 0)
	c.SetDefault(ConfigMaxTime, time.Duration(0))
	c.SetDefault(ConfigNullWindow, true)
	c.SetDefault(ConfigThreads, 1)
	c.SetDefault(ConfigCPUProfile, "")
	c.SetDefault(ConfigMemProfile, "")
	c.SetDefault(ConfigStorePath, "")
	c.SetDefault(ConfigNatsURL, "nats://localhost:4222")
	c.SetDefault(ConfigBotChannel, "c4solver.bot")
}

// Load reads settings in increasing order of precedence: defaults, an
// optional YAML file, C4SOLVER_* environment variables and flags. Arguments
// that are not flags are left for the caller in Args.
func (c *Config) Load(args []string) error {
	if c.Viper == nil {
		c.Viper = viper.New()
	}
	c.setDefaults()

	fs := pflag.NewFlagSet("c4solver", pflag.ContinueOnError)
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigBookPath, "", "path of the opening book (see cmd/mkbook); empty disables it")
	fs.Int(ConfigTTSize, 0, "transposition table slots; 0 for the default")
	fs.Float64(ConfigTTMemoryFraction, 0, "size the transposition table to this fraction of system memory")
	fs.Int(ConfigMaxDepth, 0, "maximum search depth in plies; 0 for an exact solve")
	fs.Duration(ConfigMaxTime, 0, "time limit per solve; 0 for none")
	fs.Bool(ConfigNullWindow, true, "use null-window search")
	fs.Int(ConfigThreads, 1, "worker goroutines for autoplay and bench")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	fs.String(ConfigMemProfile, "", "write a memory profile to this file")
	fs.String(ConfigStorePath, "", "sqlite database of solved positions; empty disables it")
	fs.String(ConfigNatsURL, "nats://localhost:4222", "NATS server for the bot")
	fs.String(ConfigBotChannel, "c4solver.bot", "subject the bot listens on")
	fs.String(ConfigFile, "", "YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}

	c.SetEnvPrefix(EnvPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if path := c.GetString(ConfigFile); path != "" {
		c.SetConfigFile(path)
		c.SetConfigType("yaml")
		if err := c.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				log.Warn().Str("path", path).Msg("config-file-not-found")
			} else {
				return fmt.Errorf("reading %s: %w", path, err)
			}
		}
	}
	c.Set("args", fs.Args())
	return nil
}

// Args returns the positional arguments left over by Load.
func (c *Config) Args() []string {
	return c.GetStringSlice("args")
}

// AdjustRelativePaths resolves relative data paths against basepath,
// normally the directory of the executable, when they do not exist
// relative to the working directory.
func (c *Config) AdjustRelativePaths(basepath string) {
	bp := c.GetString(ConfigBookPath)
	if bp == "" || filepath.IsAbs(bp) {
		return
	}
	if _, err := os.Stat(bp); err == nil {
		return
	}
	c.Set(ConfigBookPath, filepath.Join(basepath, bp))
}

// SanitizedSettings returns the settings that are safe to log.
func (c *Config) SanitizedSettings() map[string]any {
	settings := c.AllSettings()
	delete(settings, "args")
	return settings
}
