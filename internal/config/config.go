// Package config provides Viper-based configuration loading for the Ludo server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Name identifies the server in logs.
	Name string `mapstructure:"name"`
	// MaxTables caps the number of concurrently open game tables.
	MaxTables int `mapstructure:"max_tables"`
}

// TelnetConfig holds Telnet acceptor settings.
type TelnetConfig struct {
	// Host is the bind address for the Telnet listener.
	Host string `mapstructure:"host"`
	// Port is the TCP port for the Telnet listener.
	Port int `mapstructure:"port"`
	// ReadTimeout is the per-read timeout for Telnet connections.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the per-write timeout for Telnet connections.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxConnections caps concurrent clients; 0 means no cap.
	MaxConnections int `mapstructure:"max_connections"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// DiceConfig bounds the staggered landing of the six dice.
type DiceConfig struct {
	MinLand       time.Duration `mapstructure:"min_land"`
	MaxLand       time.Duration `mapstructure:"max_land"`
	SafetyTimeout time.Duration `mapstructure:"safety_timeout"`
}

// GameConfig holds the defaults for new tables and the rule engine timing.
type GameConfig struct {
	// Players is the default number of active teams: 2, 3, or 4.
	Players int `mapstructure:"players"`
	// PairMode makes new tables red+green against blue+yellow.
	PairMode bool `mapstructure:"pair_mode"`
	// StepDelay is the pause per cell while a pawn walks.
	StepDelay time.Duration `mapstructure:"step_delay"`
	// SkipDelay is the pause before an unusable roll passes the turn.
	SkipDelay time.Duration `mapstructure:"skip_delay"`
	Dice      DiceConfig    `mapstructure:"dice"`
	// LayoutFile optionally replaces the built-in board layout.
	LayoutFile string `mapstructure:"layout_file"`
	// ScriptsDir optionally points at Lua announcer scripts.
	ScriptsDir string `mapstructure:"scripts_dir"`
	// ScriptInstructionLimit caps the VM instructions per announcer hook call.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Telnet  TelnetConfig  `mapstructure:"telnet"`
	Logging LoggingConfig `mapstructure:"logging"`
	Game    GameConfig    `mapstructure:"game"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateTelnet(c.Telnet); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	var errs []string
	if s.Name == "" {
		errs = append(errs, "server.name must not be empty")
	}
	if s.MaxTables < 1 {
		errs = append(errs, fmt.Sprintf("server.max_tables must be >= 1, got %d", s.MaxTables))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 1 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 1-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 {
		errs = append(errs, "telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		errs = append(errs, "telnet.write_timeout must not be negative")
	}
	if t.MaxConnections < 0 {
		errs = append(errs, fmt.Sprintf("telnet.max_connections must be >= 0, got %d", t.MaxConnections))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateGame(g GameConfig) error {
	var errs []string
	if g.Players < 2 || g.Players > 4 {
		errs = append(errs, fmt.Sprintf("game.players must be 2-4, got %d", g.Players))
	}
	if g.StepDelay < 0 {
		errs = append(errs, "game.step_delay must not be negative")
	}
	if g.SkipDelay < 0 {
		errs = append(errs, "game.skip_delay must not be negative")
	}
	if g.Dice.MinLand < 0 {
		errs = append(errs, "game.dice.min_land must not be negative")
	}
	if g.Dice.MaxLand < g.Dice.MinLand {
		errs = append(errs, "game.dice.max_land must not be less than game.dice.min_land")
	}
	if g.Dice.SafetyTimeout <= g.Dice.MaxLand {
		errs = append(errs, "game.dice.safety_timeout must exceed game.dice.max_land")
	}
	if g.ScriptInstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("game.script_instruction_limit must be >= 0, got %d", g.ScriptInstructionLimit))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with LUDO_ prefix
	v.SetEnvPrefix("LUDO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the built-in defaults.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "Ludo")
	v.SetDefault("server.max_tables", 16)

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "30m")
	v.SetDefault("telnet.write_timeout", "30s")
	v.SetDefault("telnet.max_connections", 64)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.players", 4)
	v.SetDefault("game.pair_mode", false)
	v.SetDefault("game.step_delay", "250ms")
	v.SetDefault("game.skip_delay", "1s")
	v.SetDefault("game.dice.min_land", "400ms")
	v.SetDefault("game.dice.max_land", "1200ms")
	v.SetDefault("game.dice.safety_timeout", "3s")
	v.SetDefault("game.layout_file", "")
	v.SetDefault("game.scripts_dir", "")
	v.SetDefault("game.script_instruction_limit", 100000)
}
