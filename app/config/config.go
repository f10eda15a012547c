package config

import (
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yaml"

type Config struct {
	Log      Log      `yaml:"log"`
	Server   Server   `yaml:"server"`
	Storage  Storage  `yaml:"storage"`
	Admin    Admin    `yaml:"admin"`
	Lexicon  Lexicon  `yaml:"lexicon"`
	Replies  Replies  `yaml:"replies"`
	Cooldown Cooldown `yaml:"cooldown"`
}

type Server struct {
	// Listen address of the HTTP API
	Listen string `yaml:"listen" example:"0.0.0.0:8889" validate:"required"`
	// Bearer token required by the HTTP API
	Token string `yaml:"token" example:"3f9a1c0e5b7d2f4a6c8e0b1d3f5a7c9e" validate:"required,min=16"`
}

type Storage struct {
	// Storage backend
	Driver string `yaml:"driver" example:"file" validate:"required,oneof=file sqlite"`
	// Root directory of the file backend, one subdirectory per bot
	DataDir string `yaml:"data_dir" example:"data" validate:"required"`
	// SQLite database file of the sqlite backend
	SQLitePath string `yaml:"sqlite_path" example:"data/keyword.db" validate:"required_if=Driver sqlite"`
}

type Admin struct {
	// Comma or newline separated list of privileged caller ids
	File string `yaml:"file" example:"data/admins.txt" validate:"required"`
	// Reload the list when the file changes on disk
	Watch bool `yaml:"watch" example:"true"`
}

type Lexicon struct {
	// Scope searched last for every caller
	CommonScope string `yaml:"common_scope" example:"common" validate:"required"`
	// Prefix of the default personal scope of a caller
	PersonalPrefix string `yaml:"personal_prefix" example:"M_" validate:"required"`
	// Override scopes starting with this prefix get variable expansion
	ExpansionPrefix string `yaml:"expansion_prefix" example:"E" validate:"required"`
	// Turn full-width brackets, parentheses, braces and colons into ASCII when teaching
	NormalizeFullwidth bool `yaml:"normalize_fullwidth" example:"false"`
}

type Replies struct {
	// Used when the scope has no cooling reply configured, [冷却] is replaced with the remaining seconds
	Cooling string `yaml:"cooling" example:"冷却中，剩余[冷却]秒" validate:"required"`
	// Used when the scope has no condition-failed reply configured
	ConditionFailed string `yaml:"condition_failed" example:"条件不满足" validate:"required"`
}

type Cooldown struct {
	// Size of the write-behind queue for cooldown ledgers
	FlushQueueSize int `yaml:"flush_queue_size" example:"64" validate:"min=0"`
}

type Log struct {
	// Minimal level: debug, info, warn, error
	Level string `yaml:"level" example:"info" validate:"omitempty,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load(path string) (*Config, error) {
	var result Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	result.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Listen == "" {
		c.Server.Listen = "0.0.0.0:8889"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "file"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = filepath.Join(c.Storage.DataDir, "keyword.db")
	}
	if c.Admin.File == "" {
		c.Admin.File = filepath.Join(c.Storage.DataDir, "admins.txt")
	}
	if c.Lexicon.CommonScope == "" {
		c.Lexicon.CommonScope = "common"
	}
	if c.Lexicon.PersonalPrefix == "" {
		c.Lexicon.PersonalPrefix = "M_"
	}
	if c.Lexicon.ExpansionPrefix == "" {
		c.Lexicon.ExpansionPrefix = "E"
	}
	if c.Replies.Cooling == "" {
		c.Replies.Cooling = "冷却中，剩余[冷却]秒"
	}
	if c.Replies.ConditionFailed == "" {
		c.Replies.ConditionFailed = "条件不满足"
	}
	if c.Cooldown.FlushQueueSize == 0 {
		c.Cooldown.FlushQueueSize = 64
	}
}

// Default returns a configuration with every default applied, used by tests
// and by commands that run without a config file.
func Default() *Config {
	var result Config
	result.applyDefaults()
	return &result
}
