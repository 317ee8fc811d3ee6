// Package config handles the YAML configuration file of the assistant with environment
// overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all assistant configuration.
type Config struct {
	Book      Book      `yaml:"book"`
	Birthdays Birthdays `yaml:"birthdays"`
	Server    Server    `yaml:"server"`
	Log       Log       `yaml:"log"`
}

// Book says where the address book is stored.
type Book struct {
	Driver string `yaml:"driver"` // "sqlite" | "mysql"
	Path   string `yaml:"path"`   // SQLite file
	MySQL  MySQL  `yaml:"mysql"`
}

// MySQL holds the connection parameters of the MySQL backend.
type MySQL struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// Birthdays holds the settings of the upcoming birthdays report.
type Birthdays struct {
	WindowDays int `yaml:"window_days"`
}

// Server holds the settings of the HTTP interface.
type Server struct {
	Address string `yaml:"address"`
	Logging bool   `yaml:"logging"` // gin request logging
}

// Log holds the diagnostics settings.
type Log struct {
	Mode string `yaml:"mode"` // "development" | "production" | "quiet"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Book: Book{
			Driver: "sqlite",
			Path:   "addressbook.db",
			MySQL: MySQL{
				Host:     "localhost:3306",
				Database: "contacts",
			},
		},
		Birthdays: Birthdays{WindowDays: 7},
		Server: Server{
			Address: "localhost:8080",
			Logging: true,
		},
		Log: Log{Mode: "quiet"},
	}
}

// Load reads the YAML config file at path. If the file does not exist, defaults are returned
// without error. Values missing from the file keep their defaults. Unknown fields are an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Empty and comment-only files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: ASSISTANT_BOOK, ASSISTANT_DRIVER, ASSISTANT_LOG, ASSISTANT_WINDOW,
// DBHOST, DBUSER, DBPWD, DBNAME, PORT and GIN_LOGGING.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("ASSISTANT_BOOK"); v != "" {
		c.Book.Path = v
	}
	if v := os.Getenv("ASSISTANT_DRIVER"); v != "" {
		c.Book.Driver = v
	}
	if v := os.Getenv("ASSISTANT_LOG"); v != "" {
		c.Log.Mode = v
	}
	if v := os.Getenv("ASSISTANT_WINDOW"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid ASSISTANT_WINDOW %q: %w", v, err)
		}
		c.Birthdays.WindowDays = days
	}
	if v := os.Getenv("DBHOST"); v != "" {
		c.Book.MySQL.Host = v
	}
	if v := os.Getenv("DBUSER"); v != "" {
		c.Book.MySQL.User = v
	}
	if v := os.Getenv("DBPWD"); v != "" {
		c.Book.MySQL.Password = v
	}
	if v := os.Getenv("DBNAME"); v != "" {
		c.Book.MySQL.Database = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Server.Address = ":" + v
	}
	if v := os.Getenv("GIN_LOGGING"); v != "" {
		c.Server.Logging = !strings.EqualFold(v, "off")
	}
	return nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	switch c.Book.Driver {
	case "sqlite":
		if c.Book.Path == "" {
			return errors.New("config: book.path cannot be empty")
		}
	case "mysql":
		if c.Book.MySQL.Host == "" {
			return errors.New("config: book.mysql.host cannot be empty")
		}
		if c.Book.MySQL.Database == "" {
			return errors.New("config: book.mysql.database cannot be empty")
		}
	default:
		return fmt.Errorf("config: book.driver must be \"sqlite\" or \"mysql\", got %q", c.Book.Driver)
	}
	if c.Birthdays.WindowDays < 0 {
		return fmt.Errorf("config: birthdays.window_days must be non-negative, got %d", c.Birthdays.WindowDays)
	}
	if c.Server.Address == "" {
		return errors.New("config: server.address cannot be empty")
	}
	return nil
}
