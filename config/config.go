// Package config supplies the engine-wide settings the transformer and
// coordinator consume: the multi-value delimiter, the schema compatibility
// mode, date/time formats and the local time zone.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SchemaCompatibilityMode selects which field-identification convention the
// engine uses when reading source records: field names or display labels.
// Resolved once at startup, never re-checked per field.
type SchemaCompatibilityMode int

const (
	FieldsByName SchemaCompatibilityMode = iota
	FieldsByLabel
)

func (m SchemaCompatibilityMode) String() string {
	switch m {
	case FieldsByLabel:
		return "label"
	default:
		return "name"
	}
}

// ParseSchemaCompatibilityMode parses "name" or "label".
func ParseSchemaCompatibilityMode(s string) (SchemaCompatibilityMode, error) {
	switch s {
	case "", "name":
		return FieldsByName, nil
	case "label":
		return FieldsByLabel, nil
	default:
		return FieldsByName, fmt.Errorf("unknown schema compatibility mode %q", s)
	}
}

func (m *SchemaCompatibilityMode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	mode, err := ParseSchemaCompatibilityMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// Config holds engine configuration.
type Config struct {
	// Delimiter joins and splits multi-value field content. Default ";".
	Delimiter string `yaml:"delimiter"`

	// SchemaCompat selects name- or label-based field identification.
	SchemaCompat SchemaCompatibilityMode `yaml:"schema_compat"`

	// DateFormat is the Go layout for local calendar-date values.
	// Default "2006-01-02".
	DateFormat string `yaml:"date_format"`

	// DateTimeFormat is the Go layout for local combined date-time values.
	// Default "2006-01-02 15:04:05".
	DateTimeFormat string `yaml:"datetime_format"`

	// TimeZone is the IANA zone name remote DateTime values are converted
	// into on pull. Empty means the process-local zone.
	TimeZone string `yaml:"time_zone"`

	// Logging configures the engine logger.
	Logging LoggingConfig `yaml:"logging"`

	loc *time.Location
}

// LoggingConfig mirrors logging.Config so a single YAML file configures both.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// setDefaults applies default values to the config.
func (c *Config) setDefaults() {
	if c.Delimiter == "" {
		c.Delimiter = ";"
	}
	if c.DateFormat == "" {
		c.DateFormat = "2006-01-02"
	}
	if c.DateTimeFormat == "" {
		c.DateTimeFormat = "2006-01-02 15:04:05"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Resolve validates the config and resolves the time zone. Must be called
// (directly or via a constructor) before the config is used.
func (c *Config) Resolve() error {
	c.setDefaults()

	if c.TimeZone == "" {
		c.loc = time.Local
		return nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	c.loc = loc
	return nil
}

// Location returns the resolved local time zone.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.Local
	}
	return c.loc
}

// Default returns a resolved Config with default settings.
func Default() *Config {
	c := &Config{}
	// Resolve cannot fail with an empty time zone.
	_ = c.Resolve()
	return c
}

// Load reads a YAML config file and resolves it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Resolve(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadEnv builds a Config from environment variables, loading a .env file
// first when one is present. Recognized variables:
//
//	FIELDSYNC_DELIMITER, FIELDSYNC_SCHEMA_COMPAT, FIELDSYNC_DATE_FORMAT,
//	FIELDSYNC_DATETIME_FORMAT, FIELDSYNC_TIME_ZONE, FIELDSYNC_LOG_LEVEL
func LoadEnv() (*Config, error) {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	mode, err := ParseSchemaCompatibilityMode(os.Getenv("FIELDSYNC_SCHEMA_COMPAT"))
	if err != nil {
		return nil, err
	}

	c := &Config{
		Delimiter:      os.Getenv("FIELDSYNC_DELIMITER"),
		SchemaCompat:   mode,
		DateFormat:     os.Getenv("FIELDSYNC_DATE_FORMAT"),
		DateTimeFormat: os.Getenv("FIELDSYNC_DATETIME_FORMAT"),
		TimeZone:       os.Getenv("FIELDSYNC_TIME_ZONE"),
		Logging: LoggingConfig{
			Level: os.Getenv("FIELDSYNC_LOG_LEVEL"),
		},
	}
	if err := c.Resolve(); err != nil {
		return nil, err
	}
	return c, nil
}
