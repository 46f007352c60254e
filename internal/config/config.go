package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

const (
	SourceNm   = "nm"
	SourceElf  = "elf"
	SourceDump = "dump"
)

var defaultConfig = Config{
	BinaryPath:   "./bin/kernel.elf_x86_64",
	NmTool:       "nm",
	NmOrderFlag:  "-n",
	Source:       SourceNm,
	Header:       "stacktrace.h",
	StructName:   "stacktrace_symbol_table_entry",
	TableName:    "stacktrace_symtable",
	SentinelName: "INVALID SYMBOL",
	EscapeNames:  true,
	LogLevel:     "INFO",
}

type Config struct {
	BinaryPath  string `yaml:"binary" env:"SYMTABGEN_BINARY"`
	NmTool      string `yaml:"nm" env:"SYMTABGEN_NM"`
	NmOrderFlag string `yaml:"nm_order_flag" env:"SYMTABGEN_NM_ORDER_FLAG"`
	// Source selects where symbols come from: nm, elf or dump.
	Source   string `yaml:"source" env:"SYMTABGEN_SOURCE"`
	DumpPath string `yaml:"dump" env:"SYMTABGEN_DUMP"`

	Header       string `yaml:"header" env:"SYMTABGEN_HEADER"`
	StructName   string `yaml:"struct_name" env:"SYMTABGEN_STRUCT"`
	TableName    string `yaml:"table_name" env:"SYMTABGEN_TABLE"`
	SentinelName string `yaml:"sentinel_name" env:"SYMTABGEN_SENTINEL"`
	EscapeNames  bool   `yaml:"escape_names" env:"SYMTABGEN_ESCAPE_NAMES"`

	PprofPath string `yaml:"pprof" env:"SYMTABGEN_PPROF"`
	LogLevel  string `yaml:"log_level" env:"SYMTABGEN_LOG_LEVEL"`
}

type ConfigError string

func (e ConfigError) Error() string {
	return string(e)
}

func Default() Config {
	return defaultConfig
}

// LoadConfig overrides configuration in the following order (from less to most priority)
// 1 - Default configuration
// 2 - Contents of the provided YAML reader (nillable)
// 3 - Environment variables
func LoadConfig(file io.Reader) (*Config, error) {
	cfg := defaultConfig
	if file != nil {
		cfgBuf, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(cfgBuf, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("reading env vars: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Source {
	case SourceNm:
		if c.NmTool == "" {
			return ConfigError("missing nm tool (SYMTABGEN_NM)")
		}
		if c.BinaryPath == "" {
			return ConfigError("missing kernel binary path (SYMTABGEN_BINARY)")
		}
	case SourceElf:
		if c.BinaryPath == "" {
			return ConfigError("missing kernel binary path (SYMTABGEN_BINARY)")
		}
	case SourceDump:
		if c.DumpPath == "" {
			return ConfigError("source 'dump' requires a dump path (SYMTABGEN_DUMP)")
		}
	default:
		return ConfigError(fmt.Sprintf("unknown source %q: use nm, elf or dump", c.Source))
	}
	if c.Header == "" || c.StructName == "" || c.TableName == "" {
		return ConfigError("header, struct_name and table_name must not be empty")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, ConfigError(fmt.Sprintf("invalid log level %q", c.LogLevel))
	}
	return lvl, nil
}
