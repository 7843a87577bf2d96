package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/thisisjab/applogger/engine"
	"github.com/thisisjab/applogger/fault"
	"github.com/thisisjab/applogger/provider"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger       LoggerConfig     `yaml:"logger"`
	TickInterval time.Duration    `yaml:"tick_interval"`
	Providers    []ProviderConfig `yaml:"providers"`
}

// LoggerConfig configures the diagnostics logger, which reports problems of
// the dispatcher itself (failed flushes, for example). It is unrelated to the
// providers.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Type   string `yaml:"type"`
	Output string `yaml:"output"`
}

type ProviderConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

// Load reads and decodes a YAML configuration file.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file content: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse config file: %w", err)
	}

	return cfg, nil
}

func (cfg Config) validate() error {
	md := fault.FieldErrorsMetadata{}

	if cfg.TickInterval < 0 {
		md.Add("tick_interval", "cannot be negative")
	}

	names := make(map[string]bool)
	for i, pc := range cfg.Providers {
		field := fmt.Sprintf("providers[%d]", i)

		switch pc.Type {
		case "":
			md.Add(field+".type", "is required")
		case "console", "file", "script":
		default:
			md.Add(field+".type", fmt.Sprintf("unknown provider type %q", pc.Type))
		}

		if pc.Name != "" {
			if names[pc.Name] {
				md.Add(field+".name", fmt.Sprintf("duplicate provider name %q", pc.Name))
			}
			names[pc.Name] = true
		}
	}

	if len(md) > 0 {
		return fault.New(fault.BadInputCode, "invalid configuration").WithMetadata(md)
	}

	return nil
}

// Parse builds the dispatcher configuration and the diagnostics logger. The
// logger is returned whenever it could be built, even if a later step fails.
func (cfg Config) Parse() (*engine.Config, *slog.Logger, error) {
	logger, err := parseLoggerConfig(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create logger: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, logger, err
	}

	providers := make([]engine.Provider, len(cfg.Providers))
	for i, pc := range cfg.Providers {
		p, err := parseProviderConfig(pc)
		if err != nil {
			return nil, logger, fmt.Errorf("cannot create provider `%s`: %w", pc.Name, err)
		}
		providers[i] = p
	}

	return &engine.Config{
		Providers:    providers,
		TickInterval: cfg.TickInterval,
	}, logger, nil
}

func parseLoggerConfig(cfg LoggerConfig) (*slog.Logger, error) {
	var handler slog.Handler

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	var w io.Writer
	switch cfg.Output {
	case "stdout":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	default:
		return nil, fmt.Errorf("invalid log output: %s", cfg.Output)
	}

	switch cfg.Type {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text", "":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "colored-text":
		handler = tint.NewHandler(w, &tint.Options{Level: level, AddSource: true})
	default:
		return nil, fmt.Errorf("invalid log type: %s", cfg.Type)
	}

	return slog.New(handler), nil
}

func parseProviderConfig(cfg ProviderConfig) (engine.Provider, error) {
	switch cfg.Type {
	case "console":
		var opts provider.ConsoleOptions
		if err := remarshal(cfg.Config, &opts); err != nil {
			return nil, fmt.Errorf("cannot parse console provider config: %w", err)
		}
		opts.Name = cfg.Name

		return provider.NewConsole(opts), nil

	case "file":
		var opts provider.FileOptions
		if err := remarshal(cfg.Config, &opts); err != nil {
			return nil, fmt.Errorf("cannot parse file provider config: %w", err)
		}
		opts.Name = cfg.Name

		return provider.NewFile(opts), nil

	case "script":
		var opts provider.ScriptOptions
		if err := remarshal(cfg.Config, &opts); err != nil {
			return nil, fmt.Errorf("cannot parse script provider config: %w", err)
		}
		opts.Name = cfg.Name

		if opts.ScriptPath == "" {
			return nil, errors.New("script provider requires script_path")
		}

		return provider.NewScript(opts), nil

	default:
		return nil, fmt.Errorf("invalid provider type: %s", cfg.Type)
	}
}

// remarshal takes an input value, marshals it to YAML, and then unmarshals it into output.
// This is useful for converting generic interfaces (like map[string]any) into concrete struct types.
// The output parameter must be a pointer to the target type.
func remarshal(input any, output any) error {
	yamlBytes, err := yaml.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	if err := yaml.Unmarshal(yamlBytes, output); err != nil {
		return fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}

	return nil
}
