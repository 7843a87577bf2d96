package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/thisisjab/applogger/entity"
	"github.com/thisisjab/applogger/fault"
	"github.com/thisisjab/applogger/provider"
	"gopkg.in/yaml.v3"
)

const sampleConfig = `
logger:
  level: debug
  type: colored-text
tick_interval: 500ms
providers:
  - name: stdout
    type: console
    config:
      min_level: trace
      color: true
  - name: app-file
    type: file
    config:
      min_level: warning
      flush_interval: 5s
      directory_path: /tmp/applogger
      file_name: app.log
      rotation_interval: daily
  - name: lua
    type: script
    config:
      script_path: ./sink.lua
      function: sink
`

func parseSample(t *testing.T, content string) Config {
	t.Helper()
	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		t.Fatalf("cannot unmarshal config: %v", err)
	}
	return cfg
}

func TestParse(t *testing.T) {
	cfg := parseSample(t, sampleConfig)

	engineCfg, logger, err := cfg.Parse()
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected a logger")
	}

	if engineCfg.TickInterval != 500*time.Millisecond {
		t.Fatalf("TickInterval = %s, want 500ms", engineCfg.TickInterval)
	}
	if len(engineCfg.Providers) != 3 {
		t.Fatalf("got %d providers, want 3", len(engineCfg.Providers))
	}

	console, ok := engineCfg.Providers[0].(*provider.Console)
	if !ok {
		t.Fatalf("provider 0 is %T, want *provider.Console", engineCfg.Providers[0])
	}
	if console.Name() != "stdout" || console.MinLevel() != entity.LogLevelTrace {
		t.Fatalf("console = (%q, %s), want (stdout, Trace)", console.Name(), console.MinLevel())
	}

	file, ok := engineCfg.Providers[1].(*provider.File)
	if !ok {
		t.Fatalf("provider 1 is %T, want *provider.File", engineCfg.Providers[1])
	}
	if file.MinLevel() != entity.LogLevelWarning || file.FlushInterval() != 5*time.Second {
		t.Fatalf("file = (%s, %s), want (Warning, 5s)", file.MinLevel(), file.FlushInterval())
	}

	date := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)
	if got, want := file.Path(date), filepath.Join("/tmp/applogger", "app_2024-03-07.log"); got != want {
		t.Fatalf("file path = %q, want %q", got, want)
	}

	if _, ok := engineCfg.Providers[2].(*provider.Script); !ok {
		t.Fatalf("provider 2 is %T, want *provider.Script", engineCfg.Providers[2])
	}
}

func TestParseDefaults(t *testing.T) {
	cfg := parseSample(t, `
providers:
  - type: console
  - type: file
`)

	engineCfg, _, err := cfg.Parse()
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	for _, p := range engineCfg.Providers {
		if p.MinLevel() != entity.LogLevelInfo {
			t.Fatalf("%s MinLevel = %s, want Info", p.Name(), p.MinLevel())
		}
		if p.FlushInterval() != time.Second {
			t.Fatalf("%s FlushInterval = %s, want 1s", p.Name(), p.FlushInterval())
		}
	}
}

func TestParseRejectsInvalidProviders(t *testing.T) {
	cfg := parseSample(t, `
providers:
  - name: a
    type: console
  - name: a
    type: kafka
  - name: b
`)

	_, logger, err := cfg.Parse()
	if logger == nil {
		t.Fatalf("logger should be returned together with validation errors")
	}

	var f fault.Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected a fault, got %v", err)
	}
	if f.Code() != fault.BadInputCode {
		t.Fatalf("fault code = %s, want %s", f.Code(), fault.BadInputCode)
	}

	md := f.Metadata().(fault.FieldErrorsMetadata)
	for _, field := range []string{"providers[1].name", "providers[1].type", "providers[2].type"} {
		if len(md[field]) == 0 {
			t.Fatalf("expected an error for %s, got %v", field, md)
		}
	}
}

func TestParseRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"logger level": `
logger:
  level: loud
`,
		"logger type": `
logger:
  type: xml
`,
		"min level": `
providers:
  - type: console
    config:
      min_level: loud
`,
		"rotation": `
providers:
  - type: file
    config:
      rotation_interval: hourly
`,
		"script path": `
providers:
  - type: script
`,
	}

	for name, content := range tests {
		cfg := parseSample(t, content)
		if _, _, err := cfg.Parse(); err == nil {
			t.Fatalf("%s: expected Parse to fail", name)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("cannot write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Providers) != 3 || cfg.Logger.Type != "colored-text" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
