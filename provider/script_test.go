package provider

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sink.lua")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("cannot write script: %v", err)
	}
	return path
}

func TestScriptReceivesEvents(t *testing.T) {
	path := writeScript(t, `
received = {}
ids = {}

function flush_logs(events)
  for _, e in ipairs(events) do
    table.insert(received, e.level_name .. ":" .. e.message)
    if e.extra ~= nil then
      table.insert(ids, e.extra.id)
    end
  end
end
`)

	s := NewScript(ScriptOptions{ScriptPath: path})
	defer s.Close() //nolint:errcheck

	s.Debug("skipped", nil)
	s.Info("hello", map[string]any{"id": 7})
	s.Error("bye", nil)

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	received, ok := s.state.GetGlobal("received").(*lua.LTable)
	if !ok {
		t.Fatalf("script did not record events")
	}

	want := []string{"Info:hello", "Error:bye"}
	if received.Len() != len(want) {
		t.Fatalf("script received %d events, want %d", received.Len(), len(want))
	}
	for i, w := range want {
		if got := received.RawGetInt(i + 1).String(); got != w {
			t.Fatalf("event %d = %q, want %q", i, got, w)
		}
	}

	ids := s.state.GetGlobal("ids").(*lua.LTable)
	if ids.Len() != 1 || ids.RawGetInt(1) != lua.LNumber(7) {
		t.Fatalf("extra was not converted, ids = %v", ids.RawGetInt(1))
	}
}

func TestScriptCustomFunctionAndJSON(t *testing.T) {
	path := writeScript(t, `
local json = require("json")
last = nil

function sink(events)
  last = json.encode({count = #events})
end
`)

	s := NewScript(ScriptOptions{ScriptPath: path, Function: "sink"})
	defer s.Close() //nolint:errcheck

	s.Warning("a", nil)
	s.Warning("b", nil)

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	if got := s.state.GetGlobal("last").String(); got != `{"count":2}` {
		t.Fatalf("last = %q, want %q", got, `{"count":2}`)
	}
}

func TestScriptErrorFailsFlush(t *testing.T) {
	path := writeScript(t, `
function flush_logs(events)
  error("destination unavailable")
end
`)

	s := NewScript(ScriptOptions{ScriptPath: path})
	defer s.Close() //nolint:errcheck

	s.Error("x", nil)

	err := s.Flush(context.Background())
	if err == nil || !strings.Contains(err.Error(), "destination unavailable") {
		t.Fatalf("expected lua error, got %v", err)
	}
	if s.Pending() != 0 {
		t.Fatalf("failed events were re-buffered: Pending() = %d", s.Pending())
	}
}

func TestScriptMissingFunction(t *testing.T) {
	path := writeScript(t, `x = 1`)

	s := NewScript(ScriptOptions{ScriptPath: path})
	defer s.Close() //nolint:errcheck

	s.Error("x", nil)
	if err := s.Flush(context.Background()); err == nil {
		t.Fatalf("expected error for missing function")
	}
}

func TestScriptIsLoadedLazily(t *testing.T) {
	s := NewScript(ScriptOptions{ScriptPath: filepath.Join(t.TempDir(), "missing.lua")})

	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("empty flush should not load the script, got %v", err)
	}

	s.Error("x", nil)
	if err := s.Flush(context.Background()); err == nil {
		t.Fatalf("expected error loading a missing script")
	}
}

func TestScriptSandbox(t *testing.T) {
	path := writeScript(t, `
has_io = io ~= nil
function flush_logs(events) end
`)

	s := NewScript(ScriptOptions{ScriptPath: path})
	defer s.Close() //nolint:errcheck

	s.Error("x", nil)
	if err := s.Flush(context.Background()); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}

	if s.state.GetGlobal("has_io") != lua.LFalse {
		t.Fatalf("io library should not be available without AllowIO")
	}
}
