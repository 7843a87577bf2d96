package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/thisisjab/applogger/entity"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

const DefaultScriptFunction = "flush_logs"

type ScriptOptions struct {
	Options `yaml:",inline"`

	ScriptPath string `yaml:"script_path"`
	Function   string `yaml:"function"`

	// AllowIO opens the io and os libraries, letting the script write files.
	AllowIO bool `yaml:"allow_io"`
}

// Script hands flushed events to a Lua function. The script MUST define the
// configured function (flush_logs by default), which receives an array of
// tables with these fields:
//  1. timestamp as an RFC3339 string
//  2. level as a number and level_name as a string
//  3. message as a string
//  4. extra, converted from JSON, when the event has one
//
// Scripts can use the JSON helper with `local json = require("json")`.
// Raising an error from the function fails the flush.
type Script struct {
	Base
	cfg ScriptOptions

	mu    sync.Mutex
	state *lua.LState
}

// NewScript creates a script provider. The script is loaded on the first
// flush that has events to deliver. The default name is "script".
func NewScript(cfg ScriptOptions) *Script {
	if cfg.Function == "" {
		cfg.Function = DefaultScriptFunction
	}

	s := &Script{cfg: cfg}
	s.init(cfg.Options, "script")

	return s
}

func (s *Script) Flush(ctx context.Context) error {
	events := s.Take()
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	L, err := s.luaState()
	if err != nil {
		return err
	}

	L.SetContext(ctx)
	defer L.RemoveContext()

	fn := L.GetGlobal(s.cfg.Function)
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("lua script does not define function %q", s.cfg.Function)
	}

	err = L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, eventsTable(L, events))
	if err != nil {
		return fmt.Errorf("lua script error: %w", err)
	}

	return nil
}

// Close releases the Lua state.
func (s *Script) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != nil {
		s.state.Close()
		s.state = nil
	}
	return nil
}

type luaLib struct {
	name string
	fn   lua.LGFunction
}

func (s *Script) luaState() (*lua.LState, error) {
	if s.state != nil {
		return s.state, nil
	}

	if s.cfg.ScriptPath == "" {
		return nil, errors.New("lua script path is empty")
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	// io and os stay closed unless the script is trusted to touch the system
	libs := []luaLib{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	if s.cfg.AllowIO {
		libs = append(libs, luaLib{lua.IoLibName, lua.OpenIo}, luaLib{lua.OsLibName, lua.OpenOs})
	}

	for _, lib := range libs {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	luajson.Preload(L)

	if err := L.DoFile(s.cfg.ScriptPath); err != nil {
		L.Close()
		return nil, fmt.Errorf("cannot load lua script: %w", err)
	}

	s.state = L
	return L, nil
}

func eventsTable(L *lua.LState, events []entity.LogEvent) *lua.LTable {
	arr := L.CreateTable(len(events), 0)

	for _, e := range events {
		t := L.CreateTable(0, 5)
		t.RawSetString("timestamp", lua.LString(e.Timestamp.Format(time.RFC3339Nano)))
		t.RawSetString("level", lua.LNumber(e.Level))
		t.RawSetString("level_name", lua.LString(e.Level.String()))
		t.RawSetString("message", lua.LString(e.Message))

		if e.Extra != nil {
			t.RawSetString("extra", extraToLua(L, e.Extra))
		}

		arr.Append(t)
	}

	return arr
}

// extraToLua converts extra data through its JSON form. Values that cannot be
// encoded are passed as their string rendering.
func extraToLua(L *lua.LState, extra any) lua.LValue {
	data, err := json.Marshal(extra)
	if err != nil {
		return lua.LString(renderExtra(extra))
	}

	value, err := luajson.Decode(L, data)
	if err != nil {
		return lua.LString(string(data))
	}
	return value
}
