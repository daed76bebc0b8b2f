package lualib

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestLog_Sprint(t *testing.T) {
	tests := map[string]struct {
		do   string
		want string
	}{
		"string": {
			do:   `return require("log").sprint("hunter2")`,
			want: "hunter2",
		},
		"int": {
			do:   `return require("log").sprint(69)`,
			want: "69",
		},
		"float": {
			do:   `return require("log").sprint(420.69)`,
			want: "420.69",
		},
		"table": {
			do:   `return require("log").sprint({foo = "bar"})`,
			want: `map[foo:bar]`,
		},
		"sprintf": {
			do:   `return require("log").sprintf("%s-%d", "foo", 2)`,
			want: "foo-2",
		},
	}
	for desc, tc := range tests {
		t.Run(desc, func(t *testing.T) {
			state := lua.NewState()
			defer state.Close()
			state.PreloadModule("log", NewLogLoader(zaptest.NewLogger(t)))

			err := state.DoString(tc.do)
			if err != nil {
				t.Fatalf("%s: failed to execute Lua %q: %v", desc, tc.do, err)
			}
			got := state.Get(-1).String()
			if got != tc.want {
				t.Errorf("%s: output did not match: got %q, wanted %q", desc, got, tc.want)
			}
		})
	}
}

func TestLog_Fields(t *testing.T) {
	tests := map[string]struct {
		do     string
		fields map[string]any
		opts   []LogOption
	}{
		"no fields and no caller": {
			do:     `require("log").info("no fields")`,
			fields: map[string]any{},
			opts:   []LogOption{WithCaller(false)},
		},
		"caller only": {
			do: `require("log").info("caller only")`,
			fields: map[string]any{
				"caller": "<string>:1",
			},
		},
		"custom caller key": {
			do: `require("log").info("custom caller key", {foo="bar"})`,
			fields: map[string]any{
				"foo":        "bar",
				"lua_caller": "<string>:1",
			},
			opts: []LogOption{WithCallerKey("lua_caller")},
		},
		"typed fields": {
			do: `require("log").info("typed fields", {flag=true, count=69, ratio=0.5})`,
			fields: map[string]any{
				"flag":  true,
				"count": int64(69),
				"ratio": 0.5,
			},
			opts: []LogOption{WithCaller(false)},
		},
		"table in fields": {
			do: `require("log").info("table in fields", {foo={sub="bar"}})`,
			fields: map[string]any{
				"foo": map[string]any{"sub": "bar"},
			},
			opts: []LogOption{WithCaller(false)},
		},
	}
	for desc, tc := range tests {
		t.Run(desc, func(t *testing.T) {
			state := lua.NewState()
			defer state.Close()
			core, logs := observer.New(zap.InfoLevel)
			state.PreloadModule("log", NewLogLoader(zap.New(core), tc.opts...))

			err := state.DoString(tc.do)
			if err != nil {
				t.Fatalf("%s: failed to execute Lua %q: %v", desc, tc.do, err)
			}
			if logs.Len() == 0 {
				t.Fatalf("%s: no logs received", desc)
			}
			fields := logs.All()[logs.Len()-1].ContextMap()
			if diff := cmp.Diff(tc.fields, fields); diff != "" {
				t.Errorf("%s: mismatch:\n%s", desc, diff)
			}
		})
	}
}

func TestLog_Levels(t *testing.T) {
	state := lua.NewState()
	defer state.Close()
	core, logs := observer.New(zap.DebugLevel)
	state.PreloadModule("log", NewLogLoader(zap.New(core)))
	err := state.DoString(`
		local log = require("log")
		log.debug("debug")
		log.info("info")
		log.warn("warn")
		log.error("error")
	`)
	if err != nil {
		t.Fatalf("failed to execute Lua: %v", err)
	}
	for _, level := range []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
	} {
		t.Run(level.String(), func(t *testing.T) {
			filtered := logs.FilterLevelExact(level).All()
			if len(filtered) != 1 {
				t.Fatalf("len(logs[level==%s]) != 1 (got %d)", level, len(filtered))
			}
			if filtered[0].Message != level.String() {
				t.Errorf("log for level %s did not match expected string: %v", level, filtered[0])
			}
		})
	}
}
