package lualib

import (
	"fmt"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sapslaj/dynip/pkg/luautils"
)

const DefaultCallerKey string = "caller"

// Log exposes a zap logger to configuration scripts as the "log" module.
type Log struct {
	Logger    *zap.Logger
	CallerKey string
}

type LogOption func(*Log)

func WithCallerKey(key string) LogOption {
	return func(l *Log) {
		l.CallerKey = key
	}
}

func WithCaller(enabled bool) LogOption {
	if enabled {
		return WithCallerKey(DefaultCallerKey)
	}
	return WithCallerKey(zapcore.OmitKey)
}

func NewLog(logger *zap.Logger, opts ...LogOption) *Log {
	l := &Log{
		Logger:    logger,
		CallerKey: DefaultCallerKey,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

func NewLogLoader(logger *zap.Logger, opts ...LogOption) lua.LGFunction {
	return NewLog(logger, opts...).Loader
}

func (l *Log) Loader(L *lua.LState) int {
	exports := map[string]lua.LGFunction{
		"sprint":  l.sprint,
		"sprintf": l.sprintf,
	}
	for _, level := range []zapcore.Level{
		zapcore.DebugLevel,
		zapcore.InfoLevel,
		zapcore.WarnLevel,
		zapcore.ErrorLevel,
	} {
		exports[level.String()] = l.makeLogFunc(level)
	}
	L.Push(L.SetFuncs(L.NewTable(), exports))
	return 1
}

func (l *Log) sprint(L *lua.LState) int {
	values := make([]any, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		values = append(values, luautils.ToGoValue(L.Get(i)))
	}
	L.Push(lua.LString(fmt.Sprint(values...)))
	return 1
}

func (l *Log) sprintf(L *lua.LState) int {
	format := L.CheckString(1)
	values := make([]any, 0, L.GetTop())
	for i := 2; i <= L.GetTop(); i++ {
		values = append(values, luautils.ToGoValue(L.Get(i)))
	}
	L.Push(lua.LString(fmt.Sprintf(format, values...)))
	return 1
}

// TableToFields converts a Lua table into zap fields, sorted by key.
func TableToFields(lt *lua.LTable) []zapcore.Field {
	fields := make([]zapcore.Field, 0)
	if lt == nil {
		return fields
	}
	goFields, ok := luautils.ToGoValue(lt).(map[string]any)
	if !ok {
		return append(fields, zap.Any("fields", luautils.ToGoValue(lt)))
	}
	keys := make([]string, 0, len(goFields))
	for k := range goFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := goFields[k].(type) {
		case bool:
			fields = append(fields, zap.Bool(k, v))
		case string:
			fields = append(fields, zap.String(k, v))
		case int64:
			fields = append(fields, zap.Int64(k, v))
		case float64:
			fields = append(fields, zap.Float64(k, v))
		default:
			fields = append(fields, zap.Any(k, v))
		}
	}
	return fields
}

func (l *Log) makeLogFunc(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		fields := TableToFields(L.OptTable(2, nil))
		if l.CallerKey != zapcore.OmitKey {
			fields = append(fields, zap.String(l.CallerKey, strings.TrimSuffix(L.Where(-1), ":")))
		}
		if ce := l.Logger.Check(level, msg); ce != nil {
			ce.Write(fields...)
		}
		return 0
	}
}
