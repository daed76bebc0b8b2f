package luautils

import (
	"fmt"
	"math"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
)

// ToGoValue converts a Lua value to plain Go values without making unwanted
// transformations to keys. Tables with positional elements become []any and
// all other tables become map[string]any. Integral numbers become int64.
func ToGoValue(lv lua.LValue) any {
	return normalize(gluamapper.ToGoValue(lv, gluamapper.Option{
		NameFunc: gluamapper.Id,
	}))
}

func normalize(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = normalize(item)
		}
		return m
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	case float64:
		if !math.IsInf(val, 0) && math.Trunc(val) == val {
			return int64(val)
		}
	}
	return v
}

// FromGoValue converts decoded JSON style values back into Lua values.
func FromGoValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case float64:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(val)
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(FromGoValue(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for key, item := range val {
			tbl.RawSetString(key, FromGoValue(L, item))
		}
		return tbl
	}
	return lua.LString(fmt.Sprint(v))
}
