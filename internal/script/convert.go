package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/demon/internal/event"
	"github.com/dshills/demon/internal/event/events"
)

// eventTable converts e into the table handed to Lua handlers.
func eventTable(L *lua.LState, e event.Event) *lua.LTable {
	tbl := L.NewTable()
	if f, ok := e.(events.Fielder); ok {
		for k, v := range f.Fields() {
			tbl.RawSetString(k, toLValue(L, v))
		}
	}
	if meta, ok := event.MetadataOf(e); ok && meta.Source != "" {
		tbl.RawSetString("source", lua.LString(meta.Source))
	}
	tbl.RawSetString("kind", lua.LString(e.Kind()))
	return tbl
}

func toLValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		tbl := L.NewTable()
		for i, item := range val {
			tbl.RawSetInt(i+1, toLValue(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for k, item := range val {
			tbl.RawSetString(k, toLValue(L, item))
		}
		return tbl
	case fmt.Stringer:
		return lua.LString(val.String())
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// tableToMap keeps string keys only.
func tableToMap(tbl *lua.LTable) map[string]any {
	out := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			out[string(ks)] = fromLValue(v)
		}
	})
	return out
}

func fromLValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 {
			items := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				items = append(items, fromLValue(val.RawGetInt(i)))
			}
			return items
		}
		return tableToMap(val)
	default:
		return nil
	}
}
