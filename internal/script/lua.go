package script

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/demon/internal/event"
	"github.com/dshills/demon/internal/event/events"
)

// DefaultTimeout bounds a single call into Lua.
const DefaultTimeout = 5 * time.Second

// Lua global functions a script may define.
const (
	hookStart  = "on_start"
	hookUpdate = "on_update"
	hookStop   = "on_stop"
)

// moduleName is the global table exposing the bus to Lua.
const moduleName = "demon"

// LuaOption configures a LuaScript.
type LuaOption func(*LuaScript)

// WithTimeout bounds each call into Lua. Zero disables the bound.
func WithTimeout(d time.Duration) LuaOption {
	return func(s *LuaScript) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

type luaSub struct {
	kind  event.Kind
	token event.Token
}

// LuaScript runs a Lua chunk in a sandboxed state. The chunk may define
// on_start, on_update(dt) and on_stop, and talks to the bus through the
// demon module:
//
//	demon.subscribe(kind, fn) -> id
//	demon.once(kind, fn)      -> id
//	demon.unsubscribe(id)     -> bool
//	demon.trigger(kind, t?)   -> stopped
//	demon.queue(kind, t?)
//	demon.pressed(action)     -> bool
//	demon.log(msg)
//
// Handlers receive the event as a table holding kind plus the event's
// fields. Events a script sends to a built-in kind carry that kind's typed
// payload, built from the table. A handler returning true stops propagation. A Lua error fails the
// handler, and with it the Trigger or Dispatch that delivered the event.
//
// The underlying LState is not goroutine-safe. A LuaScript must be started,
// updated and stopped on one goroutine, and its handlers must be delivered
// on that goroutine too.
type LuaScript struct {
	name    string
	path    string
	source  string
	timeout time.Duration

	L     *lua.LState
	ctx   *Context
	log   zerolog.Logger
	depth int

	mu   sync.Mutex
	subs map[string]luaSub
}

// NewLuaFile creates a script that runs the file at path. The script is
// named after the file without its extension.
func NewLuaFile(path string, opts ...LuaOption) *LuaScript {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	s := newLuaScript(name, opts)
	s.path = path
	return s
}

// NewLuaString creates a script from source.
func NewLuaString(name, source string, opts ...LuaOption) *LuaScript {
	s := newLuaScript(name, opts)
	s.source = source
	return s
}

func newLuaScript(name string, opts []LuaOption) *LuaScript {
	s := &LuaScript{
		name:    name,
		timeout: DefaultTimeout,
		log:     zerolog.Nop(),
		subs:    make(map[string]luaSub),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Script.
func (s *LuaScript) Name() string {
	return s.name
}

// Path returns the file the script was loaded from, or "".
func (s *LuaScript) Path() string {
	return s.path
}

// Start creates the Lua state, runs the chunk and calls on_start.
func (s *LuaScript) Start(ctx *Context) error {
	if s.L != nil {
		return ErrAlreadyStarted
	}

	s.ctx = ctx
	s.log = ctx.Log
	s.L = newSandbox()
	s.L.SetGlobal(moduleName, s.L.SetFuncs(s.L.NewTable(), map[string]lua.LGFunction{
		"subscribe":   s.luaSubscribe,
		"once":        s.luaOnce,
		"unsubscribe": s.luaUnsubscribe,
		"trigger":     s.luaTrigger,
		"queue":       s.luaQueue,
		"pressed":     s.luaPressed,
		"log":         s.luaLog,
	}))

	err := s.protect(func() error {
		if s.path != "" {
			return s.L.DoFile(s.path)
		}
		return s.L.DoString(s.source)
	})
	if err == nil {
		err = s.callHook(hookStart)
	}
	if err != nil {
		s.close()
		return err
	}
	return nil
}

// Update calls on_update(dt) if the script defines it.
func (s *LuaScript) Update(dt float64) error {
	if s.L == nil {
		return ErrNotStarted
	}
	return s.callHook(hookUpdate, lua.LNumber(dt))
}

// Stop calls on_stop if defined and closes the state.
func (s *LuaScript) Stop() error {
	if s.L == nil {
		return ErrNotStarted
	}
	err := s.callHook(hookStop)
	s.close()
	return err
}

func (s *LuaScript) close() {
	s.L.Close()
	s.L = nil

	s.mu.Lock()
	clear(s.subs)
	s.mu.Unlock()
}

// newSandbox opens base, table, string and math only, and removes the base
// functions that reach the file system.
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func (s *LuaScript) callHook(name string, args ...lua.LValue) error {
	fn, ok := s.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return nil
	}
	_, err := s.call(fn, args...)
	return err
}

// call runs fn and returns its first result. Only the outermost call sets
// the timeout context; nested calls from handlers share it.
func (s *LuaScript) call(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	var ret lua.LValue = lua.LNil
	err := s.protect(func() error {
		if err := s.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			return err
		}
		ret = s.L.Get(-1)
		s.L.Pop(1)
		return nil
	})
	return ret, err
}

func (s *LuaScript) protect(fn func() error) (err error) {
	if s.depth == 0 && s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
	}

	s.depth++
	defer func() {
		s.depth--
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

func (s *LuaScript) luaSubscribe(L *lua.LState) int {
	return s.subscribe(L, false)
}

func (s *LuaScript) luaOnce(L *lua.LState) int {
	return s.subscribe(L, true)
}

func (s *LuaScript) subscribe(L *lua.LState, once bool) int {
	kind := checkKind(L, 1)
	fn := L.CheckFunction(2)

	var id string
	h := event.HandlerFunc(func(e event.Event) error {
		if once {
			s.forget(id)
		}
		return s.handle(fn, e)
	})

	var (
		tok event.Token
		err error
	)
	if once {
		tok, err = s.ctx.Events.SubscribeOnce(kind, h)
	} else {
		tok, err = s.ctx.Events.Subscribe(kind, h)
	}
	if err != nil {
		L.RaiseError("subscribe %s: %v", kind, err)
		return 0
	}

	id = tok.String()
	s.mu.Lock()
	s.subs[id] = luaSub{kind: kind, token: tok}
	s.mu.Unlock()

	L.Push(lua.LString(id))
	return 1
}

func (s *LuaScript) forget(id string) (luaSub, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[id]
	delete(s.subs, id)
	return sub, ok
}

// handle delivers e to a Lua handler.
func (s *LuaScript) handle(fn *lua.LFunction, e event.Event) error {
	if s.L == nil {
		return ErrStopped
	}
	ret, err := s.call(fn, eventTable(s.L, e))
	if err != nil {
		return &Error{Script: s.name, Op: "handle " + e.Kind().String(), Err: err}
	}
	if lua.LVAsBool(ret) {
		e.StopPropagation()
	}
	return nil
}

func (s *LuaScript) luaUnsubscribe(L *lua.LState) int {
	sub, ok := s.forget(L.CheckString(1))
	if ok {
		ok = s.ctx.Events.Unsubscribe(sub.kind, sub.token)
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (s *LuaScript) luaTrigger(L *lua.LState) int {
	kind := checkKind(L, 1)
	e := events.FromFields(kind, optFields(L, 2))
	if err := s.ctx.Bus.Trigger(e); err != nil {
		L.RaiseError("trigger %s: %v", kind, err)
		return 0
	}
	L.Push(lua.LBool(e.IsPropagationStopped()))
	return 1
}

func (s *LuaScript) luaQueue(L *lua.LState) int {
	kind := checkKind(L, 1)
	if err := s.ctx.Bus.Queue(events.FromFields(kind, optFields(L, 2))); err != nil {
		L.RaiseError("queue %s: %v", kind, err)
	}
	return 0
}

func (s *LuaScript) luaPressed(L *lua.LState) int {
	action := L.CheckString(1)
	L.Push(lua.LBool(s.ctx.Input != nil && s.ctx.Input.Pressed(action)))
	return 1
}

func (s *LuaScript) luaLog(L *lua.LState) int {
	s.log.Info().Msg(L.CheckString(1))
	return 0
}

func checkKind(L *lua.LState, n int) event.Kind {
	kind := event.Kind(L.CheckString(n))
	if !kind.IsValid() {
		L.ArgError(n, fmt.Sprintf("invalid event kind %q", kind))
	}
	return kind
}

func optFields(L *lua.LState, n int) map[string]any {
	tbl := L.OptTable(n, nil)
	if tbl == nil {
		return nil
	}
	return tableToMap(tbl)
}
