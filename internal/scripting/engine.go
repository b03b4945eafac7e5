package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM hosting scene handlers.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every script under the given
// directory. A missing directory is not an error; the engine then simply
// has no handlers and every scene callback resolves to nothing.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory and its immediate
// subdirectories.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if err := e.loadDir(path); err != nil {
				return err
			}
			continue
		}
		if filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString executes a chunk of Lua source directly.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// HasFunc reports whether a global Lua function with the given name exists.
func (e *Engine) HasFunc(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// invoke calls a global Lua function with no return value. A missing
// function is silently skipped; a runtime error is logged and swallowed so
// one broken handler cannot take down the frame loop.
func (e *Engine) invoke(name string, args ...lua.LValue) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua handler error", zap.String("func", name), zap.Error(err))
	}
}

// GlobalNumber reads a numeric Lua global, mainly for inspection and tests.
func (e *Engine) GlobalNumber(name string) float64 {
	return float64(lua.LVAsNumber(e.vm.GetGlobal(name)))
}

// GlobalString reads a string Lua global.
func (e *Engine) GlobalString(name string) string {
	return lua.LVAsString(e.vm.GetGlobal(name))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
