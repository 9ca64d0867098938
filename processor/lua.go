package processor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/thisisjab/reelbox/entity"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

type LuaProcessorConfig struct {
	Name       string `yaml:"-"`
	ScriptPath string `yaml:"script_path"`
}

// LuaProcessor is a viewing log processor that parses lines based on the provided lua script.
// Provided script MUST contain a function named `parse_event` which takes the line as parameter.
// `parse_event` must return 2 values:
// 1. media id as a number or numeric string
// 2. watched at as a string in ISO 8601/RFC3339 format, or nil to keep the time the line was read
// Note that user can have access to JSON helper using `local json = require("json")`
type LuaProcessor struct {
	cfg  LuaProcessorConfig
	pool *sync.Pool
}

func NewLuaProcessor(cfg LuaProcessorConfig) (*LuaProcessor, error) {
	if cfg.ScriptPath == "" {
		return nil, errors.New("lua script path is required")
	}

	// Load once up front so a broken script fails here, not in a worker.
	first, err := newLuaState(cfg.ScriptPath)
	if err != nil {
		return nil, err
	}

	pool := &sync.Pool{
		New: func() any {
			L, err := newLuaState(cfg.ScriptPath)
			if err != nil {
				// The script was loaded successfully above; this only happens if
				// it changed on disk since.
				panic(err)
			}
			return L
		},
	}
	pool.Put(first)

	return &LuaProcessor{
		cfg:  cfg,
		pool: pool,
	}, nil
}

func newLuaState(scriptPath string) (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true, // Don't load anything by default
	})

	// Manually open only the safe libraries
	// We skip 'os' and 'io' to prevent system commands/file access
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},  // Allows 'require'
		{lua.BaseLibName, lua.OpenBase},     // Allows 'print', 'pairs', etc.
		{lua.TabLibName, lua.OpenTable},     // Allows 'table.insert', etc.
		{lua.StringLibName, lua.OpenString}, // Allows string manipulation
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// This allows the user to do: local json = require("json")
	luajson.Preload(L)

	if err := L.DoFile(scriptPath); err != nil {
		L.Close()
		return nil, fmt.Errorf("cannot load lua script: %w", err)
	}

	if L.GetGlobal("parse_event").Type() != lua.LTFunction {
		L.Close()
		return nil, errors.New("lua script does not define parse_event")
	}

	return L, nil
}

func (lp *LuaProcessor) Name() string {
	return lp.cfg.Name
}

func (lp *LuaProcessor) Process(log entity.ViewingLog) (entity.ViewingLog, error) {
	L := lp.pool.Get().(*lua.LState)
	defer lp.pool.Put(L)

	err := L.CallByParam(lua.P{
		Fn:      L.GetGlobal("parse_event"),
		NRet:    2,
		Protect: true,
	}, lua.LString(string(log.RawData)))

	if err != nil {
		return log, fmt.Errorf("lua script error: %w", err)
	}

	luaWatchedAt := L.Get(-1)
	luaMediaID := L.Get(-2)

	// Clean up stack IMMEDIATELY after extraction
	L.Pop(2)

	mediaID, err := parseMediaID(convertLuaValue(luaMediaID))
	if err != nil {
		return log, err
	}

	if luaWatchedAt != lua.LNil {
		watchedAt, err := parseWatchedAt(luaWatchedAt.String())
		if err != nil {
			return log, err
		}
		log.WatchedAt = watchedAt
	}

	log.MediaID = mediaID

	return log, nil
}

func convertLuaValue(value lua.LValue) any {
	switch v := value.(type) {
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case lua.LBool:
		return bool(v)
	default:
		if value == lua.LNil {
			return nil
		}

		// Fallback for types we don't explicitly handle (like tables or functions)
		return v.String()
	}
}
