package processor

import "github.com/thisisjab/reelbox/engine"

var (
	_ engine.Processor = (*JSONProcessor)(nil)
	_ engine.Processor = (*LuaProcessor)(nil)
)
