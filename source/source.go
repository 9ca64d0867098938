package source

import "github.com/thisisjab/reelbox/engine"

var _ engine.Source = (*FileSource)(nil)
