package launcher

import (
	"fmt"
	"sync"

	"oss.nandlabs.io/jobengine/engine"
)

// defaultEngine is the process-wide engine a Launcher uses when none is
// given explicitly, mirroring spec §4's "entering an engine as a context
// manager sets it as the process default for the duration".
var (
	defaultMu     sync.RWMutex
	defaultEngine *engine.Engine
)

// SetDefaultEngine installs e as the process-default engine, returning the
// previously installed one (nil if none).
func SetDefaultEngine(e *engine.Engine) *engine.Engine {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultEngine
	defaultEngine = e
	return prev
}

// GetDefaultEngine returns the process-default engine, or nil if none has
// been installed.
func GetDefaultEngine() *engine.Engine {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultEngine
}

// ErrNoDefaultEngine is returned by a Launcher constructed without an
// explicit engine when no process-default engine has been installed.
var ErrNoDefaultEngine = fmt.Errorf("launcher: no default engine installed")

// UseAsDefault runs fn with e installed as the process-default engine,
// restoring whatever was previously installed before returning — the Go
// shape of entering an engine as a scoped resource (spec §4.5's "entering
// an engine sets it as default for the duration").
func UseAsDefault(e *engine.Engine, fn func() error) error {
	prev := SetDefaultEngine(e)
	defer SetDefaultEngine(prev)
	return fn()
}
