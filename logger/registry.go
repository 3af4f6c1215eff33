package logger

import "sync"

var (
	namedMu sync.RWMutex
	named   = make(map[string]*Logger)
)

// Register stores a named logger. Get returns it instead of deriving one
// from the global logger.
func Register(name string, l *Logger) {
	namedMu.Lock()
	defer namedMu.Unlock()
	named[name] = l
}

// Get returns the logger registered under name, or the global logger
// tagged with name as its component.
func Get(name string) *Logger {
	namedMu.RLock()
	l, ok := named[name]
	namedMu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}
