package logger

import (
	"sync"
)

// named holds the process-wide directory of component loggers. The
// lifecycle packages (registry, scheduler, shutdown, server) resolve
// their loggers through Get so hosting processes can swap them out.
var named = struct {
	mu      sync.RWMutex
	loggers map[string]*Logger
}{
	loggers: make(map[string]*Logger),
}

// Register stores a logger under a component name, replacing any prior
// entry.
func Register(name string, l *Logger) {
	named.mu.Lock()
	defer named.mu.Unlock()
	named.loggers[name] = l
}

// Get returns the logger registered under name. Unregistered names fall
// back to the global logger tagged with the requested component, so Get
// never returns nil.
func Get(name string) *Logger {
	named.mu.RLock()
	l, ok := named.loggers[name]
	named.mu.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults seeds the directory with component loggers derived
// from the global logger. Call it after Init.
func RegisterDefaults(names ...string) {
	for _, name := range names {
		Register(name, GetGlobalLogger().WithComponent(name))
	}
}
