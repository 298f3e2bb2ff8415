package module

import "sync"

// the registry lets main hand one module's ports to the next without import cycles
var registry = struct {
	sync.RWMutex
	ports map[string]any
}{ports: map[string]any{}}

// Register records ports under name, replacing any earlier entry
func Register(name string, ports any) {
	registry.Lock()
	defer registry.Unlock()
	registry.ports[name] = ports
}

// PortsAs looks name up and asserts it to T
func PortsAs[T any](name string) (T, bool) {
	registry.RLock()
	v := registry.ports[name]
	registry.RUnlock()
	t, ok := v.(T)
	return t, ok
}

// Reset empties the registry, tests call it between cases
func Reset() {
	registry.Lock()
	defer registry.Unlock()
	clear(registry.ports)
}
