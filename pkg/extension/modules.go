package extension

import (
	"fmt"
	"sync"
)

// Modules maps server-side require locators to factories.
type Modules map[string]Factory

// Default is the table ServerLoader uses when none is given.
var Default = Modules{}

// Provide registers f under locator in Default. It panics on duplicates.
func Provide(locator string, f Factory) {
	Default.Provide(locator, f)
}

func (m Modules) Provide(locator string, f Factory) {
	if locator == "" || f == nil {
		panic("extension: locator and factory required")
	}
	if _, dup := m[locator]; dup {
		panic("extension: duplicate locator " + locator)
	}
	m[locator] = f
}

func (m Modules) Lookup(locator string) (Factory, bool) {
	f, ok := m[locator]
	return f, ok
}

// Namespace is the browser-side global symbol table. A fetched resource
// exposes its factory here under the extension id.
type Namespace struct {
	mu   sync.RWMutex
	syms map[string]Factory
}

func NewNamespace() *Namespace {
	return &Namespace{syms: make(map[string]Factory)}
}

func (n *Namespace) Expose(id string, f Factory) {
	n.mu.Lock()
	n.syms[id] = f
	n.mu.Unlock()
}

func (n *Namespace) Lookup(id string) (Factory, error) {
	n.mu.RLock()
	f, ok := n.syms[id]
	n.mu.RUnlock()
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: %s", ErrSymbolMissing, id)
	}
	return f, nil
}
