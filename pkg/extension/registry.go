package extension

import "fmt"

// Registry holds the loaded extensions by id. It is written only while
// loading and sealed before any dispatch, so reads need no locking.
type Registry struct {
	exts   map[string]*Extension
	order  []string
	sealed bool
}

func NewRegistry() *Registry {
	return &Registry{exts: make(map[string]*Extension)}
}

func (r *Registry) add(ext *Extension) error {
	if r.sealed {
		return ErrSealed
	}
	if _, dup := r.exts[ext.ID]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicate, ext.ID)
	}
	r.exts[ext.ID] = ext
	r.order = append(r.order, ext.ID)
	return nil
}

func (r *Registry) seal() { r.sealed = true }

func (r *Registry) Sealed() bool { return r.sealed }

func (r *Registry) Get(id string) (*Extension, bool) {
	e, ok := r.exts[id]
	return e, ok
}

func (r *Registry) Len() int { return len(r.exts) }

// IDs lists extension ids in registration (arrival) order.
func (r *Registry) IDs() []string { return append([]string(nil), r.order...) }
