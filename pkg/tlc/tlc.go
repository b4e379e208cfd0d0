// Package tlc is the template-command runtime contract the pipeline talks to.
//
// Extensions contribute a Module of named commands; bound browser events run
// the statements found in an element attribute. Engine is a small default
// runtime: statements are separated by ';' and read "<module>#<command> args...".
package tlc

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/joeydtaylor/steeze-iso/pkg/document"
)

const DefaultAttr = "data-tlc"

var (
	ErrNoStatement    = errors.New("tlc: attribute holds no statement")
	ErrUnknownCommand = errors.New("tlc: unknown command")
)

// Call is what a command receives.
type Call struct {
	Module  string
	Name    string
	Args    []string
	Target  document.Selection
	Payload any
}

type Command func(c *Call) error

// Module maps command names to commands.
type Module map[string]Command

type RunOptions struct {
	Attr string
}

type Runtime interface {
	AddModule(id string, m Module)
	Run(target document.Selection, payload any, opts RunOptions) error
}

type Engine struct {
	mu      sync.RWMutex
	modules map[string]Module
}

func New() *Engine {
	return &Engine{modules: make(map[string]Module)}
}

// AddModule installs m under id, replacing any previous module with that id.
func (e *Engine) AddModule(id string, m Module) {
	if m == nil {
		m = Module{}
	}
	e.mu.Lock()
	e.modules[id] = m
	e.mu.Unlock()
}

func (e *Engine) Modules() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.modules))
	for id := range e.modules {
		out = append(out, id)
	}
	return out
}

func (e *Engine) Run(target document.Selection, payload any, opts RunOptions) error {
	attr := opts.Attr
	if attr == "" {
		attr = DefaultAttr
	}
	src, _ := target.Attr(attr)
	stmts := parse(src)
	if len(stmts) == 0 {
		return fmt.Errorf("%w: %s", ErrNoStatement, attr)
	}
	for _, st := range stmts {
		cmd, err := e.lookup(st.module, st.name)
		if err != nil {
			return err
		}
		if err := cmd(&Call{
			Module:  st.module,
			Name:    st.name,
			Args:    st.args,
			Target:  target,
			Payload: payload,
		}); err != nil {
			return fmt.Errorf("tlc: %s#%s: %w", st.module, st.name, err)
		}
	}
	return nil
}

func (e *Engine) lookup(module, name string) (Command, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.modules[module]
	if !ok {
		return nil, fmt.Errorf("%w: %s#%s (no module)", ErrUnknownCommand, module, name)
	}
	c, ok := m[name]
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: %s#%s", ErrUnknownCommand, module, name)
	}
	return c, nil
}

type statement struct {
	module, name string
	args         []string
}

func parse(src string) []statement {
	var out []statement
	for _, raw := range strings.Split(src, ";") {
		f := strings.Fields(raw)
		if len(f) == 0 {
			continue
		}
		mod, name, ok := strings.Cut(f[0], "#")
		if !ok {
			mod, name = "", f[0]
		}
		out = append(out, statement{module: mod, name: name, args: f[1:]})
	}
	return out
}
