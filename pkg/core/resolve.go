package core

import (
	"errors"
	"fmt"

	"github.com/joeydtaylor/steeze-iso/pkg/chain"
	"github.com/joeydtaylor/steeze-iso/pkg/extension"
	"github.com/joeydtaylor/steeze-iso/pkg/manifest"
)

var (
	ErrUnknownExtension  = errors.New("core: unknown extension")
	ErrUnknownMiddleware = errors.New("core: unknown middleware")
	ErrUnknownBuilder    = errors.New("core: unknown middleware builder")
	ErrBuilder           = errors.New("core: middleware builder failed")
)

// ResolveError reports a reference that could not become a handler.
type ResolveError struct {
	Ref manifest.Ref
	Err error
}

func (e *ResolveError) Error() string {
	kind := "middleware"
	if e.Ref.Builder {
		kind = "builder"
	}
	return fmt.Sprintf("%s %q: %v", kind, e.Ref.Type, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// Resolve turns ref into a handler. Builder references invoke the builder
// once, here, with the full reference table.
func Resolve(ref manifest.Ref, reg *extension.Registry) (chain.Handler, error) {
	ext, err := lookup(ref, reg)
	if err != nil {
		return nil, err
	}
	if !ref.Builder {
		h, ok := ext.Middleware[ref.Name]
		if !ok || h == nil {
			return nil, &ResolveError{Ref: ref, Err: ErrUnknownMiddleware}
		}
		return h, nil
	}

	b, ok := ext.Builders[ref.Name]
	if !ok || b == nil {
		return nil, &ResolveError{Ref: ref, Err: ErrUnknownBuilder}
	}
	h, err := b(copyOptions(ref.Options))
	if err != nil {
		return nil, &ResolveError{Ref: ref, Err: fmt.Errorf("%w: %v", ErrBuilder, err)}
	}
	if h == nil {
		return nil, &ResolveError{Ref: ref, Err: fmt.Errorf("%w: nil handler", ErrBuilder)}
	}
	return h, nil
}

// Check reports whether ref would resolve, without invoking any builder.
func Check(ref manifest.Ref, reg *extension.Registry) error {
	ext, err := lookup(ref, reg)
	if err != nil {
		return err
	}
	if ref.Builder {
		if ext.Builders[ref.Name] == nil {
			return &ResolveError{Ref: ref, Err: ErrUnknownBuilder}
		}
		return nil
	}
	if ext.Middleware[ref.Name] == nil {
		return &ResolveError{Ref: ref, Err: ErrUnknownMiddleware}
	}
	return nil
}

func lookup(ref manifest.Ref, reg *extension.Registry) (*extension.Extension, error) {
	if reg == nil {
		return nil, &ResolveError{Ref: ref, Err: ErrUnknownExtension}
	}
	ext, ok := reg.Get(ref.Extension)
	if !ok {
		return nil, &ResolveError{Ref: ref, Err: ErrUnknownExtension}
	}
	return ext, nil
}

func copyOptions(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
