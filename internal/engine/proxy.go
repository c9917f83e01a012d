package engine

import (
	"context"

	"github.com/roach88/stepwise/internal/step"
)

// Proxy routes named calls on a step library through an engine.
//
// Hosts hold a Proxy where they would otherwise hold the bare step object,
// so every method call is intercepted. The binding is explicit: there is no
// hidden instrumentation, just a wrapper built by Engine.Bind.
type Proxy struct {
	engine  *Engine
	library *step.Library
}

// Bind wraps a step library so its methods are called through this engine.
func (e *Engine) Bind(library *step.Library) *Proxy {
	return &Proxy{engine: e, library: library}
}

// Call invokes the named step method through the engine.
// An unregistered name returns an UNKNOWN_STEP runtime error.
func (p *Proxy) Call(ctx context.Context, name string, args ...any) (any, error) {
	def, ok := p.library.Lookup(name)
	if !ok {
		return nil, NewUnknownStepError(p.engine.runToken, p.library.Owner()+"."+name)
	}
	return p.engine.Call(ctx, def, args...)
}

// Library returns the bound step library.
func (p *Proxy) Library() *step.Library {
	return p.library
}

// Engine returns the engine this proxy routes through.
func (p *Proxy) Engine() *Engine {
	return p.engine
}
