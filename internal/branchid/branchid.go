// Package branchid assigns sequential identifiers to conditional branches.
// The same assignment runs in the feature extractor and in the
// instrumenter, so both agree on the ID of a branch as long as they use the
// same Scope.
package branchid

import (
	"fmt"
	"sync/atomic"

	"branchlab/internal/ir"
)

// Sequence hands out branch identifiers.
type Sequence interface {
	Next() uint64
}

// Counter is a Sequence starting at its zero value. It is safe for
// concurrent use, but assignment order across goroutines is not
// deterministic; callers that share one counter process functions in order.
type Counter struct {
	n atomic.Uint64
}

// NewCounter returns a counter whose first ID is start.
func NewCounter(start uint64) *Counter {
	c := &Counter{}
	c.n.Store(start)
	return c
}

func (c *Counter) Next() uint64 {
	return c.n.Add(1) - 1
}

// Peek returns the ID the next call to Next will return.
func (c *Counter) Peek() uint64 {
	return c.n.Load()
}

// Scope selects how counters are shared across functions.
type Scope uint8

const (
	// ScopeFunction restarts numbering at 0 for every function.
	ScopeFunction Scope = iota
	// ScopeModule numbers branches consecutively across all functions of a
	// module in module order.
	ScopeModule
)

func (s Scope) String() string {
	switch s {
	case ScopeFunction:
		return "function"
	case ScopeModule:
		return "module"
	}
	return fmt.Sprintf("scope(%d)", uint8(s))
}

// ParseScope parses "function" or "module".
func ParseScope(s string) (Scope, error) {
	switch s {
	case "", "function":
		return ScopeFunction, nil
	case "module":
		return ScopeModule, nil
	}
	return ScopeFunction, fmt.Errorf("unknown branch id scope %q (want function or module)", s)
}

// Site is one numbered conditional branch.
type Site struct {
	ID     uint64
	Block  ir.BlockID
	Branch ir.InstrID
}

// Assign numbers the conditional branches of f in block order, drawing IDs
// from seq.
func Assign(f *ir.Func, seq Sequence) []Site {
	var sites []Site
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		term := bb.Term(f)
		if term == nil || term.Op != ir.OpCondBr {
			continue
		}
		sites = append(sites, Site{ID: seq.Next(), Block: bb.ID, Branch: term.ID})
	}
	return sites
}

// Allocator hands out a Sequence per function according to a Scope.
type Allocator struct {
	scope  Scope
	shared *Counter
}

func NewAllocator(scope Scope) *Allocator {
	return &Allocator{scope: scope, shared: NewCounter(0)}
}

func (a *Allocator) Scope() Scope { return a.scope }

// For returns the sequence to number the next function with.
func (a *Allocator) For() Sequence {
	if a.scope == ScopeModule {
		return a.shared
	}
	return NewCounter(0)
}

// Sequential reports whether functions must be processed in module order.
func (a *Allocator) Sequential() bool {
	return a.scope == ScopeModule
}
