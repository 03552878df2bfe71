// routes.go: Path patterns binding new running-tree nodes to the application
//
// When a node appears under config.running (through Copy, Create or the
// access adaptor) the Manager asks the route table how to back it. A pattern
// is a dotted path relative to config.running where "*" matches exactly one
// segment:
//
//	routes := arbor.NewRoutes()
//	_ = routes.Register("sessions.*.timeout", arbor.Route{
//		Get: func(path []string) (interface{}, error) { return app.Timeout(path[1]), nil },
//		Set: func(path []string, v interface{}) error { return app.SetTimeout(path[1], v) },
//	})
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"sync"

	"github.com/agilira/go-errors"
)

// Wildcard matches any single path segment in a route pattern.
const Wildcard = "*"

// Route holds application callbacks for nodes matching a pattern. Each
// callback receives the full path of the node relative to config.running.
type Route struct {
	// Create is called when a node is created at a matching path
	Create func(path []string, value interface{}) error

	Get    func(path []string) (interface{}, error)
	Set    func(path []string, value interface{}) error
	Delete func(path []string) error
}

// Bind returns a leaf binding for the node at path.
func (r Route) Bind(path []string) Binding {
	segments := append([]string(nil), path...)
	var binding Binding
	if r.Get != nil {
		binding.Get = func() (interface{}, error) { return r.Get(segments) }
	}
	if r.Set != nil {
		binding.Set = func(value interface{}) error { return r.Set(segments, value) }
	}
	if r.Delete != nil {
		binding.Delete = func() error { return r.Delete(segments) }
	}
	return binding
}

type routeEntry struct {
	pattern  string
	segments []string
	route    Route
}

// Routes is a table of path patterns. It is safe for concurrent use.
type Routes struct {
	mu      sync.RWMutex
	entries []routeEntry
}

// NewRoutes returns an empty route table.
func NewRoutes() *Routes {
	return &Routes{}
}

// Register adds route under pattern. Empty segments and duplicate patterns
// fail with ErrCodeInvalidPattern.
func (r *Routes) Register(pattern string, route Route) error {
	segments := SplitPath(pattern)
	if len(segments) == 0 {
		return errors.New(ErrCodeInvalidPattern, "route pattern cannot be empty")
	}
	for _, segment := range segments {
		if segment == "" {
			return errors.New(ErrCodeInvalidPattern, "route pattern has an empty segment").
				WithContext("pattern", pattern)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.pattern == pattern {
			return errors.New(ErrCodeInvalidPattern, "route pattern already registered").
				WithContext("pattern", pattern)
		}
	}
	r.entries = append(r.entries, routeEntry{pattern: pattern, segments: segments, route: route})
	return nil
}

// Patterns returns the registered patterns in registration order.
func (r *Routes) Patterns() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	patterns := make([]string, len(r.entries))
	for i, entry := range r.entries {
		patterns[i] = entry.pattern
	}
	return patterns
}

// Match finds the route for path (relative to config.running). When several
// patterns match, the one with a literal at the first differing position
// wins.
func (r *Routes) Match(path string) (Route, bool) {
	if r == nil {
		return Route{}, false
	}
	segments := SplitPath(path)

	r.mu.RLock()
	defer r.mu.RUnlock()
	var best *routeEntry
	for i := range r.entries {
		entry := &r.entries[i]
		if !entry.matches(segments) {
			continue
		}
		if best == nil || entry.moreSpecific(best) {
			best = entry
		}
	}
	if best == nil {
		return Route{}, false
	}
	return best.route, true
}

// Leaf builds a live leaf named name bound to the route matching path.
func (r *Routes) Leaf(name, path string) (*Leaf, bool) {
	route, ok := r.Match(path)
	if !ok {
		return nil, false
	}
	return NewLeaf(name, route.Bind(SplitPath(path))), true
}

func (e *routeEntry) matches(segments []string) bool {
	if len(segments) != len(e.segments) {
		return false
	}
	for i, want := range e.segments {
		if want != Wildcard && want != segments[i] {
			return false
		}
	}
	return true
}

func (e *routeEntry) moreSpecific(other *routeEntry) bool {
	for i := range e.segments {
		mine, theirs := e.segments[i] == Wildcard, other.segments[i] == Wildcard
		if mine != theirs {
			return !mine
		}
	}
	return false
}
