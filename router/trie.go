// Package router implements the path-segment trie from spec.md §4.4: literal
// children, one typed-parameter child per node (%i/%f/%s), and an optional
// remainder/wildcard (%r) child, plus the per-route method table and
// middleware accumulation spec.md §3/§4.4 describe.
//
// Trie is generic over the handler/middleware representation H so that this
// package never needs to import the server package that defines Context and
// Handler — the connection engine instantiates Trie[zzz.Middleware] instead.
package router

import (
	"errors"
	"strings"

	"webhooks.cc/zzz/provision"
	"webhooks.cc/zzz/request"
)

var (
	// ErrParamConflict is returned by Register/Use when a template would
	// require a different typed-parameter kind at a position already
	// claimed by another template.
	ErrParamConflict = errors.New("router: conflicting parameter type at this position")
	// ErrRouteNotFound is returned by Match when no route (not even a
	// route for a different method) matches path.
	ErrRouteNotFound = errors.New("router: no route matches path")
)

type paramKind uint8

const (
	paramNone paramKind = iota
	paramInt
	paramFloat
	paramString
)

// node is one segment position in the trie.
type node[H any] struct {
	literal   map[string]*node[H]
	param     *node[H]
	paramKind paramKind
	remainder *node[H]
	route     *Route[H]
}

func newNode[H any]() *node[H] { return &node[H]{literal: make(map[string]*node[H])} }

// Route holds a per-method handler table and the middlewares registered at
// this exact path.
type Route[H any] struct {
	Methods     map[request.Method]H
	Middlewares []H
}

func newRoute[H any]() *Route[H] {
	return &Route[H]{Methods: make(map[request.Method]H)}
}

// Bundle is the (matched route, applicable middlewares) tuple spec.md §4.4
// calls for: accumulated middlewares is the concatenation of every
// ancestor's middlewares followed by the route's own, in registration
// order.
type Bundle[H any] struct {
	Route       *Route[H]
	Middlewares []H
}

// Trie is the routing trie. The zero value is not usable; use New.
type Trie[H any] struct {
	root *node[H]
}

// New builds an empty Trie.
func New[H any]() *Trie[H] {
	return &Trie[H]{root: newNode[H]()}
}

func splitTemplate(template string) []string {
	trimmed := strings.Trim(template, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// descendForRegister walks/creates nodes for template's segments, returning
// the terminal node. It returns ErrParamConflict if template's typed
// parameters disagree with an already-registered sibling template.
func (t *Trie[H]) descendForRegister(template string) (*node[H], error) {
	n := t.root
	for _, seg := range splitTemplate(template) {
		switch {
		case seg == "%r":
			if n.remainder == nil {
				n.remainder = newNode[H]()
			}
			return n.remainder, nil
		case seg == "%i" || seg == "%f" || seg == "%s":
			kind := paramKindOf(seg)
			if n.param == nil {
				n.param = newNode[H]()
				n.paramKind = kind
			} else if n.paramKind != kind {
				return nil, ErrParamConflict
			}
			n = n.param
		default:
			child, ok := n.literal[seg]
			if !ok {
				child = newNode[H]()
				n.literal[seg] = child
			}
			n = child
		}
	}
	return n, nil
}

func paramKindOf(seg string) paramKind {
	switch seg {
	case "%i":
		return paramInt
	case "%f":
		return paramFloat
	case "%s":
		return paramString
	default:
		return paramNone
	}
}

// Register attaches handler for method at template, plus any middlewares
// specific to this exact route. Two templates sharing a prefix share nodes;
// registering the same template twice for different methods augments the
// same Route rather than creating a second one.
func (t *Trie[H]) Register(template string, method request.Method, handler H, middlewares ...H) error {
	n, err := t.descendForRegister(template)
	if err != nil {
		return err
	}
	if n.route == nil {
		n.route = newRoute[H]()
	}
	n.route.Methods[method] = handler
	n.route.Middlewares = append(n.route.Middlewares, middlewares...)
	return nil
}

// Use attaches ancestor middlewares at template's node without requiring a
// route to already exist there. Descendant routes pick these up during
// Match via middleware accumulation.
func (t *Trie[H]) Use(template string, middlewares ...H) error {
	n, err := t.descendForRegister(template)
	if err != nil {
		return err
	}
	if n.route == nil {
		n.route = newRoute[H]()
	}
	n.route.Middlewares = append(n.route.Middlewares, middlewares...)
	return nil
}

// Match resolves path against the trie, filling captures and queries (query
// is the raw query string, without the leading '?', already stripped by the
// caller per spec.md §4.4). It returns ErrRouteNotFound if no node matches
// path at all, independent of method — a matched node with no handler for
// the current method is the caller's responsibility to turn into 405.
func (t *Trie[H]) Match(path, query string, captures *provision.CaptureList, queries *provision.QueryMap) (*Bundle[H], error) {
	parseQuery(query, queries)

	n := t.root
	var middlewares []H
	segments := splitPath(path)

	for i, seg := range segments {
		if n.route != nil {
			middlewares = append(middlewares, n.route.Middlewares...)
		}

		if n.remainder != nil {
			suffix := strings.Join(segments[i:], "/")
			captures.Append(provision.Capture{Kind: provision.CaptureString, Str: suffix})
			n = n.remainder
			if n.route != nil {
				middlewares = append(middlewares, n.route.Middlewares...)
			}
			return &Bundle[H]{Route: n.route, Middlewares: middlewares}, routeOrNotFound(n.route)
		}

		if child, ok := n.literal[seg]; ok {
			n = child
			continue
		}

		if n.param != nil {
			switch n.paramKind {
			case paramInt:
				if !isInt(seg) {
					return nil, ErrRouteNotFound
				}
				captures.Append(provision.Capture{Kind: provision.CaptureInt, Int: parseInt(seg)})
			case paramFloat:
				if !isFloat(seg) {
					return nil, ErrRouteNotFound
				}
				captures.Append(provision.Capture{Kind: provision.CaptureFloat, Float: parseFloat(seg)})
			default:
				captures.Append(provision.Capture{Kind: provision.CaptureString, Str: seg})
			}
			n = n.param
			continue
		}

		return nil, ErrRouteNotFound
	}

	if n.route != nil {
		middlewares = append(middlewares, n.route.Middlewares...)
	}
	return &Bundle[H]{Route: n.route, Middlewares: middlewares}, routeOrNotFound(n.route)
}

func routeOrNotFound[H any](r *Route[H]) error {
	if r == nil {
		return ErrRouteNotFound
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func parseQuery(query string, queries *provision.QueryMap) {
	if query == "" || queries == nil {
		return
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		queries.Set(key, value)
	}
}
