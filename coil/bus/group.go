package bus

import (
	"strings"
	"sync"

	"github.com/Noah018dev/coil/coil/internal/registry"
	"github.com/Noah018dev/coil/coil/job"
)

// groups is the process-global name -> Group table: Groups are
// process-global and interned by name.
var groups = registry.NewInterner[*Group]()

// extensions is the process-global Group -> Extension table: at most one
// Extension may be bound to any given Group.
var extensions = registry.NewOnceMap[*Group, *extensionBinding]()

// supervisor drives every bound Extension's background worker as a
// perpetually-retried Loop(Retry(...)) service, one per Extension.
var supervisor = job.NewSupervisor(0)

// Group is a canonical, process-interned `/`-delimited topic. Two calls
// to GroupNamed with the same canonical name return the identical
// *Group, so equality is pointer identity.
//
// A name ending in "..." is a wildcard group: it has no implicit parent
// of its own, but every sibling group under the same prefix implicitly
// parents to it. E.g. GroupNamed("a/b") has parent GroupNamed("a/...").
type Group struct {
	name string

	parent     *Group
	childrenMu sync.Mutex
	children   map[*Group]struct{}
}

// GroupNamed returns the canonical Group for name, creating it (and any
// ancestor groups implied by its path) if this is the first reference.
func GroupNamed(name string) *Group {
	canonical := canonicalize(name)
	return groups.GetOrCreate(canonical, func() *Group {
		return newGroup(canonical)
	})
}

func canonicalize(name string) string {
	parts := splitNonEmpty(name)
	return strings.Join(parts, "/")
}

func splitNonEmpty(name string) []string {
	raw := strings.Split(name, "/")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newGroup(canonical string) *Group {
	g := &Group{name: canonical, children: make(map[*Group]struct{})}

	parts := splitNonEmpty(canonical)

	// Every proper prefix ancestor (not just the immediate parent) gets g
	// added to its children set.
	for idx := 1; idx < len(parts); idx++ {
		ancestor := GroupNamed(strings.Join(parts[0:idx], "/"))
		ancestor.addChild(g)
	}

	isWildcard := len(parts) > 0 && parts[len(parts)-1] == "..."
	if len(parts) > 1 && !isWildcard {
		g.parent = GroupNamed(strings.Join(parts[0:len(parts)-1], "/") + "/...")
	}

	return g
}

func (g *Group) addChild(child *Group) {
	g.childrenMu.Lock()
	defer g.childrenMu.Unlock()
	g.children[child] = struct{}{}
}

// Children returns a snapshot of g's direct child groups.
func (g *Group) Children() []*Group {
	g.childrenMu.Lock()
	defer g.childrenMu.Unlock()
	out := make([]*Group, 0, len(g.children))
	for c := range g.children {
		out = append(out, c)
	}
	return out
}

// Parent returns g's implicit wildcard parent, or nil if g is top-level
// or is itself a wildcard group.
func (g *Group) Parent() *Group {
	return g.parent
}

// Name returns g's canonical `/`-joined path.
func (g *Group) Name() string {
	return g.name
}

// AddExtension binds ext to g after calling ext.Config(opts...), and
// starts its background worker as a perpetually-retried Supervisor
// service. It returns ErrExtensionAlreadyBound if g already has an
// Extension.
func (g *Group) AddExtension(ext Extension, opts ...any) error {
	configured := ext.Config(opts...)
	box := NewMailbox()

	binding := &extensionBinding{group: g, ext: configured, mailbox: box}
	if !extensions.SetIfAbsent(g, binding) {
		return ErrExtensionAlreadyBound
	}

	serviceName := serviceNameOf(configured)
	loop := job.NewRetryLoop(
		job.NewRetry(func() (any, error) {
			return nil, configured.BackgroundWorker()
		}, extensionWorkerMaxConsecutiveFailures, 0, nil),
		nil,
	).WithIdle(extensionWorkerIdle)
	supervisor.StartService(serviceName, loop)

	return nil
}

// extensionBinding pairs a bound Extension with the Group it was bound
// to and the Mailbox it was constructed with.
type extensionBinding struct {
	group   *Group
	ext     Extension
	mailbox *Mailbox
}

// nearestExtension walks from g up through its wildcard-parent chain
// (checking g itself first) and returns the first bound Extension found.
func nearestExtension(g *Group) (*extensionBinding, bool) {
	return extensions.GetAncestor(g, func(cur *Group) (*Group, bool) {
		if cur.parent == nil {
			return nil, false
		}
		return cur.parent, true
	})
}

// serviceNameOf names an Extension's Supervisor service by its Name
// method, falling back to a generic name when it implements none.
func serviceNameOf(ext Extension) string {
	type named interface{ Name() string }
	if n, ok := ext.(named); ok {
		return n.Name()
	}
	return "extension"
}
