package af

import "fmt"

// BridgeFilterName is the descriptor name every unrecognised filter
// name is routed to (spec.md §4.A, §6).
const BridgeFilterName = "lavfi-bridge"

// Registry is a static ordered catalogue mapping a name to a factory
// (spec.md §4.A). It is constructed once (typically at process start by
// internal/af/filters.Builtins()) and injected into the chain — there
// is no process-wide mutable filter table (spec.md §9 design note).
type Registry struct {
	byName  map[string]*Descriptor
	order   []*Descriptor
	aliases map[string]string
}

// NewRegistry creates an empty registry. Use Register to populate it.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]*Descriptor),
		aliases: map[string]string{"force": "format"},
	}
}

// Register adds a descriptor to the catalogue. Panics on duplicate
// name, which is a programmer error in the static catalogue wiring.
func (r *Registry) Register(d *Descriptor) {
	if _, exists := r.byName[d.Name]; exists {
		panic("af: duplicate filter registered: " + d.Name)
	}
	r.byName[d.Name] = d
	r.order = append(r.order, d)
}

// Alias registers a lookup alias, e.g. "force" -> "format".
func (r *Registry) Alias(from, to string) {
	r.aliases[from] = to
}

// Find looks up a descriptor by exact name, consulting the alias table
// on miss.
func (r *Registry) Find(name string) (*Descriptor, bool) {
	if d, ok := r.byName[name]; ok {
		return d, true
	}
	if alias, ok := r.aliases[name]; ok {
		if d, ok := r.byName[alias]; ok {
			return d, true
		}
	}
	return nil, false
}

// bridgeRoute describes how a name got routed to the bridge filter.
type bridgeRoute struct {
	lavfiName string
	lavfiArgs []KV
}

// resolve finds the descriptor for name, and if name is unknown, routes
// it to the bridge filter: the "lavfi-" prefix is stripped and the
// original name/args become the bridge's "name"/"opts" sub-options
// (spec.md §4.A, §6).
func (r *Registry) resolve(name string, args []KV) (*Descriptor, []KV, *bridgeRoute, error) {
	if d, ok := r.Find(name); ok {
		return d, args, nil, nil
	}
	bridge, ok := r.Find(BridgeFilterName)
	if !ok {
		return nil, nil, nil, fmt.Errorf("af: couldn't find audio filter %q (and no bridge filter registered)", name)
	}
	lavfiName := name
	const prefix = "lavfi-"
	if len(lavfiName) > len(prefix) && lavfiName[:len(prefix)] == prefix {
		lavfiName = lavfiName[len(prefix):]
	}
	return bridge, nil, &bridgeRoute{lavfiName: lavfiName, lavfiArgs: args}, nil
}

// Create instantiates and opens a filter from descriptor d, parsing
// args into its private options and calling d.Factory().Open. Returns
// an OpenError (wrapped) if option parsing or Open fails (spec.md
// §4.A contract).
func (r *Registry) Create(name string, args []KV) (*FilterInstance, error) {
	desc, resolvedArgs, route, err := r.resolve(name, args)
	if err != nil {
		return nil, err
	}

	priv := desc.NewPrivate()
	if route != nil {
		// Install the bridge's "name" and "opts" sub-options.
		if b, ok := priv.(bridgeTarget); ok {
			b.setBridgeTarget(route.lavfiName, route.lavfiArgs)
		}
	} else if desc.ParseArgs != nil {
		if err := desc.ParseArgs(priv, resolvedArgs); err != nil {
			return nil, &OpenError{Name: name, Err: fmt.Errorf("parsing options: %w", err)}
		}
	}

	fi := &FilterInstance{
		Name:      name,
		Info:      desc,
		Priv:      priv,
		callbacks: desc.Factory(),
	}
	if route != nil {
		fi.Name = name + " (lavfi)"
	}

	if fi.callbacks.Open != nil {
		if err := fi.callbacks.Open(fi); err != nil {
			return nil, &OpenError{Name: name, Err: err}
		}
	}
	return fi, nil
}

// BridgePrivate is the option struct every lavfi-bridge instance
// embeds: the original filter name and its key/value args, installed as
// sub-options exactly as spec.md §6 describes. Defined here (rather
// than in the filters package) so Registry.Create can populate it
// without an import cycle; internal/af/filters.Bridge()'s private type
// embeds it to pick up setBridgeTarget for free.
type BridgePrivate struct {
	Name string
	Opts []KV
}

func (b *BridgePrivate) setBridgeTarget(name string, opts []KV) {
	b.Name = name
	b.Opts = opts
}

// bridgeTarget is satisfied by any *BridgePrivate, including one
// embedded in a larger struct (method promotion), which is how
// Registry.Create reaches into a filter-specific private type without
// needing its concrete name.
type bridgeTarget interface {
	setBridgeTarget(name string, opts []KV)
}
