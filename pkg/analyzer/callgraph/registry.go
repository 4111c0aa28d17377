package callgraph

// Registry maps qualified names to definitions in insertion order.
// Re-registering a qualified name keeps its original position and replaces
// its metadata.
type Registry struct {
	defs  []Definition
	index map[string]int
	first map[string]int // local name -> position of first definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[string]int),
		first: make(map[string]int),
	}
}

// Add registers a definition and returns its position.
func (r *Registry) Add(d Definition) int {
	if pos, ok := r.index[d.QualifiedName]; ok {
		r.defs[pos] = d
		return pos
	}
	pos := len(r.defs)
	r.defs = append(r.defs, d)
	r.index[d.QualifiedName] = pos
	if _, ok := r.first[d.Name]; !ok {
		r.first[d.Name] = pos
	}
	return pos
}

// Len returns the number of distinct definitions.
func (r *Registry) Len() int {
	return len(r.defs)
}

// At returns the definition at a position.
func (r *Registry) At(pos int) Definition {
	return r.defs[pos]
}

// Lookup finds a definition by qualified name.
func (r *Registry) Lookup(qualifiedName string) (Definition, bool) {
	pos, ok := r.index[qualifiedName]
	if !ok {
		return Definition{}, false
	}
	return r.defs[pos], true
}

// Position returns the insertion position of a qualified name.
func (r *Registry) Position(qualifiedName string) (int, bool) {
	pos, ok := r.index[qualifiedName]
	return pos, ok
}

// HasName reports whether any definition uses the local name.
func (r *Registry) HasName(name string) bool {
	_, ok := r.first[name]
	return ok
}

// Definitions returns all definitions in insertion order.
func (r *Registry) Definitions() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Resolve returns the first definition, in registry order, whose local name
// matches name. Resolution is by name only; scope and type are ignored.
func Resolve(name string, r *Registry) (Definition, bool) {
	pos, ok := r.first[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[pos], true
}
