package tags

// ID is an interned tag. IDs are dense and start at 0 for each Registry.
type ID uint32

// Registry interns tag strings to small integer ids. One registry belongs to one
// runtime instance; ids never leak between instances.
type Registry struct {
	ids   map[string]ID
	names []string
}

func NewRegistry() *Registry {
	return &Registry{
		ids:   make(map[string]ID, 64),
		names: make([]string, 0, 64),
	}
}

// Intern returns the id for tag, allocating the next id on first sight.
func (r *Registry) Intern(tag string) ID {
	if id, ok := r.ids[tag]; ok {
		return id
	}
	id := ID(len(r.names))
	r.ids[tag] = id
	r.names = append(r.names, tag)
	return id
}

// Lookup returns the id of an already interned tag.
func (r *Registry) Lookup(tag string) (ID, bool) {
	id, ok := r.ids[tag]
	return id, ok
}

// Name returns the tag string for id.
func (r *Registry) Name(id ID) (string, bool) {
	if int(id) >= len(r.names) {
		return "", false
	}
	return r.names[id], true
}

func (r *Registry) Has(tag string) bool {
	_, ok := r.ids[tag]
	return ok
}

func (r *Registry) Len() int { return len(r.names) }

// All returns interned tags in id order.
func (r *Registry) All() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Reset drops every interned tag; the next Intern returns 0 again.
func (r *Registry) Reset() {
	clear(r.ids)
	r.names = r.names[:0]
}
