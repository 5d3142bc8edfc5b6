package orchestrator

const nilIndex = -1

// Handle identifies a registered module. The generation guards against a
// stale handle resolving to a slot that was released and reused.
type Handle struct {
	index int
	gen   uint32
}

// IsZero reports whether h was never issued by a registry
func (h Handle) IsZero() bool {
	return h.gen == 0
}

type entry struct {
	module Module
	gen    uint32
	prev   int
	next   int
	linked bool
}

// Registry is an ordered chain of modules, newest first. Entries live in an
// arena and are linked by index; released slots are recycled through a free
// list. Registry is not safe for concurrent use; the orchestrator guards it
// with its lock.
type Registry struct {
	entries []entry
	free    []int
	head    int
	tail    int
	size    int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{head: nilIndex, tail: nilIndex}
}

// PushFront links m in as the new head and returns its handle
func (r *Registry) PushFront(m Module) Handle {
	var idx int
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.entries = append(r.entries, entry{})
		idx = len(r.entries) - 1
	}

	e := &r.entries[idx]
	e.gen++
	e.module = m
	e.prev = nilIndex
	e.next = r.head
	e.linked = true

	if r.head != nilIndex {
		r.entries[r.head].prev = idx
	} else {
		r.tail = idx
	}
	r.head = idx
	r.size++

	return Handle{index: idx, gen: e.gen}
}

// Get resolves a handle. Unlinked but not yet released handles still resolve.
func (r *Registry) Get(h Handle) (Module, bool) {
	e, ok := r.lookup(h)
	if !ok {
		return nil, false
	}
	return e.module, true
}

// Find returns the first module named name in walk order
func (r *Registry) Find(name string) (Handle, bool) {
	for idx := r.head; idx != nilIndex; idx = r.entries[idx].next {
		e := &r.entries[idx]
		if e.module.Name() == name {
			return Handle{index: idx, gen: e.gen}, true
		}
	}
	return Handle{}, false
}

// Unlink removes h from the chain without releasing its slot
func (r *Registry) Unlink(h Handle) bool {
	e, ok := r.lookup(h)
	if !ok || !e.linked {
		return false
	}

	if e.prev != nilIndex {
		r.entries[e.prev].next = e.next
	} else {
		r.head = e.next
	}
	if e.next != nilIndex {
		r.entries[e.next].prev = e.prev
	} else {
		r.tail = e.prev
	}

	e.prev, e.next = nilIndex, nilIndex
	e.linked = false
	r.size--
	return true
}

// Release frees the slot behind an unlinked handle. The handle and every
// copy of it stop resolving.
func (r *Registry) Release(h Handle) bool {
	e, ok := r.lookup(h)
	if !ok || e.linked {
		return false
	}
	e.module = nil
	e.gen++
	r.free = append(r.free, h.index)
	return true
}

// Each calls fn for every module head to tail until fn returns false
func (r *Registry) Each(fn func(h Handle, m Module) bool) {
	for idx := r.head; idx != nilIndex; {
		e := &r.entries[idx]
		next := e.next
		if !fn(Handle{index: idx, gen: e.gen}, e.module) {
			return
		}
		idx = next
	}
}

// Names returns module names in walk order
func (r *Registry) Names() []string {
	names := make([]string, 0, r.size)
	r.Each(func(_ Handle, m Module) bool {
		names = append(names, m.Name())
		return true
	})
	return names
}

// Len returns the number of linked modules
func (r *Registry) Len() int {
	return r.size
}

// Drain unlinks and releases every module, returning them in walk order
func (r *Registry) Drain() []Module {
	modules := make([]Module, 0, r.size)
	for r.head != nilIndex {
		h := Handle{index: r.head, gen: r.entries[r.head].gen}
		modules = append(modules, r.entries[r.head].module)
		r.Unlink(h)
		r.Release(h)
	}
	return modules
}

func (r *Registry) lookup(h Handle) (*entry, bool) {
	if h.gen == 0 || h.index < 0 || h.index >= len(r.entries) {
		return nil, false
	}
	e := &r.entries[h.index]
	if e.gen != h.gen || e.module == nil {
		return nil, false
	}
	return e, true
}
