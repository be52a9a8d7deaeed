package ecs

// World owns the entity pool and the store registry. Destruction is immediate:
// a destroyed id is gone from every store before Destroy returns, so later code in
// the same frame never observes a half-removed entity.
type World struct {
	pool     *EntityPool
	registry *Registry
}

func NewWorld() *World {
	return &World{
		pool:     NewEntityPool(),
		registry: NewRegistry(),
	}
}

func (w *World) Pool() *EntityPool   { return w.pool }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// DestroyEntity removes id from every store and releases its slot.
// Returns false for stale or unknown ids.
func (w *World) DestroyEntity(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	w.registry.RemoveAll(id)
	return w.pool.Destroy(id)
}

// Reset destroys everything.
func (w *World) Reset() {
	w.registry.ClearAll()
	w.pool.Reset()
}
