package ecs

import "fmt"

// EntityID packs a 32-bit slot index in the low bits and a 32-bit generation in the
// high bits. Generations start at 1, so the zero EntityID never names a live slot.
// Destroying a slot bumps its generation, which turns every previously issued id
// for that slot into a stale reference.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

func (id EntityID) String() string {
	if id.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%d@%d", id.Index(), id.Generation())
}

// EntityPool hands out slot indices with generations, reusing destroyed slots
// most-recently-freed first.
type EntityPool struct {
	generations []uint32
	live        []bool
	freeList    []uint32
	count       int
}

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, 1024),
		live:        make([]bool, 0, 1024),
		freeList:    make([]uint32, 0, 256),
	}
}

func (p *EntityPool) Create() EntityID {
	var idx uint32
	if n := len(p.freeList); n > 0 {
		idx = p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
	} else {
		idx = uint32(len(p.generations))
		p.generations = append(p.generations, 1)
		p.live = append(p.live, false)
	}
	p.live[idx] = true
	p.count++
	return NewEntityID(idx, p.generations[idx])
}

func (p *EntityPool) Alive(id EntityID) bool {
	idx := id.Index()
	if id.IsZero() || int(idx) >= len(p.generations) {
		return false
	}
	return p.live[idx] && p.generations[idx] == id.Generation()
}

// Destroy releases the slot and bumps its generation. Stale or unknown ids are ignored.
func (p *EntityPool) Destroy(id EntityID) bool {
	if !p.Alive(id) {
		return false
	}
	idx := id.Index()
	p.generations[idx]++
	p.live[idx] = false
	p.freeList = append(p.freeList, idx)
	p.count--
	return true
}

// Len returns the number of live slots.
func (p *EntityPool) Len() int { return p.count }

// Capacity returns the number of slots ever allocated.
func (p *EntityPool) Capacity() int { return len(p.generations) }

// Reset releases every slot. Generations keep counting so ids issued before the
// reset stay stale afterwards.
func (p *EntityPool) Reset() {
	p.freeList = p.freeList[:0]
	for i := len(p.generations) - 1; i >= 0; i-- {
		if p.live[i] {
			p.generations[i]++
			p.live[i] = false
		}
		p.freeList = append(p.freeList, uint32(i))
	}
	p.count = 0
}
