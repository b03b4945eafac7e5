package sched

// NodeID encodes a 32-bit arena slot in the lower bits and a 32-bit
// generation in the upper bits. The generation increments when a slot is
// released, so stale handles can be detected instead of dereferencing a
// recycled node.
type NodeID uint64

func newNodeID(index uint32, generation uint32) NodeID {
	return NodeID(uint64(generation)<<32 | uint64(index))
}

func (id NodeID) index() uint32      { return uint32(id) }
func (id NodeID) generation() uint32 { return uint32(id >> 32) }

// IsZero reports whether id is the zero handle, which never names a node.
func (id NodeID) IsZero() bool { return id == 0 }

// pool manages node slot allocation with generational indices and a free
// list. Slot 0 is permanently reserved so that the zero NodeID can serve as
// the "no node" sentinel without colliding with a live handle.
type pool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func newPool() *pool {
	return &pool{
		generations: make([]uint32, 1, 1024),
		freeList:    make([]uint32, 0, 256),
		nextIndex:   1,
	}
}

func (p *pool) create() NodeID {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return newNodeID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
	}
	return newNodeID(idx, p.generations[idx])
}

func (p *pool) alive(id NodeID) bool {
	idx := id.index()
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.generation()
}

func (p *pool) release(id NodeID) {
	idx := id.index()
	if idx == 0 || idx >= p.nextIndex {
		return
	}
	if p.generations[idx] != id.generation() {
		return // already released (stale handle)
	}
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
}
