package dbus

import "sync"

// Cache is a small fixed-size free list of recently-finalized message
// backing buffers, kept to amortize allocation when a caller builds or
// decodes many short-lived messages back to back. It is an optimization
// only: a Loader configured without one just allocates every buffer
// fresh, exactly as capable but slower under churn. Guarded by its own
// mutex, per the one-global-lock-per-optimization rule the rest of this
// package follows.
type Cache struct {
	mu       sync.Mutex
	free     [][]byte
	maxItems int
	itemCap  int
}

// NewCache creates a cache holding at most maxItems buffers, each
// reused only if its capacity is at least itemCap.
func NewCache(maxItems, itemCap int) *Cache {
	return &Cache{maxItems: maxItems, itemCap: itemCap}
}

// Get removes and returns a zero-length buffer from the pool, or nil if
// the pool is empty. The returned slice has capacity at least itemCap.
func (c *Cache) Get() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.free) == 0 {
		return nil
	}
	b := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	return b[:0]
}

// Put returns b to the pool for reuse, if the pool has room and b is
// large enough to be worth keeping. Otherwise b is dropped for the
// garbage collector to reclaim normally.
func (c *Cache) Put(b []byte) {
	if cap(b) < c.itemCap {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.free) >= c.maxItems {
		return
	}
	c.free = append(c.free, b)
}

// slotAllocator hands out small non-negative integer slot numbers for
// application-attached per-message data, reusing numbers freed by
// FreeSlot instead of growing without bound — the same shape as the
// original implementation's refcounted data-slot allocator, collapsed
// here to a single process-wide instance since this port has no
// per-module refcounting of its own to key off of.
type slotAllocator struct {
	mu   sync.Mutex
	used []bool
}

var globalSlots slotAllocator

// AllocateSlot reserves a new per-message data slot, guarded by the
// one process-wide mutex named in the concurrency model.
func AllocateSlot() int {
	globalSlots.mu.Lock()
	defer globalSlots.mu.Unlock()
	for i, inUse := range globalSlots.used {
		if !inUse {
			globalSlots.used[i] = true
			return i
		}
	}
	globalSlots.used = append(globalSlots.used, true)
	return len(globalSlots.used) - 1
}

// FreeSlot releases a slot allocated by AllocateSlot so a later caller
// can reuse its number.
func FreeSlot(slot int) {
	globalSlots.mu.Lock()
	defer globalSlots.mu.Unlock()
	if slot >= 0 && slot < len(globalSlots.used) {
		globalSlots.used[slot] = false
	}
}

// SetData attaches v to m under slot, allocated by AllocateSlot.
func (m *Message) SetData(slot int, v any) {
	if m.data == nil {
		m.data = make(map[int]any)
	}
	m.data[slot] = v
}

// Data returns the value attached to m under slot, and whether one was
// set.
func (m *Message) Data(slot int) (any, bool) {
	v, ok := m.data[slot]
	return v, ok
}
