package graph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// NodeID addresses a node. The low 32 bits are the slot index and the high
// 32 bits the slot generation, so an id held past its node's deletion never
// aliases a node created later in the same slot. The zero value is invalid.
type NodeID uint64

// ConnectionID uses the same generation-tagged layout as NodeID.
type ConnectionID uint64

// GroupID is a group's universal id.
type GroupID = uuid.UUID

func makeID(index, gen uint32) uint64 {
	return uint64(gen)<<32 | uint64(index)
}

func splitID(id uint64) (index, gen uint32) {
	return uint32(id), uint32(id >> 32)
}

func (id NodeID) Index() uint32 { idx, _ := splitID(uint64(id)); return idx }
func (id NodeID) Gen() uint32   { _, gen := splitID(uint64(id)); return gen }
func (id NodeID) Valid() bool   { return id.Gen() != 0 }
func (id NodeID) String() string {
	return fmt.Sprintf("n%d.%d", id.Index(), id.Gen())
}

func (id ConnectionID) Index() uint32 { idx, _ := splitID(uint64(id)); return idx }
func (id ConnectionID) Gen() uint32   { _, gen := splitID(uint64(id)); return gen }
func (id ConnectionID) Valid() bool   { return id.Gen() != 0 }
func (id ConnectionID) String() string {
	return fmt.Sprintf("c%d.%d", id.Index(), id.Gen())
}

type slot[T any] struct {
	gen  uint32 // generation of the current or last occupant
	top  uint32 // highest generation ever issued for this slot
	live bool
	val  T
}

// arena stores values in reusable slots addressed by generation-tagged ids.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

func (a *arena[T]) alloc(v T) uint64 {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.top++
		s.gen = s.top
		s.live = true
		s.val = v
		a.live++
		return makeID(idx, s.gen)
	}
	a.slots = append(a.slots, slot[T]{gen: 1, top: 1, live: true, val: v})
	a.live++
	return makeID(uint32(len(a.slots)-1), 1)
}

func (a *arena[T]) get(id uint64) (T, bool) {
	idx, gen := splitID(id)
	if gen == 0 || int(idx) >= len(a.slots) {
		var zero T
		return zero, false
	}
	s := a.slots[idx]
	if !s.live || s.gen != gen {
		var zero T
		return zero, false
	}
	return s.val, true
}

func (a *arena[T]) has(id uint64) bool {
	_, ok := a.get(id)
	return ok
}

func (a *arena[T]) release(id uint64) bool {
	if !a.has(id) {
		return false
	}
	idx, _ := splitID(id)
	s := &a.slots[idx]
	var zero T
	s.live = false
	s.val = zero
	a.free = append(a.free, idx)
	a.live--
	return true
}

// canPlace reports whether place(id) would succeed.
func (a *arena[T]) canPlace(id uint64) bool {
	idx, gen := splitID(id)
	if gen == 0 {
		return false
	}
	return int(idx) >= len(a.slots) || !a.slots[idx].live
}

// place stores v under a specific id, as needed when restoring deleted or
// loaded entities with their original identity.
func (a *arena[T]) place(id uint64, v T) bool {
	if !a.canPlace(id) {
		return false
	}
	idx, gen := splitID(id)
	for uint32(len(a.slots)) <= idx {
		a.slots = append(a.slots, slot[T]{})
		a.free = append(a.free, uint32(len(a.slots)-1))
	}
	if i := slices.Index(a.free, idx); i >= 0 {
		a.free = slices.Delete(a.free, i, i+1)
	}
	s := &a.slots[idx]
	s.gen = gen
	s.top = max(s.top, gen)
	s.live = true
	s.val = v
	a.live++
	return true
}

// ids lists live ids in slot order.
func (a *arena[T]) ids() []uint64 {
	out := make([]uint64, 0, a.live)
	for i, s := range a.slots {
		if s.live {
			out = append(out, makeID(uint32(i), s.gen))
		}
	}
	return out
}
