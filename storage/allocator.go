package storage

import "fmt"

// IDSpacing is the gap between consecutive allocated record ids. The low
// log2(IDSpacing) bits of every id carry the record's type tag, so no two
// tagged ids collide and the counter portion is recoverable by masking.
// Must be a power of two at least as large as the number of tags in use.
const IDSpacing = 16

// Allocator hands out globally unique ids for generic cacheable records.
//
// No counter is persisted. The high-water mark is reconstructed by feeding
// every existing record id through Observe once per session; until
// FinishRecovery marks that replay complete, Allocate refuses to run. This
// makes the restart-safety requirement a typed state instead of a
// call-order convention.
type Allocator struct {
	watermark uint64
	recovered bool
}

// NewAllocator returns an allocator in the recovering state.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Observe feeds an existing record id into the watermark reconstruction.
// Safe to call in any state; ids below the current watermark are ignored.
func (a *Allocator) Observe(id uint64) {
	if id > a.watermark {
		a.watermark = id &^ (IDSpacing - 1)
	}
}

// FinishRecovery marks the replay of existing records complete and enables
// Allocate. Calling it again is a no-op.
func (a *Allocator) FinishRecovery() {
	a.recovered = true
}

// Recovered reports whether Allocate may be called.
func (a *Allocator) Recovered() bool {
	return a.recovered
}

// Allocate returns the next id for the given type tag. Tags must be in
// 1..IDSpacing-1; tag 0 is reserved for untyped rows. Every returned id is
// strictly greater than all previously observed or allocated ids.
func (a *Allocator) Allocate(tag uint32) (uint64, error) {
	if tag == 0 || tag >= IDSpacing {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTag, tag)
	}
	if !a.recovered {
		return 0, ErrNotRecovered
	}
	a.watermark += IDSpacing
	return a.watermark | uint64(tag), nil
}
