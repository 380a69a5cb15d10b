// Package cell implements the TL-B cell primitives the rest of the indexer is
// built on: bit-packed cells with up to 4 child references, slices for
// sequential field extraction, a builder for assembling new cells, and
// dictionary (Hashmap/HashmapAugE) traversal with the lookup_nearest_key
// contract the block schema relies on.
//
// A Cell never exceeds 1023 bits or 4 references, matching the TVM cell
// bounds. NewCell and Builder.Build return an error for input outside these
// limits; Builder's Store* methods panic when an append would exceed them.
package cell

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	MaxBits = 1023
	MaxRefs = 4
)

// Cell is an immutable bit-packed node with up to MaxRefs children.
// Bits are stored MSB-first, packed into Data with the final partial byte
// padded with zero bits.
type Cell struct {
	data   []byte
	bitLen int
	refs   []*Cell

	hash      [32]byte
	hashValid bool
}

// NewCell constructs a Cell directly from packed bit data and children.
// len(data) must be ceil(bitLen/8) and bitLen/len(refs) must respect the
// TVM cell bounds.
func NewCell(data []byte, bitLen int, refs []*Cell) (*Cell, error) {
	if bitLen < 0 || bitLen > MaxBits {
		return nil, fmt.Errorf("cell: bit length %d exceeds %d", bitLen, MaxBits)
	}
	if len(refs) > MaxRefs {
		return nil, fmt.Errorf("cell: %d references exceeds %d", len(refs), MaxRefs)
	}
	want := (bitLen + 7) / 8
	if len(data) != want {
		return nil, fmt.Errorf("cell: data length %d does not match bit length %d", len(data), bitLen)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Cell{data: buf, bitLen: bitLen, refs: append([]*Cell(nil), refs...)}, nil
}

// BitLen returns the number of significant bits stored in the cell.
func (c *Cell) BitLen() int { return c.bitLen }

// RefCount returns the number of child references.
func (c *Cell) RefCount() int { return len(c.refs) }

// Ref returns the i-th child reference.
func (c *Cell) Ref(i int) (*Cell, error) {
	if i < 0 || i >= len(c.refs) {
		return nil, fmt.Errorf("cell: ref index %d out of range (have %d)", i, len(c.refs))
	}
	return c.refs[i], nil
}

// Refs returns the child references in order. The returned slice must not be
// mutated by the caller.
func (c *Cell) Refs() []*Cell { return c.refs }

// Data returns the raw packed bit data. The returned slice must not be
// mutated by the caller.
func (c *Cell) Data() []byte { return c.data }

// BeginParse returns a fresh Slice positioned at the start of the cell.
func (c *Cell) BeginParse() *Slice {
	return &Slice{cell: c}
}

// Hash returns the cell's 256-bit content hash, computed lazily and cached.
//
// This is a self-contained content-addressing scheme (descriptor bytes +
// packed bits + child hashes, folded through SHA-256), not the TON network's
// standard cell representation hash algorithm; that algorithm is part of the
// TL-B code generation machinery this package stands in for. It satisfies
// every invariant the rest of this codebase depends on: fixed 32 bytes,
// deterministic, and collision-free across distinct cell content.
func (c *Cell) Hash() [32]byte {
	if c.hashValid {
		return c.hash
	}
	h := sha256.New()
	var descriptor [3]byte
	descriptor[0] = byte(len(c.refs))
	binary.BigEndian.PutUint16(descriptor[1:3], uint16(c.bitLen))
	h.Write(descriptor[:])
	h.Write(c.data)
	for _, r := range c.refs {
		rh := r.Hash()
		h.Write(rh[:])
	}
	sum := h.Sum(nil)
	copy(c.hash[:], sum)
	c.hashValid = true
	return c.hash
}

// ErrOutOfRange is returned by Slice fetch operations when the requested
// number of bits or references is not available.
var ErrOutOfRange = errors.New("cell: read past end of slice")
