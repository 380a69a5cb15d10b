package cell

import "fmt"

// Slice is a cursor over a Cell's bits and references. Fetch* methods consume
// from the cursor; Prefetch* methods peek without advancing it.
type Slice struct {
	cell    *Cell
	bitPos  int
	refPos  int
}

// RemainingBits reports how many unread bits remain in the slice.
func (s *Slice) RemainingBits() int { return s.cell.bitLen - s.bitPos }

// RemainingRefs reports how many unread references remain in the slice.
func (s *Slice) RemainingRefs() int { return len(s.cell.refs) - s.refPos }

func (s *Slice) bitAt(pos int) int {
	byteIdx := pos / 8
	bitIdx := 7 - uint(pos%8)
	return int((s.cell.data[byteIdx] >> bitIdx) & 1)
}

// FetchBit consumes and returns a single bit (0 or 1).
func (s *Slice) FetchBit() (int, error) {
	if s.RemainingBits() < 1 {
		return 0, fmt.Errorf("%w: need 1 bit, have %d", ErrOutOfRange, s.RemainingBits())
	}
	b := s.bitAt(s.bitPos)
	s.bitPos++
	return b, nil
}

// FetchBool consumes a single bit and interprets it as a boolean flag.
func (s *Slice) FetchBool() (bool, error) {
	b, err := s.FetchBit()
	if err != nil {
		return false, err
	}
	return b == 1, nil
}

// PrefetchBit peeks at the next bit without consuming it.
func (s *Slice) PrefetchBit() (int, error) {
	if s.RemainingBits() < 1 {
		return 0, fmt.Errorf("%w: need 1 bit, have %d", ErrOutOfRange, s.RemainingBits())
	}
	return s.bitAt(s.bitPos), nil
}

// FetchUint consumes n bits (0 <= n <= 64) as an unsigned big-endian integer.
func (s *Slice) FetchUint(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, fmt.Errorf("cell: FetchUint width %d out of range", n)
	}
	if s.RemainingBits() < n {
		return 0, fmt.Errorf("%w: need %d bits, have %d", ErrOutOfRange, n, s.RemainingBits())
	}
	var v uint64
	for i := 0; i < n; i++ {
		v = (v << 1) | uint64(s.bitAt(s.bitPos+i))
	}
	s.bitPos += n
	return v, nil
}

// FetchInt consumes n bits as a two's-complement signed integer.
func (s *Slice) FetchInt(n int) (int64, error) {
	if n < 1 || n > 64 {
		return 0, fmt.Errorf("cell: FetchInt width %d out of range", n)
	}
	u, err := s.FetchUint(n)
	if err != nil {
		return 0, err
	}
	if n == 64 {
		return int64(u), nil
	}
	signBit := uint64(1) << uint(n-1)
	if u&signBit != 0 {
		return int64(u) - int64(signBit<<1), nil
	}
	return int64(u), nil
}

// FetchBits consumes n bits and returns them packed MSB-first into a new byte
// slice, zero-padded in the final byte.
func (s *Slice) FetchBits(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("cell: negative bit count %d", n)
	}
	if s.RemainingBits() < n {
		return nil, fmt.Errorf("%w: need %d bits, have %d", ErrOutOfRange, n, s.RemainingBits())
	}
	out := make([]byte, (n+7)/8)
	for i := 0; i < n; i++ {
		if s.bitAt(s.bitPos+i) == 1 {
			out[i/8] |= 1 << uint(7-i%8)
		}
	}
	s.bitPos += n
	return out, nil
}

// FetchRef consumes and returns the next child reference.
func (s *Slice) FetchRef() (*Cell, error) {
	if s.RemainingRefs() < 1 {
		return nil, fmt.Errorf("cell: no more references (consumed %d)", s.refPos)
	}
	r := s.cell.refs[s.refPos]
	s.refPos++
	return r, nil
}

// PrefetchRef peeks at the i-th unconsumed reference (0 = next) without
// advancing the reference cursor.
func (s *Slice) PrefetchRef(i int) (*Cell, error) {
	idx := s.refPos + i
	if idx < 0 || idx >= len(s.cell.refs) {
		return nil, fmt.Errorf("cell: no reference at offset %d (remaining %d)", i, s.RemainingRefs())
	}
	return s.cell.refs[idx], nil
}

// Skip advances the bit cursor by n bits without returning them.
func (s *Slice) Skip(n int) error {
	if s.RemainingBits() < n {
		return fmt.Errorf("%w: need %d bits, have %d", ErrOutOfRange, n, s.RemainingBits())
	}
	s.bitPos += n
	return nil
}

// RestAsCell builds a fresh Cell containing every remaining unread bit and
// reference in the slice, used to materialize a message body or init-state
// cell out of the tail of a larger cell.
func (s *Slice) RestAsCell() (*Cell, error) {
	n := s.RemainingBits()
	bits, err := s.FetchBits(n)
	if err != nil {
		return nil, err
	}
	refs := make([]*Cell, 0, s.RemainingRefs())
	for s.RemainingRefs() > 0 {
		r, _ := s.FetchRef()
		refs = append(refs, r)
	}
	return NewCell(bits, n, refs)
}
