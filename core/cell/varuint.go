package cell

import (
	"fmt"
	"math/bits"

	"github.com/holiman/uint256"
)

// lenBitsFor returns the width of a VarUInteger n's length prefix field,
// ceil(log2(n)).
func lenBitsFor(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

// FetchVarUInt decodes a VarUInteger(n) value: a (len: #< n) length prefix
// followed by len*8 bits of big-endian magnitude. Used for gas_used,
// gas_limit, gas_credit, cells and bits counters, and for Grams
// (VarUInteger 16) wherever an exact-width balance or fee is decoded.
func (s *Slice) FetchVarUInt(n int) (*uint256.Int, error) {
	lenBits := lenBitsFor(n)
	length, err := s.FetchUint(lenBits)
	if err != nil {
		return nil, fmt.Errorf("cell: VarUInteger %d length prefix: %w", n, err)
	}
	v := new(uint256.Int)
	for i := uint64(0); i < length; i++ {
		b, err := s.FetchUint(8)
		if err != nil {
			return nil, fmt.Errorf("cell: VarUInteger %d magnitude byte %d: %w", n, i, err)
		}
		v.Lsh(v, 8)
		v.Or(v, uint256.NewInt(b))
	}
	return v, nil
}

// FetchVarUInt64 decodes a VarUInteger(n) value known to fit in 64 bits, e.g.
// gas_used/gas_limit (VarUInteger 7) and gas_credit (VarUInteger 3).
func (s *Slice) FetchVarUInt64(n int) (uint64, error) {
	v, err := s.FetchVarUInt(n)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("cell: VarUInteger %d value %s overflows uint64", n, v.Dec())
	}
	return v.Uint64(), nil
}

// FetchGrams decodes the TL-B Grams type, i.e. VarUInteger 16.
func (s *Slice) FetchGrams() (*uint256.Int, error) {
	return s.FetchVarUInt(16)
}

// StoreVarUInt encodes v as a VarUInteger(n) value.
func (b *Builder) StoreVarUInt(v *uint256.Int, n int) *Builder {
	lenBitsW := lenBitsFor(n)
	raw := v.Bytes()
	// strip leading zero bytes so the encoded length is minimal
	for len(raw) > 0 && raw[0] == 0 {
		raw = raw[1:]
	}
	b.StoreUint(uint64(len(raw)), lenBitsW)
	return b.StoreBits(leftPad(raw, len(raw)), len(raw)*8)
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
