package cell

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// bocMagic tags the serialized format produced by SerializeBOC so a reader
// can fail fast on malformed input rather than misinterpreting garbage.
const bocMagic = 0x544f4e42 // "TONB"

// SerializeBOC produces a canonical depth-first byte serialization of a cell
// DAG rooted at root, suitable for storing in a BOC-typed column
// (body_boc, init_state_boc, code_boc, data_boc).
//
// This is a self-contained bag-of-cells framing, not the TON network's exact
// BOC wire format (cell count/index table/hash-dedup table with varint cell
// sizes); that format is part of the TL-B code generation machinery this
// package assumes is available elsewhere. It round-trips with
// DeserializeBOC and is stable across runs.
func SerializeBOC(root *Cell) []byte {
	var buf bytes.Buffer
	var header [8]byte
	binary.BigEndian.PutUint32(header[0:4], bocMagic)
	buf.Write(header[0:4])

	seen := map[*Cell]bool{}
	var order []*Cell
	var visit func(c *Cell)
	visit = func(c *Cell) {
		if seen[c] {
			return
		}
		seen[c] = true
		order = append(order, c)
		for _, r := range c.refs {
			visit(r)
		}
	}
	visit(root)

	index := make(map[*Cell]int, len(order))
	for i, c := range order {
		index[c] = i
	}

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(order)))
	buf.Write(countBuf[:])

	for _, c := range order {
		var cellHeader [4]byte
		binary.BigEndian.PutUint16(cellHeader[0:2], uint16(c.bitLen))
		cellHeader[2] = byte(len(c.refs))
		buf.Write(cellHeader[0:3])
		buf.Write(c.data)
		for _, r := range c.refs {
			var refIdx [4]byte
			binary.BigEndian.PutUint32(refIdx[:], uint32(index[r]))
			buf.Write(refIdx[:])
		}
	}
	return buf.Bytes()
}

// SerializeBOCBase64 is SerializeBOC followed by standard base64 encoding,
// the representation stored in text BOC columns.
func SerializeBOCBase64(root *Cell) string {
	return base64.StdEncoding.EncodeToString(SerializeBOC(root))
}

// DeserializeBOC reverses SerializeBOC.
func DeserializeBOC(data []byte) (*Cell, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("cell: BOC payload too short (%d bytes)", len(data))
	}
	if binary.BigEndian.Uint32(data[0:4]) != bocMagic {
		return nil, fmt.Errorf("cell: BOC magic mismatch")
	}
	count := int(binary.BigEndian.Uint32(data[4:8]))
	pos := 8

	type rawCell struct {
		bitLen int
		data   []byte
		refIdx []int
	}
	raws := make([]rawCell, count)
	for i := 0; i < count; i++ {
		if pos+3 > len(data) {
			return nil, fmt.Errorf("cell: truncated BOC at cell %d header", i)
		}
		bitLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		refCount := int(data[pos+2])
		pos += 3
		byteLen := (bitLen + 7) / 8
		if pos+byteLen > len(data) {
			return nil, fmt.Errorf("cell: truncated BOC at cell %d data", i)
		}
		cellData := append([]byte(nil), data[pos:pos+byteLen]...)
		pos += byteLen
		refs := make([]int, refCount)
		for r := 0; r < refCount; r++ {
			if pos+4 > len(data) {
				return nil, fmt.Errorf("cell: truncated BOC at cell %d ref %d", i, r)
			}
			refs[r] = int(binary.BigEndian.Uint32(data[pos : pos+4]))
			pos += 4
		}
		raws[i] = rawCell{bitLen: bitLen, data: cellData, refIdx: refs}
	}

	built := make([]*Cell, count)
	var build func(i int) (*Cell, error)
	build = func(i int) (*Cell, error) {
		if built[i] != nil {
			return built[i], nil
		}
		if i < 0 || i >= count {
			return nil, fmt.Errorf("cell: BOC ref index %d out of range", i)
		}
		refs := make([]*Cell, len(raws[i].refIdx))
		for j, ri := range raws[i].refIdx {
			rc, err := build(ri)
			if err != nil {
				return nil, err
			}
			refs[j] = rc
		}
		c, err := NewCell(raws[i].data, raws[i].bitLen, refs)
		if err != nil {
			return nil, err
		}
		built[i] = c
		return c, nil
	}
	if count == 0 {
		return nil, fmt.Errorf("cell: empty BOC")
	}
	return build(0)
}
