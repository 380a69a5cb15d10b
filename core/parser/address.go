package parser

import (
	"encoding/hex"
	"fmt"

	"github.com/tonindexer/scanner/core/cell"
	"github.com/tonindexer/scanner/core/schema"
)

// decodeMsgAddress decodes a TL-B MsgAddress (MsgAddressInt or
// MsgAddressExt) into a raw-address string ("workchain:hex"), "extern:hex"
// for addr_extern, or nil for addr_none. Anycast prefixes are consumed and discarded (the rewritten
// prefix is not surfaced by this schema).
func decodeMsgAddress(s *cell.Slice) (*string, error) {
	tag, err := s.FetchUint(2)
	if err != nil {
		return nil, schema.NewParseError("msg_address", "tag: %v", err)
	}
	switch tag {
	case 0b00: // addr_none
		return nil, nil
	case 0b01: // addr_extern
		lenBits, err := s.FetchUint(9)
		if err != nil {
			return nil, schema.NewParseError("msg_address", "addr_extern len: %v", err)
		}
		bits, err := s.FetchBits(int(lenBits))
		if err != nil {
			return nil, schema.NewParseError("msg_address", "addr_extern address: %v", err)
		}
		raw := "extern:" + hex.EncodeToString(bits)
		return &raw, nil
	case 0b10: // addr_std
		if err := skipAnycast(s); err != nil {
			return nil, err
		}
		wc, err := s.FetchInt(8)
		if err != nil {
			return nil, schema.NewParseError("msg_address", "addr_std workchain: %v", err)
		}
		addrBits, err := s.FetchBits(256)
		if err != nil {
			return nil, schema.NewParseError("msg_address", "addr_std address: %v", err)
		}
		raw := fmt.Sprintf("%d:%s", wc, hex.EncodeToString(addrBits))
		return &raw, nil
	case 0b11: // addr_var
		if err := skipAnycast(s); err != nil {
			return nil, err
		}
		addrLen, err := s.FetchUint(9)
		if err != nil {
			return nil, schema.NewParseError("msg_address", "addr_var len: %v", err)
		}
		wc, err := s.FetchInt(32)
		if err != nil {
			return nil, schema.NewParseError("msg_address", "addr_var workchain: %v", err)
		}
		addrBits, err := s.FetchBits(int(addrLen))
		if err != nil {
			return nil, schema.NewParseError("msg_address", "addr_var address: %v", err)
		}
		raw := fmt.Sprintf("%d:%s", wc, hex.EncodeToString(addrBits))
		return &raw, nil
	default:
		return nil, schema.NewParseError("msg_address", "unreachable tag %d", tag)
	}
}

// skipAnycast consumes an optional Anycast prefix: a Maybe discriminator bit
// followed, when set, by a 5-bit depth (#<= 30) and that many rewrite bits.
func skipAnycast(s *cell.Slice) error {
	present, err := s.FetchBool()
	if err != nil {
		return schema.NewParseError("anycast", "presence: %v", err)
	}
	if !present {
		return nil
	}
	depth, err := s.FetchUint(5)
	if err != nil {
		return schema.NewParseError("anycast", "depth: %v", err)
	}
	if err := s.Skip(int(depth)); err != nil {
		return schema.NewParseError("anycast", "rewrite_pfx: %v", err)
	}
	return nil
}

func b64Hash(h [32]byte) string {
	return base64Encode(h[:])
}
