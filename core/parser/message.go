package parser

import (
	"github.com/tonindexer/scanner/core/cell"
	"github.com/tonindexer/scanner/core/schema"
)

// parseMessage decodes a single Message cell: its CommonMsgInfo header, an
// optional init_state, and a body that is either inlined in the same cell or
// stored behind a reference. hash and body_boc are derived from the cells
// themselves rather than decoded fields.
func parseMessage(c *cell.Cell) (*schema.Message, error) {
	hash := b64Hash(c.Hash())
	s := c.BeginParse()

	msg, err := parseCommonMsgInfo(s)
	if err != nil {
		return nil, err
	}
	msg.Hash = hash

	initPresent, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("message", "init presence: %v", err)
	}
	if initPresent {
		initRef, err := s.FetchBool()
		if err != nil {
			return nil, schema.NewParseError("message", "init inline/ref: %v", err)
		}
		var initCell *cell.Cell
		if initRef {
			ref, err := s.FetchRef()
			if err != nil {
				return nil, schema.NewParseError("message", "init_state ref: %v", err)
			}
			initCell = ref
		} else {
			initCell, err = parseInlineStateInit(s)
			if err != nil {
				return nil, err
			}
		}
		msg.InitState = initCell
		msg.InitStateBOC = cell.SerializeBOCBase64(initCell)
		h := initCell.Hash()
		hs := b64Hash(h)
		msg.InitStateHash = &hs
	}

	bodyRef, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("message", "body inline/ref: %v", err)
	}
	var bodyCell *cell.Cell
	if bodyRef {
		ref, err := s.FetchRef()
		if err != nil {
			return nil, schema.NewParseError("message", "body ref: %v", err)
		}
		bodyCell = ref
	} else {
		bodyCell, err = s.RestAsCell()
		if err != nil {
			return nil, schema.NewParseError("message", "body inline: %v", err)
		}
	}
	msg.Body = bodyCell
	msg.BodyBOC = cell.SerializeBOCBase64(bodyCell)
	msg.BodyHash = b64Hash(bodyCell.Hash())

	if bodyCell.BitLen() >= 32 {
		bs := bodyCell.BeginParse()
		op, err := bs.FetchUint(32)
		if err == nil {
			op32 := uint32(op)
			msg.Opcode = &op32
		}
	}

	return msg, nil
}

// parseInlineStateInit consumes an inline StateInit (split_depth, special,
// code, data, library, each behind a Maybe bit) and rebuilds it as a fresh
// cell covering exactly the consumed bits and references, leaving the slice
// positioned at the body field that follows.
func parseInlineStateInit(s *cell.Slice) (*cell.Cell, error) {
	b := cell.NewBuilder()

	splitDepthPresent, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("state_init", "split_depth presence: %v", err)
	}
	b.StoreBool(splitDepthPresent)
	if splitDepthPresent {
		v, err := s.FetchUint(5)
		if err != nil {
			return nil, schema.NewParseError("state_init", "split_depth: %v", err)
		}
		b.StoreUint(v, 5)
	}

	specialPresent, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("state_init", "special presence: %v", err)
	}
	b.StoreBool(specialPresent)
	if specialPresent {
		v, err := s.FetchUint(2) // TickTock{tick, tock}
		if err != nil {
			return nil, schema.NewParseError("state_init", "special: %v", err)
		}
		b.StoreUint(v, 2)
	}

	for _, field := range []string{"code", "data", "library"} {
		present, err := s.FetchBool()
		if err != nil {
			return nil, schema.NewParseError("state_init", "%s presence: %v", field, err)
		}
		b.StoreBool(present)
		if present {
			ref, err := s.FetchRef()
			if err != nil {
				return nil, schema.NewParseError("state_init", "%s ref: %v", field, err)
			}
			b.StoreRef(ref)
		}
	}

	c, err := b.Build()
	if err != nil {
		return nil, schema.NewParseError("state_init", "rebuild: %v", err)
	}
	return c, nil
}

// parseCommonMsgInfo decodes the int_msg_info$0 | ext_in_msg_info$10 |
// ext_out_msg_info$11 tagged union. Fields absent from a given variant are
// left at their zero value (nil for pointers).
func parseCommonMsgInfo(s *cell.Slice) (*schema.Message, error) {
	tag, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("common_msg_info", "tag: %v", err)
	}
	if tag == 0 {
		return parseIntMsgInfo(s)
	}
	tag2, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("common_msg_info", "subtag: %v", err)
	}
	if tag2 == 0 {
		return parseExtInMsgInfo(s)
	}
	return parseExtOutMsgInfo(s)
}

func parseIntMsgInfo(s *cell.Slice) (*schema.Message, error) {
	ihrDisabled, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("int_msg_info", "ihr_disabled: %v", err)
	}
	bounce, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("int_msg_info", "bounce: %v", err)
	}
	bounced, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("int_msg_info", "bounced: %v", err)
	}
	src, err := decodeMsgAddress(s)
	if err != nil {
		return nil, err
	}
	dst, err := decodeMsgAddress(s)
	if err != nil {
		return nil, err
	}
	value, err := s.FetchGrams()
	if err != nil {
		return nil, schema.NewParseError("int_msg_info", "value: %v", err)
	}
	if err := skipExtraCurrencyCollection(s); err != nil {
		return nil, err
	}
	ihrFee, err := s.FetchGrams()
	if err != nil {
		return nil, schema.NewParseError("int_msg_info", "ihr_fee: %v", err)
	}
	fwdFee, err := s.FetchGrams()
	if err != nil {
		return nil, schema.NewParseError("int_msg_info", "fwd_fee: %v", err)
	}
	createdLt, err := s.FetchUint(64)
	if err != nil {
		return nil, schema.NewParseError("int_msg_info", "created_lt: %v", err)
	}
	createdAt, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("int_msg_info", "created_at: %v", err)
	}
	lt := createdLt
	at := uint32(createdAt)
	return &schema.Message{
		Source:      src,
		Destination: dst,
		Value:       value,
		IhrFee:      ihrFee,
		FwdFee:      fwdFee,
		CreatedLt:   &lt,
		CreatedAt:   &at,
		IhrDisabled: &ihrDisabled,
		Bounce:      &bounce,
		Bounced:     &bounced,
	}, nil
}

func parseExtInMsgInfo(s *cell.Slice) (*schema.Message, error) {
	// The src field still has to be consumed to keep the slice position
	// correct, but its value is discarded: source is always absent on an
	// external-in message, whatever address the wire carries.
	if _, err := decodeMsgAddress(s); err != nil {
		return nil, err
	}
	dst, err := decodeMsgAddress(s)
	if err != nil {
		return nil, err
	}
	importFee, err := s.FetchGrams()
	if err != nil {
		return nil, schema.NewParseError("ext_in_msg_info", "import_fee: %v", err)
	}
	return &schema.Message{
		Destination: dst,
		ImportFee:   importFee,
	}, nil
}

func parseExtOutMsgInfo(s *cell.Slice) (*schema.Message, error) {
	src, err := decodeMsgAddress(s)
	if err != nil {
		return nil, err
	}
	// dest is consumed and discarded: destination is always absent on an
	// external-out message, whatever address the wire carries.
	if _, err := decodeMsgAddress(s); err != nil {
		return nil, err
	}
	createdLt, err := s.FetchUint(64)
	if err != nil {
		return nil, schema.NewParseError("ext_out_msg_info", "created_lt: %v", err)
	}
	createdAt, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("ext_out_msg_info", "created_at: %v", err)
	}
	lt := createdLt
	at := uint32(createdAt)
	return &schema.Message{
		Source:    src,
		CreatedLt: &lt,
		CreatedAt: &at,
	}, nil
}
