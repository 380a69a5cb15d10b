package parser

import (
	"github.com/tonindexer/scanner/core/cell"
	"github.com/tonindexer/scanner/core/schema"
)

// parseAccountStatusTag decodes the 2-bit AccountStatus enum used by
// orig_status/end_status: 0 uninit, 1 frozen, 2 active, 3 nonexist.
func parseAccountStatusTag(s *cell.Slice) (schema.AccountStatus, error) {
	v, err := s.FetchUint(2)
	if err != nil {
		return "", schema.NewParseError("account_status", "%v", err)
	}
	switch v {
	case 0:
		return schema.AccountUninit, nil
	case 1:
		return schema.AccountFrozen, nil
	case 2:
		return schema.AccountActive, nil
	default:
		return schema.AccountNonexist, nil
	}
}

// readOutMsgs fetches count message refs in index order. When count is zero
// no reference is consumed at all; otherwise a single ref opens a container
// cell holding up to three message refs, chaining through its fourth ref into
// a continuation cell for any remainder. This stands in for the real 15-bit
// HashmapE the outbound dictionary uses on the wire, while keeping the
// transaction cell's own reference budget fixed regardless of outmsg_cnt.
func readOutMsgs(s *cell.Slice, count int) ([]*cell.Cell, error) {
	if count == 0 {
		return nil, nil
	}
	container, err := s.FetchRef()
	if err != nil {
		return nil, schema.NewParseError("out_msgs", "container ref: %v", err)
	}
	cur := container.BeginParse()
	msgs := make([]*cell.Cell, 0, count)
	remaining := count
	for remaining > 0 {
		n := remaining
		if n > 3 {
			n = 3
		}
		for i := 0; i < n; i++ {
			ref, err := cur.FetchRef()
			if err != nil {
				return nil, schema.NewParseError("out_msgs", "ref %d: %v", len(msgs), err)
			}
			msgs = append(msgs, ref)
		}
		remaining -= n
		if remaining > 0 {
			overflow, err := cur.FetchRef()
			if err != nil {
				return nil, schema.NewParseError("out_msgs", "overflow ref: %v", err)
			}
			cur = overflow.BeginParse()
		}
	}
	return msgs, nil
}

// parseTransaction decodes a single transaction cell. account_addr is not
// re-read from the cell: it is identical to the outer dictionary key the
// caller already resolved, so decoding it a second time would be redundant.
func parseTransaction(workchain int32, shard int64, seqno int32, account string, txCell *cell.Cell) (*schema.Transaction, error) {
	hash := b64Hash(txCell.Hash())
	s := txCell.BeginParse()

	lt, err := s.FetchUint(64)
	if err != nil {
		return nil, schema.NewParseError("transaction", "lt: %v", err)
	}
	prevHashBits, err := s.FetchBits(256)
	if err != nil {
		return nil, schema.NewParseError("transaction", "prev_trans_hash: %v", err)
	}
	prevLt, err := s.FetchUint(64)
	if err != nil {
		return nil, schema.NewParseError("transaction", "prev_trans_lt: %v", err)
	}
	now, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("transaction", "now: %v", err)
	}
	outMsgCnt, err := s.FetchUint(15)
	if err != nil {
		return nil, schema.NewParseError("transaction", "outmsg_cnt: %v", err)
	}
	origStatus, err := parseAccountStatusTag(s)
	if err != nil {
		return nil, err
	}
	endStatus, err := parseAccountStatusTag(s)
	if err != nil {
		return nil, err
	}

	inMsgPresent, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("transaction", "in_msg presence: %v", err)
	}
	var inMsg *schema.Message
	if inMsgPresent {
		ref, err := s.FetchRef()
		if err != nil {
			return nil, schema.NewParseError("transaction", "in_msg ref: %v", err)
		}
		inMsg, err = parseMessage(ref)
		if err != nil {
			return nil, err
		}
	}

	outMsgCells, err := readOutMsgs(s, int(outMsgCnt))
	if err != nil {
		return nil, err
	}
	outMsgs := make([]*schema.Message, 0, len(outMsgCells))
	for _, mc := range outMsgCells {
		m, err := parseMessage(mc)
		if err != nil {
			return nil, err
		}
		outMsgs = append(outMsgs, m)
	}
	if len(outMsgs) != int(outMsgCnt) {
		return nil, schema.NewParseError("transaction", "out_msgs count mismatch: declared %d, decoded %d", outMsgCnt, len(outMsgs))
	}

	totalFees, err := s.FetchGrams()
	if err != nil {
		return nil, schema.NewParseError("transaction", "total_fees: %v", err)
	}

	stateUpdateRef, err := s.FetchRef()
	if err != nil {
		return nil, schema.NewParseError("transaction", "state_update ref: %v", err)
	}
	su := stateUpdateRef.BeginParse()
	oldHashBits, err := su.FetchBits(256)
	if err != nil {
		return nil, schema.NewParseError("transaction", "state_update old_hash: %v", err)
	}
	newHashBits, err := su.FetchBits(256)
	if err != nil {
		return nil, schema.NewParseError("transaction", "state_update new_hash: %v", err)
	}

	descrRef, err := s.FetchRef()
	if err != nil {
		return nil, schema.NewParseError("transaction", "description ref: %v", err)
	}
	descr, err := parseTransactionDescr(descrRef.BeginParse())
	if err != nil {
		return nil, err
	}

	return &schema.Transaction{
		BlockWorkchain:         workchain,
		BlockShard:             shard,
		BlockSeqno:             seqno,
		Account:                account,
		Hash:                   hash,
		Lt:                     lt,
		Now:                    uint32(now),
		PrevTransHash:          base64Encode(prevHashBits),
		PrevTransLt:            prevLt,
		OrigStatus:             origStatus,
		EndStatus:              endStatus,
		TotalFees:              totalFees,
		AccountStateHashBefore: base64Encode(oldHashBits),
		AccountStateHashAfter:  base64Encode(newHashBits),
		InMsg:                  inMsg,
		OutMsgs:                outMsgs,
		OutCount:               int(outMsgCnt),
		Description:            descr,
	}, nil
}
