package parser

import (
	"crypto/sha256"

	"github.com/tonindexer/scanner/core/cell"
	"github.com/tonindexer/scanner/core/schema"
)

// AccountTransactions pairs an account's raw address with its logical-time
// keyed transaction dictionary.
type AccountTransactions struct {
	Address string
	Txs     *cell.Dictionary
}

// BlockBundle is one (block_data, block_state) input pair: a block's info
// cell, its per-account transaction dictionaries, and its shard state's
// accounts dictionary. Accounts need not be pre-sorted; orderAccounts
// resolves the canonical ascending-address order via the same
// lookup_nearest_key traversal the inner per-account walk uses.
type BlockBundle struct {
	Workchain  int32
	Shard      int64
	Seqno      int32
	BlockData  *cell.Cell
	Accounts   []AccountTransactions
	BlockState *cell.Dictionary
}

// orderAccounts resolves the canonical ascending-address account order by
// walking a throwaway 256-bit dictionary keyed on each account's address
// bytes with lookup_nearest_key, exercising the exact traversal contract used
// on the wire for the real accounts dictionary.
func orderAccounts(accounts []AccountTransactions) ([]AccountTransactions, error) {
	marker, err := cell.NewCell(nil, 0, nil)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]AccountTransactions, len(accounts))
	entries := make(map[string]*cell.Cell, len(accounts))
	for _, at := range accounts {
		key, err := addressKeyBytes(at.Address)
		if err != nil {
			return nil, err
		}
		k := string(key)
		byKey[k] = at
		entries[k] = marker
	}
	dict := cell.NewDictionary(256, entries)

	ordered := make([]AccountTransactions, 0, len(accounts))
	cur := make([]byte, 32)
	allowEqual := true
	for {
		key, _, ok := dict.LookupNearestKey(cur, allowEqual)
		if !ok {
			break
		}
		ordered = append(ordered, byKey[string(key)])
		cur = key
		allowEqual = false
	}
	return ordered, nil
}

// decodeAccountTransactions walks one account's lt-keyed transaction
// dictionary in ascending logical-time order via lookup_nearest_key: the
// first step allows cur == 0, every subsequent step requires strict >.
func decodeAccountTransactions(workchain int32, shard int64, seqno int32, at AccountTransactions) ([]*schema.Transaction, error) {
	var txs []*schema.Transaction
	cur := make([]byte, 8)
	allowEqual := true
	for {
		key, val, ok := at.Txs.LookupNearestKey(cur, allowEqual)
		if !ok {
			break
		}
		tx, err := parseTransaction(workchain, shard, seqno, at.Address, val)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
		cur = key
		allowEqual = false
	}
	return txs, nil
}

// decodeBlockInfo unpacks a block's info fields. The masterchain
// back-reference (MCWorkchain/MCShard/MCSeqno) is left nil; the caller fills
// it in once the bundle's masterchain block identity is known.
func decodeBlockInfo(b BlockBundle) (*schema.Block, error) {
	s := b.BlockData.BeginParse()

	globalID, err := s.FetchInt(32)
	if err != nil {
		return nil, schema.NewParseError("block_info", "global_id: %v", err)
	}
	version, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("block_info", "version: %v", err)
	}
	afterMerge, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("block_info", "after_merge: %v", err)
	}
	beforeSplit, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("block_info", "before_split: %v", err)
	}
	afterSplit, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("block_info", "after_split: %v", err)
	}
	wantSplit, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("block_info", "want_split: %v", err)
	}
	keyBlock, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("block_info", "key_block: %v", err)
	}
	vertSeqnoIncr, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("block_info", "vert_seqno_incr: %v", err)
	}
	flags, err := s.FetchUint(16)
	if err != nil {
		return nil, schema.NewParseError("block_info", "flags: %v", err)
	}
	genUtime, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("block_info", "gen_utime: %v", err)
	}
	startLt, err := s.FetchUint(64)
	if err != nil {
		return nil, schema.NewParseError("block_info", "start_lt: %v", err)
	}
	endLt, err := s.FetchUint(64)
	if err != nil {
		return nil, schema.NewParseError("block_info", "end_lt: %v", err)
	}
	validatorListHashShort, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("block_info", "validator_list_hash_short: %v", err)
	}
	genCatchainSeqno, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("block_info", "gen_catchain_seqno: %v", err)
	}
	minRefMCSeqno, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("block_info", "min_ref_mc_seqno: %v", err)
	}
	prevKeyBlockSeqno, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("block_info", "prev_key_block_seqno: %v", err)
	}
	vertSeqno, err := s.FetchUint(32)
	if err != nil {
		return nil, schema.NewParseError("block_info", "vert_seqno: %v", err)
	}
	randSeedBits, err := s.FetchBits(256)
	if err != nil {
		return nil, schema.NewParseError("block_info", "rand_seed: %v", err)
	}
	createdByBits, err := s.FetchBits(256)
	if err != nil {
		return nil, schema.NewParseError("block_info", "created_by: %v", err)
	}

	notMaster, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("block_info", "not_master: %v", err)
	}
	var masterRefSeqno *uint32
	if !notMaster {
		sq := uint32(b.Seqno)
		masterRefSeqno = &sq
	} else {
		present, err := s.FetchBool()
		if err != nil {
			return nil, schema.NewParseError("block_info", "master_ref presence: %v", err)
		}
		if present {
			ref, err := s.FetchRef()
			if err != nil {
				return nil, schema.NewParseError("block_info", "master_ref ref: %v", err)
			}
			rs := ref.BeginParse()
			if _, err := rs.FetchInt(32); err != nil {
				return nil, schema.NewParseError("block_info", "master_ref workchain: %v", err)
			}
			if _, err := rs.FetchInt(64); err != nil {
				return nil, schema.NewParseError("block_info", "master_ref shard: %v", err)
			}
			sq, err := rs.FetchUint(32)
			if err != nil {
				return nil, schema.NewParseError("block_info", "master_ref seqno: %v", err)
			}
			sq32 := uint32(sq)
			masterRefSeqno = &sq32
		}
	}

	rootHash := b64Hash(b.BlockData.Hash())
	fileDigest := sha256.Sum256(cell.SerializeBOC(b.BlockData))
	fileHash := base64Encode(fileDigest[:])

	return &schema.Block{
		Workchain: b.Workchain,
		Shard:     b.Shard,
		Seqno:     b.Seqno,

		RootHash: rootHash,
		FileHash: fileHash,

		GlobalID: int32(globalID),
		Version:  uint32(version),

		AfterMerge:    afterMerge,
		BeforeSplit:   beforeSplit,
		AfterSplit:    afterSplit,
		WantSplit:     wantSplit,
		KeyBlock:      keyBlock,
		VertSeqnoIncr: vertSeqnoIncr,
		// bit 0 of flags mirrors KeyBlock on the wire; harmless, kept as-is.
		Flags: uint16(flags),

		GenUtime: uint32(genUtime),
		StartLt:  startLt,
		EndLt:    endLt,

		ValidatorListHashShort: uint32(validatorListHashShort),
		GenCatchainSeqno:       uint32(genCatchainSeqno),
		MinRefMCSeqno:          uint32(minRefMCSeqno),
		PrevKeyBlockSeqno:      uint32(prevKeyBlockSeqno),
		VertSeqno:              uint32(vertSeqno),

		MasterRefSeqno: masterRefSeqno,

		RandSeed:  base64Encode(randSeedBits),
		CreatedBy: base64Encode(createdByBits),
	}, nil
}
