// Package parser decodes TON block bundles into canonical schema records.
// It is the sole producer of schema.ParsedBlock: every downstream component
// (insert batcher, SQL emitter, domain upsert workers) consumes its output
// and never touches a cell directly.
package parser

import "github.com/tonindexer/scanner/core/schema"

// Parse decodes a masterchain-anchored bundle of (block_data, block_state)
// pairs into a single ParsedBlock. bundles[0] must be the masterchain block;
// every following entry is a shard block anchored to it. Any unpack failure
// aborts the whole result: the caller must treat a non-nil error as "nothing
// in this bundle was persisted."
func Parse(bundles []BlockBundle) (*schema.ParsedBlock, error) {
	if len(bundles) == 0 {
		return nil, schema.NewParseError("parse", "empty bundle")
	}

	mcBlock, err := decodeBlockInfo(bundles[0])
	if err != nil {
		return nil, err
	}
	mcMeta := schema.McBlockMetadata{
		Workchain: mcBlock.Workchain,
		Shard:     mcBlock.Shard,
		Seqno:     mcBlock.Seqno,
	}
	mcBlock.MCWorkchain = &mcMeta.Workchain
	mcBlock.MCShard = &mcMeta.Shard
	mcBlock.MCSeqno = &mcMeta.Seqno

	result := &schema.ParsedBlock{MCBlockMetadata: mcMeta}

	for i, bundle := range bundles {
		blk := mcBlock
		if i > 0 {
			blk, err = decodeBlockInfo(bundle)
			if err != nil {
				return nil, err
			}
			blk.MCWorkchain = &mcMeta.Workchain
			blk.MCShard = &mcMeta.Shard
			blk.MCSeqno = &mcMeta.Seqno
		}

		ordered, err := orderAccounts(bundle.Accounts)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]struct{}, len(ordered))
		var touched []string
		for _, at := range ordered {
			txs, err := decodeAccountTransactions(bundle.Workchain, bundle.Shard, bundle.Seqno, at)
			if err != nil {
				return nil, err
			}
			blk.Transactions = append(blk.Transactions, txs...)
			if _, ok := seen[at.Address]; !ok {
				seen[at.Address] = struct{}{}
				touched = append(touched, at.Address)
			}
		}

		states, err := decodeAccountStates(bundle, touched)
		if err != nil {
			return nil, err
		}
		result.AccountStates = append(result.AccountStates, states...)
		result.Blocks = append(result.Blocks, blk)
	}

	return result, nil
}
