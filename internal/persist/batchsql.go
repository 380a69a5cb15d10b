package persist

import (
	"context"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tonindexer/scanner/core/schema"
)

// ContentCache remembers message hashes whose message_contents rows have
// already been committed by an earlier batch, letting EmitBatch skip
// re-emitting a body the store is guaranteed to hold (contents are
// content-addressed and immutable, so a hash hit can never be stale).
// Contains is consulted while collecting rows; Add is called only after the
// owning transaction commits, so a failed batch never marks its contents as
// stored.
type ContentCache interface {
	Contains(hash string) bool
	Add(hash string)
}

// EmitBatch commits an entire drained batch atomically: one DB transaction,
// one bulk INSERT per table (skipped when that table contributes zero rows),
// every statement terminated with ON CONFLICT DO NOTHING. Any failure rolls
// back the whole transaction, the all-or-nothing contract every completion
// handle in the batch shares. cache may be nil.
func EmitBatch(ctx context.Context, pool Pool, bundles []schema.Bundle, cache ContentCache) error {
	if len(bundles) == 0 {
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return schema.DBError("emit_batch.begin", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	blockRows, txRows, msgRows, contentRows, linkRows, stateRows, newContent, err := collectRows(bundles, cache)
	if err != nil {
		return schema.DBError("emit_batch.collect", err)
	}
	jtRows, jbRows, ntRows := collectEventRows(bundles)

	stmts := []struct {
		name string
		rows []string
		cols string
	}{
		{"blocks", blockRows, blockCols},
		{"transactions", txRows, txCols},
		{"messages", msgRows, msgCols},
		{"message_contents", contentRows, contentCols},
		{"transaction_messages", linkRows, linkCols},
		{"account_states", stateRows, stateCols},
		{"jetton_transfers", jtRows, jtCols},
		{"jetton_burns", jbRows, jbCols},
		{"nft_transfers", ntRows, ntCols},
	}
	for _, s := range stmts {
		if len(s.rows) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT DO NOTHING", s.name, s.cols, strings.Join(s.rows, ","))
		if _, err := tx.Exec(ctx, q); err != nil {
			return schema.DBError(fmt.Sprintf("emit_batch.%s", s.name), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return schema.DBError("emit_batch.commit", err)
	}
	if cache != nil {
		for _, h := range newContent {
			cache.Add(h)
		}
	}
	return nil
}

const blockCols = "workchain, shard, seqno, root_hash, file_hash, mc_block_workchain, mc_block_shard, mc_block_seqno, " +
	"global_id, version, after_merge, before_split, after_split, want_split, key_block, vert_seqno_incr, flags, " +
	"gen_utime, start_lt, end_lt, validator_list_hash_short, gen_catchain_seqno, min_ref_mc_seqno, " +
	"prev_key_block_seqno, vert_seqno, master_ref_seqno, rand_seed, created_by"

const txCols = "block_workchain, block_shard, block_seqno, account, hash, lt, now, orig_status, end_status, " +
	"total_fees, account_state_hash_before, account_state_hash_after, description"

const msgCols = "hash, source, destination, value, fwd_fee, ihr_fee, created_lt, created_at, opcode, " +
	"ihr_disabled, bounce, bounced, import_fee, body_hash, init_state_hash"

const contentCols = "hash, body"

const linkCols = "transaction_hash, message_hash, direction"

const stateCols = "hash, account, balance, account_status, frozen_hash, code_hash, data_hash"

const jtCols = "transaction_hash, query_id, amount, destination, response_destination, custom_payload, forward_ton_amount, forward_payload"

const jbCols = "transaction_hash, query_id, amount, response_destination, custom_payload"

const ntCols = "transaction_hash, query_id, nft_item, old_owner, new_owner, response_destination, custom_payload, forward_amount, forward_payload"

func collectRows(bundles []schema.Bundle, cache ContentCache) (blockRows, txRows, msgRows, contentRows, linkRows, stateRows, newContent []string, err error) {
	seenMsgs := mapset.NewThreadUnsafeSet[string]()

	for _, b := range bundles {
		if b.Parsed == nil {
			continue
		}
		for _, blk := range b.Parsed.Blocks {
			blockRows = append(blockRows, blockRow(blk))
			for _, t := range blk.Transactions {
				row, terr := txRow(t)
				if terr != nil {
					return nil, nil, nil, nil, nil, nil, nil, terr
				}
				txRows = append(txRows, row)

				if t.InMsg != nil {
					addMessage(t.InMsg, seenMsgs, cache, &msgRows, &contentRows, &newContent)
					linkRows = append(linkRows, linkRow(t.Hash, t.InMsg.Hash, "in"))
				}
				for _, m := range t.OutMsgs {
					addMessage(m, seenMsgs, cache, &msgRows, &contentRows, &newContent)
					linkRows = append(linkRows, linkRow(t.Hash, m.Hash, "out"))
				}
			}
		}
		for _, st := range b.Parsed.AccountStates {
			stateRows = append(stateRows, stateRow(st))
		}
	}
	return blockRows, txRows, msgRows, contentRows, linkRows, stateRows, newContent, nil
}

func collectEventRows(bundles []schema.Bundle) (jt, jb, nt []string) {
	for _, b := range bundles {
		for _, e := range b.JettonTransfers {
			jt = append(jt, jettonTransferRow(e))
		}
		for _, e := range b.JettonBurns {
			jb = append(jb, jettonBurnRow(e))
		}
		for _, e := range b.NFTTransfers {
			nt = append(nt, nftTransferRow(e))
		}
	}
	return jt, jb, nt
}

// addMessage appends msg's messages/message_contents rows the first time its
// hash is seen in this batch; a message referenced as both some transaction's
// inbound and another's outbound link is stored once. The content row is
// additionally elided when cache says an earlier batch already committed it.
func addMessage(m *schema.Message, seen mapset.Set[string], cache ContentCache, msgRows, contentRows, newContent *[]string) {
	if seen.Contains(m.Hash) {
		return
	}
	seen.Add(m.Hash)
	*msgRows = append(*msgRows, msgRow(m))
	if cache != nil && cache.Contains(m.Hash) {
		return
	}
	*contentRows = append(*contentRows, fmt.Sprintf("(%s, %s)", sqlStr(m.Hash), sqlStr(m.BodyBOC)))
	*newContent = append(*newContent, m.Hash)
}

func blockRow(b *schema.Block) string {
	return fmt.Sprintf("(%s)", strings.Join([]string{
		sqlInt(int64(b.Workchain)), sqlInt(b.Shard), sqlInt(int64(b.Seqno)),
		sqlStr(b.RootHash), sqlStr(b.FileHash),
		sqlIntPtr(b.MCWorkchain), sqlInt64Ptr(b.MCShard), sqlIntPtr(b.MCSeqno),
		sqlInt(int64(b.GlobalID)), sqlUint(uint64(b.Version)),
		sqlBool(b.AfterMerge), sqlBool(b.BeforeSplit), sqlBool(b.AfterSplit), sqlBool(b.WantSplit),
		sqlBool(b.KeyBlock), sqlBool(b.VertSeqnoIncr), sqlUint(uint64(b.Flags)),
		sqlUint(uint64(b.GenUtime)), sqlUint(b.StartLt), sqlUint(b.EndLt),
		sqlUint(uint64(b.ValidatorListHashShort)), sqlUint(uint64(b.GenCatchainSeqno)),
		sqlUint(uint64(b.MinRefMCSeqno)), sqlUint(uint64(b.PrevKeyBlockSeqno)), sqlUint(uint64(b.VertSeqno)),
		sqlUintPtr32(b.MasterRefSeqno), sqlStr(b.RandSeed), sqlStr(b.CreatedBy),
	}, ", "))
}

func txRow(t *schema.Transaction) (string, error) {
	descrJSON, err := schema.DescrJSON(t.Description)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)", strings.Join([]string{
		sqlInt(int64(t.BlockWorkchain)), sqlInt(t.BlockShard), sqlInt(int64(t.BlockSeqno)),
		sqlStr(t.Account), sqlStr(t.Hash), sqlUint(t.Lt), sqlUint(uint64(t.Now)),
		sqlStr(string(t.OrigStatus)), sqlStr(string(t.EndStatus)),
		sqlBig(t.TotalFees), sqlStr(t.AccountStateHashBefore), sqlStr(t.AccountStateHashAfter),
		sqlStr(string(descrJSON)),
	}, ", ")), nil
}

func msgRow(m *schema.Message) string {
	return fmt.Sprintf("(%s)", strings.Join([]string{
		sqlStr(m.Hash), sqlStrPtr(m.Source), sqlStrPtr(m.Destination),
		sqlBig(m.Value), sqlBig(m.FwdFee), sqlBig(m.IhrFee),
		sqlUintPtr64(m.CreatedLt), sqlUintPtr32(m.CreatedAt), sqlUintPtr32(m.Opcode),
		sqlBoolPtr(m.IhrDisabled), sqlBoolPtr(m.Bounce), sqlBoolPtr(m.Bounced),
		sqlBig(m.ImportFee), sqlStr(m.BodyHash), sqlStrPtr(m.InitStateHash),
	}, ", "))
}

func linkRow(txHash, msgHash, direction string) string {
	return fmt.Sprintf("(%s, %s, %s)", sqlStr(txHash), sqlStr(msgHash), sqlStr(direction))
}

func stateRow(s *schema.AccountState) string {
	return fmt.Sprintf("(%s)", strings.Join([]string{
		sqlStr(s.Hash), sqlStr(s.Account), sqlBig(s.Balance), sqlStr(s.Status),
		sqlStrPtr(s.FrozenHash), sqlStrPtr(s.CodeHash), sqlStrPtr(s.DataHash),
	}, ", "))
}

func jettonTransferRow(e *schema.JettonTransfer) string {
	return fmt.Sprintf("(%s)", strings.Join([]string{
		sqlStr(e.TransactionHash), sqlUint(e.QueryID), sqlBig(e.Amount), sqlStr(e.Destination),
		sqlStrPtr(e.ResponseDestination), sqlStrPtr(e.CustomPayload), sqlBig(e.ForwardTonAmount), sqlStrPtr(e.ForwardPayload),
	}, ", "))
}

func jettonBurnRow(e *schema.JettonBurn) string {
	return fmt.Sprintf("(%s)", strings.Join([]string{
		sqlStr(e.TransactionHash), sqlUint(e.QueryID), sqlBig(e.Amount),
		sqlStrPtr(e.ResponseDestination), sqlStrPtr(e.CustomPayload),
	}, ", "))
}

func nftTransferRow(e *schema.NFTTransfer) string {
	return fmt.Sprintf("(%s)", strings.Join([]string{
		sqlStr(e.TransactionHash), sqlUint(e.QueryID), sqlStr(e.NFTItem), sqlStr(e.OldOwner), sqlStr(e.NewOwner),
		sqlStrPtr(e.ResponseDestination), sqlStrPtr(e.CustomPayload), sqlBig(e.ForwardAmount), sqlStrPtr(e.ForwardPayload),
	}, ", "))
}
