package persist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tonindexer/scanner/core/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakePool is a hand-written Pool fake: the interface is narrow enough that
// a generated mock would add ceremony without adding coverage.
type fakePool struct {
	execs    []string
	execErr  error
	row      *fakeRow
	beginErr error
	tx       *fakeTx
}

func (p *fakePool) Exec(_ context.Context, sql string, _ ...interface{}) (pgconn.CommandTag, error) {
	p.execs = append(p.execs, sql)
	return pgconn.CommandTag{}, p.execErr
}

func (p *fakePool) QueryRow(_ context.Context, _ string, _ ...interface{}) pgx.Row {
	return p.row
}

func (p *fakePool) Begin(context.Context) (Tx, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	return p.tx, nil
}

func (p *fakePool) Close() {}

type fakeTx struct {
	execs      []string
	execErr    error
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(_ context.Context, sql string, _ ...interface{}) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, sql)
	return pgconn.CommandTag{}, t.execErr
}
func (t *fakeTx) Query(context.Context, string, ...interface{}) (pgx.Rows, error) { return nil, nil }
func (t *fakeTx) QueryRow(context.Context, string, ...interface{}) pgx.Row        { return nil }
func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}
func (t *fakeTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeRow struct {
	scan func(dest ...interface{}) error
}

func (r *fakeRow) Scan(dest ...interface{}) error { return r.scan(dest...) }

func sampleBundle() schema.Bundle {
	blk := &schema.Block{
		Workchain: 0, Shard: -9223372036854775808, Seqno: 42,
		RootHash: "aaaa", FileHash: "bbbb", RandSeed: "cccc", CreatedBy: "dddd",
	}
	tx := &schema.Transaction{
		BlockWorkchain: 0, BlockShard: blk.Shard, BlockSeqno: 42,
		Account: "0:01", Hash: "txhash", TotalFees: uint256.NewInt(100),
		OrigStatus: schema.AccountActive, EndStatus: schema.AccountActive,
		Description: &schema.DescrOrd{ComputePh: schema.TrComputePhase{Skipped: &schema.ComputeSkipped{Reason: "no_gas"}}},
	}
	src := "0:02"
	msg := &schema.Message{Hash: "msghash", Source: &src, Value: uint256.NewInt(1000), BodyHash: "bodyhash"}
	tx.InMsg = msg
	blk.Transactions = []*schema.Transaction{tx}

	return schema.Bundle{Parsed: &schema.ParsedBlock{
		MCBlockMetadata: schema.McBlockMetadata{Workchain: 0, Shard: blk.Shard, Seqno: 42},
		Blocks:          []*schema.Block{blk},
	}}
}

func TestEmitBatchCommitsAndSkipsEmptyTables(t *testing.T) {
	tx := &fakeTx{}
	pool := &fakePool{tx: tx}

	err := EmitBatch(context.Background(), pool, []schema.Bundle{sampleBundle()}, nil)
	require.NoError(t, err)
	require.True(t, tx.committed)
	require.False(t, tx.rolledBack)

	var sawBlocks, sawMessages, sawStates bool
	for _, e := range tx.execs {
		if strings.Contains(e, "INSERT INTO blocks") {
			sawBlocks = true
		}
		if strings.Contains(e, "INSERT INTO messages") {
			sawMessages = true
		}
		if strings.Contains(e, "INSERT INTO account_states") {
			sawStates = true
		}
	}
	require.True(t, sawBlocks)
	require.True(t, sawMessages)
	require.False(t, sawStates, "no account states in this bundle, statement must be skipped")
}

func TestEmitBatchDedupsMessageAcrossDirections(t *testing.T) {
	b := sampleBundle()
	// Reuse the same in_msg hash as an out_msg of a second transaction.
	second := &schema.Transaction{
		BlockWorkchain: 0, BlockShard: b.Parsed.Blocks[0].Shard, BlockSeqno: 42,
		Account: "0:03", Hash: "txhash2", TotalFees: uint256.NewInt(1),
		OrigStatus: schema.AccountActive, EndStatus: schema.AccountActive,
		Description: &schema.DescrOrd{ComputePh: schema.TrComputePhase{Skipped: &schema.ComputeSkipped{Reason: "no_gas"}}},
		OutMsgs:     []*schema.Message{b.Parsed.Blocks[0].Transactions[0].InMsg},
		OutCount:    1,
	}
	b.Parsed.Blocks[0].Transactions = append(b.Parsed.Blocks[0].Transactions, second)

	tx := &fakeTx{}
	pool := &fakePool{tx: tx}
	require.NoError(t, EmitBatch(context.Background(), pool, []schema.Bundle{b}, nil))

	var msgStmt, linkStmt string
	for _, e := range tx.execs {
		if strings.Contains(e, "INSERT INTO messages") {
			msgStmt = e
		}
		if strings.Contains(e, "INSERT INTO transaction_messages") {
			linkStmt = e
		}
	}
	require.Equal(t, 1, strings.Count(msgStmt, "'msghash'"), "message row must appear exactly once")
	require.Equal(t, 2, strings.Count(linkStmt, "'msghash'"), "both the in and out link rows must be present")
}

func TestEmitBatchRollsBackOnExecError(t *testing.T) {
	tx := &fakeTx{execErr: errors.New("boom")}
	pool := &fakePool{tx: tx}

	err := EmitBatch(context.Background(), pool, []schema.Bundle{sampleBundle()}, nil)
	require.Error(t, err)
	require.False(t, tx.committed)
	require.True(t, tx.rolledBack)

	var storeErr *schema.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, schema.KindDBError, storeErr.Kind)
}

func TestUpsertJettonWalletSendsParameterizedQuery(t *testing.T) {
	pool := &fakePool{}
	snap := NewSnapshots(pool, 4, 100)
	w := &schema.JettonWalletData{
		Balance: uint256.NewInt(5), Address: "0:ab", Owner: "0:cd", Jetton: "0:ef", LastTransactionLt: 10,
		CodeHash: "ch", DataHash: "dh",
	}
	require.NoError(t, snap.UpsertJettonWallet(context.Background(), w))
	require.Len(t, pool.execs, 1)
	require.Contains(t, pool.execs[0], "ON CONFLICT (address) DO UPDATE")
	require.Contains(t, pool.execs[0], "$1")
}

func TestGetJettonWalletNotFound(t *testing.T) {
	pool := &fakePool{row: &fakeRow{scan: func(dest ...interface{}) error { return pgx.ErrNoRows }}}
	snap := NewSnapshots(pool, 4, 100)

	_, err := snap.GetJettonWallet(context.Background(), "0:ab")
	var storeErr *schema.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, schema.KindNotFound, storeErr.Kind)
}

func TestConnParamsStringOmitsUnsetFields(t *testing.T) {
	p := ConnParams{HostAddr: "127.0.0.1", Port: 5432}
	require.Equal(t, "hostaddr=127.0.0.1 port=5432", p.String())

	p.User = "scanner"
	p.DBName = "ton"
	require.Equal(t, "hostaddr=127.0.0.1 port=5432 user=scanner dbname=ton", p.String())
}

// fakeContentCache is an unbounded map-backed ContentCache.
type fakeContentCache struct{ seen map[string]bool }

func (c *fakeContentCache) Contains(hash string) bool { return c.seen[hash] }
func (c *fakeContentCache) Add(hash string)           { c.seen[hash] = true }

func TestEmitBatchElidesContentRowsCommittedEarlier(t *testing.T) {
	cache := &fakeContentCache{seen: map[string]bool{}}

	tx1 := &fakeTx{}
	require.NoError(t, EmitBatch(context.Background(), &fakePool{tx: tx1}, []schema.Bundle{sampleBundle()}, cache))
	require.True(t, cache.seen["msghash"], "committed content must be recorded")

	tx2 := &fakeTx{}
	require.NoError(t, EmitBatch(context.Background(), &fakePool{tx: tx2}, []schema.Bundle{sampleBundle()}, cache))
	var sawContents, sawMessages bool
	for _, e := range tx2.execs {
		if strings.Contains(e, "INSERT INTO message_contents") {
			sawContents = true
		}
		if strings.Contains(e, "INSERT INTO messages") {
			sawMessages = true
		}
	}
	require.False(t, sawContents, "second batch must skip the already-stored body")
	require.True(t, sawMessages, "the messages row itself is still emitted")
}

func TestEmitBatchFailureDoesNotPoisonContentCache(t *testing.T) {
	cache := &fakeContentCache{seen: map[string]bool{}}
	tx := &fakeTx{execErr: errors.New("boom")}
	require.Error(t, EmitBatch(context.Background(), &fakePool{tx: tx}, []schema.Bundle{sampleBundle()}, cache))
	require.False(t, cache.seen["msghash"], "a failed batch must not mark its contents as stored")
}
