package parser

import (
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/tonindexer/scanner/core/cell"
	"github.com/tonindexer/scanner/core/schema"
)

func ltKey(lt uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, lt)
	return k
}

func rawAddr(addr [32]byte) string {
	return "0:" + hex.EncodeToString(addr[:])
}

func encodeAddrStd(b *cell.Builder, addr [32]byte) {
	b.StoreUint(0b10, 2)
	b.StoreBool(false) // anycast absent
	b.StoreUint(0, 8)  // workchain 0
	b.StoreBits(addr[:], 256)
}

func encodeAddrNone(b *cell.Builder) {
	b.StoreUint(0b00, 2)
}

func buildBlockInfoCell(t *testing.T, seqno int32) *cell.Cell {
	t.Helper()
	var zero32 [32]byte
	b := cell.NewBuilder()
	b.StoreUint(1, 32)  // global_id
	b.StoreUint(1, 32)  // version
	b.StoreBool(false)  // after_merge
	b.StoreBool(false)  // before_split
	b.StoreBool(false)  // after_split
	b.StoreBool(false)  // want_split
	b.StoreBool(false)  // key_block
	b.StoreBool(false)  // vert_seqno_incr
	b.StoreUint(0, 16)  // flags
	b.StoreUint(1000, 32)
	b.StoreUint(100, 64) // start_lt
	b.StoreUint(200, 64) // end_lt
	b.StoreUint(0, 32)   // validator_list_hash_short
	b.StoreUint(0, 32)   // gen_catchain_seqno
	b.StoreUint(0, 32)   // min_ref_mc_seqno
	b.StoreUint(0, 32)   // prev_key_block_seqno
	b.StoreUint(0, 32)   // vert_seqno
	b.StoreBits(zero32[:], 256)
	b.StoreBits(zero32[:], 256)
	b.StoreBool(false) // not_master = false -> self masterchain block
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func buildComputeVM(t *testing.T, b *cell.Builder) {
	t.Helper()
	var zero32 [32]byte
	b.StoreBit(1) // compute_vm tag
	b.StoreBool(true)
	b.StoreBool(false)
	b.StoreBool(false)
	b.StoreVarUInt(uint256.NewInt(0), 16) // gas_fees

	detail := cell.NewBuilder()
	detail.StoreVarUInt(uint256.NewInt(1000), 7) // gas_used
	detail.StoreVarUInt(uint256.NewInt(2000), 7) // gas_limit
	detail.StoreBool(false)                      // gas_credit absent
	detail.StoreUint(0, 8)                        // mode
	detail.StoreUint(0, 32)                       // exit_code
	detail.StoreBool(false)                       // exit_arg absent
	detail.StoreUint(50, 32)                       // vm_steps
	detail.StoreBits(zero32[:], 256)               // vm_init_state_hash
	detail.StoreBits(zero32[:], 256)               // vm_final_state_hash
	detailCell, err := detail.Build()
	require.NoError(t, err)
	b.StoreRef(detailCell)
}

func buildComputeSkipped(b *cell.Builder, reasonTag uint64) {
	b.StoreBit(0)
	b.StoreUint(reasonTag, 2)
}

func buildDescrOrd(t *testing.T, computeFn func(b *cell.Builder)) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	b.StoreUint(0, 1) // tag bit0
	b.StoreUint(0, 1) // bit1
	b.StoreUint(0, 1) // bit2
	b.StoreUint(0, 1) // bit3 -> trans_ord
	b.StoreBool(false) // credit_first
	b.StoreBool(false) // storage_ph absent
	b.StoreBool(false) // credit_ph absent
	computeFn(b)
	b.StoreBool(false) // action absent
	b.StoreBool(false) // aborted
	b.StoreBool(false) // bounce absent
	b.StoreBool(false) // destroyed
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func buildStoragePh(b *cell.Builder, collected uint64) {
	b.StoreVarUInt(uint256.NewInt(collected), 16)
	b.StoreBool(false) // storage_fees_due absent
	b.StoreBit(0)      // status_change unchanged
}

func buildActionPhCell(t *testing.T) *cell.Cell {
	t.Helper()
	var zero32 [32]byte
	b := cell.NewBuilder()
	b.StoreBool(true)  // success
	b.StoreBool(true)  // valid
	b.StoreBool(false) // no_funds
	b.StoreBit(0)      // status_change unchanged
	b.StoreBool(false) // total_fwd_fees absent
	b.StoreBool(false) // total_action_fees absent
	b.StoreUint(0, 32) // result_code
	b.StoreBool(false) // result_arg absent
	b.StoreUint(1, 16) // tot_actions
	b.StoreUint(1, 16) // spec_actions
	b.StoreUint(0, 16) // skipped_actions
	b.StoreUint(1, 16) // msgs_created
	b.StoreBits(zero32[:], 256)
	b.StoreVarUInt(uint256.NewInt(1), 7)   // tot_msg_size.cells
	b.StoreVarUInt(uint256.NewInt(100), 7) // tot_msg_size.bits
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func buildDescrTickTock(t *testing.T, action *cell.Cell) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	b.StoreUint(0, 1)
	b.StoreUint(0, 1)
	b.StoreUint(1, 1) // "001" -> tick_tock
	b.StoreBool(true) // is_tock
	buildStoragePh(b, 500)
	buildComputeVM(t, b)
	if action != nil {
		b.StoreBool(true)
		b.StoreRef(action)
	} else {
		b.StoreBool(false)
	}
	b.StoreBool(false) // aborted
	b.StoreBool(false) // destroyed
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

type txOpts struct {
	lt         uint64
	outMsgCnt  int
	origStatus uint64
	endStatus  uint64
	inMsg      *cell.Cell
	outMsgs    []*cell.Cell
	descr      *cell.Cell
}

func buildTransactionCell(t *testing.T, o txOpts) *cell.Cell {
	t.Helper()
	var zero32 [32]byte
	b := cell.NewBuilder()
	b.StoreUint(o.lt, 64)
	b.StoreBits(zero32[:], 256) // prev_trans_hash
	b.StoreUint(0, 64)          // prev_trans_lt
	b.StoreUint(1000, 32)       // now
	b.StoreUint(uint64(o.outMsgCnt), 15)
	b.StoreUint(o.origStatus, 2)
	b.StoreUint(o.endStatus, 2)
	if o.inMsg != nil {
		b.StoreBool(true)
		b.StoreRef(o.inMsg)
	} else {
		b.StoreBool(false)
	}
	if len(o.outMsgs) > 0 {
		container := cell.NewBuilder()
		for _, m := range o.outMsgs {
			container.StoreRef(m)
		}
		containerCell, err := container.Build()
		require.NoError(t, err)
		b.StoreRef(containerCell)
	}
	b.StoreVarUInt(uint256.NewInt(10), 16) // total_fees
	stateUpdate := cell.NewBuilder()
	stateUpdate.StoreBits(zero32[:], 256)
	stateUpdate.StoreBits(zero32[:], 256)
	suCell, err := stateUpdate.Build()
	require.NoError(t, err)
	b.StoreRef(suCell)
	b.StoreRef(o.descr)
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func buildIntMsgCell(t *testing.T, src, dst [32]byte, value uint64) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	b.StoreBit(0) // int_msg_info tag
	b.StoreBool(false)
	b.StoreBool(true)
	b.StoreBool(false)
	encodeAddrStd(b, src)
	encodeAddrStd(b, dst)
	b.StoreVarUInt(uint256.NewInt(value), 16) // value
	b.StoreBool(false)                        // extra currency absent
	b.StoreVarUInt(uint256.NewInt(0), 16)      // ihr_fee
	b.StoreVarUInt(uint256.NewInt(0), 16)      // fwd_fee
	b.StoreUint(555, 64)                       // created_lt
	b.StoreUint(1000, 32)                      // created_at
	b.StoreBool(false)                         // init absent
	b.StoreBit(0)                              // body inline
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func buildExtInMsgCell(t *testing.T, dst [32]byte, importFee uint64) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	b.StoreBit(1) // ext tag prefix
	b.StoreBit(0) // ext_in_msg_info
	encodeAddrNone(b)
	encodeAddrStd(b, dst)
	b.StoreVarUInt(uint256.NewInt(importFee), 16)
	b.StoreBool(false) // init absent
	b.StoreBit(0)      // body inline
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func buildExtOutMsgCell(t *testing.T, src [32]byte) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	b.StoreBit(1) // ext tag prefix
	b.StoreBit(1) // ext_out_msg_info
	encodeAddrStd(b, src)
	encodeAddrNone(b)
	b.StoreUint(777, 64) // created_lt
	b.StoreUint(1000, 32)
	b.StoreBool(false) // init absent
	b.StoreBit(0)      // body inline
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func emptyBlockState(t *testing.T) *cell.Dictionary {
	t.Helper()
	return cell.NewDictionary(256, map[string]*cell.Cell{})
}

func TestParseNoTransactionBlock(t *testing.T) {
	bundle := BlockBundle{
		Workchain:  0,
		Shard:      -9223372036854775808,
		Seqno:      1,
		BlockData:  buildBlockInfoCell(t, 1),
		Accounts:   nil,
		BlockState: emptyBlockState(t),
	}
	parsed, err := Parse([]BlockBundle{bundle})
	require.NoError(t, err)
	require.Len(t, parsed.Blocks, 1)
	require.Empty(t, parsed.Blocks[0].Transactions)
	require.Empty(t, parsed.AccountStates)
	require.Equal(t, int32(1), parsed.MCBlockMetadata.Seqno)
}

func TestParseInternalMessageTransaction(t *testing.T) {
	var src, dst [32]byte
	src[0] = 0xAA
	dst[0] = 0xBB

	inMsg := buildIntMsgCell(t, src, dst, 1_000_000)
	descr := buildDescrOrd(t, func(b *cell.Builder) { buildComputeVM(t, b) })
	tx := buildTransactionCell(t, txOpts{
		lt:         1,
		outMsgCnt:  0,
		origStatus: 2,
		endStatus:  2,
		inMsg:      inMsg,
		descr:      descr,
	})

	account := AccountTransactions{
		Address: rawAddr(dst),
		Txs:     cell.NewDictionary(64, map[string]*cell.Cell{string(ltKey(1)): tx}),
	}
	bundle := BlockBundle{
		Workchain:  0,
		Shard:      -9223372036854775808,
		Seqno:      1,
		BlockData:  buildBlockInfoCell(t, 1),
		Accounts:   []AccountTransactions{account},
		BlockState: emptyBlockState(t),
	}

	parsed, err := Parse([]BlockBundle{bundle})
	require.NoError(t, err)
	require.Len(t, parsed.Blocks[0].Transactions, 1)
	tr := parsed.Blocks[0].Transactions[0]
	require.Equal(t, rawAddr(dst), tr.Account)
	require.Equal(t, 0, tr.OutCount)
	require.NotNil(t, tr.InMsg)
	require.NotNil(t, tr.InMsg.Source)
	require.NotNil(t, tr.InMsg.Destination)
	require.Equal(t, rawAddr(src), *tr.InMsg.Source)
	require.Equal(t, rawAddr(dst), *tr.InMsg.Destination)
	require.Equal(t, "1000000", tr.InMsg.Value.Dec())
	ord, ok := tr.Description.(*schema.DescrOrd)
	require.True(t, ok)
	require.NotNil(t, ord.ComputePh.VM)
	require.True(t, ord.ComputePh.VM.Success)
}

func TestParseExtInTwoExtOut(t *testing.T) {
	var dst, src1, src2 [32]byte
	dst[0] = 0x01
	src1[0] = 0x02
	src2[0] = 0x03

	inMsg := buildExtInMsgCell(t, dst, 100)
	out1 := buildExtOutMsgCell(t, src1)
	out2 := buildExtOutMsgCell(t, src2)
	descr := buildDescrOrd(t, func(b *cell.Builder) { buildComputeVM(t, b) })

	tx := buildTransactionCell(t, txOpts{
		lt:         2,
		outMsgCnt:  2,
		origStatus: 2,
		endStatus:  2,
		inMsg:      inMsg,
		outMsgs:    []*cell.Cell{out1, out2},
		descr:      descr,
	})

	account := AccountTransactions{
		Address: rawAddr(dst),
		Txs:     cell.NewDictionary(64, map[string]*cell.Cell{string(ltKey(2)): tx}),
	}
	bundle := BlockBundle{
		Workchain:  0,
		Shard:      -9223372036854775808,
		Seqno:      1,
		BlockData:  buildBlockInfoCell(t, 1),
		Accounts:   []AccountTransactions{account},
		BlockState: emptyBlockState(t),
	}

	parsed, err := Parse([]BlockBundle{bundle})
	require.NoError(t, err)
	tr := parsed.Blocks[0].Transactions[0]
	require.Equal(t, 2, tr.OutCount)
	require.Len(t, tr.OutMsgs, 2)
	require.Nil(t, tr.InMsg.Source)
	require.NotNil(t, tr.InMsg.Destination)
	require.Equal(t, "100", tr.InMsg.ImportFee.Dec())
	for _, m := range tr.OutMsgs {
		require.Nil(t, m.Destination)
		require.NotNil(t, m.Source)
	}
}

func TestParseOrdWithSkippedCompute(t *testing.T) {
	descr := buildDescrOrd(t, func(b *cell.Builder) { buildComputeSkipped(b, 2) })
	tx := buildTransactionCell(t, txOpts{
		lt:         3,
		outMsgCnt:  0,
		origStatus: 2,
		endStatus:  2,
		descr:      descr,
	})
	var addr [32]byte
	addr[0] = 0xCC
	account := AccountTransactions{
		Address: rawAddr(addr),
		Txs:     cell.NewDictionary(64, map[string]*cell.Cell{string(ltKey(3)): tx}),
	}
	bundle := BlockBundle{
		Workchain:  0,
		Shard:      -9223372036854775808,
		Seqno:      1,
		BlockData:  buildBlockInfoCell(t, 1),
		Accounts:   []AccountTransactions{account},
		BlockState: emptyBlockState(t),
	}

	parsed, err := Parse([]BlockBundle{bundle})
	require.NoError(t, err)
	tr := parsed.Blocks[0].Transactions[0]
	require.Nil(t, tr.InMsg)
	require.Equal(t, 0, len(tr.OutMsgs))
	ord, ok := tr.Description.(*schema.DescrOrd)
	require.True(t, ok)
	require.NotNil(t, ord.ComputePh.Skipped)
	require.Equal(t, "no_gas", ord.ComputePh.Skipped.Reason)
}

func TestParseTickTockWithAction(t *testing.T) {
	action := buildActionPhCell(t)
	descr := buildDescrTickTock(t, action)
	tx := buildTransactionCell(t, txOpts{
		lt:         4,
		outMsgCnt:  0,
		origStatus: 2,
		endStatus:  2,
		descr:      descr,
	})
	var addr [32]byte
	addr[0] = 0xDD
	account := AccountTransactions{
		Address: rawAddr(addr),
		Txs:     cell.NewDictionary(64, map[string]*cell.Cell{string(ltKey(4)): tx}),
	}
	bundle := BlockBundle{
		Workchain:  0,
		Shard:      -9223372036854775808,
		Seqno:      1,
		BlockData:  buildBlockInfoCell(t, 1),
		Accounts:   []AccountTransactions{account},
		BlockState: emptyBlockState(t),
	}

	parsed, err := Parse([]BlockBundle{bundle})
	require.NoError(t, err)
	tr := parsed.Blocks[0].Transactions[0]
	tt, ok := tr.Description.(*schema.DescrTickTock)
	require.True(t, ok)
	require.True(t, tt.IsTock)
	require.NotNil(t, tt.Action)
	require.True(t, tt.Action.Success)
}

func buildIntMsgWithInlineInit(t *testing.T, src, dst [32]byte) *cell.Cell {
	t.Helper()
	code, err := cell.NewCell([]byte{0x01}, 8, nil)
	require.NoError(t, err)
	b := cell.NewBuilder()
	b.StoreBit(0) // int_msg_info tag
	b.StoreBool(true)
	b.StoreBool(false)
	b.StoreBool(false)
	encodeAddrStd(b, src)
	encodeAddrStd(b, dst)
	b.StoreVarUInt(uint256.NewInt(1), 16)
	b.StoreBool(false) // extra currency absent
	b.StoreVarUInt(uint256.NewInt(0), 16)
	b.StoreVarUInt(uint256.NewInt(0), 16)
	b.StoreUint(1, 64)
	b.StoreUint(1, 32)
	b.StoreBool(true)  // init present
	b.StoreBit(0)      // inline StateInit
	b.StoreBool(false) // split_depth absent
	b.StoreBool(false) // special absent
	b.StoreBool(true)  // code present
	b.StoreRef(code)
	b.StoreBool(false)          // data absent
	b.StoreBool(false)          // library absent
	b.StoreBit(0)               // body inline
	b.StoreUint(0xDEADBEEF, 32) // opcode
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func TestParseMessageInlineInitState(t *testing.T) {
	var src, dst [32]byte
	src[0] = 0x11
	dst[0] = 0x22

	msg, err := parseMessage(buildIntMsgWithInlineInit(t, src, dst))
	require.NoError(t, err)
	require.NotNil(t, msg.InitState, spew.Sdump(msg))
	require.NotNil(t, msg.InitStateHash)
	require.NotEmpty(t, msg.InitStateBOC)
	require.Equal(t, 1, msg.InitState.RefCount(), "inline init must capture the code ref")
	require.NotNil(t, msg.Opcode)
	require.EqualValues(t, 0xDEADBEEF, *msg.Opcode)
	require.Equal(t, 32, msg.Body.BitLen(), "body must start after the inline init")
}

func TestParseMessageInitStateBehindRef(t *testing.T) {
	var src, dst [32]byte
	src[0] = 0x33
	dst[0] = 0x44

	init, err := cell.NewCell([]byte{0b00000000}, 5, nil)
	require.NoError(t, err)
	b := cell.NewBuilder()
	b.StoreBit(0) // int_msg_info tag
	b.StoreBool(true)
	b.StoreBool(false)
	b.StoreBool(false)
	encodeAddrStd(b, src)
	encodeAddrStd(b, dst)
	b.StoreVarUInt(uint256.NewInt(1), 16)
	b.StoreBool(false)
	b.StoreVarUInt(uint256.NewInt(0), 16)
	b.StoreVarUInt(uint256.NewInt(0), 16)
	b.StoreUint(1, 64)
	b.StoreUint(1, 32)
	b.StoreBool(true) // init present
	b.StoreBit(1)     // init behind a ref
	b.StoreRef(init)
	b.StoreBit(0) // body inline, empty
	c, err := b.Build()
	require.NoError(t, err)

	msg, err := parseMessage(c)
	require.NoError(t, err)
	require.NotNil(t, msg.InitState)
	require.Equal(t, init.Hash(), msg.InitState.Hash())
	require.Nil(t, msg.Opcode, "empty body exposes no opcode")
}

func encodeAddrExtern(b *cell.Builder, bits []byte, bitLen int) {
	b.StoreUint(0b01, 2)
	b.StoreUint(uint64(bitLen), 9)
	b.StoreBits(bits, bitLen)
}

func TestParseExtInMessageDropsWireSource(t *testing.T) {
	var dst [32]byte
	dst[0] = 0x55

	b := cell.NewBuilder()
	b.StoreBit(1) // ext tag prefix
	b.StoreBit(0) // ext_in_msg_info
	encodeAddrExtern(b, []byte{0xAB, 0xCD}, 16)
	encodeAddrStd(b, dst)
	b.StoreVarUInt(uint256.NewInt(7), 16)
	b.StoreBool(false) // init absent
	b.StoreBit(0)      // body inline
	c, err := b.Build()
	require.NoError(t, err)

	msg, err := parseMessage(c)
	require.NoError(t, err)
	require.Nil(t, msg.Source, "source must be absent even when the wire carries an extern address")
	require.NotNil(t, msg.Destination)
	require.Equal(t, rawAddr(dst), *msg.Destination)
	require.Equal(t, "7", msg.ImportFee.Dec())
}

func TestParseExtOutMessageDropsWireDestination(t *testing.T) {
	var src [32]byte
	src[0] = 0x66

	b := cell.NewBuilder()
	b.StoreBit(1) // ext tag prefix
	b.StoreBit(1) // ext_out_msg_info
	encodeAddrStd(b, src)
	encodeAddrExtern(b, []byte{0x12, 0x34}, 16)
	b.StoreUint(888, 64) // created_lt
	b.StoreUint(1000, 32)
	b.StoreBool(false) // init absent
	b.StoreBit(0)      // body inline
	c, err := b.Build()
	require.NoError(t, err)

	msg, err := parseMessage(c)
	require.NoError(t, err)
	require.Nil(t, msg.Destination, "destination must be absent even when the wire carries an extern address")
	require.NotNil(t, msg.Source)
	require.Equal(t, rawAddr(src), *msg.Source)
	require.EqualValues(t, 888, *msg.CreatedLt)
}

type accountStateOpts struct {
	splitDepth bool
	special    bool
	code       *cell.Cell
	data       *cell.Cell
}

func buildActiveAccountCell(t *testing.T, o accountStateOpts) *cell.Cell {
	t.Helper()
	b := cell.NewBuilder()
	b.StoreBit(1)                                 // account, not account_none
	b.StoreUint(900, 64)                          // last_trans_lt
	b.StoreVarUInt(uint256.NewInt(5_000_000), 16) // balance
	b.StoreBool(false)                            // extra currency absent
	b.StoreBit(1)                                 // account_active$1
	b.StoreBool(o.splitDepth)
	if o.splitDepth {
		b.StoreUint(8, 5)
	}
	b.StoreBool(o.special)
	if o.special {
		b.StoreUint(0b10, 2) // tick only
	}
	b.StoreBool(o.code != nil)
	if o.code != nil {
		b.StoreRef(o.code)
	}
	b.StoreBool(o.data != nil)
	if o.data != nil {
		b.StoreRef(o.data)
	}
	b.StoreBool(false) // library absent
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func TestParseActiveAccountState(t *testing.T) {
	code, err := cell.NewCell([]byte{0xC0, 0xDE}, 16, nil)
	require.NoError(t, err)
	data, err := cell.NewCell([]byte{0xDA, 0x7A}, 16, nil)
	require.NoError(t, err)

	var addr [32]byte
	addr[0] = 0xEE
	acc := buildActiveAccountCell(t, accountStateOpts{code: code, data: data})

	st, err := parseAccountState(rawAddr(addr), acc)
	require.NoError(t, err)
	require.Equal(t, "active", st.Status)
	require.Equal(t, "5000000", st.Balance.Dec())
	require.Nil(t, st.FrozenHash)
	require.NotNil(t, st.Code, spew.Sdump(st))
	require.NotNil(t, st.CodeHash)
	require.Equal(t, b64Hash(code.Hash()), *st.CodeHash)
	require.NotNil(t, st.Data)
	require.NotNil(t, st.DataHash)
	require.Equal(t, b64Hash(data.Hash()), *st.DataHash)
	require.Equal(t, b64Hash(acc.Hash()), st.Hash)
}

func TestParseActiveAccountStateWalksSplitDepthAndSpecial(t *testing.T) {
	code, err := cell.NewCell([]byte{0x01}, 8, nil)
	require.NoError(t, err)

	var addr [32]byte
	addr[0] = 0xEF
	acc := buildActiveAccountCell(t, accountStateOpts{splitDepth: true, special: true, code: code})

	st, err := parseAccountState(rawAddr(addr), acc)
	require.NoError(t, err)
	require.Equal(t, "active", st.Status)
	require.NotNil(t, st.CodeHash, "code presence bit must be read past split_depth and special")
	require.Equal(t, b64Hash(code.Hash()), *st.CodeHash)
	require.Nil(t, st.Data)
	require.Nil(t, st.DataHash)
}

func TestParseFrozenAccountState(t *testing.T) {
	var frozen [32]byte
	frozen[0] = 0xF0

	b := cell.NewBuilder()
	b.StoreBit(1)                             // account
	b.StoreUint(901, 64)                      // last_trans_lt
	b.StoreVarUInt(uint256.NewInt(1_000), 16) // balance
	b.StoreBool(false)                        // extra currency absent
	b.StoreBit(0)                             // not active
	b.StoreBit(1)                             // account_frozen$01
	b.StoreBits(frozen[:], 256)
	acc, err := b.Build()
	require.NoError(t, err)

	var addr [32]byte
	addr[0] = 0xF1
	st, err := parseAccountState(rawAddr(addr), acc)
	require.NoError(t, err)
	require.Equal(t, "frozen", st.Status)
	require.NotNil(t, st.FrozenHash)
	require.Equal(t, base64Encode(frozen[:]), *st.FrozenHash)
	require.Nil(t, st.Code)
	require.Nil(t, st.Data)
}

func TestParseUninitAccountState(t *testing.T) {
	b := cell.NewBuilder()
	b.StoreBit(1)                          // account
	b.StoreUint(902, 64)                   // last_trans_lt
	b.StoreVarUInt(uint256.NewInt(42), 16) // balance
	b.StoreBool(false)                     // extra currency absent
	b.StoreBit(0)                          // not active
	b.StoreBit(0)                          // account_uninit$00
	acc, err := b.Build()
	require.NoError(t, err)

	var addr [32]byte
	addr[0] = 0xF2
	st, err := parseAccountState(rawAddr(addr), acc)
	require.NoError(t, err)
	require.Equal(t, "uninit", st.Status)
	require.Equal(t, "42", st.Balance.Dec())
	require.Nil(t, st.FrozenHash)
}

func TestDecodeAccountStatesResolvesTouchedAddresses(t *testing.T) {
	code, err := cell.NewCell([]byte{0x02}, 8, nil)
	require.NoError(t, err)

	var present, missing [32]byte
	present[0] = 0xA1
	missing[0] = 0xA2
	acc := buildActiveAccountCell(t, accountStateOpts{code: code})

	key, err := addressKeyBytes(rawAddr(present))
	require.NoError(t, err)
	state := cell.NewDictionary(256, map[string]*cell.Cell{string(key): acc})

	bundle := BlockBundle{Workchain: 0, Shard: -9223372036854775808, Seqno: 1, BlockState: state}
	states, err := decodeAccountStates(bundle, []string{rawAddr(present), rawAddr(missing)})
	require.NoError(t, err)
	require.Len(t, states, 1, "an address missing from the accounts dictionary is skipped")
	require.Equal(t, rawAddr(present), states[0].Account)
	require.Equal(t, "active", states[0].Status)
	require.NotNil(t, states[0].CodeHash)
}
