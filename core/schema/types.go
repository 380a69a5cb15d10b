// Package schema defines the canonical records the parser produces and the
// persistence layer consumes: blocks, transactions, messages, account
// states, the TransactionDescr tagged union, and the domain event/snapshot
// entities. Records own their primitive fields and cell references; they are
// built by core/parser, consumed by internal/persist, and dropped once the
// enclosing DB transaction commits or fails. No entity persists live
// references across DB transactions.
package schema

import (
	"github.com/holiman/uint256"
	"github.com/tonindexer/scanner/core/cell"
)

// AccountStatus is the closed enum carried by Transaction.OrigStatus/EndStatus
// and, as a plain string (see AccountState.Status), by account snapshots.
type AccountStatus string

const (
	AccountUninit   AccountStatus = "uninit"
	AccountFrozen   AccountStatus = "frozen"
	AccountActive   AccountStatus = "active"
	AccountNonexist AccountStatus = "nonexist"
)

// McBlockMetadata identifies the masterchain block a ParsedBlock is anchored
// to; every shard Block in the bundle copies these three fields into its own
// MCWorkchain/MCShard/MCSeqno back-reference.
type McBlockMetadata struct {
	Workchain int32
	Shard     int64
	Seqno     int32
}

// ParsedBlock is the Parser's sole output: one masterchain block plus its
// referenced shard blocks, each with transactions and embedded messages, and
// the post-state account snapshots for every address touched in the bundle.
type ParsedBlock struct {
	MCBlockMetadata McBlockMetadata
	Blocks          []*Block
	AccountStates   []*AccountState
}

// Block is identified by (Workchain, Shard, Seqno).
type Block struct {
	Workchain int32
	Shard     int64
	Seqno     int32

	RootHash string // base64 of a 32-byte digest
	FileHash string // base64 of a 32-byte digest

	// Masterchain back-reference. Nil for none (should not occur once a
	// bundle has been parsed: the masterchain block refers to itself).
	MCWorkchain *int32
	MCShard     *int64
	MCSeqno     *int32

	GlobalID int32
	Version  uint32

	AfterMerge    bool
	BeforeSplit   bool
	AfterSplit    bool
	WantSplit     bool
	KeyBlock      bool
	VertSeqnoIncr bool
	Flags         uint16

	GenUtime uint32
	StartLt  uint64
	EndLt    uint64

	ValidatorListHashShort uint32
	GenCatchainSeqno       uint32
	MinRefMCSeqno          uint32
	PrevKeyBlockSeqno      uint32
	VertSeqno              uint32

	MasterRefSeqno *uint32

	RandSeed  string // base64
	CreatedBy string // base64

	Transactions []*Transaction
}

// Transaction is identified by (block triple, account, hash, lt).
type Transaction struct {
	BlockWorkchain int32
	BlockShard     int64
	BlockSeqno     int32

	Account string // raw address
	Hash    string // base64 of a 32-byte digest
	Lt      uint64
	Now     uint32

	PrevTransHash string
	PrevTransLt   uint64

	OrigStatus AccountStatus
	EndStatus  AccountStatus

	TotalFees *uint256.Int

	AccountStateHashBefore string
	AccountStateHashAfter  string

	InMsg    *Message
	OutMsgs  []*Message
	OutCount int // outmsg_cnt from the source cell, checked against len(OutMsgs)

	Description TransactionDescr
}

// Message is identified by its 256-bit cell hash.
type Message struct {
	Hash string

	Source      *string // absent iff external-in
	Destination *string // absent iff external-out

	Value     *uint256.Int
	FwdFee    *uint256.Int
	IhrFee    *uint256.Int
	CreatedLt *uint64
	CreatedAt *uint32

	Opcode *uint32 // first 32 bits of Body, when Body has >= 32 bits

	IhrDisabled *bool
	Bounce      *bool
	Bounced     *bool
	ImportFee   *uint256.Int

	Body    *cell.Cell
	BodyBOC string

	InitState    *cell.Cell
	InitStateBOC string

	BodyHash      string
	InitStateHash *string
}

// AccountState is identified by the 256-bit hash of the account cell.
type AccountState struct {
	Hash    string
	Account string

	Balance *uint256.Int
	// Status is a plain string computed once at parse time
	// ("uninit"/"frozen"/"active"), distinct from the typed
	// AccountStatus enum carried by Transaction. The asymmetry is
	// intentional.
	Status string

	FrozenHash *string

	Code     *cell.Cell
	CodeHash *string
	Data     *cell.Cell
	DataHash *string
}
