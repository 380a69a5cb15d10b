package schema

import "github.com/holiman/uint256"

// TransactionDescr is the closed sum ord | storage | tick_tock |
// split_prepare | split_install | merge_prepare | merge_install. Every
// concrete variant below implements it; Type returns the exact tag name
// persisted in the "type" field of the JSON description column.
type TransactionDescr interface {
	Type() string
}

// StorageUsedShort carries a cell/bit count pair, nested inside
// TrActionPhase and the bounce phase records.
type StorageUsedShort struct {
	Cells uint64
	Bits  uint64
}

// TrStoragePhase accounts for storage fee collection against an account.
type TrStoragePhase struct {
	StorageFeesCollected *uint256.Int
	StorageFeesDue       *uint256.Int // optional
	StatusChange         string       // "unchanged" | "frozen" | "deleted"
}

// TrCreditPhase credits an account with an inbound message's value.
type TrCreditPhase struct {
	DueFeesCollected *uint256.Int // optional
	Credit           *uint256.Int
}

// TrComputePhase is the union compute_skipped{reason} | compute_vm{...}.
// Exactly one of Skipped/VM is non-nil.
type TrComputePhase struct {
	Skipped *ComputeSkipped
	VM      *ComputeVM
}

// ComputeSkipped is the compute_skipped variant.
type ComputeSkipped struct {
	Reason string // "no_state" | "bad_state" | "no_gas" | "suspended"
}

// ComputeVM is the compute_vm variant: a full compute record with VM trace
// hashes.
type ComputeVM struct {
	Success          bool
	MsgStateUsed     bool
	AccountActivated bool
	GasFees          *uint256.Int
	GasUsed          uint64
	GasLimit         uint64
	GasCredit        *uint64 // optional, VarUInteger 3
	Mode             int8
	ExitCode         int32
	ExitArg          *int32 // optional
	VMSteps          uint32
	VMInitStateHash  string
	VMFinalStateHash string
}

// TrActionPhase summarizes the outcome of executing the action list.
type TrActionPhase struct {
	Success         bool
	Valid           bool
	NoFunds         bool
	StatusChange    string
	TotalFwdFees    *uint256.Int // optional
	TotalActionFees *uint256.Int // optional
	ResultCode      int32
	ResultArg       *int32 // optional
	TotActions      uint16
	SpecActions     uint16
	SkippedActions  uint16
	MsgsCreated     uint16
	ActionListHash  string
	TotMsgSize      StorageUsedShort
}

// TrBouncePhase is the union negfunds | nofunds | ok. Exactly one field is
// non-nil.
type TrBouncePhase struct {
	Negfunds *BounceNegfunds
	Nofunds  *BounceNofunds
	Ok       *BounceOk
}

type BounceNegfunds struct{}

type BounceNofunds struct {
	MsgSize    StorageUsedShort
	ReqFwdFees *uint256.Int
}

type BounceOk struct {
	MsgSize StorageUsedShort
	MsgFees *uint256.Int
	FwdFees *uint256.Int
}

// SplitMergeInfo is the common split/merge shard-boundary record embedded in
// the split_* and merge_* descr variants.
type SplitMergeInfo struct {
	CurShardPfxLen uint8
	AccSplitDepth  uint8
	ThisAddr       string
	SiblingAddr    string
}

// DescrOrd is the ordinary transaction description variant.
type DescrOrd struct {
	CreditFirst bool
	StoragePh   *TrStoragePhase // optional
	CreditPh    *TrCreditPhase  // optional
	ComputePh   TrComputePhase  // always present
	Action      *TrActionPhase  // optional, behind a reference
	Aborted     bool
	Bounce      *TrBouncePhase // optional
	Destroyed   bool
}

func (*DescrOrd) Type() string { return "ord" }

// DescrStorage is the storage-only transaction description variant.
type DescrStorage struct {
	StoragePh TrStoragePhase
}

func (*DescrStorage) Type() string { return "storage" }

// DescrTickTock is the tick/tock transaction description variant.
type DescrTickTock struct {
	IsTock    bool
	StoragePh TrStoragePhase
	ComputePh TrComputePhase
	Action    *TrActionPhase // optional, behind a reference
	Aborted   bool
	Destroyed bool
}

func (*DescrTickTock) Type() string { return "tick_tock" }

// DescrSplitPrepare is the split-prepare transaction description variant.
type DescrSplitPrepare struct {
	SplitInfo SplitMergeInfo
	StoragePh *TrStoragePhase // optional
	ComputePh TrComputePhase
	Action    *TrActionPhase // optional, behind a reference
	Aborted   bool
	Destroyed bool
}

func (*DescrSplitPrepare) Type() string { return "split_prepare" }

// DescrSplitInstall is the split-install transaction description variant.
type DescrSplitInstall struct {
	SplitInfo SplitMergeInfo
	Installed bool
}

func (*DescrSplitInstall) Type() string { return "split_install" }

// DescrMergePrepare is the merge-prepare transaction description variant.
type DescrMergePrepare struct {
	SplitInfo SplitMergeInfo
	StoragePh TrStoragePhase
	Aborted   bool
}

func (*DescrMergePrepare) Type() string { return "merge_prepare" }

// DescrMergeInstall is the merge-install transaction description variant.
type DescrMergeInstall struct {
	SplitInfo SplitMergeInfo
	StoragePh *TrStoragePhase // optional
	CreditPh  *TrCreditPhase  // optional
	ComputePh TrComputePhase
	Action    *TrActionPhase // optional
	Aborted   bool
	Destroyed bool
}

func (*DescrMergeInstall) Type() string { return "merge_install" }
