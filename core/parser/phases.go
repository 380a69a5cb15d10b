package parser

import (
	"github.com/holiman/uint256"
	"github.com/tonindexer/scanner/core/cell"
	"github.com/tonindexer/scanner/core/schema"
)

// uint256Int aliases the big-integer type every Grams/VarUInteger field
// decodes into, for brevity in this file.
type uint256Int = uint256.Int

// parseAccStatusChange decodes the AccStatusChange prefix code:
// acst_unchanged$0, acst_frozen$10, acst_deleted$11.
func parseAccStatusChange(s *cell.Slice) (string, error) {
	b, err := s.FetchBit()
	if err != nil {
		return "", schema.NewParseError("acc_status_change", "%v", err)
	}
	if b == 0 {
		return "unchanged", nil
	}
	b2, err := s.FetchBit()
	if err != nil {
		return "", schema.NewParseError("acc_status_change", "%v", err)
	}
	if b2 == 0 {
		return "frozen", nil
	}
	return "deleted", nil
}

// skipExtraCurrencyCollection consumes the optional extra-currencies
// dictionary tail of a CurrencyCollection; its contents are not surfaced by
// this schema.
func skipExtraCurrencyCollection(s *cell.Slice) error {
	present, err := s.FetchBool()
	if err != nil {
		return schema.NewParseError("extra_currency_collection", "%v", err)
	}
	if !present {
		return nil
	}
	if _, err := s.FetchRef(); err != nil {
		return schema.NewParseError("extra_currency_collection", "dict ref: %v", err)
	}
	return nil
}

func parseStorageUsedShort(s *cell.Slice) (schema.StorageUsedShort, error) {
	cells, err := s.FetchVarUInt64(7)
	if err != nil {
		return schema.StorageUsedShort{}, schema.NewParseError("storage_used_short", "cells: %v", err)
	}
	bits, err := s.FetchVarUInt64(7)
	if err != nil {
		return schema.StorageUsedShort{}, schema.NewParseError("storage_used_short", "bits: %v", err)
	}
	return schema.StorageUsedShort{Cells: cells, Bits: bits}, nil
}

func parseTrStoragePhase(s *cell.Slice) (*schema.TrStoragePhase, error) {
	collected, err := s.FetchGrams()
	if err != nil {
		return nil, schema.NewParseError("tr_storage_phase", "storage_fees_collected: %v", err)
	}
	duePresent, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("tr_storage_phase", "storage_fees_due presence: %v", err)
	}
	var storageFeesDue *uint256Int
	if duePresent {
		v, err := s.FetchGrams()
		if err != nil {
			return nil, schema.NewParseError("tr_storage_phase", "storage_fees_due: %v", err)
		}
		storageFeesDue = v
	}
	statusChange, err := parseAccStatusChange(s)
	if err != nil {
		return nil, err
	}
	return &schema.TrStoragePhase{
		StorageFeesCollected: collected,
		StorageFeesDue:       storageFeesDue,
		StatusChange:         statusChange,
	}, nil
}

func parseTrCreditPhase(s *cell.Slice) (*schema.TrCreditPhase, error) {
	duePresent, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("tr_credit_phase", "due_fees_collected presence: %v", err)
	}
	var dueFees *uint256Int
	if duePresent {
		v, err := s.FetchGrams()
		if err != nil {
			return nil, schema.NewParseError("tr_credit_phase", "due_fees_collected: %v", err)
		}
		dueFees = v
	}
	credit, err := s.FetchGrams()
	if err != nil {
		return nil, schema.NewParseError("tr_credit_phase", "credit: %v", err)
	}
	if err := skipExtraCurrencyCollection(s); err != nil {
		return nil, err
	}
	return &schema.TrCreditPhase{DueFeesCollected: dueFees, Credit: credit}, nil
}

func parseTrComputePhase(s *cell.Slice) (schema.TrComputePhase, error) {
	tag, err := s.FetchBit()
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "tag: %v", err)
	}
	if tag == 0 {
		reasonTag, err := s.FetchUint(2)
		if err != nil {
			return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "skip_reason: %v", err)
		}
		var reason string
		switch reasonTag {
		case 0:
			reason = "no_state"
		case 1:
			reason = "bad_state"
		case 2:
			reason = "no_gas"
		case 3:
			reason = "suspended"
		}
		return schema.TrComputePhase{Skipped: &schema.ComputeSkipped{Reason: reason}}, nil
	}

	success, err := s.FetchBool()
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "success: %v", err)
	}
	msgStateUsed, err := s.FetchBool()
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "msg_state_used: %v", err)
	}
	accountActivated, err := s.FetchBool()
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "account_activated: %v", err)
	}
	gasFees, err := s.FetchGrams()
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "gas_fees: %v", err)
	}
	detail, err := s.FetchRef()
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "vm detail ref: %v", err)
	}
	ds := detail.BeginParse()

	gasUsed, err := ds.FetchVarUInt64(7)
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "gas_used: %v", err)
	}
	gasLimit, err := ds.FetchVarUInt64(7)
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "gas_limit: %v", err)
	}
	gasCreditPresent, err := ds.FetchBool()
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "gas_credit presence: %v", err)
	}
	var gasCredit *uint64
	if gasCreditPresent {
		v, err := ds.FetchVarUInt64(3)
		if err != nil {
			return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "gas_credit: %v", err)
		}
		gasCredit = &v
	}
	mode, err := ds.FetchInt(8)
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "mode: %v", err)
	}
	exitCode, err := ds.FetchInt(32)
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "exit_code: %v", err)
	}
	exitArgPresent, err := ds.FetchBool()
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "exit_arg presence: %v", err)
	}
	var exitArg *int32
	if exitArgPresent {
		v, err := ds.FetchInt(32)
		if err != nil {
			return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "exit_arg: %v", err)
		}
		v32 := int32(v)
		exitArg = &v32
	}
	vmSteps, err := ds.FetchUint(32)
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "vm_steps: %v", err)
	}
	initHashBits, err := ds.FetchBits(256)
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "vm_init_state_hash: %v", err)
	}
	finalHashBits, err := ds.FetchBits(256)
	if err != nil {
		return schema.TrComputePhase{}, schema.NewParseError("tr_compute_phase", "vm_final_state_hash: %v", err)
	}

	return schema.TrComputePhase{VM: &schema.ComputeVM{
		Success:          success,
		MsgStateUsed:     msgStateUsed,
		AccountActivated: accountActivated,
		GasFees:          gasFees,
		GasUsed:          gasUsed,
		GasLimit:         gasLimit,
		GasCredit:        gasCredit,
		Mode:             int8(mode),
		ExitCode:         int32(exitCode),
		ExitArg:          exitArg,
		VMSteps:          uint32(vmSteps),
		VMInitStateHash:  base64Encode(initHashBits),
		VMFinalStateHash: base64Encode(finalHashBits),
	}}, nil
}

func parseTrActionPhase(s *cell.Slice) (*schema.TrActionPhase, error) {
	success, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "success: %v", err)
	}
	valid, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "valid: %v", err)
	}
	noFunds, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "no_funds: %v", err)
	}
	statusChange, err := parseAccStatusChange(s)
	if err != nil {
		return nil, err
	}
	totalFwdPresent, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "total_fwd_fees presence: %v", err)
	}
	var totalFwd *uint256Int
	if totalFwdPresent {
		v, err := s.FetchGrams()
		if err != nil {
			return nil, schema.NewParseError("tr_action_phase", "total_fwd_fees: %v", err)
		}
		totalFwd = v
	}
	totalActionPresent, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "total_action_fees presence: %v", err)
	}
	var totalAction *uint256Int
	if totalActionPresent {
		v, err := s.FetchGrams()
		if err != nil {
			return nil, schema.NewParseError("tr_action_phase", "total_action_fees: %v", err)
		}
		totalAction = v
	}
	resultCode, err := s.FetchInt(32)
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "result_code: %v", err)
	}
	resultArgPresent, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "result_arg presence: %v", err)
	}
	var resultArg *int32
	if resultArgPresent {
		v, err := s.FetchInt(32)
		if err != nil {
			return nil, schema.NewParseError("tr_action_phase", "result_arg: %v", err)
		}
		v32 := int32(v)
		resultArg = &v32
	}
	totActions, err := s.FetchUint(16)
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "tot_actions: %v", err)
	}
	specActions, err := s.FetchUint(16)
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "spec_actions: %v", err)
	}
	skippedActions, err := s.FetchUint(16)
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "skipped_actions: %v", err)
	}
	msgsCreated, err := s.FetchUint(16)
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "msgs_created: %v", err)
	}
	actionListHashBits, err := s.FetchBits(256)
	if err != nil {
		return nil, schema.NewParseError("tr_action_phase", "action_list_hash: %v", err)
	}
	totMsgSize, err := parseStorageUsedShort(s)
	if err != nil {
		return nil, err
	}
	return &schema.TrActionPhase{
		Success:         success,
		Valid:           valid,
		NoFunds:         noFunds,
		StatusChange:    statusChange,
		TotalFwdFees:    totalFwd,
		TotalActionFees: totalAction,
		ResultCode:      int32(resultCode),
		ResultArg:       resultArg,
		TotActions:      uint16(totActions),
		SpecActions:     uint16(specActions),
		SkippedActions:  uint16(skippedActions),
		MsgsCreated:     uint16(msgsCreated),
		ActionListHash:  base64Encode(actionListHashBits),
		TotMsgSize:      totMsgSize,
	}, nil
}

func parseTrBouncePhase(s *cell.Slice) (*schema.TrBouncePhase, error) {
	okTag, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("tr_bounce_phase", "tag: %v", err)
	}
	if okTag == 1 {
		msgSize, err := parseStorageUsedShort(s)
		if err != nil {
			return nil, err
		}
		msgFees, err := s.FetchGrams()
		if err != nil {
			return nil, schema.NewParseError("tr_bounce_phase", "msg_fees: %v", err)
		}
		fwdFees, err := s.FetchGrams()
		if err != nil {
			return nil, schema.NewParseError("tr_bounce_phase", "fwd_fees: %v", err)
		}
		return &schema.TrBouncePhase{Ok: &schema.BounceOk{MsgSize: msgSize, MsgFees: msgFees, FwdFees: fwdFees}}, nil
	}
	negTag, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("tr_bounce_phase", "subtag: %v", err)
	}
	if negTag == 0 {
		return &schema.TrBouncePhase{Negfunds: &schema.BounceNegfunds{}}, nil
	}
	msgSize, err := parseStorageUsedShort(s)
	if err != nil {
		return nil, err
	}
	reqFwdFees, err := s.FetchGrams()
	if err != nil {
		return nil, schema.NewParseError("tr_bounce_phase", "req_fwd_fees: %v", err)
	}
	return &schema.TrBouncePhase{Nofunds: &schema.BounceNofunds{MsgSize: msgSize, ReqFwdFees: reqFwdFees}}, nil
}

func parseSplitMergeInfo(s *cell.Slice) (schema.SplitMergeInfo, error) {
	pfxLen, err := s.FetchUint(6)
	if err != nil {
		return schema.SplitMergeInfo{}, schema.NewParseError("split_merge_info", "cur_shard_pfx_len: %v", err)
	}
	splitDepth, err := s.FetchUint(6)
	if err != nil {
		return schema.SplitMergeInfo{}, schema.NewParseError("split_merge_info", "acc_split_depth: %v", err)
	}
	thisAddr, err := s.FetchBits(256)
	if err != nil {
		return schema.SplitMergeInfo{}, schema.NewParseError("split_merge_info", "this_addr: %v", err)
	}
	siblingAddr, err := s.FetchBits(256)
	if err != nil {
		return schema.SplitMergeInfo{}, schema.NewParseError("split_merge_info", "sibling_addr: %v", err)
	}
	return schema.SplitMergeInfo{
		CurShardPfxLen: uint8(pfxLen),
		AccSplitDepth:  uint8(splitDepth),
		ThisAddr:       base64Encode(thisAddr),
		SiblingAddr:    base64Encode(siblingAddr),
	}, nil
}
