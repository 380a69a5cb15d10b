package schema

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"
)

// DescrJSON renders a TransactionDescr into the single JSON text column
// persisted as transactions.description. The object always carries a "type"
// field; every other field mirrors the variant's own field names. Every
// VarUInteger/Grams-decoded value is stringified rather than emitted as a
// JSON number, to avoid float-precision loss in downstream JSON consumers.
func DescrJSON(d TransactionDescr) ([]byte, error) {
	m, err := descrMap(d)
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func descrMap(d TransactionDescr) (map[string]interface{}, error) {
	m := map[string]interface{}{"type": d.Type()}
	switch v := d.(type) {
	case *DescrOrd:
		m["credit_first"] = v.CreditFirst
		m["storage_ph"] = storagePhJSON(v.StoragePh)
		m["credit_ph"] = creditPhJSON(v.CreditPh)
		m["compute_ph"] = computePhJSON(v.ComputePh)
		m["action"] = actionPhJSON(v.Action)
		m["aborted"] = v.Aborted
		m["bounce"] = bouncePhJSON(v.Bounce)
		m["destroyed"] = v.Destroyed
	case *DescrStorage:
		m["storage_ph"] = storagePhJSON(&v.StoragePh)
	case *DescrTickTock:
		m["is_tock"] = v.IsTock
		m["storage_ph"] = storagePhJSON(&v.StoragePh)
		m["compute_ph"] = computePhJSON(v.ComputePh)
		m["action"] = actionPhJSON(v.Action)
		m["aborted"] = v.Aborted
		m["destroyed"] = v.Destroyed
	case *DescrSplitPrepare:
		m["split_info"] = splitInfoJSON(v.SplitInfo)
		m["storage_ph"] = storagePhJSON(v.StoragePh)
		m["compute_ph"] = computePhJSON(v.ComputePh)
		m["action"] = actionPhJSON(v.Action)
		m["aborted"] = v.Aborted
		m["destroyed"] = v.Destroyed
	case *DescrSplitInstall:
		m["split_info"] = splitInfoJSON(v.SplitInfo)
		m["installed"] = v.Installed
	case *DescrMergePrepare:
		m["split_info"] = splitInfoJSON(v.SplitInfo)
		m["storage_ph"] = storagePhJSON(&v.StoragePh)
		m["aborted"] = v.Aborted
	case *DescrMergeInstall:
		m["split_info"] = splitInfoJSON(v.SplitInfo)
		m["storage_ph"] = storagePhJSON(v.StoragePh)
		m["credit_ph"] = creditPhJSON(v.CreditPh)
		m["compute_ph"] = computePhJSON(v.ComputePh)
		m["action"] = actionPhJSON(v.Action)
		m["aborted"] = v.Aborted
		m["destroyed"] = v.Destroyed
	default:
		return nil, fmt.Errorf("schema: unknown TransactionDescr variant %T", d)
	}
	return m, nil
}

func intStr(v *uint256.Int) interface{} {
	if v == nil {
		return nil
	}
	return v.Dec()
}

func storagePhJSON(p *TrStoragePhase) interface{} {
	if p == nil {
		return nil
	}
	return map[string]interface{}{
		"storage_fees_collected": intStr(p.StorageFeesCollected),
		"storage_fees_due":       intStr(p.StorageFeesDue),
		"status_change":          p.StatusChange,
	}
}

func creditPhJSON(p *TrCreditPhase) interface{} {
	if p == nil {
		return nil
	}
	return map[string]interface{}{
		"due_fees_collected": intStr(p.DueFeesCollected),
		"credit":             intStr(p.Credit),
	}
}

func computePhJSON(p TrComputePhase) interface{} {
	if p.Skipped != nil {
		return map[string]interface{}{
			"type":        "skipped",
			"skip_reason": p.Skipped.Reason,
		}
	}
	if p.VM != nil {
		v := p.VM
		var exitArg interface{}
		if v.ExitArg != nil {
			exitArg = *v.ExitArg
		}
		var gasCredit interface{}
		if v.GasCredit != nil {
			gasCredit = fmt.Sprintf("%d", *v.GasCredit)
		}
		return map[string]interface{}{
			"type":                "vm",
			"success":             v.Success,
			"msg_state_used":      v.MsgStateUsed,
			"account_activated":   v.AccountActivated,
			"gas_fees":            intStr(v.GasFees),
			"gas_used":            fmt.Sprintf("%d", v.GasUsed),
			"gas_limit":           fmt.Sprintf("%d", v.GasLimit),
			"gas_credit":          gasCredit,
			"mode":                v.Mode,
			"exit_code":           v.ExitCode,
			"exit_arg":            exitArg,
			"vm_steps":            v.VMSteps,
			"vm_init_state_hash":  v.VMInitStateHash,
			"vm_final_state_hash": v.VMFinalStateHash,
		}
	}
	return nil
}

func actionPhJSON(p *TrActionPhase) interface{} {
	if p == nil {
		return nil
	}
	var resultArg interface{}
	if p.ResultArg != nil {
		resultArg = *p.ResultArg
	}
	return map[string]interface{}{
		"success":           p.Success,
		"valid":             p.Valid,
		"no_funds":          p.NoFunds,
		"status_change":     p.StatusChange,
		"total_fwd_fees":    intStr(p.TotalFwdFees),
		"total_action_fees": intStr(p.TotalActionFees),
		"result_code":       p.ResultCode,
		"result_arg":        resultArg,
		"tot_actions":       p.TotActions,
		"spec_actions":      p.SpecActions,
		"skipped_actions":   p.SkippedActions,
		"msgs_created":      p.MsgsCreated,
		"action_list_hash":  p.ActionListHash,
		"tot_msg_size": map[string]interface{}{
			"cells": fmt.Sprintf("%d", p.TotMsgSize.Cells),
			"bits":  fmt.Sprintf("%d", p.TotMsgSize.Bits),
		},
	}
}

func bouncePhJSON(p *TrBouncePhase) interface{} {
	if p == nil {
		return nil
	}
	switch {
	case p.Negfunds != nil:
		return map[string]interface{}{"type": "negfunds"}
	case p.Nofunds != nil:
		return map[string]interface{}{
			"type": "nofunds",
			"msg_size": map[string]interface{}{
				"cells": fmt.Sprintf("%d", p.Nofunds.MsgSize.Cells),
				"bits":  fmt.Sprintf("%d", p.Nofunds.MsgSize.Bits),
			},
			"req_fwd_fees": intStr(p.Nofunds.ReqFwdFees),
		}
	case p.Ok != nil:
		return map[string]interface{}{
			"type": "ok",
			"msg_size": map[string]interface{}{
				"cells": fmt.Sprintf("%d", p.Ok.MsgSize.Cells),
				"bits":  fmt.Sprintf("%d", p.Ok.MsgSize.Bits),
			},
			"msg_fees": intStr(p.Ok.MsgFees),
			"fwd_fees": intStr(p.Ok.FwdFees),
		}
	}
	return nil
}

func splitInfoJSON(s SplitMergeInfo) interface{} {
	return map[string]interface{}{
		"cur_shard_pfx_len": s.CurShardPfxLen,
		"acc_split_depth":   s.AccSplitDepth,
		"this_addr":         s.ThisAddr,
		"sibling_addr":      s.SiblingAddr,
	}
}
