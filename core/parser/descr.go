package parser

import (
	"github.com/tonindexer/scanner/core/cell"
	"github.com/tonindexer/scanner/core/schema"
)

// parseTransactionDescr dispatches on the TransactionDescr tag and decodes
// the corresponding variant. Optional sub-phases are guarded by a single
// leading bit; action phases are additionally stored behind a reference.
func parseTransactionDescr(s *cell.Slice) (schema.TransactionDescr, error) {
	b0, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("transaction_descr", "tag bit 0: %v", err)
	}
	if b0 != 0 {
		return nil, schema.NewParseError("transaction_descr", "unknown tag, leading bit %d", b0)
	}
	b1, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("transaction_descr", "tag bit 1: %v", err)
	}
	if b1 == 0 {
		b2, err := s.FetchBit()
		if err != nil {
			return nil, schema.NewParseError("transaction_descr", "tag bit 2: %v", err)
		}
		if b2 == 1 {
			return parseDescrTickTock(s)
		}
		b3, err := s.FetchBit()
		if err != nil {
			return nil, schema.NewParseError("transaction_descr", "tag bit 3: %v", err)
		}
		if b3 == 0 {
			return parseDescrOrd(s)
		}
		return parseDescrStorage(s)
	}
	b2, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("transaction_descr", "tag bit 2: %v", err)
	}
	b3, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("transaction_descr", "tag bit 3: %v", err)
	}
	switch {
	case b2 == 0 && b3 == 0:
		return parseDescrSplitPrepare(s)
	case b2 == 0 && b3 == 1:
		return parseDescrSplitInstall(s)
	case b2 == 1 && b3 == 0:
		return parseDescrMergePrepare(s)
	default:
		return parseDescrMergeInstall(s)
	}
}

func fetchMaybeStoragePhase(s *cell.Slice) (*schema.TrStoragePhase, error) {
	present, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("maybe_storage_ph", "%v", err)
	}
	if !present {
		return nil, nil
	}
	return parseTrStoragePhase(s)
}

func fetchMaybeCreditPhase(s *cell.Slice) (*schema.TrCreditPhase, error) {
	present, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("maybe_credit_ph", "%v", err)
	}
	if !present {
		return nil, nil
	}
	return parseTrCreditPhase(s)
}

func fetchMaybeActionPhaseRef(s *cell.Slice) (*schema.TrActionPhase, error) {
	present, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("maybe_action", "%v", err)
	}
	if !present {
		return nil, nil
	}
	ref, err := s.FetchRef()
	if err != nil {
		return nil, schema.NewParseError("maybe_action", "ref: %v", err)
	}
	return parseTrActionPhase(ref.BeginParse())
}

func fetchMaybeBouncePhase(s *cell.Slice) (*schema.TrBouncePhase, error) {
	present, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("maybe_bounce", "%v", err)
	}
	if !present {
		return nil, nil
	}
	return parseTrBouncePhase(s)
}

func parseDescrOrd(s *cell.Slice) (schema.TransactionDescr, error) {
	creditFirst, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_ord", "credit_first: %v", err)
	}
	storagePh, err := fetchMaybeStoragePhase(s)
	if err != nil {
		return nil, err
	}
	creditPh, err := fetchMaybeCreditPhase(s)
	if err != nil {
		return nil, err
	}
	computePh, err := parseTrComputePhase(s)
	if err != nil {
		return nil, err
	}
	action, err := fetchMaybeActionPhaseRef(s)
	if err != nil {
		return nil, err
	}
	aborted, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_ord", "aborted: %v", err)
	}
	bounce, err := fetchMaybeBouncePhase(s)
	if err != nil {
		return nil, err
	}
	destroyed, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_ord", "destroyed: %v", err)
	}
	return &schema.DescrOrd{
		CreditFirst: creditFirst,
		StoragePh:   storagePh,
		CreditPh:    creditPh,
		ComputePh:   computePh,
		Action:      action,
		Aborted:     aborted,
		Bounce:      bounce,
		Destroyed:   destroyed,
	}, nil
}

func parseDescrStorage(s *cell.Slice) (schema.TransactionDescr, error) {
	ph, err := parseTrStoragePhase(s)
	if err != nil {
		return nil, err
	}
	return &schema.DescrStorage{StoragePh: *ph}, nil
}

func parseDescrTickTock(s *cell.Slice) (schema.TransactionDescr, error) {
	isTock, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_tick_tock", "is_tock: %v", err)
	}
	storagePh, err := parseTrStoragePhase(s)
	if err != nil {
		return nil, err
	}
	computePh, err := parseTrComputePhase(s)
	if err != nil {
		return nil, err
	}
	action, err := fetchMaybeActionPhaseRef(s)
	if err != nil {
		return nil, err
	}
	aborted, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_tick_tock", "aborted: %v", err)
	}
	destroyed, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_tick_tock", "destroyed: %v", err)
	}
	return &schema.DescrTickTock{
		IsTock:    isTock,
		StoragePh: *storagePh,
		ComputePh: computePh,
		Action:    action,
		Aborted:   aborted,
		Destroyed: destroyed,
	}, nil
}

func parseDescrSplitPrepare(s *cell.Slice) (schema.TransactionDescr, error) {
	info, err := parseSplitMergeInfo(s)
	if err != nil {
		return nil, err
	}
	storagePh, err := fetchMaybeStoragePhase(s)
	if err != nil {
		return nil, err
	}
	computePh, err := parseTrComputePhase(s)
	if err != nil {
		return nil, err
	}
	action, err := fetchMaybeActionPhaseRef(s)
	if err != nil {
		return nil, err
	}
	aborted, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_split_prepare", "aborted: %v", err)
	}
	destroyed, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_split_prepare", "destroyed: %v", err)
	}
	return &schema.DescrSplitPrepare{
		SplitInfo: info,
		StoragePh: storagePh,
		ComputePh: computePh,
		Action:    action,
		Aborted:   aborted,
		Destroyed: destroyed,
	}, nil
}

func parseDescrSplitInstall(s *cell.Slice) (schema.TransactionDescr, error) {
	info, err := parseSplitMergeInfo(s)
	if err != nil {
		return nil, err
	}
	if _, err := s.FetchRef(); err != nil { // prepare_transaction, not surfaced
		return nil, schema.NewParseError("descr_split_install", "prepare_transaction ref: %v", err)
	}
	installed, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_split_install", "installed: %v", err)
	}
	return &schema.DescrSplitInstall{SplitInfo: info, Installed: installed}, nil
}

func parseDescrMergePrepare(s *cell.Slice) (schema.TransactionDescr, error) {
	info, err := parseSplitMergeInfo(s)
	if err != nil {
		return nil, err
	}
	storagePh, err := parseTrStoragePhase(s)
	if err != nil {
		return nil, err
	}
	aborted, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_merge_prepare", "aborted: %v", err)
	}
	return &schema.DescrMergePrepare{SplitInfo: info, StoragePh: *storagePh, Aborted: aborted}, nil
}

func parseDescrMergeInstall(s *cell.Slice) (schema.TransactionDescr, error) {
	info, err := parseSplitMergeInfo(s)
	if err != nil {
		return nil, err
	}
	if _, err := s.FetchRef(); err != nil { // prepare_transaction, not surfaced
		return nil, schema.NewParseError("descr_merge_install", "prepare_transaction ref: %v", err)
	}
	storagePh, err := fetchMaybeStoragePhase(s)
	if err != nil {
		return nil, err
	}
	creditPh, err := fetchMaybeCreditPhase(s)
	if err != nil {
		return nil, err
	}
	computePh, err := parseTrComputePhase(s)
	if err != nil {
		return nil, err
	}
	action, err := fetchMaybeActionPhaseRef(s)
	if err != nil {
		return nil, err
	}
	aborted, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_merge_install", "aborted: %v", err)
	}
	destroyed, err := s.FetchBool()
	if err != nil {
		return nil, schema.NewParseError("descr_merge_install", "destroyed: %v", err)
	}
	return &schema.DescrMergeInstall{
		SplitInfo: info,
		StoragePh: storagePh,
		CreditPh:  creditPh,
		ComputePh: computePh,
		Action:    action,
		Aborted:   aborted,
		Destroyed: destroyed,
	}, nil
}
