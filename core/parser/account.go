package parser

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/tonindexer/scanner/core/cell"
	"github.com/tonindexer/scanner/core/schema"
)

// addressKeyBytes extracts the 256-bit address portion of a raw address
// string ("workchain:hex") for use as a dictionary key, discarding the
// workchain prefix (every dictionary in a single block bundle is scoped to
// one workchain's accounts).
func addressKeyBytes(addr string) ([]byte, error) {
	parts := strings.SplitN(addr, ":", 2)
	if len(parts) != 2 {
		return nil, schema.NewParseError("address_key", "malformed raw address %q", addr)
	}
	if _, err := strconv.ParseInt(parts[0], 10, 32); err != nil {
		return nil, schema.NewParseError("address_key", "workchain in %q: %v", addr, err)
	}
	b, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, schema.NewParseError("address_key", "hex in %q: %v", addr, err)
	}
	return b, nil
}

// decodeAccountStates resolves the post-block state of every touched address
// from a shard state's accounts dictionary. An address absent from the
// dictionary is uninitialized post-block and is silently skipped.
func decodeAccountStates(b BlockBundle, touched []string) ([]*schema.AccountState, error) {
	var states []*schema.AccountState
	for _, addr := range touched {
		key, err := addressKeyBytes(addr)
		if err != nil {
			return nil, err
		}
		accCell, ok := b.BlockState.Lookup(key)
		if !ok {
			continue
		}
		st, err := parseAccountState(addr, accCell)
		if err != nil {
			return nil, err
		}
		if st != nil {
			states = append(states, st)
		}
	}
	return states, nil
}

// parseAccountState discriminates account_none (returns nil, nil) from the
// active account record and decodes the latter's uninit/frozen/active
// sub-tag.
func parseAccountState(addr string, accCell *cell.Cell) (*schema.AccountState, error) {
	s := accCell.BeginParse()
	tag, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("account_state", "tag: %v", err)
	}
	if tag == 0 {
		return nil, nil // account_none
	}

	hash := b64Hash(accCell.Hash())

	lastTransLt, err := s.FetchUint(64)
	if err != nil {
		return nil, schema.NewParseError("account_state", "last_trans_lt: %v", err)
	}
	_ = lastTransLt // not surfaced by this schema; consumed to keep slice position correct

	balance, err := s.FetchGrams()
	if err != nil {
		return nil, schema.NewParseError("account_state", "balance: %v", err)
	}
	if err := skipExtraCurrencyCollection(s); err != nil {
		return nil, err
	}

	out := &schema.AccountState{
		Hash:    hash,
		Account: addr,
		Balance: balance,
	}

	// AccountState is a prefix code: account_active$1 is one bit,
	// account_uninit$00 and account_frozen$01 share a leading zero.
	activeBit, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("account_state", "sub_tag: %v", err)
	}
	if activeBit == 1 {
		out.Status = "active"
		if err := decodeActiveStateInit(s, out); err != nil {
			return nil, err
		}
		return out, nil
	}
	frozenBit, err := s.FetchBit()
	if err != nil {
		return nil, schema.NewParseError("account_state", "sub_tag: %v", err)
	}
	if frozenBit == 0 {
		out.Status = "uninit"
		return out, nil
	}
	out.Status = "frozen"
	frozenBits, err := s.FetchBits(256)
	if err != nil {
		return nil, schema.NewParseError("account_state", "frozen_hash: %v", err)
	}
	fh := base64Encode(frozenBits)
	out.FrozenHash = &fh
	return out, nil
}

// decodeActiveStateInit walks the StateInit record of an active account:
// split_depth and special (TickTock) sit in front of code and data, each
// behind a Maybe bit, and must be consumed so the code/data presence bits
// are read from the right position.
func decodeActiveStateInit(s *cell.Slice, out *schema.AccountState) error {
	splitDepthPresent, err := s.FetchBool()
	if err != nil {
		return schema.NewParseError("account_state", "split_depth presence: %v", err)
	}
	if splitDepthPresent {
		if _, err := s.FetchUint(5); err != nil {
			return schema.NewParseError("account_state", "split_depth: %v", err)
		}
	}
	specialPresent, err := s.FetchBool()
	if err != nil {
		return schema.NewParseError("account_state", "special presence: %v", err)
	}
	if specialPresent {
		if _, err := s.FetchUint(2); err != nil { // TickTock{tick, tock}
			return schema.NewParseError("account_state", "special: %v", err)
		}
	}
	codePresent, err := s.FetchBool()
	if err != nil {
		return schema.NewParseError("account_state", "code presence: %v", err)
	}
	if codePresent {
		ref, err := s.FetchRef()
		if err != nil {
			return schema.NewParseError("account_state", "code ref: %v", err)
		}
		out.Code = ref
		ch := b64Hash(ref.Hash())
		out.CodeHash = &ch
	}
	dataPresent, err := s.FetchBool()
	if err != nil {
		return schema.NewParseError("account_state", "data presence: %v", err)
	}
	if dataPresent {
		ref, err := s.FetchRef()
		if err != nil {
			return schema.NewParseError("account_state", "data ref: %v", err)
		}
		out.Data = ref
		dh := b64Hash(ref.Hash())
		out.DataHash = &dh
	}
	return nil
}
