package persist

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Bulk INSERT statements inline every row as a parenthesized literal tuple
// rather than binding parameters. These helpers produce each literal form:
// strings are single-quoted with embedded quotes doubled (standard SQL
// escaping, valid under Postgres's default standard_conforming_strings),
// integers/booleans are emitted bare, optional fields become the bare word
// NULL.

func sqlStr(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func sqlStrPtr(s *string) string {
	if s == nil {
		return "NULL"
	}
	return sqlStr(*s)
}

func sqlBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func sqlBoolPtr(b *bool) string {
	if b == nil {
		return "NULL"
	}
	return sqlBool(*b)
}

func sqlInt(v int64) string { return fmt.Sprintf("%d", v) }

func sqlUint(v uint64) string { return fmt.Sprintf("%d", v) }

func sqlIntPtr(v *int32) string {
	if v == nil {
		return "NULL"
	}
	return sqlInt(int64(*v))
}

func sqlInt64Ptr(v *int64) string {
	if v == nil {
		return "NULL"
	}
	return sqlInt(*v)
}

func sqlUintPtr64(v *uint64) string {
	if v == nil {
		return "NULL"
	}
	return sqlUint(*v)
}

func sqlUintPtr32(v *uint32) string {
	if v == nil {
		return "NULL"
	}
	return sqlUint(uint64(*v))
}

// sqlBig emits an arbitrary-precision decimal value for a Grams/VarUInteger
// field as a single-quoted string literal; these are stored as numeric/text
// columns so no float precision loss occurs.
func sqlBig(v *uint256.Int) string {
	if v == nil {
		return "NULL"
	}
	return sqlStr(v.Dec())
}

// parseUint256 decodes a decimal-string numeric column back into a uint256,
// the inverse of sqlBig/.Dec() used on the write side.
func parseUint256(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("persist: parse numeric %q: %w", s, err)
	}
	return v, nil
}
