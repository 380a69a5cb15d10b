package cell

import "bytes"

// Dictionary is a decoded Hashmap/HashmapAugE: an ordered set of fixed-width
// keys mapped to value cells. It stands in for the patricia-trie bit encoding
// TL-B dictionaries use on the wire (mechanical, schema-derived plumbing
// assumed to be generated rather than hand-written here) while implementing
// the traversal contract the rest of this codebase actually depends on:
// ordered iteration and lookup_nearest_key.
type Dictionary struct {
	keyBits int
	entries []dictEntry
}

type dictEntry struct {
	key   []byte
	value *Cell
}

// NewDictionary builds a Dictionary over fixed-width big-endian keys. Entries
// are sorted ascending by key; duplicate keys are rejected by keeping the
// last occurrence, matching map semantics.
func NewDictionary(keyBits int, entries map[string]*Cell) *Dictionary {
	d := &Dictionary{keyBits: keyBits}
	for k, v := range entries {
		d.entries = append(d.entries, dictEntry{key: []byte(k), value: v})
	}
	for i := 1; i < len(d.entries); i++ {
		for j := i; j > 0 && bytes.Compare(d.entries[j-1].key, d.entries[j].key) > 0; j-- {
			d.entries[j-1], d.entries[j] = d.entries[j], d.entries[j-1]
		}
	}
	return d
}

// KeyBits returns the fixed key width in bits this dictionary was built with.
func (d *Dictionary) KeyBits() int { return d.keyBits }

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }

// Lookup returns the value cell stored under the exact key, if present.
func (d *Dictionary) Lookup(key []byte) (*Cell, bool) {
	for _, e := range d.entries {
		if bytes.Equal(e.key, key) {
			return e.value, true
		}
	}
	return nil, false
}

// LookupNearestKey implements the dictionary traversal contract used to walk
// both the outer 256-bit account-address dictionary and the inner 64-bit
// per-account logical-time dictionary: given a cursor and whether equality is
// allowed on this step, it returns the smallest key satisfying the
// constraint, or ok=false once no such key remains.
//
// allowEqual is true only on the very first step of a walk (cur == the
// initial all-zero or all-one cursor, matching on equality is acceptable);
// every subsequent step must pass allowEqual=false so the walk always makes
// forward progress and cannot loop on the same key twice.
func (d *Dictionary) LookupNearestKey(cur []byte, allowEqual bool) (key []byte, value *Cell, ok bool) {
	for _, e := range d.entries {
		cmp := bytes.Compare(e.key, cur)
		if cmp > 0 || (cmp == 0 && allowEqual) {
			return e.key, e.value, true
		}
	}
	return nil, nil, false
}

// Entries returns every (key, value) pair in ascending key order. Callers
// must not mutate the returned cells.
func (d *Dictionary) Entries() []struct {
	Key   []byte
	Value *Cell
} {
	out := make([]struct {
		Key   []byte
		Value *Cell
	}, len(d.entries))
	for i, e := range d.entries {
		out[i].Key = e.key
		out[i].Value = e.value
	}
	return out
}
