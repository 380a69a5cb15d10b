package indexer

import (
	"hash/fnv"

	lru "github.com/hashicorp/golang-lru"
	bloomfilter "github.com/holiman/bloomfilter/v2"
)

// ContentDedup layers a probabilistic bloom-filter precheck in front of an
// exact LRU cache of recently committed message content hashes, so repeat
// message_contents bodies across consecutive batches are not emitted again.
// The bloom filter is never load-bearing for correctness: a false positive
// only costs a redundant LRU lookup, and a false negative never occurs by
// construction, so the exact cache is always the final word. It implements
// persist.ContentCache; EmitBatch consults Contains before emitting a
// content row and calls Add only after the owning batch has committed, so a
// failed batch never poisons the cache.
type ContentDedup struct {
	bloom *bloomfilter.Filter
	exact *lru.Cache
}

// bloomHash feeds a precomputed 64-bit key into the filter, which accepts
// only hash.Hash64 values.
type bloomHash uint64

func (h bloomHash) Write(p []byte) (n int, err error) { panic("not used") }
func (h bloomHash) Sum(b []byte) []byte               { panic("not used") }
func (h bloomHash) Reset()                            { panic("not used") }
func (h bloomHash) BlockSize() int                    { panic("not used") }
func (h bloomHash) Size() int                         { return 8 }
func (h bloomHash) Sum64() uint64                     { return uint64(h) }

// NewContentDedup builds a dedup cache sized for roughly capacity recently
// seen message hashes.
func NewContentDedup(capacity int) (*ContentDedup, error) {
	if capacity <= 0 {
		capacity = 1024
	}
	bf, err := bloomfilter.NewOptimal(uint64(capacity), 0.01)
	if err != nil {
		return nil, err
	}
	exact, err := lru.New(capacity)
	if err != nil {
		return nil, err
	}
	return &ContentDedup{bloom: bf, exact: exact}, nil
}

func hash64(s string) bloomHash {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return bloomHash(h.Sum64())
}

// Contains reports whether hash was recorded by an earlier Add.
func (c *ContentDedup) Contains(hash string) bool {
	if !c.bloom.Contains(hash64(hash)) {
		return false
	}
	_, ok := c.exact.Get(hash)
	return ok
}

// Add records hash as committed.
func (c *ContentDedup) Add(hash string) {
	c.bloom.Add(hash64(hash))
	c.exact.Add(hash, struct{}{})
}
