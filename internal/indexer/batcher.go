// Package indexer owns the insert batcher, its duplicate-elision and
// statistics support, and the orchestration that wires core/parser output
// into internal/persist. Nothing in this package touches SQL directly.
package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/tonindexer/scanner/core/schema"
)

// Handle is the completion token returned by Insert: it resolves once the
// batch containing the bundle has committed or failed. A failed batch fails
// every handle in it identically.
type Handle struct {
	done chan struct{}
	err  error
}

// Wait blocks until the owning batch completes, returning its error (nil on
// success).
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newHandle() *Handle { return &Handle{done: make(chan struct{})} }

func (h *Handle) fulfill(err error) {
	h.err = err
	close(h.done)
}

// Inserter commits one drained batch atomically; internal/persist.EmitBatch
// satisfies this.
type Inserter func(ctx context.Context, bundles []schema.Bundle) error

// Batcher queues parsed bundles and periodically flushes them as one
// transactional batch. Queue access is serialized by mu: Insert (from
// outside) and the drain timer are the only two entry points that touch it.
type Batcher struct {
	insert   Inserter
	stats    *Statistics
	maxBatch int

	mu       sync.Mutex
	bundles  []schema.Bundle
	handles  []*Handle
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewBatcher constructs a Batcher that drains at most maxBatch bundles per
// flush via insert, reporting committed-bundle counts to stats.
func NewBatcher(insert Inserter, stats *Statistics, maxBatch int) *Batcher {
	if maxBatch <= 0 {
		maxBatch = 1
	}
	return &Batcher{insert: insert, stats: stats, maxBatch: maxBatch, stopCh: make(chan struct{})}
}

// Insert enqueues bundle and returns a handle that resolves once its batch
// commits. Safe for concurrent use.
func (b *Batcher) Insert(bundle schema.Bundle) *Handle {
	h := newHandle()
	b.mu.Lock()
	b.bundles = append(b.bundles, bundle)
	b.handles = append(b.handles, h)
	b.mu.Unlock()
	return h
}

// Run drives the drain timer until ctx is cancelled or Stop is called: a 1 s
// timer fires under idle; once bundles are queued it re-arms at 1 ms to
// greedily drain up to the batch-size ceiling.
func (b *Batcher) Run(ctx context.Context) {
	const idle = time.Second
	const greedy = time.Millisecond

	timer := time.NewTimer(idle)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		case <-timer.C:
			drained := b.drain(ctx)
			if drained {
				timer.Reset(greedy)
			} else {
				timer.Reset(idle)
			}
		}
	}
}

// Stop halts Run; queued-but-undrained bundles are left pending. The caller
// owns shutdown sequencing, including any final drain before calling Stop.
func (b *Batcher) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// drain pulls up to maxBatch queued bundles and commits them as one batch,
// fulfilling every handle identically. Reports whether anything was drained.
func (b *Batcher) drain(ctx context.Context) bool {
	b.mu.Lock()
	if len(b.bundles) == 0 {
		b.mu.Unlock()
		return false
	}
	n := len(b.bundles)
	if n > b.maxBatch {
		n = b.maxBatch
	}
	bundles := b.bundles[:n]
	handles := b.handles[:n]
	b.bundles = b.bundles[n:]
	b.handles = b.handles[n:]
	b.mu.Unlock()

	batchID := uuid.New().String()
	log.Debug("draining batch", "batch_id", batchID, "size", len(bundles))

	err := b.insert(ctx, bundles)
	for _, h := range handles {
		h.fulfill(err)
	}
	if err != nil {
		log.Error("batch insert failed", "batch_id", batchID, "size", len(bundles), "err", err)
	} else {
		log.Debug("batch committed", "batch_id", batchID, "size", len(bundles))
		if b.stats != nil {
			b.stats.RecordCommit(len(bundles))
		}
	}
	return true
}

// QueueDepth reports the number of bundles currently queued, for Statistics.
func (b *Batcher) QueueDepth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bundles)
}
