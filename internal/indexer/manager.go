package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/time/rate"

	"github.com/tonindexer/scanner/core/parser"
	"github.com/tonindexer/scanner/core/schema"
	"github.com/tonindexer/scanner/internal/persist"
)

// EventDetector supplies the domain events (jetton transfers/burns, NFT
// transfers) for a parsed block; producing these is out of scope for
// core/schema, which only defines the handoff shape (schema.Bundle).
type EventDetector interface {
	Detect(*schema.ParsedBlock) ([]*schema.JettonTransfer, []*schema.JettonBurn, []*schema.NFTTransfer)
}

// noopDetector reports no domain events, for callers that run the indexer
// without a detector wired in.
type noopDetector struct{}

func (noopDetector) Detect(*schema.ParsedBlock) ([]*schema.JettonTransfer, []*schema.JettonBurn, []*schema.NFTTransfer) {
	return nil, nil, nil
}

// Manager wires core/parser output through the Batcher into internal/persist.
// It owns a rate limiter bounding how fast raw bundles are accepted for
// parsing, independent of how fast the batcher itself drains.
type Manager struct {
	batcher   *Batcher
	stats     *Statistics
	detector  EventDetector
	limiter   *rate.Limiter
	snapshots *persist.Snapshots
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithDetector overrides the default no-op event detector.
func WithDetector(d EventDetector) ManagerOption {
	return func(m *Manager) { m.detector = d }
}

// WithSubmitRate bounds how many bundles per second Submit accepts.
func WithSubmitRate(perSec int) ManagerOption {
	return func(m *Manager) {
		if perSec > 0 {
			m.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
		}
	}
}

// NewManager builds a Manager backed by pool for storage, draining at most
// maxBatch bundles per flush. snapshotConcurrency/snapshotRatePerSec bound the
// domain upsert/lookup workers exposed through Snapshots.
func NewManager(pool persist.Pool, maxBatch int, snapshotConcurrency int64, snapshotRatePerSec int, opts ...ManagerOption) *Manager {
	m := &Manager{detector: noopDetector{}, snapshots: persist.NewSnapshots(pool, snapshotConcurrency, snapshotRatePerSec)}
	for _, opt := range opts {
		opt(m)
	}
	m.stats = NewStatistics(func() int {
		if m.batcher == nil {
			return 0
		}
		return m.batcher.QueueDepth()
	})
	// A nil cache only disables the cross-batch content elision, so a
	// construction failure is not worth surfacing to the caller.
	var cache persist.ContentCache
	if dedup, err := NewContentDedup(recentContentCapacity); err == nil {
		cache = dedup
	} else {
		log.Warn("content dedup cache disabled", "err", err)
	}
	m.batcher = NewBatcher(func(ctx context.Context, bundles []schema.Bundle) error {
		return persist.EmitBatch(ctx, pool, bundles, cache)
	}, m.stats, maxBatch)
	return m
}

// recentContentCapacity bounds the cross-batch message-content dedup cache.
const recentContentCapacity = 1 << 16

// Snapshots exposes the domain upsert/lookup workers (jetton wallet/master,
// NFT collection/item).
func (m *Manager) Snapshots() *persist.Snapshots { return m.snapshots }

// Run drives the batcher's drain loop and the statistics reporter until ctx
// is cancelled.
func (m *Manager) Run(ctx context.Context) {
	go m.stats.Run(ctx)
	m.batcher.Run(ctx)
}

// Stop halts the batcher's drain loop.
func (m *Manager) Stop() { m.batcher.Stop() }

// Statistics returns the manager's statistics reporter, for registering its
// collectors.
func (m *Manager) Statistics() *Statistics { return m.stats }

// Submit decodes a raw masterchain-anchored bundle and enqueues it for
// insertion, waiting on the submission rate limiter first. It returns the
// handle that resolves once the owning batch commits.
func (m *Manager) Submit(ctx context.Context, raw []parser.BlockBundle) (*Handle, error) {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return nil, schema.DBError("manager.submit_rate_wait", err)
		}
	}

	parsed, err := parser.Parse(raw)
	if err != nil {
		log.Error("parse failed", "err", err)
		return nil, err
	}

	jt, jb, nt := m.detector.Detect(parsed)
	bundle := schema.Bundle{Parsed: parsed, JettonTransfers: jt, JettonBurns: jb, NFTTransfers: nt}
	return m.batcher.Insert(bundle), nil
}
