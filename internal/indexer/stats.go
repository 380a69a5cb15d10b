package indexer

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// Statistics tracks a monotonic committed-bundle counter anchored to the
// wall clock at the first commit, reporting a total_count/elapsed_seconds/
// throughput/queue_depth line every 10 s.
type Statistics struct {
	mu        sync.Mutex
	total     int64
	anchor    time.Time
	depthFunc func() int

	committed  prometheus.Counter
	queueGauge prometheus.Gauge
}

// NewStatistics constructs a Statistics reporter. depthFunc supplies the
// current queue depth (typically Batcher.QueueDepth) for the periodic line.
func NewStatistics(depthFunc func() int) *Statistics {
	return &Statistics{
		depthFunc: depthFunc,
		committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tonindexer",
			Name:      "bundles_committed_total",
			Help:      "Total number of parsed bundles committed to the store.",
		}),
		queueGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tonindexer",
			Name:      "batcher_queue_depth",
			Help:      "Number of bundles currently queued awaiting a batch flush.",
		}),
	}
}

// Collectors returns the prometheus collectors this Statistics exposes, for
// registration against a prometheus.Registerer.
func (s *Statistics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.committed, s.queueGauge}
}

// RecordCommit accounts n newly committed bundles, establishing the wall
// clock anchor on the first call.
func (s *Statistics) RecordCommit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.total == 0 && s.anchor.IsZero() {
		s.anchor = time.Now()
	}
	s.total += int64(n)
	s.committed.Add(float64(n))
}

// Snapshot is one point-in-time statistics report.
type Snapshot struct {
	TotalCount     int64
	ElapsedSeconds float64
	Throughput     float64
	QueueDepth     int
}

// snapshot computes the current report without emitting it.
func (s *Statistics) snapshot() Snapshot {
	s.mu.Lock()
	total := s.total
	anchor := s.anchor
	s.mu.Unlock()

	elapsed := 0.0
	if !anchor.IsZero() {
		elapsed = time.Since(anchor).Seconds()
	}
	throughput := 0.0
	if elapsed > 0 {
		throughput = float64(total) / elapsed
	}
	depth := 0
	if s.depthFunc != nil {
		depth = s.depthFunc()
	}
	s.queueGauge.Set(float64(depth))
	return Snapshot{TotalCount: total, ElapsedSeconds: elapsed, Throughput: throughput, QueueDepth: depth}
}

// Run emits a statistics line every 10 s until ctx is cancelled.
func (s *Statistics) Run(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := s.snapshot()
			log.Info("indexer statistics",
				"total_count", snap.TotalCount,
				"elapsed_seconds", snap.ElapsedSeconds,
				"throughput", snap.Throughput,
				"queue_depth", snap.QueueDepth,
			)
		}
	}
}

// HostStats samples coarse host resource usage for the CLI stats subcommand.
type HostStats struct {
	CPUPercent float64
	MemUsedPct float64
}

// SampleHost reads current CPU/memory utilization via gopsutil.
func SampleHost() (HostStats, error) {
	percentages, err := cpu.Percent(0, false)
	if err != nil {
		return HostStats{}, err
	}
	var cpuPct float64
	if len(percentages) > 0 {
		cpuPct = percentages[0]
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return HostStats{}, err
	}
	return HostStats{CPUPercent: cpuPct, MemUsedPct: vm.UsedPercent}, nil
}
