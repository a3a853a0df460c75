package utils

import (
	"sync"
	"time"
)

// Tracks performance metrics across the client core
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount uint64
	errorCount   uint64

	// Maps operation name to list of latencies in nanoseconds
	operationTimes map[string][]int64

	systemStartTime time.Time
}

// OperationStats summarizes recorded latencies for one operation.
type OperationStats struct {
	Count      int
	AvgLatency time.Duration
	MaxLatency time.Duration
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:  make(map[string][]int64),
		systemStartTime: time.Now(),
	}
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.operationTimes[operationName]; !exists {
		mc.operationTimes[operationName] = make([]int64, 0)
	}
	mc.operationTimes[operationName] = append(
		mc.operationTimes[operationName],
		duration.Nanoseconds(),
	)
}

func (mc *MetricsCollector) Counts() (requests uint64, errors uint64) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.requestCount, mc.errorCount
}

func (mc *MetricsCollector) Uptime() time.Duration {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return time.Since(mc.systemStartTime)
}

// Snapshot returns per-operation latency summaries, used by the health log
// and the simulator report.
func (mc *MetricsCollector) Snapshot() map[string]OperationStats {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	snapshot := make(map[string]OperationStats, len(mc.operationTimes))
	for name, latencies := range mc.operationTimes {
		if len(latencies) == 0 {
			continue
		}
		var total, max int64
		for _, l := range latencies {
			total += l
			if l > max {
				max = l
			}
		}
		snapshot[name] = OperationStats{
			Count:      len(latencies),
			AvgLatency: time.Duration(total / int64(len(latencies))),
			MaxLatency: time.Duration(max),
		}
	}
	return snapshot
}
