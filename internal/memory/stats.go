package memory

import (
	"fmt"
	"strings"
)

// Stats tracks batching metrics for one array object. Counters accumulate
// for the array object's lifetime.
type Stats struct {
	Capacity        int
	GPUBytes        int64
	Batched         int64 // drawables accepted by TryBatch
	Flushes         int64
	RecordsDrawn    int64
	UploadedBytes   int64
	LastUtilization float64 // of the most recent non-empty flush
	PeakUtilization float64
}

// Stats returns the array object's statistics.
func (ao *ArrayObject) Stats() Stats { return ao.stats }

// PrintStats outputs array object statistics with visual bars.
func (ao *ArrayObject) PrintStats() {
	s := ao.stats
	avgRecords := 0.0
	if s.Flushes > 0 {
		avgRecords = float64(s.RecordsDrawn) / float64(s.Flushes)
	}

	memoryLogger.Printf("===== Array Object %q (%s) =====", ao.name, ao.topology)
	memoryLogger.Printf("  last  %s %.0f%% of %s records", makeUtilizationBar(s.LastUtilization, 12), s.LastUtilization*100, formatNumber(int64(s.Capacity)))
	memoryLogger.Printf("  peak  %s %.0f%% of %s records", makeUtilizationBar(s.PeakUtilization, 12), s.PeakUtilization*100, formatNumber(int64(s.Capacity)))
	memoryLogger.Printf("  %s flushes (%.1f records/flush), %s drawables batched, %s uploaded, %s GPU",
		formatNumber(s.Flushes),
		avgRecords,
		formatNumber(s.Batched),
		formatNumber(s.UploadedBytes),
		formatNumber(s.GPUBytes),
	)
	for _, b := range ao.buffers {
		memoryLogger.Printf("      %-12s %s, %s GPU", b.attr.Name, b.attr.AttribLayout, formatNumber(b.Bytes()))
	}
	if ao.instances != nil {
		memoryLogger.Printf("      %-12s %d floats/instance, %s GPU", "<instances>", InstanceStride, formatNumber(ao.instances.Bytes()))
	}
}

// makeUtilizationBar creates a visual bar for utilization percentage.
func makeUtilizationBar(utilization float64, width int) string {
	if utilization < 0 {
		utilization = 0
	}
	if utilization > 1 {
		utilization = 1
	}

	filled := int(utilization * float64(width))
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return bar
}

// formatNumber formats large numbers with K/M suffixes for readability.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000.0)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000.0)
}
