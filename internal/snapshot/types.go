// Package snapshot defines the typed host metrics record and its JSON wire
// format, along with decoding and range validation of inbound frames.
package snapshot

import "time"

// MetricSnapshot is one complete measurement of host metrics at a point in time.
// Values are passed by copy and never mutated after decode.
type MetricSnapshot struct {
	CPUPercent float64
	Memory     MemoryStats
	Disk       DiskStats
	Timestamp  time.Time
}

// MemoryStats contains virtual memory usage.
type MemoryStats struct {
	TotalBytes     uint64
	AvailableBytes uint64
	Percent        float64
}

// DiskStats contains usage for the monitored filesystem.
type DiskStats struct {
	TotalBytes uint64
	UsedBytes  uint64
	FreeBytes  uint64
	Percent    float64
}

// UsedBytes returns total minus available memory, floored at zero.
func (m MemoryStats) UsedBytes() uint64 {
	if m.AvailableBytes > m.TotalBytes {
		return 0
	}
	return m.TotalBytes - m.AvailableBytes
}
