package snapshot

import "time"

// Frame is the JSON object pushed by the backend, one per message:
//
//	{"cpu_percent": 12.5,
//	 "memory": {"total": 1, "available": 1, "percent": 1},
//	 "disk": {"total": 1, "used": 1, "free": 1, "percent": 1},
//	 "timestamp": "2024-05-01T10:00:00.000000"}
//
// Pointer fields distinguish a missing value from a zero value on decode.
// Unknown keys (network counters, extra psutil fields) are ignored.
type Frame struct {
	CPUPercent *float64      `json:"cpu_percent"`
	Memory     *MemoryFrame  `json:"memory"`
	Disk       *DiskFrame    `json:"disk"`
	Network    *NetworkFrame `json:"network,omitempty"`
	Timestamp  *string       `json:"timestamp,omitempty"`
}

// MemoryFrame is the wire form of MemoryStats.
type MemoryFrame struct {
	Total     *float64 `json:"total"`
	Available *float64 `json:"available"`
	Percent   *float64 `json:"percent"`
	Used      *float64 `json:"used,omitempty"`
	Free      *float64 `json:"free,omitempty"`
}

// DiskFrame is the wire form of DiskStats.
type DiskFrame struct {
	Total   *float64 `json:"total"`
	Used    *float64 `json:"used"`
	Free    *float64 `json:"free"`
	Percent *float64 `json:"percent"`
}

// NetworkFrame carries host-wide network counters. The client does not use it.
type NetworkFrame struct {
	BytesSent   uint64 `json:"bytes_sent"`
	BytesRecv   uint64 `json:"bytes_recv"`
	PacketsSent uint64 `json:"packets_sent"`
	PacketsRecv uint64 `json:"packets_recv"`
}

// TimestampLayout is the layout the reference producer writes.
// It matches an offset-less ISO-8601 timestamp with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// timestampLayouts are tried in order when parsing an inbound timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ToFrame converts a snapshot to its wire form.
func ToFrame(s MetricSnapshot) Frame {
	ts := s.Timestamp.Format(TimestampLayout)
	return Frame{
		CPUPercent: f64(s.CPUPercent),
		Memory: &MemoryFrame{
			Total:     f64(float64(s.Memory.TotalBytes)),
			Available: f64(float64(s.Memory.AvailableBytes)),
			Percent:   f64(s.Memory.Percent),
		},
		Disk: &DiskFrame{
			Total:   f64(float64(s.Disk.TotalBytes)),
			Used:    f64(float64(s.Disk.UsedBytes)),
			Free:    f64(float64(s.Disk.FreeBytes)),
			Percent: f64(s.Disk.Percent),
		},
		Timestamp: &ts,
	}
}

func f64(v float64) *float64 { return &v }
