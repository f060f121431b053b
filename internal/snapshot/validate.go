package snapshot

import "fmt"

// RangePolicy controls what happens to values outside their documented domain.
type RangePolicy int

const (
	// RangeAccept keeps out-of-range values as received.
	RangeAccept RangePolicy = iota
	// RangeClamp pulls out-of-range values back into their domain.
	RangeClamp
)

// String returns a human-readable policy name.
func (p RangePolicy) String() string {
	switch p {
	case RangeAccept:
		return "accept"
	case RangeClamp:
		return "clamp"
	default:
		return "unknown"
	}
}

// RangeViolation reports a numeric field outside its documented domain.
type RangeViolation struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

func (v RangeViolation) Error() string {
	return fmt.Sprintf("%s=%g outside [%g, %g]", v.Field, v.Value, v.Min, v.Max)
}

// Validate returns every range violation in s, in field order.
// usedBytes+freeBytes ≈ totalBytes is informational and not checked.
func Validate(s MetricSnapshot) []RangeViolation {
	var out []RangeViolation

	checkPercent := func(field string, v float64) {
		if v < 0 || v > 100 {
			out = append(out, RangeViolation{Field: field, Value: v, Min: 0, Max: 100})
		}
	}
	checkBytes := func(field string, v, total uint64) {
		if v > total {
			out = append(out, RangeViolation{Field: field, Value: float64(v), Min: 0, Max: float64(total)})
		}
	}

	checkPercent("cpu_percent", s.CPUPercent)
	checkBytes("memory.available", s.Memory.AvailableBytes, s.Memory.TotalBytes)
	checkPercent("memory.percent", s.Memory.Percent)
	checkBytes("disk.used", s.Disk.UsedBytes, s.Disk.TotalBytes)
	checkBytes("disk.free", s.Disk.FreeBytes, s.Disk.TotalBytes)
	checkPercent("disk.percent", s.Disk.Percent)

	return out
}

// Clamp returns a copy of s with every field forced into its domain.
func Clamp(s MetricSnapshot) MetricSnapshot {
	s.CPUPercent = clampPercent(s.CPUPercent)
	s.Memory.Percent = clampPercent(s.Memory.Percent)
	s.Disk.Percent = clampPercent(s.Disk.Percent)
	s.Memory.AvailableBytes = min(s.Memory.AvailableBytes, s.Memory.TotalBytes)
	s.Disk.UsedBytes = min(s.Disk.UsedBytes, s.Disk.TotalBytes)
	s.Disk.FreeBytes = min(s.Disk.FreeBytes, s.Disk.TotalBytes)
	return s
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
