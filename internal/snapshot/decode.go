package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"
)

// DecodeError describes why an inbound frame was rejected.
// Field is the dotted JSON path of the offending value, empty when the frame
// as a whole is unusable.
type DecodeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "decode frame: " + e.Reason
	}
	return fmt.Sprintf("decode frame: %s: %s", e.Field, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses one raw frame into a MetricSnapshot. All numeric fields are
// required. When the frame carries no timestamp, receivedAt is used.
func Decode(raw []byte, receivedAt time.Time) (MetricSnapshot, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return MetricSnapshot{}, jsonDecodeError(err)
	}
	return FromFrame(f, receivedAt)
}

// FromFrame converts a decoded wire frame into a snapshot, checking that every
// required field is present.
func FromFrame(f Frame, receivedAt time.Time) (MetricSnapshot, error) {
	var (
		s   MetricSnapshot
		err error
	)

	if f.CPUPercent == nil {
		return MetricSnapshot{}, missing("cpu_percent")
	}
	s.CPUPercent = *f.CPUPercent

	if f.Memory == nil {
		return MetricSnapshot{}, missing("memory")
	}
	if s.Memory.TotalBytes, err = byteCount("memory.total", f.Memory.Total); err != nil {
		return MetricSnapshot{}, err
	}
	if s.Memory.AvailableBytes, err = byteCount("memory.available", f.Memory.Available); err != nil {
		return MetricSnapshot{}, err
	}
	if f.Memory.Percent == nil {
		return MetricSnapshot{}, missing("memory.percent")
	}
	s.Memory.Percent = *f.Memory.Percent

	if f.Disk == nil {
		return MetricSnapshot{}, missing("disk")
	}
	if s.Disk.TotalBytes, err = byteCount("disk.total", f.Disk.Total); err != nil {
		return MetricSnapshot{}, err
	}
	if s.Disk.UsedBytes, err = byteCount("disk.used", f.Disk.Used); err != nil {
		return MetricSnapshot{}, err
	}
	if s.Disk.FreeBytes, err = byteCount("disk.free", f.Disk.Free); err != nil {
		return MetricSnapshot{}, err
	}
	if f.Disk.Percent == nil {
		return MetricSnapshot{}, missing("disk.percent")
	}
	s.Disk.Percent = *f.Disk.Percent

	if s.Timestamp, err = parseTimestamp(f.Timestamp, receivedAt); err != nil {
		return MetricSnapshot{}, err
	}

	return s, nil
}

// Decoder decodes frames and applies a range policy to the result.
type Decoder struct {
	Policy RangePolicy
}

// Decode decodes raw and validates it. Range violations never reject the
// frame; under RangeClamp the returned snapshot has been clamped.
func (d Decoder) Decode(raw []byte, receivedAt time.Time) (MetricSnapshot, []RangeViolation, error) {
	s, err := Decode(raw, receivedAt)
	if err != nil {
		return MetricSnapshot{}, nil, err
	}

	violations := Validate(s)
	if len(violations) > 0 && d.Policy == RangeClamp {
		s = Clamp(s)
	}
	return s, violations, nil
}

func missing(field string) *DecodeError {
	return &DecodeError{Field: field, Reason: "missing required field"}
}

// maxByteCount is 2^64, the first float64 that does not fit in a uint64.
const maxByteCount = 1 << 64

func byteCount(field string, v *float64) (uint64, error) {
	if v == nil {
		return 0, missing(field)
	}
	if *v < 0 {
		return 0, &DecodeError{Field: field, Reason: fmt.Sprintf("byte count must be non-negative, got %g", *v)}
	}
	if *v >= maxByteCount {
		return 0, &DecodeError{Field: field, Reason: "byte count out of range"}
	}
	return uint64(*v), nil
}

func parseTimestamp(raw *string, receivedAt time.Time) (time.Time, error) {
	if raw == nil || *raw == "" {
		return receivedAt, nil
	}

	var lastErr error
	for _, layout := range timestampLayouts {
		ts, err := time.ParseInLocation(layout, *raw, time.Local)
		if err == nil {
			return ts, nil
		}
		lastErr = err
	}
	return time.Time{}, &DecodeError{
		Field:  "timestamp",
		Reason: fmt.Sprintf("unrecognized time %q", *raw),
		Err:    lastErr,
	}
}

// jsonDecodeError maps encoding/json failures onto DecodeError.
func jsonDecodeError(err error) *DecodeError {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &DecodeError{Reason: "invalid JSON", Err: err}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return &DecodeError{Reason: "expected a JSON object, got " + typeErr.Value, Err: err}
		}
		return &DecodeError{
			Field:  typeErr.Field,
			Reason: fmt.Sprintf("expected %s, got %s", jsonKind(typeErr.Type), typeErr.Value),
			Err:    err,
		}
	}

	return &DecodeError{Reason: err.Error(), Err: err}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64, reflect.Uint64:
		return "number"
	case reflect.String:
		return "string"
	default:
		return t.Kind().String()
	}
}
