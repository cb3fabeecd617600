package grpc

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// Report payload keys.
const (
	fieldMonitor    = "monitor"
	fieldObservedAt = "observed_at"
	fieldTimedOut   = "timed_out"
	fieldReports    = "reports"
)

// EncodeReport converts a report into its wire struct.
func EncodeReport(id domain.MonitorID, r domain.Report) (*structpb.Struct, error) {
	counts := make(map[string]any, r.Len())
	r.Each(func(name domain.Name, count uint32) {
		counts[string(name)] = float64(count)
	})
	fields := map[string]any{
		fieldMonitor:  string(id),
		fieldTimedOut: counts,
	}
	if !r.ObservedAt().IsZero() {
		fields[fieldObservedAt] = r.ObservedAt().UTC().Format(time.RFC3339Nano)
	}
	return structpb.NewStruct(fields)
}

// DecodeReport converts a wire struct into a report. Counts that are not
// numbers, negative or NaN become zero; counts beyond uint32 saturate.
func DecodeReport(s *structpb.Struct, receivedAt time.Time) (domain.MonitorID, domain.Report, error) {
	fields := s.GetFields()
	id := domain.MonitorID(fields[fieldMonitor].GetStringValue())
	if id == "" {
		return "", domain.Report{}, fmt.Errorf("report without %q", fieldMonitor)
	}

	observedAt := receivedAt
	if raw := fields[fieldObservedAt].GetStringValue(); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return "", domain.Report{}, fmt.Errorf("bad %s: %w", fieldObservedAt, err)
		}
		observedAt = ts
	}

	counts := make(map[domain.Name]uint32)
	for name, v := range fields[fieldTimedOut].GetStructValue().GetFields() {
		if name == "" {
			continue
		}
		counts[domain.Name(name)] = clampCount(v)
	}
	return id, domain.NewReport(id, counts, observedAt), nil
}

func clampCount(v *structpb.Value) uint32 {
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0
	}
	f := n.NumberValue
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= math.MaxUint32:
		return math.MaxUint32
	default:
		return uint32(f)
	}
}
