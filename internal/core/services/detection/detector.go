package detection

import (
	"github.com/lcalzada-xor/floodctl/internal/core/domain"
)

// AnomalyDetector classifies names as under attack from the latest report of
// every monitor. It holds no state besides its configuration.
type AnomalyDetector struct {
	cfg domain.DetectionConfig
}

// NewAnomalyDetector validates cfg and returns a detector.
func NewAnomalyDetector(cfg domain.DetectionConfig) (*AnomalyDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Policy == "" {
		cfg.Policy = domain.AggregateSum
	}
	return &AnomalyDetector{cfg: cfg}, nil
}

// Config returns the detector configuration.
func (d *AnomalyDetector) Config() domain.DetectionConfig { return d.cfg }

// Detect returns every name whose aggregated expire ratio reaches the threshold.
func (d *AnomalyDetector) Detect(latest map[domain.MonitorID]domain.Report) domain.NameSet {
	set, _ := Detect(latest, d.cfg)
	return set
}

// Tally combines per-name counts across all reports according to policy.
func Tally(latest map[domain.MonitorID]domain.Report, policy domain.AggregationPolicy) map[domain.Name]uint64 {
	totals := make(map[domain.Name]uint64)
	for _, report := range latest {
		report.Each(func(name domain.Name, count uint32) {
			switch policy {
			case domain.AggregateMax:
				if cur, seen := totals[name]; !seen || uint64(count) > cur {
					totals[name] = uint64(count)
				}
			default:
				totals[name] += uint64(count)
			}
		})
	}
	return totals
}

// Detect is the pure classification: a name is malicious iff
// total/capacity >= threshold. A zero capacity is rejected.
func Detect(latest map[domain.MonitorID]domain.Report, cfg domain.DetectionConfig) (domain.NameSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	malicious := make(domain.NameSet)
	capacity := float64(cfg.Capacity)
	for name, total := range Tally(latest, cfg.Policy) {
		ratio := float64(total) / capacity
		if ratio >= cfg.Threshold {
			malicious.Add(name)
		}
	}
	return malicious, nil
}
