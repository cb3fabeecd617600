package domain

import "fmt"

// AggregationPolicy selects how counts for the same name are combined
// across monitors.
type AggregationPolicy string

const (
	// AggregateSum treats monitor reports as complementary observations of one
	// distributed condition.
	AggregateSum AggregationPolicy = "sum"
	// AggregateMax treats them as alternative measurements of the same traffic.
	AggregateMax AggregationPolicy = "max"
)

// DetectionConfig holds the classification parameters.
type DetectionConfig struct {
	// Capacity is the maximum number of pending entries one observation point holds.
	Capacity uint32
	// Threshold is the inclusive expire ratio above which a name is malicious.
	Threshold float64
	Policy    AggregationPolicy
}

// Validate returns a ConfigError for unusable parameters.
func (c DetectionConfig) Validate() error {
	if c.Capacity == 0 {
		return NewConfigError("capacity", ErrInvalidCapacity)
	}
	if c.Threshold < 0 || c.Threshold > 1 || c.Threshold != c.Threshold {
		return NewConfigError("threshold", fmt.Errorf("%w: got %v", ErrInvalidThreshold, c.Threshold))
	}
	switch c.Policy {
	case "", AggregateSum, AggregateMax:
	default:
		return NewConfigError("aggregation", fmt.Errorf("%w: %q", ErrInvalidPolicy, c.Policy))
	}
	return nil
}
