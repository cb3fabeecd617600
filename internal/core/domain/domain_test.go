package domain

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName_IsPrefixOf(t *testing.T) {
	tests := []struct {
		prefix, name Name
		want         bool
	}{
		{"/", "/google.com/videos", true},
		{"/google.com", "/google.com/videos", true},
		{"/google.com/videos", "/google.com/videos", true},
		{"/google", "/google.com/videos", false},
		{"/google.com/videos/x", "/google.com/videos", false},
		{"/a//b/", "/a/b/c", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.prefix)+"->"+string(tt.name), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.prefix.IsPrefixOf(tt.name))
		})
	}
}

func TestNameSet_EqualIgnoresOrder(t *testing.T) {
	a := NewNameSet("/x", "/y")
	b := NewNameSet("/y", "/x")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewNameSet("/x")))

	var empty NameSet
	assert.True(t, empty.Equal(NewNameSet()))
	assert.Equal(t, []string{"/x", "/y"}, b.Strings())
}

func TestNameSet_CloneIsIndependent(t *testing.T) {
	a := NewNameSet("/x")
	c := a.Clone()
	c.Add("/y")
	assert.False(t, a.Contains("/y"))
	assert.True(t, c.Contains("/y"))
}

func TestReport_CopiesInputAndSizes(t *testing.T) {
	counts := map[Name]uint32{"/x": 15, "/y": 3}
	r := NewReport("A", counts, time.Unix(10, 0))
	counts["/x"] = 0

	assert.Equal(t, uint32(15), r.TimedOut("/x"))
	assert.Equal(t, uint32(0), r.TimedOut("/unknown"))
	assert.Equal(t, MonitorID("A"), r.MonitorID())
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 36.0+2*36.0, r.WireSize())

	out := r.Counts()
	out["/y"] = 99
	assert.Equal(t, uint32(3), r.TimedOut("/y"))

	assert.Equal(t, 36.0, NewReport("B", nil, time.Time{}).WireSize())
}

func TestNotificationWireSize(t *testing.T) {
	assert.Equal(t, 36.0, NotificationWireSize(nil))
	assert.Equal(t, 36.0+64.0, NotificationWireSize(NewNameSet("/x", "/y")))
}

func TestCounters_Rows(t *testing.T) {
	c := Counters{MessagesReceived: 3, MessagesSent: 1, BytesReceived: 108, BytesSent: 68}
	rows := c.Rows(10, "CC")
	require.Len(t, rows, 4)

	signals := []string{SignalNumReceived, SignalNumSent, SignalSizeReceived, SignalSizeSent}
	values := []float64{3, 1, 108, 68}
	for i, row := range rows {
		assert.Equal(t, 10.0, row.Time)
		assert.Equal(t, "CC", row.Node)
		assert.Equal(t, "all", row.Face)
		assert.Equal(t, signals[i], row.Signal)
		assert.Equal(t, values[i], row.Value)
	}
	assert.False(t, c.IsZero())
	assert.True(t, Counters{}.IsZero())
}

func TestDetectionConfig_Validate(t *testing.T) {
	assert.NoError(t, DetectionConfig{Capacity: 5000, Threshold: 0.2}.Validate())
	assert.NoError(t, DetectionConfig{Capacity: 1, Threshold: 0, Policy: AggregateMax}.Validate())

	err := DetectionConfig{Capacity: 0, Threshold: 0.2}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCapacity))
	assert.True(t, IsConfigError(err))

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "capacity", cfgErr.Field)

	assert.ErrorIs(t, DetectionConfig{Capacity: 1, Threshold: 1.5}.Validate(), ErrInvalidThreshold)
	assert.ErrorIs(t, DetectionConfig{Capacity: 1, Threshold: math.NaN()}.Validate(), ErrInvalidThreshold)
	assert.ErrorIs(t, DetectionConfig{Capacity: 1, Threshold: 0.2, Policy: "median"}.Validate(), ErrInvalidPolicy)
}

func TestVerdict_Cleared(t *testing.T) {
	v := Verdict{Names: []Name{"/x"}}
	assert.False(t, v.Cleared())
	assert.True(t, v.Set().Contains("/x"))
	assert.True(t, Verdict{}.Cleared())
}
