package internaldefs

import (
	"strings"
	"testing"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterDefsCoverEverySnapshotCounter(t *testing.T) {
	m := goAuthClient.NewMetrics(goAuthClient.MetricsConfig{Enabled: true})
	snap := m.Snapshot()

	seen := make(map[goAuthClient.MetricID]bool, len(CounterDefs))
	names := make(map[string]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		assert.False(t, seen[def.ID], "duplicate id %d", def.ID)
		assert.False(t, names[def.Name], "duplicate name %s", def.Name)
		assert.True(t, strings.HasPrefix(def.Name, "goauthclient_"))
		assert.True(t, strings.HasSuffix(def.Name, "_total"))
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := range snap.Counters {
		assert.True(t, seen[id], "counter %d has no exported name", id)
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	assert.Equal(t, [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}, got)
}

func TestBoundsAndSuffixesAlign(t *testing.T) {
	require.Len(t, HistogramBounds, 8)
	require.Len(t, HistogramBoundSuffix, len(HistogramBounds))
	assert.Equal(t, "+Inf", HistogramBounds[len(HistogramBounds)-1])
}
