package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDefaults(t *testing.T) {
	store := NewMemoryStore(Seed())

	m, ok := store.Resolve(FeatureAnalysis, "")
	require.True(t, ok)
	assert.Equal(t, AnalysisComprehensive, m.ID)

	m, ok = store.Resolve(FeatureSummary, " Brief ")
	require.True(t, ok)
	assert.Equal(t, SummaryBrief, m.ID)

	_, ok = store.Resolve(FeatureSummary, AnalysisRiskFocused)
	assert.False(t, ok, "modes do not leak across features")

	_, ok = store.Resolve(FeatureChat, "")
	assert.False(t, ok, "chat has no modes")
}

func TestListByFeature(t *testing.T) {
	store := NewMemoryStore(Seed())
	assert.Len(t, store.List(FeatureAnalysis), 3)
	assert.Len(t, store.List(FeatureCitation), 2)
	assert.Len(t, store.List(""), len(Seed()))
}
