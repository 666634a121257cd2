package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batchwatch-poc/server/internal/agent/model"
)

func testDatasets() []model.DatasetDef {
	return []model.DatasetDef{
		{DatasetID: "abc-123", SequenceOrder: 0},
		{DatasetID: "xyz-789", SequenceOrder: 1},
	}
}

func TestMatchDatasetExact(t *testing.T) {
	got := MatchDataset(testDatasets(), "abc-123")
	require.NotNil(t, got)
	assert.Equal(t, "abc-123", got.DatasetID)
}

func TestMatchDatasetSubstringFallback(t *testing.T) {
	got := MatchDataset(testDatasets(), "ABC")
	require.NotNil(t, got)
	assert.Equal(t, "abc-123", got.DatasetID)
}

func TestMatchDatasetNoMatch(t *testing.T) {
	assert.Nil(t, MatchDataset(testDatasets(), "zzz"))
	assert.Nil(t, MatchDataset(testDatasets(), ""))
}

func TestMatchDatasetFirstWinsInDeclarationOrder(t *testing.T) {
	datasets := []model.DatasetDef{
		{DatasetID: "deriv-agg-emea"},
		{DatasetID: "deriv-agg-global"},
	}
	got := MatchDataset(datasets, "deriv")
	require.NotNil(t, got)
	assert.Equal(t, "deriv-agg-emea", got.DatasetID)
}

func TestMatchSlices(t *testing.T) {
	slices := []string{"AWS_OTC_DERIV_AGG_EMEA", "AWS_CRI_OTC_DERIV_GLOBAL"}

	assert.Equal(t, []string{"AWS_OTC_DERIV_AGG_EMEA"}, MatchSlices(slices, "EMEA"))
	assert.Equal(t, slices, MatchSlices(slices, "otc deriv"))
	assert.Equal(t, slices, MatchSlices(slices, "OTC-DERIV"))
	assert.Empty(t, MatchSlices(slices, "APAC"))
}

func TestMatchSlicesPreservesCasing(t *testing.T) {
	slices := []string{"Deriv-NA-Slice-2"}
	assert.Equal(t, []string{"Deriv-NA-Slice-2"}, MatchSlices(slices, "na slice"))
}

func TestEffectiveSlices(t *testing.T) {
	ds := &model.DatasetDef{
		DatasetID: "intercompany",
		SliceGroups: []model.SliceGroup{
			{Name: "DERIV", Slices: []string{"AWS_OTC_DERIV_AGG_EMEA", "AWS_OTC_DERIV_AGG_NA"}},
			{Name: "CRI", Slices: []string{"AWS_CRI_OTC_DERIV_GLOBAL"}},
		},
	}

	// No reference means every slice of the dataset, in declaration order.
	assert.Equal(t,
		[]string{"AWS_OTC_DERIV_AGG_EMEA", "AWS_OTC_DERIV_AGG_NA", "AWS_CRI_OTC_DERIV_GLOBAL"},
		EffectiveSlices(ds, ""))

	assert.Equal(t, []string{"AWS_OTC_DERIV_AGG_EMEA"}, EffectiveSlices(ds, "EMEA"))
	assert.Nil(t, EffectiveSlices(nil, "EMEA"))
}
