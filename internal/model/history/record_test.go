package history

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikedJSONKeepsUnsetDistinctFromDisliked(t *testing.T) {
	cases := map[Liked]string{
		LikedUnset: "null",
		LikedYes:   "true",
		LikedNo:    "false",
	}
	for liked, want := range cases {
		data, err := json.Marshal(liked)
		require.NoError(t, err)
		assert.Equal(t, want, string(data))

		var back Liked
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, liked, back)
	}
}

func TestLikedRejectsGarbage(t *testing.T) {
	var l Liked
	assert.Error(t, json.Unmarshal([]byte(`"yes"`), &l))
}

func TestRecordRoundTripPreservesInstant(t *testing.T) {
	created := Timestamp(time.Now())
	rec := Record[string, int]{
		ID:           "r1",
		CreatedAt:    created,
		InputPayload: "tax clause",
		InputKind:    InputText,
		Result:       "summary",
		Metrics:      3,
		Liked:        LikedNo,
		Tag:          "brief",
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var back Record[string, int]
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.CreatedAt.Equal(created))
	back.CreatedAt = created
	assert.Equal(t, rec, back)
}

func TestParseFilterAliases(t *testing.T) {
	f, err := ParseFilter("high-risk")
	require.NoError(t, err)
	assert.Equal(t, FilterMetricAbove, f)

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	_, err = ParseFilter("starred")
	assert.Error(t, err)
}

func TestParseSortKeyAliases(t *testing.T) {
	k, err := ParseSortKey("risk")
	require.NoError(t, err)
	assert.Equal(t, SortMetric, k)

	_, err = ParseSortKey("alphabetical")
	assert.Error(t, err)

	_, err = ParseSortKey("messages")
	assert.Error(t, err, "chat records carry no message count")
}
