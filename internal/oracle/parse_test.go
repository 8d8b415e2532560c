package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftlabs/sift/internal/contracts"
)

const candidateJSON = `{
	"signal_type": "flow_anomaly",
	"affected_instruments": [{"symbol": "nvda", "asset_class": "equity", "direction": "long"}],
	"direction": "long",
	"conviction": 0.8,
	"time_horizon": "days",
	"thesis": "unusual call volume",
	"sources": [{"post_id": "p1", "platform": "options_flow", "author": "a1", "relevance": 0.9}]
}`

func TestParseCandidatesBareArray(t *testing.T) {
	cands, err := ParseCandidates("[" + candidateJSON + "]")
	require.NoError(t, err)
	require.Len(t, cands, 1)

	c := cands[0]
	assert.Equal(t, "flow_anomaly", c.SignalType)
	assert.Equal(t, contracts.DirectionLong, c.Direction)
	assert.Equal(t, contracts.HorizonDays, c.TimeHorizon)
	assert.Equal(t, "NVDA", c.Instruments[0].Symbol)
	assert.Equal(t, contracts.DirectionLong, c.Instruments[0].Direction)
	assert.Equal(t, 24, c.ExpiresInHours)
}

func TestParseCandidatesFenced(t *testing.T) {
	raw := "Here are the signals:\n```json\n[" + candidateJSON + "]\n```\n"
	cands, err := ParseCandidates(raw)
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestParseCandidatesWrapperObject(t *testing.T) {
	for _, key := range []string{"signals", "results", "data"} {
		raw := `{"` + key + `": [` + candidateJSON + `]}`
		cands, err := ParseCandidates(raw)
		require.NoError(t, err, key)
		assert.Len(t, cands, 1, key)
	}
}

func TestParseCandidatesSingleObject(t *testing.T) {
	cands, err := ParseCandidates(candidateJSON)
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestParseCandidatesEmbeddedInProse(t *testing.T) {
	raw := "Based on the clusters, I identified one signal.\n[" + candidateJSON + "]\nLet me know if you need more."
	cands, err := ParseCandidates(raw)
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestParseCandidatesUnrecoverable(t *testing.T) {
	_, err := ParseCandidates("I could not find any actionable signals this cycle.")
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestParseCandidatesClampsConviction(t *testing.T) {
	raw := `[{"signal_type": "sentiment_shift", "affected_instruments": [{"symbol": "TSLA"}], "direction": "SHORT", "conviction": 1.4, "time_horizon": "WEEKS", "thesis": "x"}]`
	cands, err := ParseCandidates(raw)
	require.NoError(t, err)
	assert.Equal(t, 1.0, cands[0].Conviction)
}

func TestParseCandidatesDropsEmptyEntries(t *testing.T) {
	raw := `[{"thesis": "no type, no instruments"}, ` + candidateJSON + `]`
	cands, err := ParseCandidates(raw)
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}
