package legal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCitationAcceptsStringsAndObjects(t *testing.T) {
	var res CitationResult
	err := json.Unmarshal([]byte(`{"citations":[
		"Brown v. Board of Education, 347 U.S. 483 (1954)",
		{"citation":"410 U.S. 113","case_name":"Roe v. Wade","court":"Supreme Court","valid":true}
	]}`), &res)
	require.NoError(t, err)
	require.Len(t, res.Citations, 2)

	assert.Equal(t, "Brown v. Board of Education, 347 U.S. 483 (1954)", res.Citations[0].Citation)
	assert.Nil(t, res.Citations[0].Valid)
	assert.Equal(t, "Roe v. Wade", res.Citations[1].CaseName)

	m := CitationMetricsOf(res)
	assert.Equal(t, CitationMetrics{CitationCount: 2, ValidCount: 1}, m)
}

func TestCitationStoredFormRoundTrips(t *testing.T) {
	valid := false
	in := Citation{Citation: "5 U.S. 137", CaseName: "Marbury v. Madison", Valid: &valid}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Citation
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMetricsAreTotal(t *testing.T) {
	assert.Equal(t, AnalysisMetrics{}, AnalysisMetricsOf(Analysis{}))
	assert.Equal(t, SummaryMetrics{}, SummaryMetricsOf(Summary{}))
	assert.Equal(t, ChatMetrics{}, ChatMetricsOf(ChatReply{}))
	assert.Equal(t, CitationMetrics{}, CitationMetricsOf(CitationResult{}))
}

func TestRiskLevel(t *testing.T) {
	assert.Equal(t, "high", AnalysisMetrics{RiskScore: 6.5}.RiskLevel())
	assert.Equal(t, "medium", AnalysisMetrics{RiskScore: 6}.RiskLevel())
	assert.Equal(t, "low", AnalysisMetrics{RiskScore: 3}.RiskLevel())
}

func TestDocumentPayload(t *testing.T) {
	assert.Equal(t, "nda.pdf", Document{FileName: "nda.pdf", Text: "ignored"}.Payload())
	assert.Equal(t, "pasted", Document{Text: "pasted"}.Payload())
}
