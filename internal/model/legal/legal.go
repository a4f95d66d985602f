// Package legal holds the request inputs, results and derived metrics of the
// four assistant features.
package legal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ChatInput is one user message.
type ChatInput struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// ChatReply is the assistant turn of a chat exchange.
type ChatReply struct {
	Response   string   `json:"response"`
	Confidence float64  `json:"confidence"`
	Sources    []string `json:"sources,omitempty"`
}

// ChatMetrics is derived from ChatReply.
type ChatMetrics struct {
	Confidence  float64 `json:"confidence"`
	SourceCount int     `json:"sourceCount"`
}

// ChatMetricsOf maps a reply to its metrics.
func ChatMetricsOf(r ChatReply) ChatMetrics {
	return ChatMetrics{Confidence: r.Confidence, SourceCount: len(r.Sources)}
}

// Document is text pasted by the user or an uploaded file.
type Document struct {
	Text        string `json:"text,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Data        []byte `json:"-"`
}

// IsFile reports whether the document was uploaded.
func (d Document) IsFile() bool { return d.FileName != "" }

// Payload is the text stored as the record input: the file name for uploads.
func (d Document) Payload() string {
	if d.IsFile() {
		return d.FileName
	}
	return d.Text
}

// SummaryInput requests a document summary.
type SummaryInput struct {
	Document
	Mode string `json:"summaryType"`
}

// Summary is the summarization result.
type Summary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
}

// SummaryMetrics is derived from Summary.
type SummaryMetrics struct {
	KeyPointCount int `json:"keyPointCount"`
	WordCount     int `json:"wordCount"`
}

// SummaryMetricsOf maps a summary to its metrics.
func SummaryMetricsOf(s Summary) SummaryMetrics {
	return SummaryMetrics{KeyPointCount: len(s.KeyPoints), WordCount: len(strings.Fields(s.Summary))}
}

// AnalysisInput requests a contract analysis.
type AnalysisInput struct {
	Document
	Mode string `json:"analysisType"`
}

// RiskAssessment scores a contract from 0 to 10.
type RiskAssessment struct {
	OverallRiskScore float64  `json:"overallRiskScore"`
	RiskFactors      []string `json:"riskFactors"`
}

// Analysis is the contract analysis result.
type Analysis struct {
	Summary         string         `json:"summary"`
	RiskAssessment  RiskAssessment `json:"riskAssessment"`
	KeyClauses      []string       `json:"keyClauses"`
	Recommendations []string       `json:"recommendations"`
}

// AnalysisMetrics is derived from Analysis.
type AnalysisMetrics struct {
	RiskScore       float64 `json:"riskScore"`
	RiskFactorCount int     `json:"riskFactorCount"`
	ClauseCount     int     `json:"clauseCount"`
}

// RiskLevel buckets the score the same way the history filters do.
func (m AnalysisMetrics) RiskLevel() string {
	switch {
	case m.RiskScore > HighRiskThreshold:
		return "high"
	case m.RiskScore > LowRiskThreshold:
		return "medium"
	default:
		return "low"
	}
}

// Risk thresholds used by the analysis history filters.
const (
	HighRiskThreshold = 6
	LowRiskThreshold  = 3
)

// AnalysisMetricsOf maps an analysis to its metrics.
func AnalysisMetricsOf(a Analysis) AnalysisMetrics {
	return AnalysisMetrics{
		RiskScore:       a.RiskAssessment.OverallRiskScore,
		RiskFactorCount: len(a.RiskAssessment.RiskFactors),
		ClauseCount:     len(a.KeyClauses),
	}
}

// CitationInput requests citations for a passage.
type CitationInput struct {
	Text string `json:"text"`
	Mode string `json:"searchType"`
}

// Citation is one citation entry.
type Citation struct {
	Citation string `json:"citation"`
	CaseName string `json:"caseName,omitempty"`
	Court    string `json:"court,omitempty"`
	Date     string `json:"date,omitempty"`
	URL      string `json:"url,omitempty"`
	Valid    *bool  `json:"valid,omitempty"`
}

// UnmarshalJSON accepts a bare citation string or an object. Both the wire
// (snake_case) and stored (camelCase) field names are understood.
func (c *Citation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Citation{Citation: s}
		return nil
	}

	var raw struct {
		Citation     string `json:"citation"`
		CaseName     string `json:"caseName"`
		CaseNameWire string `json:"case_name"`
		Court        string `json:"court"`
		Date         string `json:"date"`
		URL          string `json:"url"`
		Valid        *bool  `json:"valid"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("citation entry: %w", err)
	}
	*c = Citation{
		Citation: raw.Citation,
		CaseName: raw.CaseName,
		Court:    raw.Court,
		Date:     raw.Date,
		URL:      raw.URL,
		Valid:    raw.Valid,
	}
	if c.CaseName == "" {
		c.CaseName = raw.CaseNameWire
	}
	return nil
}

// CitationResult is the citation lookup result.
type CitationResult struct {
	Citations []Citation `json:"citations"`
}

// Summary is a searchable rendering of the citations.
func (r CitationResult) Summary() string {
	parts := make([]string, 0, len(r.Citations))
	for _, c := range r.Citations {
		parts = append(parts, strings.TrimSpace(c.Citation+" "+c.CaseName))
	}
	return strings.Join(parts, "; ")
}

// CitationMetrics is derived from CitationResult.
type CitationMetrics struct {
	CitationCount int `json:"citationCount"`
	ValidCount    int `json:"validCount"`
}

// CitationMetricsOf maps a citation result to its metrics.
func CitationMetricsOf(r CitationResult) CitationMetrics {
	m := CitationMetrics{CitationCount: len(r.Citations)}
	for _, c := range r.Citations {
		if c.Valid != nil && *c.Valid {
			m.ValidCount++
		}
	}
	return m
}
