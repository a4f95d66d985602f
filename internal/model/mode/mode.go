package mode

// Mode 描述一个功能可选的处理方式，前端用于渲染下拉选项。
type Mode struct {
	ID          string `json:"id"`
	Feature     string `json:"feature"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	Default     bool   `json:"default,omitempty"`
}

// 功能名称
const (
	FeatureChat     = "chat"
	FeatureSummary  = "summary"
	FeatureAnalysis = "analysis"
	FeatureCitation = "citation"
)

// 合同分析类型
const (
	AnalysisComprehensive = "comprehensive"
	AnalysisRiskFocused   = "risk-focused"
	AnalysisClauseReview  = "clause-review"
)

// 摘要类型
const (
	SummaryComprehensive = "comprehensive"
	SummaryBrief         = "brief"
	SummaryDetailed      = "detailed"
)

// 引文检索类型
const (
	CitationLookup = "lookup"
	CitationBatch  = "batch"
)

// Seed returns the modes offered by the legal inference API.
func Seed() []Mode {
	return []Mode{
		{
			ID:          AnalysisComprehensive,
			Feature:     FeatureAnalysis,
			Label:       "Comprehensive Analysis",
			Description: "Full review of risks, key clauses and recommendations.",
			Default:     true,
		},
		{
			ID:          AnalysisRiskFocused,
			Feature:     FeatureAnalysis,
			Label:       "Risk-Focused",
			Description: "Concentrates on liability, termination and penalty exposure.",
		},
		{
			ID:          AnalysisClauseReview,
			Feature:     FeatureAnalysis,
			Label:       "Clause Review",
			Description: "Walks through each key clause and its implications.",
		},
		{
			ID:          SummaryComprehensive,
			Feature:     FeatureSummary,
			Label:       "Comprehensive",
			Description: "Balanced summary with key points.",
			Default:     true,
		},
		{
			ID:          SummaryBrief,
			Feature:     FeatureSummary,
			Label:       "Brief",
			Description: "A short paragraph covering the essentials.",
		},
		{
			ID:          SummaryDetailed,
			Feature:     FeatureSummary,
			Label:       "Detailed",
			Description: "Section by section summary.",
		},
		{
			ID:          CitationLookup,
			Feature:     FeatureCitation,
			Label:       "Lookup",
			Description: "Find citations relevant to a question.",
			Default:     true,
		},
		{
			ID:          CitationBatch,
			Feature:     FeatureCitation,
			Label:       "Batch",
			Description: "Extract and validate every citation in a passage.",
		},
	}
}
