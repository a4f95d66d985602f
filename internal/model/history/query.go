package history

import (
	"fmt"
	"strings"
)

// Filter selects which records a query keeps.
type Filter string

const (
	FilterAll         Filter = "all"
	FilterBookmarked  Filter = "bookmarked"
	FilterLiked       Filter = "liked"
	FilterMetricAbove Filter = "metric-above"
	FilterMetricBelow Filter = "metric-below"
)

// SortKey orders the query result. All orders are descending and stable.
type SortKey string

const (
	SortDate   SortKey = "date"
	SortMetric SortKey = "metric"
	SortSize   SortKey = "size"
)

// Query describes a filtered, searched and sorted view over a history store.
type Query struct {
	Filter    Filter
	Threshold float64
	Sort      SortKey
	Search    string
}

// DefaultQuery returns every record newest first.
func DefaultQuery() Query {
	return Query{Filter: FilterAll, Sort: SortDate}
}

// ParseFilter maps user supplied names (including the legacy high-risk/low-risk
// aliases) onto a Filter.
func ParseFilter(raw string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return FilterAll, nil
	case "bookmarked":
		return FilterBookmarked, nil
	case "liked":
		return FilterLiked, nil
	case "metric-above", "above", "high-risk":
		return FilterMetricAbove, nil
	case "metric-below", "below", "low-risk":
		return FilterMetricBelow, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

// ParseSortKey maps user supplied names onto a SortKey. Feature specific names
// ("risk", "citations", "keypoints", "confidence") all sort by the derived
// metric. Chat records hold one exchange each, so there is no message count
// to sort by; chat's metric sort orders by confidence.
func ParseSortKey(raw string) (SortKey, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "date":
		return SortDate, nil
	case "metric", "risk", "citations", "keypoints", "confidence":
		return SortMetric, nil
	case "size":
		return SortSize, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", raw)
	}
}
