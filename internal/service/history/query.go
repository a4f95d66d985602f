package history

import (
	"sort"
	"strings"

	model "github.com/zhouzirui/lexdesk/backend/internal/model/history"
)

// Query returns a filtered, searched and sorted copy of the history. It never
// mutates the store. Filter runs first, then search, then a stable sort.
func (s *Store[R, M]) Query(q model.Query) []model.Record[R, M] {
	records := s.Records()

	out := make([]model.Record[R, M], 0, len(records))
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	for _, rec := range records {
		if !s.matchesFilter(rec, q) {
			continue
		}
		if needle != "" && !s.matchesSearch(rec, needle) {
			continue
		}
		out = append(out, rec)
	}

	s.sortRecords(out, q.Sort)
	return out
}

func (s *Store[R, M]) matchesFilter(rec model.Record[R, M], q model.Query) bool {
	switch q.Filter {
	case model.FilterBookmarked:
		return rec.Bookmarked
	case model.FilterLiked:
		return rec.Liked == model.LikedYes
	case model.FilterMetricAbove:
		return s.metric(rec) > q.Threshold
	case model.FilterMetricBelow:
		return s.metric(rec) <= q.Threshold
	default:
		return true
	}
}

func (s *Store[R, M]) matchesSearch(rec model.Record[R, M], needle string) bool {
	if strings.Contains(strings.ToLower(rec.InputPayload), needle) {
		return true
	}
	if s.opts.Summary == nil {
		return false
	}
	return strings.Contains(strings.ToLower(s.opts.Summary(rec.Result)), needle)
}

func (s *Store[R, M]) sortRecords(records []model.Record[R, M], key model.SortKey) {
	switch key {
	case model.SortMetric:
		sort.SliceStable(records, func(i, j int) bool {
			return s.metric(records[i]) > s.metric(records[j])
		})
	case model.SortSize:
		sort.SliceStable(records, func(i, j int) bool {
			return s.opts.Size(records[i]) > s.opts.Size(records[j])
		})
	default:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		})
	}
}

func (s *Store[R, M]) metric(rec model.Record[R, M]) float64 {
	if s.opts.Metric == nil {
		return 0
	}
	return s.opts.Metric(rec.Metrics)
}
