package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/ashureev/confido/internal/apperr"
	"github.com/ashureev/confido/internal/domain"
)

// Period limits history to sessions created after a cutoff.
type Period string

const (
	PeriodAll   Period = "all"
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// SortKey orders history results, always descending.
type SortKey string

const (
	SortDate       SortKey = "date"
	SortDuration   SortKey = "duration"
	SortConfidence SortKey = "confidence"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// HistoryQuery is a validated history request.
type HistoryQuery struct {
	Search string
	// Status is StatusAll or a session status.
	Status string
	Period Period
	Sort   SortKey
}

// ParseHistoryQuery validates raw query values. Empty values select all
// statuses, all periods and date order.
func ParseHistoryQuery(search, status, period, sortKey string) (HistoryQuery, error) {
	q := HistoryQuery{
		Search: strings.TrimSpace(search),
		Status: StatusAll,
		Period: PeriodAll,
		Sort:   SortDate,
	}

	if s := strings.ToLower(strings.TrimSpace(status)); s != "" && s != StatusAll {
		st, ok := domain.ParseStatus(s)
		if !ok {
			return HistoryQuery{}, apperr.Newf(apperr.KindValidation, "unknown status filter %q", status)
		}
		q.Status = string(st)
	}

	switch p := Period(strings.ToLower(strings.TrimSpace(period))); p {
	case "":
	case PeriodAll, PeriodToday, PeriodWeek, PeriodMonth:
		q.Period = p
	default:
		return HistoryQuery{}, apperr.Newf(apperr.KindValidation, "unknown period %q", period)
	}

	switch k := SortKey(strings.ToLower(strings.TrimSpace(sortKey))); k {
	case "":
	case SortDate, SortDuration, SortConfidence:
		q.Sort = k
	default:
		return HistoryQuery{}, apperr.Newf(apperr.KindValidation, "unknown sort key %q", sortKey)
	}
	return q, nil
}

// cutoff returns the earliest creation time included by p, or the zero
// time for PeriodAll.
func (p Period) cutoff(now time.Time) time.Time {
	switch p {
	case PeriodToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, -1, 0)
	}
	return time.Time{}
}

// Query filters and sorts records. The input slice is not modified, and
// records that compare equal keep their input order.
func Query(records []domain.SessionRecord, q HistoryQuery, now time.Time) []domain.SessionRecord {
	needle := strings.ToLower(q.Search)
	cutoff := q.Period.cutoff(now)

	out := make([]domain.SessionRecord, 0, len(records))
	for _, rec := range records {
		if needle != "" &&
			!strings.Contains(strings.ToLower(rec.AgentName()), needle) &&
			!strings.Contains(strings.ToLower(rec.ID), needle) {
			continue
		}
		if q.Status != "" && q.Status != StatusAll && string(rec.Status) != q.Status {
			continue
		}
		if !cutoff.IsZero() && rec.CreatedAt.Before(cutoff) {
			continue
		}
		out = append(out, rec)
	}

	var less func(a, b *domain.SessionRecord) bool
	switch q.Sort {
	case SortDuration:
		less = func(a, b *domain.SessionRecord) bool { return a.DurationSeconds > b.DurationSeconds }
	case SortConfidence:
		less = func(a, b *domain.SessionRecord) bool { return confidenceOrZero(a) > confidenceOrZero(b) }
	default:
		less = func(a, b *domain.SessionRecord) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	return out
}

func confidenceOrZero(rec *domain.SessionRecord) float64 {
	c, _ := rec.Confidence()
	return c
}
