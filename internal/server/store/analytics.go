package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/server/models"
	"github.com/dmitrijs2005/datahub/internal/timex"
)

// AccessSummary aggregates the events of the last days days: the total, the
// number of distinct emails, and distinct emails per day, week ("YYYY-WW",
// Monday first) or month, with periods computed in loc.
func (s *Store) AccessSummary(ctx context.Context, days int, group string, loc *time.Location) (models.AccessSummary, error) {
	var period func(time.Time) string
	switch group {
	case models.GroupDay:
		period = func(t time.Time) string { return t.Format("2006-01-02") }
	case models.GroupWeek:
		period = timex.WeekKey
	case models.GroupMonth:
		period = func(t time.Time) string { return t.Format("2006-01") }
	default:
		return models.AccessSummary{}, fmt.Errorf("unknown group %q", group)
	}
	if loc == nil {
		loc = time.UTC
	}
	if days <= 0 {
		days = defaultRecentDays
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadForRead(ctx)
	logs := s.recentLogs(days)

	emails := map[string]struct{}{}
	perPeriod := map[string]map[string]struct{}{}
	for _, l := range logs {
		e := common.NormalizeEmail(l.Email)
		emails[e] = struct{}{}

		p := period(l.TS.In(loc))
		if perPeriod[p] == nil {
			perPeriod[p] = map[string]struct{}{}
		}
		perPeriod[p][e] = struct{}{}
	}

	summary := models.AccessSummary{
		Days:         days,
		Group:        group,
		Total:        len(logs),
		UniqueEmails: len(emails),
		Periods:      make([]models.PeriodCount, 0, len(perPeriod)),
	}
	for p, set := range perPeriod {
		summary.Periods = append(summary.Periods, models.PeriodCount{Period: p, Unique: len(set)})
	}
	sort.Slice(summary.Periods, func(i, j int) bool { return summary.Periods[i].Period < summary.Periods[j].Period })

	return summary, nil
}
