package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/server/models"
	"github.com/dmitrijs2005/datahub/internal/timex"
)

const defaultRecentDays = 30

// RecordLogin appends a login event, prunes expired events, stamps the
// user's last_login, bumps the monthly counter and persists.
func (s *Store) RecordLogin(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	now := s.now().UTC()
	// log entries are keyed by (email, ts): keep this process's timestamps distinct
	if !now.After(s.lastLogTS) {
		now = s.lastLogTS.Add(time.Nanosecond)
	}
	s.lastLogTS = now

	e := common.NormalizeEmail(email)
	s.doc.AccessLogs = s.prune(append(s.doc.AccessLogs, models.AccessLog{Email: e, TS: now}))

	if u := s.findByEmail(e); u != nil {
		t := now
		u.LastLogin = &t
	}

	if s.doc.Metrics.MonthlyAccesses == nil {
		s.doc.Metrics.MonthlyAccesses = map[string]int{}
	}
	s.doc.Metrics.MonthlyAccesses[timex.MonthKey(now)]++

	return s.persist(ctx)
}

// MonthAccessCount returns the login count of a UTC month. Zero year or
// month means the current one.
func (s *Store) MonthAccessCount(ctx context.Context, year, month int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadForRead(ctx)

	now := s.now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	return s.doc.Metrics.MonthlyAccesses[fmt.Sprintf("%04d-%02d", year, month)]
}

// RecentLogs returns events of the last days days, newest first. days <= 0
// means 30.
func (s *Store) RecentLogs(ctx context.Context, days int) []models.AccessLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadForRead(ctx)
	return s.recentLogs(days)
}

func (s *Store) recentLogs(days int) []models.AccessLog {
	if days <= 0 {
		days = defaultRecentDays
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)

	out := make([]models.AccessLog, 0, len(s.doc.AccessLogs))
	for _, l := range s.doc.AccessLogs {
		if !l.TS.Before(cutoff) {
			out = append(out, l)
		}
	}
	return sortNewestFirst(out)
}

// PruneAccessLogs removes expired events and persists.
func (s *Store) PruneAccessLogs(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.doc.AccessLogs = s.prune(s.doc.AccessLogs)
	return s.persist(ctx)
}
