// Package store keeps the user document in memory and writes every change
// back to the blob store through a download, merge and upload cycle.
//
// All operations on a Store are serialized under one mutex, including the
// network round trips they trigger. Concurrency between processes is only
// partly handled: access logs are union-merged on every write, users and
// metrics are last-writer-wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/datahub/internal/blob"
	"github.com/dmitrijs2005/datahub/internal/common"
	"github.com/dmitrijs2005/datahub/internal/logging"
	"github.com/dmitrijs2005/datahub/internal/server/document"
	"github.com/dmitrijs2005/datahub/internal/server/models"
)

type Store struct {
	mu sync.Mutex

	transport         blob.Transport
	settingsTransport blob.Transport
	codec             *document.Codec
	log               logging.Logger
	now               func() time.Time

	doc      *models.Document
	loaded   bool
	settings models.LogSettings

	// highest id handed out or seen; ids are never reused in this process
	maxID int
	// last access-log timestamp written by this process
	lastLogTS time.Time
}

type Option func(*Store)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithSettings sets the transport of the optional log configuration object.
func WithSettings(t blob.Transport) Option {
	return func(s *Store) { s.settingsTransport = t }
}

// New returns a Store that loads lazily on first use.
func New(transport blob.Transport, codec *document.Codec, opts ...Option) *Store {
	s := &Store{
		transport: transport,
		codec:     codec,
		log:       logging.Nop(),
		now:       time.Now,
		doc:       models.NewDocument(),
		settings:  models.DefaultLogSettings(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ensureLoaded fetches and decodes the document once. Callers hold s.mu.
//
// A transport failure leaves the store unloaded, serving an empty document,
// and is returned wrapping both common.ErrStoreUnavailable and
// common.ErrTransportFailure so that writers refuse to overwrite the remote
// copy without applying their change.
// A document no strategy can decode is replaced by an empty one.
func (s *Store) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	raw, err := s.transport.Fetch(ctx)
	if err != nil {
		s.log.Warn(ctx, "document fetch failed, serving empty document", "error", err)
		s.doc = models.NewDocument()
		if !errors.Is(err, common.ErrTransportFailure) {
			err = fmt.Errorf("%w: %w", common.ErrTransportFailure, err)
		}
		return fmt.Errorf("%w: %w", common.ErrStoreUnavailable, err)
	}

	doc, source, err := s.codec.Decode(raw)
	switch {
	case err != nil:
		s.log.Warn(ctx, "document unreadable, starting from empty document", "error", err)
	case source == document.SourcePlaintext:
		s.log.Warn(ctx, "document stored as plaintext, it will be sealed on next write")
	}

	normalize(doc)
	s.doc = doc
	s.loaded = true
	s.maxID = max(s.maxID, doc.MaxUserID())
	s.settings = s.loadSettings(ctx)

	s.log.Debug(ctx, "document loaded", "source", source, "users", len(doc.Users), "logs", len(doc.AccessLogs))
	return nil
}

func normalize(doc *models.Document) {
	for _, u := range doc.Users {
		u.Email = common.NormalizeEmail(u.Email)
	}
}

func (s *Store) loadSettings(ctx context.Context) models.LogSettings {
	if s.settingsTransport == nil {
		return models.DefaultLogSettings()
	}
	raw, err := s.settingsTransport.Fetch(ctx)
	if err != nil {
		s.log.Warn(ctx, "log settings fetch failed, using defaults", "error", err)
		return models.DefaultLogSettings()
	}
	settings, err := s.codec.DecodeSettings(raw)
	if err != nil {
		s.log.Warn(ctx, "log settings unreadable, using defaults", "error", err)
	}
	return settings
}

// loadForRead loads the document for a read-only operation. Failures were
// already logged by ensureLoaded; reads then work on the empty document.
func (s *Store) loadForRead(ctx context.Context) {
	_ = s.ensureLoaded(ctx)
}

// Reload drops the cached document and fetches it again.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loaded = false
	return s.ensureLoaded(ctx)
}

// Settings returns the effective log configuration.
func (s *Store) Settings(ctx context.Context) models.LogSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadForRead(ctx)
	return s.settings
}

// persist runs the download, merge and upload cycle. Callers hold s.mu.
//
// Users and metrics of this process overwrite the remote ones. Access logs
// are the de-duplicated union of both sides, pruned and sorted newest first;
// the merged set is adopted into the cache after a successful upload. If
// the remote cannot be read the local document is uploaded unmerged, with
// expired log entries still pruned.
func (s *Store) persist(ctx context.Context) error {
	s.doc.AccessLogs = s.prune(s.doc.AccessLogs)
	out := s.doc

	raw, err := s.transport.Fetch(ctx)
	if err != nil {
		s.log.Warn(ctx, "merge fetch failed, uploading local document without merge", "error", err)
	} else {
		remote, _, derr := s.codec.Decode(raw)
		if derr != nil {
			s.log.Warn(ctx, "remote document unreadable during merge", "error", derr)
		}
		out = &models.Document{
			Users:      s.doc.Users,
			Metrics:    s.doc.Metrics,
			AccessLogs: sortNewestFirst(s.prune(mergeLogs(remote.AccessLogs, s.doc.AccessLogs))),
		}
	}

	sealed, err := s.codec.Encode(out)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	if err := s.transport.Store(ctx, sealed); err != nil {
		if !errors.Is(err, common.ErrTransportFailure) {
			err = fmt.Errorf("%w: %w", common.ErrTransportFailure, err)
		}
		s.log.Error(ctx, "document upload failed, change kept in memory", "error", err)
		return err
	}

	s.doc.AccessLogs = out.AccessLogs
	return nil
}

func logKey(l models.AccessLog) string {
	return common.NormalizeEmail(l.Email) + "|" + l.TS.UTC().Format(time.RFC3339Nano)
}

// mergeLogs returns the union of a and b keyed by (normalized email,
// timestamp). The first occurrence of a key is kept.
func mergeLogs(a, b []models.AccessLog) []models.AccessLog {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]models.AccessLog, 0, len(a)+len(b))
	for _, list := range [][]models.AccessLog{a, b} {
		for _, l := range list {
			k := logKey(l)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

func sortNewestFirst(logs []models.AccessLog) []models.AccessLog {
	sort.SliceStable(logs, func(i, j int) bool {
		if !logs[i].TS.Equal(logs[j].TS) {
			return logs[i].TS.After(logs[j].TS)
		}
		return logs[i].Email < logs[j].Email
	})
	return logs
}

// prune drops entries older than the retention window.
func (s *Store) prune(logs []models.AccessLog) []models.AccessLog {
	cutoff := s.now().UTC().AddDate(0, 0, -s.settings.RetentionDays)
	out := logs[:0:0]
	for _, l := range logs {
		if !l.TS.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out
}
