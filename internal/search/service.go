package search

import "go.uber.org/zap"

// Service is the facade that tries Meilisearch first and falls back to a
// direct history scan.
type Service struct {
	meili *Meili
	scan  *Scan
	log   *zap.Logger
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured; the scan fallback always works.
func NewService(meili *Meili, scan *Scan, log *zap.Logger) *Service {
	return &Service{meili: meili, scan: scan, log: log}
}

// Search tries Meilisearch if healthy, otherwise scans the user's history.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.log.Warn("meilisearch error, falling back to scan", zap.Error(err))
	}

	results, total, err := s.scan.Search(q)
	if err != nil {
		s.log.Error("history scan failed", zap.Error(err))
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexNotes pushes note records to Meilisearch (fire-and-forget).
func (s *Service) IndexNotes(records []NoteRecord) {
	if s.meili == nil || !s.meili.Healthy() || len(records) == 0 {
		return
	}
	go func() {
		if err := s.meili.IndexNotes(records); err != nil {
			s.log.Warn("index notes", zap.Int("count", len(records)), zap.Error(err))
		}
	}()
}

// Close stops the Meilisearch health monitor, if one is running.
func (s *Service) Close() {
	if s.meili != nil {
		s.meili.Close()
	}
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
