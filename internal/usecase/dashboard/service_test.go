package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"feedback-portal/internal/domain"
)

type stubSource struct {
	records []domain.FeedbackRecord
	err     error
	calls   int
}

func (s *stubSource) ListFeedback(context.Context) ([]domain.FeedbackRecord, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func (s *stubSource) SubmitFeedback(context.Context, domain.FeedbackSubmission) error { return nil }

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memoryCache) Once(_ context.Context, key string, ttl time.Duration, fn func() error) error {
	c.mu.Lock()
	if _, ok := c.data[key]; ok {
		c.mu.Unlock()
		return nil
	}
	c.data[key] = []byte("1")
	c.mu.Unlock()
	return fn()
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Incr(context.Context, string, time.Duration) (int64, error) { return 0, nil }

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func TestViewFetchesSnapshotOncePerSession(t *testing.T) {
	source := &stubSource{records: sampleRecords()}
	cache := newMemoryCache()
	svc := NewService(source, cache, NewPipeline("en"), zerolog.Nop())
	now := time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	session := domain.Session{ID: "s1", ExpiresAt: now.Add(time.Hour)}

	view, err := svc.View(context.Background(), session, domain.ViewState{RatingFilter: "5"})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(view.Items) != 2 || view.Total != 5 {
		t.Fatalf("unexpected view %+v", view)
	}
	if cache.ttls[snapshotKey("s1")] != time.Hour {
		t.Fatalf("snapshot ttl = %v, want session ttl", cache.ttls[snapshotKey("s1")])
	}

	view, err = svc.View(context.Background(), session, domain.ViewState{SearchTerm: "JOHN"})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if len(view.Items) != 1 || view.Items[0].ID != "a" {
		t.Fatalf("unexpected items %+v", view.Items)
	}
	if source.calls != 1 {
		t.Fatalf("expected one upstream fetch, got %d", source.calls)
	}

	if err := svc.Reload(context.Background(), session); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, err := svc.View(context.Background(), session, domain.ViewState{}); err != nil {
		t.Fatalf("View: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected refetch after reload, got %d calls", source.calls)
	}
}

func TestViewFetchFailureHasNoPartialData(t *testing.T) {
	source := &stubSource{err: &domain.UpstreamError{Status: 500}}
	svc := NewService(source, newMemoryCache(), NewPipeline("en"), zerolog.Nop())

	view, err := svc.View(context.Background(), domain.Session{ID: "s1"}, domain.ViewState{})
	if !errors.Is(err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", err)
	}
	if view.State != domain.LoadStateError || len(view.Items) != 0 || view.Total != 0 {
		t.Fatalf("unexpected view on failure %+v", view)
	}
}

func TestViewEmptySnapshot(t *testing.T) {
	svc := NewService(&stubSource{records: []domain.FeedbackRecord{}}, newMemoryCache(), NewPipeline("en"), zerolog.Nop())
	view, err := svc.View(context.Background(), domain.Session{ID: "s"}, domain.ViewState{})
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	if view.Average != 0 || len(view.Items) != 0 || view.Histogram["5"] != 0 {
		t.Fatalf("unexpected view %+v", view)
	}
}
