package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/identity-api/internal/core/domain"
)

type stubActivityRepo struct {
	mu      sync.Mutex
	events  []domain.Activity
	insertF func(ctx context.Context, a *domain.Activity) error
}

func (r *stubActivityRepo) Insert(ctx context.Context, a *domain.Activity) error {
	if r.insertF != nil {
		if err := r.insertF(ctx, a); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *a)
	return nil
}

func (r *stubActivityRepo) snapshot() []domain.Activity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Activity(nil), r.events...)
}

func TestDispatcher_WritesEventsAndDrainsOnStop(t *testing.T) {
	repo := &stubActivityRepo{}
	d := NewDispatcher(2, repo, zerolog.Nop())
	d.Start(context.Background())

	emails := []string{"a@x.com", "b@x.com", "a@x.com", "c@x.com"}
	for _, e := range emails {
		d.Record(domain.Activity{Kind: domain.ActivityLoginSucceeded, Email: e})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := len(repo.snapshot()); got != len(emails) {
		t.Fatalf("persisted %d events, want %d", got, len(emails))
	}
}

func TestDispatcher_PreservesOrderPerEmail(t *testing.T) {
	repo := &stubActivityRepo{}
	d := NewDispatcher(4, repo, zerolog.Nop())
	d.Start(context.Background())

	kinds := []domain.ActivityKind{
		domain.ActivityRegistered,
		domain.ActivityLoginFailed,
		domain.ActivityLoginSucceeded,
	}
	for _, k := range kinds {
		d.Record(domain.Activity{Kind: k, Email: "a@x.com"})
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got := repo.snapshot()
	if len(got) != len(kinds) {
		t.Fatalf("persisted %d events, want %d", len(got), len(kinds))
	}
	for i, k := range kinds {
		if got[i].Kind != k {
			t.Errorf("event[%d] = %s, want %s", i, got[i].Kind, k)
		}
	}
}

func TestDispatcher_RecordNeverBlocks(t *testing.T) {
	release := make(chan struct{})
	repo := &stubActivityRepo{insertF: func(context.Context, *domain.Activity) error {
		<-release
		return nil
	}}
	d := NewDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer*2; i++ {
			d.Record(domain.Activity{Kind: domain.ActivityLoginFailed, Email: "a@x.com"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Record blocked on a full queue")
	}

	close(release)
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := len(repo.snapshot()); got > channelBuffer+1 {
		t.Fatalf("persisted %d events, expected overflow to be dropped", got)
	}
}

func TestDispatcher_InsertErrorDoesNotStopWorker(t *testing.T) {
	var calls int
	var mu sync.Mutex
	repo := &stubActivityRepo{insertF: func(context.Context, *domain.Activity) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return errors.New("write conflict")
		}
		return nil
	}}
	d := NewDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())

	d.Record(domain.Activity{Kind: domain.ActivityLoginFailed, Email: "a@x.com"})
	d.Record(domain.Activity{Kind: domain.ActivityLoginSucceeded, Email: "a@x.com"})
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	got := repo.snapshot()
	if len(got) != 1 || got[0].Kind != domain.ActivityLoginSucceeded {
		t.Fatalf("persisted = %+v", got)
	}
}

func TestDispatcher_RecordAfterStopIsDropped(t *testing.T) {
	repo := &stubActivityRepo{}
	d := NewDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	d.Record(domain.Activity{Kind: domain.ActivityLoginFailed, Email: "a@x.com"})
	if len(repo.snapshot()) != 0 {
		t.Fatal("event recorded after Stop should be dropped")
	}
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(8, &stubActivityRepo{}, zerolog.Nop())
	first := d.shardIndex("a@x.com")
	for i := 0; i < 10; i++ {
		if got := d.shardIndex("a@x.com"); got != first {
			t.Fatalf("shardIndex not stable: %d vs %d", got, first)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("shardIndex out of range: %d", first)
	}
}

func TestDispatcher_ShardIndexIgnoresEmailCase(t *testing.T) {
	d := NewDispatcher(8, &stubActivityRepo{}, zerolog.Nop())
	want := d.shardIndex("a@x.com")
	for _, email := range []string{"A@x.com", "A@X.COM", " a@x.com "} {
		if got := d.shardIndex(email); got != want {
			t.Errorf("shardIndex(%q) = %d, want %d", email, got, want)
		}
	}
}
