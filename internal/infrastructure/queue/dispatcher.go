package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/storefront/identity-api/internal/core/domain"
	"github.com/storefront/identity-api/internal/core/ports"
	"github.com/storefront/identity-api/internal/core/security"
	"github.com/storefront/identity-api/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	insertTimeout  = 5 * time.Second
)

// Dispatcher persists authentication activity off the request path. Events
// are sharded by email so the trail of one account is written in order.
type Dispatcher struct {
	workers []chan domain.Activity
	repo    ports.ActivityRepository
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, repo ports.ActivityRepository, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.Activity, numWorkers),
		repo:    repo,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.Activity, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit once Stop has closed
// their channel and the backlog is written.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Record implements ports.ActivityRecorder. It never blocks: when the target
// worker is full the event is dropped and counted.
func (d *Dispatcher) Record(a domain.Activity) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.ActivityDroppedTotal.Inc()
		return
	}

	idx := d.shardIndex(a.Email)
	select {
	case d.workers[idx] <- a:
		metrics.ActivityQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.ActivityDroppedTotal.Inc()
		d.log.Warn().Str("kind", string(a.Kind)).Int("worker_id", idx).Msg("activity queue full, event dropped")
	}
}

// Stop closes the worker channels and waits for the backlog to be written or
// for ctx to expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps an email deterministically to a worker index.
// shardIndex keys on the folded email so every spelling of one account lands
// on the same worker.
func (d *Dispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(security.NormalizeEmail(email)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.Activity) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for event := range ch {
		metrics.ActivityQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

		insertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), insertTimeout)
		err := d.repo.Insert(insertCtx, &event)
		cancel()
		if err != nil {
			metrics.ActivityErrorsTotal.Inc()
			d.log.Error().Err(err).
				Str("kind", string(event.Kind)).
				Int("worker_id", id).
				Msg("activity insert failed")
		}
	}
}
