package tasks

import (
	"context"
	_ "embed"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/repositories"
	"github.com/desertthunder/tunebox/internal/shared"
)

//go:embed assets/placeholder.png
var placeholderPNG []byte

// CoverSearcher finds and downloads cover art. Implemented by [services.ITunesService].
type CoverSearcher interface {
	SearchArtwork(ctx context.Context, artist, title string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// CoverJob asks the pool to produce Dest for a track.
type CoverJob struct {
	User    models.UserID
	TrackID string
	Artist  string
	Title   string
	Dest    string
}

// CoverPoolOpts configures a [CoverPool].
type CoverPoolOpts struct {
	Workers     int           // Concurrent workers (default: 5)
	RateLimit   float64       // Search requests per second (default: 5)
	Timeout     time.Duration // Per-job search + download timeout (default: 10s)
	Placeholder string        // Image copied when no cover is found; embedded PNG when unreadable
}

// CoverPool fetches cover art on a fixed set of workers.
//
// The queue is unbounded: [CoverPool.Submit] never blocks the caller.
type CoverPool struct {
	searcher CoverSearcher
	opts     CoverPoolOpts
	limiter  *rate.Limiter
	logger   *log.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []CoverJob
	started bool
	stopped bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewCoverPool creates a pool. Workers start with [CoverPool.Start].
func NewCoverPool(searcher CoverSearcher, opts CoverPoolOpts, logger *log.Logger) *CoverPool {
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	p := &CoverPool{
		searcher: searcher,
		opts:     opts,
		limiter:  rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		logger:   shared.WithLogger(logger, "component", "covers"),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Workers returns the configured worker count.
func (p *CoverPool) Workers() int { return p.opts.Workers }

// Start launches the workers. ctx bounds every job; canceling it makes pending jobs fall back to the placeholder.
func (p *CoverPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Debug("cover pool started", "workers", p.opts.Workers, "rate", p.opts.RateLimit)
}

// Submit queues a job. After [CoverPool.Stop] the placeholder is written synchronously instead.
func (p *CoverPool) Submit(job CoverJob) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		p.writePlaceholder(job)
		return
	}
	p.queue = append(p.queue, job)
	p.mu.Unlock()
	p.cond.Signal()
}

// Pending returns the number of queued jobs not yet picked up by a worker.
func (p *CoverPool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Stop drains the queue and waits for the workers to exit. Safe to call more than once.
func (p *CoverPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	started := p.started
	var leftover []CoverJob
	if !started {
		leftover, p.queue = p.queue, nil
	}
	p.mu.Unlock()
	p.cond.Broadcast()

	for _, job := range leftover {
		p.writePlaceholder(job)
	}

	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	p.logger.Debug("cover pool stopped")
}

func (p *CoverPool) worker(id int) {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue[0] = CoverJob{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		p.process(id, job)
	}
}

// process fetches the artwork for job, falling back to the placeholder on any failure.
func (p *CoverPool) process(worker int, job CoverJob) {
	ctx, cancel := context.WithTimeout(p.ctx, p.opts.Timeout)
	defer cancel()

	if err := p.fetch(ctx, job); err != nil {
		p.logger.Warn("cover lookup failed, using placeholder",
			"worker", worker, "user", job.User, "track", job.TrackID, "error", err)
		p.writePlaceholder(job)
		return
	}
	p.logger.Debug("cover saved", "worker", worker, "user", job.User, "track", job.TrackID)
}

func (p *CoverPool) fetch(ctx context.Context, job CoverJob) error {
	if p.searcher == nil {
		return fmt.Errorf("%w: no cover searcher configured", shared.ErrServiceUnavailable)
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	url, err := p.searcher.SearchArtwork(ctx, job.Artist, job.Title)
	if err != nil {
		return err
	}
	data, err := p.searcher.Download(ctx, url)
	if err != nil {
		return err
	}
	return repositories.WriteFileAtomic(job.Dest, data, 0644)
}

func (p *CoverPool) writePlaceholder(job CoverJob) {
	if p.opts.Placeholder != "" {
		err := repositories.CopyFileAtomic(p.opts.Placeholder, job.Dest)
		if err == nil {
			return
		}
		p.logger.Warn("placeholder unreadable, using embedded image", "path", p.opts.Placeholder, "error", err)
	}
	if err := repositories.WriteFileAtomic(job.Dest, placeholderPNG, 0644); err != nil {
		p.logger.Error("failed to write placeholder cover", "user", job.User, "track", job.TrackID, "error", err)
	}
}
