package generate

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// jobTimeout bounds one session's generation, all genres included.
const jobTimeout = 3 * time.Minute

// Pool runs session generation in the background.
type Pool struct {
	gen    *Generator
	jobs   chan string
	wg     sync.WaitGroup
	logger *slog.Logger

	mu       sync.Mutex
	inFlight map[string]bool
	closed   bool
}

// NewPool creates a worker pool with the given queue size.
func NewPool(gen *Generator, queueSize int, logger *slog.Logger) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		gen:      gen,
		jobs:     make(chan string, queueSize),
		logger:   logger,
		inFlight: make(map[string]bool),
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for sessionID := range p.jobs {
				p.process(sessionID)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to finish. Later calls
// and later submits are no-ops.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a session without blocking. Returns false if the queue is
// full. A session already queued or running is accepted without queueing
// it twice.
func (p *Pool) Submit(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	if p.inFlight[sessionID] {
		return true
	}
	select {
	case p.jobs <- sessionID:
		p.inFlight[sessionID] = true
		return true
	default:
		p.logger.Warn("generation queue full, dropping job", "session_id", sessionID)
		return false
	}
}

// InFlight reports whether a session is queued or running.
func (p *Pool) InFlight(sessionID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight[sessionID]
}

func (p *Pool) process(sessionID string) {
	defer func() {
		p.mu.Lock()
		delete(p.inFlight, sessionID)
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := p.gen.GenerateSession(ctx, sessionID); err != nil {
		p.logger.Error("background generation failed", "session_id", sessionID, "error", err)
	}
}
