package documents

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Processor runs document ingestion jobs in the background so uploads
// return immediately.
type Processor struct {
	service     *Service
	logger      *zap.Logger
	jobs        chan uuid.UUID
	workerCount int
	bufferSize  int
	jobTimeout  time.Duration
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// ProcessorConfig holds configuration for the background processor.
type ProcessorConfig struct {
	BufferSize  int           // Size of the job buffer channel
	WorkerCount int           // Number of concurrent workers
	JobTimeout  time.Duration // Per-document processing deadline
}

// DefaultProcessorConfig returns the default processor configuration.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		BufferSize:  100,
		WorkerCount: 2,
		JobTimeout:  5 * time.Minute,
	}
}

// NewProcessor creates a new background document processor.
func NewProcessor(service *Service, logger *zap.Logger, config ProcessorConfig) *Processor {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultProcessorConfig().BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = DefaultProcessorConfig().WorkerCount
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultProcessorConfig().JobTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		service:     service,
		logger:      logger,
		jobs:        make(chan uuid.UUID, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		jobTimeout:  config.JobTimeout,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start launches the worker goroutines.
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return fmt.Errorf("document processor already started")
	}

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.started = true
	p.logger.Info("started document processor",
		zap.Int("worker_count", p.workerCount),
		zap.Int("buffer_size", p.bufferSize))

	return nil
}

// Stop drains the queue and waits for in-flight jobs up to the timeout.
func (p *Processor) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return fmt.Errorf("document processor not started")
	}
	p.mu.Unlock()

	p.logger.Info("stopping document processor", zap.Int("pending_jobs", len(p.jobs)))

	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("document processor stopped gracefully")
		p.cancel()
		return nil
	case <-time.After(timeout):
		p.cancel()
		return fmt.Errorf("document processor stop timeout after %v", timeout)
	}
}

// Enqueue schedules a document for processing without blocking. Returns
// an error when the buffer is full.
func (p *Processor) Enqueue(documentID uuid.UUID) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return fmt.Errorf("document processor not started")
	}
	p.mu.Unlock()

	select {
	case p.jobs <- documentID:
		return nil
	default:
		p.logger.Warn("document processing queue full, dropping job",
			zap.String("document_id", documentID.String()))
		return fmt.Errorf("document processing queue full")
	}
}

// Pending returns the number of queued jobs.
func (p *Processor) Pending() int {
	return len(p.jobs)
}

func (p *Processor) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("document worker started", zap.Int("worker_id", id))

	for documentID := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
		result := p.service.Process(ctx, documentID)
		cancel()

		if !result.Success {
			p.logger.Error("document processing failed",
				zap.Int("worker_id", id),
				zap.String("document_id", documentID.String()),
				zap.String("error", result.Error))
		}
	}

	p.logger.Debug("document worker stopped", zap.Int("worker_id", id))
}
