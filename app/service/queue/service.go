package queue

import (
	"log/slog"
	"vankeyword/app/config"

	"github.com/samber/do"
)

var _ do.Shutdownable = (*Service)(nil)

// Service buffers ledger flush requests for the engine's flush worker.
type Service struct {
	queue chan Job
}

// Job asks for the cooldown ledger of one scope to be written back.
type Job struct {
	Bucket string
	Scope  string
}

func New(di *do.Injector) (*Service, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewService(cfg.Cooldown.FlushQueueSize), nil
}

func NewService(size int) *Service {
	return &Service{
		queue: make(chan Job, size),
	}
}

// Add enqueues job without blocking. It reports false when the queue is full
// or already shut down, in which case the caller should flush by itself.
func (s *Service) Add(job Job) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	select {
	case s.queue <- job:
		return true
	default:
		slog.Warn("Flush queue is full", "bucket", job.Bucket, "scope", job.Scope)
		return false
	}
}

func (s *Service) Channel() <-chan Job {
	return s.queue
}

func (s *Service) Shutdown() error {
	close(s.queue)

	return nil
}
