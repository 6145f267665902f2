// Package docs dispatches documentation-build jobs to an external sandboxed
// builder. The registry core only enqueues; it never awaits or inspects a
// build, and a worker failure cannot touch registry state. Pending jobs do
// not survive a restart.
package docs

import (
	"context"

	"github.com/sirupsen/logrus"
)

// DefaultQueueSize bounds the job buffer. A full queue drops the job with a
// warning rather than blocking a publish.
const DefaultQueueSize = 128

// Job identifies one crate version to build docs for.
type Job struct {
	Name    string
	Version string
}

// Builder runs one build. Implementations are expected to sandbox the build
// out of process and write output keyed by (name, version).
type Builder interface {
	Build(ctx context.Context, job Job) error
}

// Queue buffers jobs for a single sequential background worker.
type Queue struct {
	jobs    chan Job
	builder Builder
	logger  *logrus.Logger
}

// NewQueue builds a queue with the given buffer size (DefaultQueueSize when
// size is not positive).
func NewQueue(builder Builder, size int, logger *logrus.Logger) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		jobs:    make(chan Job, size),
		builder: builder,
		logger:  logger,
	}
}

// Enqueue submits a job without blocking. Jobs are dropped when the buffer
// is full; publish success is never coupled to build dispatch.
func (q *Queue) Enqueue(name, version string) {
	job := Job{Name: name, Version: version}
	select {
	case q.jobs <- job:
	default:
		q.logger.WithFields(logrus.Fields{
			"action":  "docs_enqueue",
			"crate":   name,
			"version": version,
		}).Warn("docs queue full, dropping job")
	}
}

// Run consumes jobs sequentially until ctx is cancelled. Build failures are
// logged and swallowed.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			fields := logrus.Fields{
				"action":  "docs_build",
				"crate":   job.Name,
				"version": job.Version,
			}
			q.logger.WithFields(fields).Info("building docs")
			if err := q.builder.Build(ctx, job); err != nil {
				q.logger.WithFields(fields).Warn(err.Error())
			}
		}
	}
}
