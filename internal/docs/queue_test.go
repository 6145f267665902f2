package docs

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type recordingBuilder struct {
	mu    sync.Mutex
	jobs  []Job
	fail  bool
	built chan struct{}
}

func newRecordingBuilder() *recordingBuilder {
	return &recordingBuilder{built: make(chan struct{}, 16)}
}

func (b *recordingBuilder) Build(_ context.Context, job Job) error {
	b.mu.Lock()
	b.jobs = append(b.jobs, job)
	b.mu.Unlock()
	b.built <- struct{}{}
	if b.fail {
		return errors.New("build failed")
	}
	return nil
}

func (b *recordingBuilder) snapshot() []Job {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Job(nil), b.jobs...)
}

func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func waitBuilt(t *testing.T, builder *recordingBuilder, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-builder.built:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for build %d of %d", i+1, n)
		}
	}
}

func TestQueueRunsJobsInOrder(t *testing.T) {
	builder := newRecordingBuilder()
	queue := NewQueue(builder, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.Run(ctx)

	queue.Enqueue("foo", "1.0.0")
	queue.Enqueue("bar", "2.0.0")
	waitBuilt(t, builder, 2)

	jobs := builder.snapshot()
	if len(jobs) != 2 {
		t.Fatalf("built %d jobs, want 2", len(jobs))
	}
	if jobs[0] != (Job{Name: "foo", Version: "1.0.0"}) {
		t.Errorf("first job = %+v", jobs[0])
	}
	if jobs[1] != (Job{Name: "bar", Version: "2.0.0"}) {
		t.Errorf("second job = %+v", jobs[1])
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	builder := newRecordingBuilder()
	queue := NewQueue(builder, 1, discardLogger())

	// No worker is running, so only the buffered slot is retained and the
	// extra submissions must not block.
	done := make(chan struct{})
	go func() {
		queue.Enqueue("foo", "1.0.0")
		queue.Enqueue("foo", "1.0.1")
		queue.Enqueue("foo", "1.0.2")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.Run(ctx)
	waitBuilt(t, builder, 1)

	if jobs := builder.snapshot(); jobs[0].Version != "1.0.0" {
		t.Errorf("retained job = %+v, want the first submission", jobs[0])
	}
}

func TestQueueSurvivesBuildFailure(t *testing.T) {
	builder := newRecordingBuilder()
	builder.fail = true
	queue := NewQueue(builder, 4, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.Run(ctx)

	queue.Enqueue("foo", "1.0.0")
	queue.Enqueue("foo", "1.0.1")
	waitBuilt(t, builder, 2)

	if jobs := builder.snapshot(); len(jobs) != 2 {
		t.Fatalf("built %d jobs, want 2 despite failures", len(jobs))
	}
}

func TestNopBuilder(t *testing.T) {
	if err := (NopBuilder{}).Build(context.Background(), Job{Name: "foo", Version: "1.0.0"}); err != nil {
		t.Fatalf("NopBuilder: %v", err)
	}
}
