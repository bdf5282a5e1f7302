package transcribe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockEngine implements Engine for testing.
type mockEngine struct {
	mu      sync.Mutex
	calls   []string
	result  *Result
	err     error
	block   chan struct{} // if set, Transcribe waits on it or ctx
	started chan struct{} // if set, signalled when Transcribe begins
}

func (m *mockEngine) Name() string  { return "mock" }
func (m *mockEngine) Model() string { return "tiny" }

func (m *mockEngine) Transcribe(ctx context.Context, audioPath string) (*Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, audioPath)
	m.mu.Unlock()

	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &Result{Text: "merhaba dünya", Language: "tr"}, nil
}

func newTestPool(engine Engine, workers, queueSize int) *WorkerPool {
	return NewWorkerPool(WorkerPoolOptions{
		Engine:    engine,
		Workers:   workers,
		QueueSize: queueSize,
		Log:       zerolog.Nop(),
	})
}

func TestNewWorkerPool(t *testing.T) {
	wp := newTestPool(&mockEngine{}, 4, 100)
	if wp == nil {
		t.Fatal("NewWorkerPool returned nil")
	}
	if cap(wp.jobs) != 100 {
		t.Errorf("queue capacity = %d, want 100", cap(wp.jobs))
	}
	if wp.Workers() != 4 {
		t.Errorf("Workers = %d, want 4", wp.Workers())
	}
}

func TestWorkerPool_Ready(t *testing.T) {
	if newTestPool(nil, 1, 1).Ready() {
		t.Error("pool without engine should not be ready")
	}
	if !newTestPool(&mockEngine{}, 1, 1).Ready() {
		t.Error("pool with engine should be ready")
	}
}

func TestWorkerPool_NoEngine(t *testing.T) {
	wp := newTestPool(nil, 1, 1)
	_, err := wp.Transcribe(context.Background(), "/tmp/x.wav")
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestWorkerPool_Success(t *testing.T) {
	eng := &mockEngine{}
	wp := newTestPool(eng, 2, 4)
	wp.Start()
	defer wp.Stop()

	res, err := wp.Transcribe(context.Background(), "/tmp/a.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "merhaba dünya" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.LanguageOrUnknown() != "tr" {
		t.Errorf("Language = %q, want tr", res.LanguageOrUnknown())
	}
	if len(eng.calls) != 1 || eng.calls[0] != "/tmp/a.wav" {
		t.Errorf("engine calls = %v", eng.calls)
	}

	stats := wp.Stats()
	if stats.Completed != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 1 completed", stats)
	}
}

func TestWorkerPool_EngineError(t *testing.T) {
	boom := errors.New("model exploded")
	wp := newTestPool(&mockEngine{err: boom}, 1, 1)
	wp.Start()
	defer wp.Stop()

	_, err := wp.Transcribe(context.Background(), "/tmp/a.wav")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if wp.Stats().Failed != 1 {
		t.Errorf("Failed = %d, want 1", wp.Stats().Failed)
	}
}

func TestWorkerPool_QueueFull(t *testing.T) {
	// 0 workers = nobody draining
	wp := newTestPool(&mockEngine{}, 0, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First job occupies the only queue slot and waits.
	go wp.Transcribe(ctx, "/tmp/first.wav")
	deadline := time.Now().Add(2 * time.Second)
	for wp.Stats().Pending != 1 {
		if time.Now().After(deadline) {
			t.Fatal("first job never queued")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, err := wp.Transcribe(context.Background(), "/tmp/second.wav")
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("err = %v, want ErrQueueFull", err)
	}
}

func TestWorkerPool_ContextCancelled(t *testing.T) {
	eng := &mockEngine{block: make(chan struct{}), started: make(chan struct{}, 1)}
	wp := newTestPool(eng, 1, 1)
	wp.Start()
	defer wp.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := wp.Transcribe(ctx, "/tmp/slow.wav")
		errCh <- err
	}()

	<-eng.started
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Transcribe did not return after cancel")
	}
}

func TestWorkerPool_Timeout(t *testing.T) {
	eng := &mockEngine{block: make(chan struct{})}
	wp := NewWorkerPool(WorkerPoolOptions{
		Engine:    eng,
		Workers:   1,
		QueueSize: 1,
		Timeout:   20 * time.Millisecond,
		Log:       zerolog.Nop(),
	})
	wp.Start()
	defer wp.Stop()

	_, err := wp.Transcribe(context.Background(), "/tmp/slow.wav")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestWorkerPool_TranscribeAfterStop(t *testing.T) {
	wp := newTestPool(&mockEngine{}, 1, 10)
	wp.Start()
	wp.Stop()

	_, err := wp.Transcribe(context.Background(), "/tmp/a.wav")
	if !errors.Is(err, ErrPoolStopped) {
		t.Errorf("err = %v, want ErrPoolStopped", err)
	}
}

func TestWorkerPool_StopDrains(t *testing.T) {
	wp := newTestPool(&mockEngine{}, 2, 10)
	wp.Start()

	done := make(chan struct{})
	go func() {
		wp.Stop()
		wp.Stop() // second call is a no-op
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not return within 5 seconds")
	}
}

func TestWorkerPool_Concurrent(t *testing.T) {
	wp := newTestPool(&mockEngine{}, 3, 32)
	wp.Start()
	defer wp.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := wp.Transcribe(context.Background(), "/tmp/c.wav"); err != nil {
				t.Errorf("Transcribe: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := wp.Stats().Completed; got != 20 {
		t.Errorf("Completed = %d, want 20", got)
	}
}
