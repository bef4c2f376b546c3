package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func (l *testLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	return d, logger
}

var ctx = context.Background()

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register("update", func(_ context.Context, e Event) (any, error) {
		got = e
		return "result", nil
	})

	result, err := d.Dispatch(ctx, Event{Command: "update", SessionID: "s1", Payload: json.RawMessage(`{"kind":"sirenToggled"}`)})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got.SessionID != "s1" {
		t.Errorf("expected session s1, got %q", got.SessionID)
	}
	if got.Timestamp.IsZero() {
		t.Error("expected timestamp to be stamped")
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(ctx, Event{Command: "teleport"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register("advice", func(_ context.Context, e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(ctx, Event{Command: "advice"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != Queued {
			t.Errorf("expected %q, got %v", Queued, result)
		}
	}

	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register("advice", func(_ context.Context, e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(2))

	// one being processed, two queued
	d.Dispatch(ctx, Event{Command: "advice"})
	d.Dispatch(ctx, Event{Command: "advice"})
	d.Dispatch(ctx, Event{Command: "advice"})

	_, err := d.Dispatch(ctx, Event{Command: "advice"})

	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register("advice", func(_ context.Context, e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(ctx, Event{Command: "advice"})
	d.Dispatch(ctx, Event{Command: "advice"})

	done := make(chan struct{})
	go func() {
		d.Dispatch(ctx, Event{Command: "advice"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
}

func TestDispatcher_BlockingRespectsContext(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	defer close(block)
	d.Register("advice", func(_ context.Context, e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(ctx, Event{Command: "advice"})
	d.Dispatch(ctx, Event{Command: "advice"})

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err := d.Dispatch(cctx, Event{Command: "advice"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("keys", func(_ context.Context, e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(ctx, Event{Command: "keys", Payload: json.RawMessage(`{"w":true}`)})

	if n := len(logger.snapshot()); n < 2 {
		t.Errorf("expected at least 2 log messages, got %d", n)
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("reset", func(_ context.Context, e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(ctx, Event{Command: "reset"})

	hasError := false
	for _, msg := range logger.snapshot() {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_BufferedErrorIsLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	done := make(chan struct{})
	d.Register("advice", func(_ context.Context, e Event) (any, error) {
		defer close(done)
		return nil, errors.New("busy")
	}, Buffered(1))

	d.Dispatch(ctx, Event{Command: "advice", SessionID: "s9"})
	<-done
	d.Close()

	found := false
	for _, msg := range logger.snapshot() {
		if strings.Contains(msg, "buffered command failed") && strings.Contains(msg, "s9") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected buffered failure to be logged, got %v", logger.snapshot())
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("aim", func(_ context.Context, e Event) (any, error) { return nil, nil })

	if !d.HasHandler("aim") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler("teleport") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_CloseRejectsBuffered(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("advice", func(_ context.Context, e Event) (any, error) { return nil, nil }, Buffered(4))
	d.Close()
	d.Close()

	if _, err := d.Dispatch(ctx, Event{Command: "advice"}); err == nil {
		t.Error("expected error after close")
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)

	d.Register("advice", func(_ context.Context, e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(ctx, Event{Command: "advice"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != Queued {
		t.Errorf("expected %q, got %v", Queued, result)
	}

	wg.Wait()

	if processed.Load() != 1 {
		t.Errorf("expected 1 processed, got %d", processed.Load())
	}

	if n := len(logger.snapshot()); n < 2 {
		t.Errorf("expected log messages, got %d", n)
	}
}
