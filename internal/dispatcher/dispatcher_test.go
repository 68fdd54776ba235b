package dispatcher

import (
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

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register("toggle-play", func(e Event) (any, error) {
		called = true
		return "result", nil
	})

	result, err := d.Dispatch(Event{Command: "toggle-play", Args: []string{"arg1"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: "rewind"})

	if err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestDispatcher_DeferredHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var posted []func()
	post := func(f func()) { posted = append(posted, f) }

	var processed []string
	d.Register("seek", func(e Event) (any, error) {
		processed = append(processed, e.Args[0])
		return nil, nil
	}, Deferred(post))

	for _, arg := range []string{"10", "20", "30"} {
		result, err := d.Dispatch(Event{Command: "seek", Args: []string{arg}})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	if len(processed) != 0 {
		t.Fatalf("handler ran before the loop drained: %v", processed)
	}

	for _, f := range posted {
		f()
	}

	if fmt.Sprint(processed) != "[10 20 30]" {
		t.Errorf("expected events in dispatch order, got %v", processed)
	}
}

func TestDispatcher_DeferredFromOtherGoroutines(t *testing.T) {
	d, _ := newTestDispatcher(t)

	loop := make(chan func(), 16)
	var processed atomic.Int32
	d.Register("toggle-play", func(e Event) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Deferred(func(f func()) { loop <- f }))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(Event{Command: "toggle-play"})
		}()
	}
	wg.Wait()

	timeout := time.After(time.Second)
	for processed.Load() < 4 {
		select {
		case f := <-loop:
			f()
		case <-timeout:
			t.Fatalf("expected 4 processed, got %d", processed.Load())
		}
	}
}

func TestDispatcher_SetsTimestamp(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got time.Time
	d.Register("step-next", func(e Event) (any, error) {
		got = e.Timestamp
		return nil, nil
	})

	d.Dispatch(Event{Command: "step-next"})
	if got.IsZero() {
		t.Error("expected dispatch to stamp the event")
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("seek", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: "seek", Args: []string{"a", "b"}})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("seek", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(Event{Command: "seek"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_DeferredHandlerErrorLoggedOnce(t *testing.T) {
	for _, tc := range []struct {
		name string
		opts []Option
	}{
		{"deferred", nil},
		{"deferred and logged", []Option{Logged()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, logger := newTestDispatcher(t)

			var posted []func()
			opts := append([]Option{Deferred(func(f func()) { posted = append(posted, f) })}, tc.opts...)
			d.Register("seek", func(e Event) (any, error) {
				return nil, fmt.Errorf("value out of range")
			}, opts...)

			result, err := d.Dispatch(Event{Command: "seek", Args: []string{"abc"}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != "queued" {
				t.Errorf("expected 'queued', got %v", result)
			}

			for _, f := range posted {
				f()
			}

			logger.mu.Lock()
			defer logger.mu.Unlock()

			failures := 0
			for _, msg := range logger.messages {
				if strings.HasPrefix(msg, "ERROR") {
					failures++
					if !strings.Contains(msg, "value out of range") {
						t.Errorf("error log is missing the cause: %s", msg)
					}
				}
			}
			if failures != 1 {
				t.Errorf("expected exactly one error log, got %d: %v", failures, logger.messages)
			}
		})
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("step-next", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("step-next") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler("step-back") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_Commands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("step-next", func(e Event) (any, error) { return nil, nil })
	d.Register("seek", func(e Event) (any, error) { return nil, nil })

	if got := fmt.Sprint(d.Commands()); got != "[seek step-next]" {
		t.Errorf("unexpected commands: %s", got)
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var posted []func()
	called := 0
	d.Register("toggle-loop", func(e Event) (any, error) {
		called++
		return "done", nil
	}, Deferred(func(f func()) { posted = append(posted, f) }), Logged())

	result, err := d.Dispatch(Event{Command: "toggle-loop"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "queued" {
		t.Errorf("expected 'queued', got %v", result)
	}

	logger.mu.Lock()
	if len(logger.messages) != 0 {
		t.Errorf("expected no log messages before the loop ran, got %d", len(logger.messages))
	}
	logger.mu.Unlock()

	for _, f := range posted {
		f()
	}

	if called != 1 {
		t.Errorf("expected 1 processed, got %d", called)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected log messages, got %d", len(logger.messages))
	}
}
