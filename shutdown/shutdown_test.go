package shutdown

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/aiponge/servicekit/config"
)

// exitRecorder stands in for os.Exit. The real thing never returns, so
// assertions use the first recorded code.
type exitRecorder struct {
	mu    sync.Mutex
	codes []int
	ch    chan int
}

func newExitRecorder() *exitRecorder {
	return &exitRecorder{ch: make(chan int, 4)}
}

func (r *exitRecorder) exit(code int) {
	r.mu.Lock()
	r.codes = append(r.codes, code)
	r.mu.Unlock()
	select {
	case r.ch <- code:
	default:
	}
}

func (r *exitRecorder) firstCode(t *testing.T, timeout time.Duration) int {
	t.Helper()
	select {
	case code := <-r.ch:
		return code
	case <-time.After(timeout):
		t.Fatal("timed out waiting for exit")
		return -1
	}
}

func (r *exitRecorder) all() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.codes...)
}

func newTestOrchestrator(t *testing.T, timeoutMS int64) (*Orchestrator, *exitRecorder) {
	t.Helper()
	rec := newExitRecorder()
	o := New(config.ShutdownConfig{TimeoutMS: timeoutMS}, WithExit(rec.exit))
	return o, rec
}

type orderLog struct {
	mu    sync.Mutex
	order []string
}

func (l *orderLog) step(name string) Hook {
	return func(ctx context.Context) error {
		l.mu.Lock()
		l.order = append(l.order, name)
		l.mu.Unlock()
		return nil
	}
}

func (l *orderLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

func TestNewDefaults(t *testing.T) {
	o, _ := newTestOrchestrator(t, 0)

	if o.State() != StateRunning {
		t.Errorf("expected state %s, got %s", StateRunning, o.State())
	}

	// Zero config falls back to the 30s default; visible via the hook
	// context deadline.
	var remaining time.Duration
	o.RegisterHook(func(ctx context.Context) error {
		if d, ok := ctx.Deadline(); ok {
			remaining = time.Until(d)
		}
		return nil
	})
	o.Trigger("test")

	if remaining < 25*time.Second || remaining > 31*time.Second {
		t.Errorf("expected ~30s hook budget, got %v", remaining)
	}
}

func TestTriggerRunsPhasesInOrder(t *testing.T) {
	o, rec := newTestOrchestrator(t, 5000)
	var log orderLog

	// Registered deliberately out of phase order; plain hook first.
	o.RegisterHook(log.step("plain-1"), "plain-1")
	o.RegisterPhasedHook(PhaseConnections, log.step("connections-1"))
	o.RegisterPhasedHook(PhaseDrain, log.step("drain-1"))
	o.RegisterPhasedHook(PhaseSchedulers, log.step("schedulers-1"))
	o.RegisterPhasedHook(PhaseSchedulers, log.step("schedulers-2"))
	o.RegisterPhasedHook(PhaseQueues, log.step("queues-1"))
	o.RegisterPhasedHook(PhaseDefault, log.step("default-1"))

	o.Trigger("test")

	want := []string{"drain-1", "schedulers-1", "schedulers-2", "queues-1", "connections-1", "default-1", "plain-1"}
	got := log.snapshot()
	if len(got) != len(want) {
		t.Fatalf("expected %d hooks to run, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if codes := rec.all(); len(codes) != 1 || codes[0] != 0 {
		t.Errorf("expected single exit 0, got %v", codes)
	}
	if o.State() != StateExited {
		t.Errorf("expected state %s, got %s", StateExited, o.State())
	}
}

func TestHookFailureSkippedPast(t *testing.T) {
	o, rec := newTestOrchestrator(t, 5000)
	var log orderLog

	o.RegisterPhasedHook(PhaseSchedulers, func(ctx context.Context) error {
		log.step("a")(ctx)
		return fmt.Errorf("a failed")
	}, "a")
	o.RegisterPhasedHook(PhaseSchedulers, log.step("b"), "b")
	o.RegisterPhasedHook(PhaseQueues, log.step("c"), "c")

	o.Trigger("test")

	got := log.snapshot()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("expected all hooks to run despite failure, got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	if codes := rec.all(); len(codes) != 1 || codes[0] != 0 {
		t.Errorf("hook failure must not change the exit code, got %v", codes)
	}
}

func TestHookPanicContained(t *testing.T) {
	o, rec := newTestOrchestrator(t, 5000)
	var log orderLog

	o.RegisterPhasedHook(PhaseDrain, func(ctx context.Context) error {
		panic("drain hook exploded")
	}, "exploding")
	o.RegisterPhasedHook(PhaseConnections, log.step("survivor"))

	o.Trigger("test")

	if got := log.snapshot(); len(got) != 1 || got[0] != "survivor" {
		t.Errorf("expected later hook to run after panic, got %v", got)
	}
	if codes := rec.all(); len(codes) != 1 || codes[0] != 0 {
		t.Errorf("expected exit 0, got %v", codes)
	}
}

func TestSecondTriggerNoOp(t *testing.T) {
	o, rec := newTestOrchestrator(t, 5000)

	runs := 0
	o.RegisterHook(func(ctx context.Context) error {
		runs++
		return nil
	})

	o.Trigger("first")
	o.Trigger("second")

	if runs != 1 {
		t.Errorf("expected hooks to run once, ran %d times", runs)
	}
	if codes := rec.all(); len(codes) != 1 {
		t.Errorf("expected a single exit, got %v", codes)
	}
}

func TestUnknownPhaseFoldsToDefault(t *testing.T) {
	o, _ := newTestOrchestrator(t, 5000)
	var log orderLog

	o.RegisterHook(log.step("plain"))
	o.RegisterPhasedHook(Phase("weird"), log.step("weird"))

	o.Trigger("test")

	got := log.snapshot()
	if len(got) != 2 || got[0] != "weird" || got[1] != "plain" {
		t.Errorf("expected unknown phase to run in default, before plain hooks: %v", got)
	}
}

func TestRegisterDuringShutdownDropped(t *testing.T) {
	o, _ := newTestOrchestrator(t, 5000)

	var lateRan atomic.Bool
	o.RegisterPhasedHook(PhaseDrain, func(ctx context.Context) error {
		o.RegisterHook(func(ctx context.Context) error {
			lateRan.Store(true)
			return nil
		}, "late")
		return nil
	})

	o.Trigger("test")

	if lateRan.Load() {
		t.Error("hook registered during shutdown must not run")
	}
}

func TestTimeoutForcesExit(t *testing.T) {
	o, rec := newTestOrchestrator(t, 50)

	block := make(chan struct{})
	o.RegisterPhasedHook(PhaseDrain, func(ctx context.Context) error {
		<-block
		return nil
	}, "stuck")

	go o.Trigger("test")

	if code := rec.firstCode(t, 2*time.Second); code != 1 {
		t.Errorf("expected exit 1 on deadline, got %d", code)
	}
	close(block)
}

func TestSetupClosesListener(t *testing.T) {
	o, rec := newTestOrchestrator(t, 5000)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	o.Setup(ln, 0)

	o.Trigger("test")

	if _, err := ln.Accept(); err == nil {
		t.Error("expected accept to fail after shutdown closed the listener")
	}
	if codes := rec.all(); len(codes) != 1 || codes[0] != 0 {
		t.Errorf("expected exit 0, got %v", codes)
	}
}

func TestSetupTimeoutOverride(t *testing.T) {
	o, _ := newTestOrchestrator(t, 30000)

	var remaining time.Duration
	o.RegisterHook(func(ctx context.Context) error {
		if d, ok := ctx.Deadline(); ok {
			remaining = time.Until(d)
		}
		return nil
	})
	o.Setup(nil, 500*time.Millisecond)
	o.Trigger("test")

	if remaining <= 0 || remaining > time.Second {
		t.Errorf("expected Setup timeout to override config, budget %v", remaining)
	}
}

func TestSignalTriggersShutdown(t *testing.T) {
	o, rec := newTestOrchestrator(t, 30000)

	var ran atomic.Bool
	o.RegisterHook(func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})
	o.Setup(nil, 0)

	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("kill: %v", err)
	}

	if code := rec.firstCode(t, 3*time.Second); code != 0 {
		t.Errorf("expected exit 0 after signal, got %d", code)
	}
	if !ran.Load() {
		t.Error("expected hooks to run on signal")
	}
	if o.State() != StateExited {
		t.Errorf("expected state %s, got %s", StateExited, o.State())
	}
}

func TestWaitReturnsAfterSequence(t *testing.T) {
	o, _ := newTestOrchestrator(t, 5000)

	done := make(chan struct{})
	go func() {
		o.Wait()
		close(done)
	}()

	o.Trigger("test")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the sequence completed")
	}
}
