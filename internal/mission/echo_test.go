package mission

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DaPhysikist/Nautilus/internal/motor"
)

type fakeRecorder struct {
	done chan struct{}
}

func (r *fakeRecorder) Record(ctx context.Context, d time.Duration) (string, error) {
	r.done <- struct{}{}
	return "2024-05-17T10:30:00Z.wav", nil
}

// collectingController applies queued speeds into a slice and signals each
// apply.
type collectingController struct {
	mu      sync.Mutex
	applied []motor.Speeds
	signal  chan struct{}
}

func newCollectingController() *collectingController {
	return &collectingController{signal: make(chan struct{}, 128)}
}

func (c *collectingController) UpdateSpeeds(s motor.Speeds) error {
	c.mu.Lock()
	c.applied = append(c.applied, s)
	c.mu.Unlock()
	c.signal <- struct{}{}
	return nil
}

func (c *collectingController) wait(t *testing.T, n int) []motor.Speeds {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.signal:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for motor update %d of %d", i+1, n)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]motor.Speeds, len(c.applied))
	copy(out, c.applied)
	return out
}

func startConsumer(t *testing.T, q *motor.Queue) *collectingController {
	t.Helper()
	driver := newCollectingController()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx, driver)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return driver
}

func TestEchoLocationDivesOnceAndRecords(t *testing.T) {
	q := motor.NewQueue()
	driver := startConsumer(t, q)
	rec := &fakeRecorder{done: make(chan struct{}, 8)}
	m := NewEchoLocation(context.Background(), q, rec)

	if err := m.Loop(); err != nil {
		t.Fatalf("Loop() = %v", err)
	}

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("no hydrophone capture started")
	}

	applied := driver.wait(t, 1)
	if want := (motor.Speeds{motor.Front: DefaultDiveSpeed, motor.Back: DefaultDiveSpeed}); applied[0] != want {
		t.Fatalf("first motor update = %v, want dive %v", applied[0], want)
	}

	// Further loops must not re-issue the dive command.
	for i := 0; i < 5; i++ {
		if err := m.Loop(); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(20 * time.Millisecond)
	if got := driver.wait(t, 0); len(got) != 1 {
		t.Fatalf("motor updates after repeated loops = %v, want just the dive", got)
	}
}

func TestEchoLocationWithoutRecorderStillDives(t *testing.T) {
	q := motor.NewQueue()
	driver := startConsumer(t, q)
	m := NewEchoLocation(context.Background(), q, nil)

	if err := m.Loop(); err != nil {
		t.Fatalf("Loop() = %v", err)
	}
	applied := driver.wait(t, 1)
	if applied[0][motor.Front] != DefaultDiveSpeed {
		t.Fatalf("motor update = %v, want dive", applied[0])
	}
}

func TestEchoLocationAbortZeroesMotors(t *testing.T) {
	q := motor.NewQueue()
	driver := startConsumer(t, q)
	m := NewEchoLocation(context.Background(), q, nil)

	_ = m.Loop()
	m.Abort()

	applied := driver.wait(t, 2)
	if last := applied[len(applied)-1]; last != motor.Zero {
		t.Fatalf("last motor update = %v, want zero", last)
	}
}
